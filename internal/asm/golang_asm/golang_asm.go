// Package golang_asm drives the Go toolchain's assembler through
// github.com/twitchyliquid64/golang-asm so that tests can compare the bytes
// produced by asm_amd64 against an independent encoder.
package golang_asm

import (
	"fmt"

	goasm "github.com/twitchyliquid64/golang-asm"
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	asm_amd64 "github.com/swrast/pxjit/internal/asm/amd64"
)

// Reference assembles a sequence of Go assembler instructions.
type Reference struct {
	b *goasm.Builder
}

// NewReference returns a Reference for amd64.
func NewReference() (*Reference, error) {
	b, err := goasm.NewBuilder("amd64", 16)
	if err != nil {
		return nil, fmt.Errorf("failed to create a new assembly builder: %w", err)
	}
	return &Reference{b: b}, nil
}

// Add appends one instruction. Operands follow the Go assembler order: from is
// the source and to the destination.
func (r *Reference) Add(as obj.As, from, to obj.Addr) {
	p := r.b.NewProg()
	p.As = as
	p.From = from
	p.To = to
	r.b.AddInstruction(p)
}

// Assemble returns the machine code of the added instructions.
func (r *Reference) Assemble() []byte {
	return r.b.Assemble()
}

// Reg returns a register operand.
func Reg(reg asm_amd64.Reg) obj.Addr {
	return obj.Addr{Type: obj.TYPE_REG, Reg: GoReg(reg)}
}

// Mem returns the memory operand offset(base).
func Mem(base asm_amd64.Reg, offset int64) obj.Addr {
	return obj.Addr{Type: obj.TYPE_MEM, Reg: GoReg(base), Offset: offset}
}

// MemIndex returns the memory operand offset(base)(index*scale).
func MemIndex(base, index asm_amd64.Reg, scale int16, offset int64) obj.Addr {
	return obj.Addr{Type: obj.TYPE_MEM, Reg: GoReg(base), Index: GoReg(index), Scale: scale, Offset: offset}
}

// Const returns an immediate operand.
func Const(v int64) obj.Addr {
	return obj.Addr{Type: obj.TYPE_CONST, Offset: v}
}

// None is the absent operand.
func None() obj.Addr {
	return obj.Addr{Type: obj.TYPE_NONE}
}

// GoReg maps a register to its golang-asm counterpart.
func GoReg(reg asm_amd64.Reg) int16 {
	switch {
	case reg >= asm_amd64.RegAX && reg <= asm_amd64.RegR15:
		return int16(x86.REG_AX) + int16(reg-asm_amd64.RegAX)
	case reg.IsVector():
		return int16(x86.REG_X0) + int16(reg-asm_amd64.RegX0)
	default:
		panic(fmt.Sprintf("BUG: no golang-asm register for %d", reg))
	}
}
