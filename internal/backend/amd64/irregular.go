package amd64

import (
	"fmt"

	"github.com/swrast/pxjit/internal/asm"
	asm_amd64 "github.com/swrast/pxjit/internal/asm/amd64"
	"github.com/swrast/pxjit/ir"
)

func (a *Assembler) assembleMovImm(buf *asm.CodeBuffer, op *ir.Operator) {
	dst, res := a.result(op, false)
	if res.Kind == asm_amd64.OperandKindMem && asm_amd64.Lower32WillSignExtendTo64(uint64(op.Imm)) {
		// movq $imm32, slot
		asm_amd64.EncodeRegMem(buf, asm_amd64.PrefixNone, 0xc7, 1, 0, res.Amode, asm_amd64.Rex(0).SetW(), 4)
		buf.Emit4Bytes(uint32(op.Imm))
		return
	}
	asm_amd64.EncodeMovImm(buf, dst, op.Imm)
	spill(buf, dst, res)
}

// assembleShift assembles shifts by the count in cl.
func (a *Assembler) assembleShift(buf *asm.CodeBuffer, op *ir.Operator) {
	var ext asm_amd64.RegEnc
	switch op.Kind {
	case ir.KindShl:
		ext = 4
	case ir.KindShr:
		ext = 5
	case ir.KindSar:
		ext = 7
	default:
		panic(fmt.Sprintf("BUG: %s is not a variable shift", op.Kind))
	}
	if op.Mode != ir.AddrDirect {
		panic(fmt.Sprintf("BUG: op%d (%s) cannot address memory", op.ID(), op.Kind))
	}

	dst, res := a.result(op, false)
	if count := a.gpRegister(op, op.Operand2, "shift count"); count != asm_amd64.RegCX {
		panic(fmt.Sprintf("BUG: shift count of op%d (%s) must be in %%rcx, got %s", op.ID(), op.Kind, count))
	}
	if dst == asm_amd64.RegCX {
		panic(fmt.Sprintf("BUG: result of op%d (%s) cannot be the shift count register", op.ID(), op.Kind))
	}
	move(buf, dst, a.location(op, op.Operand1))
	asm_amd64.EncodeRegReg(buf, asm_amd64.PrefixNone, 0xd3, 1, ext, dst.Enc(), asm_amd64.Rex(0).SetW())
	spill(buf, dst, res)
}

// assembleDivide assembles the division family: the dividend goes through
// rax, rdx holds its extension, and the quotient or the remainder is read
// back from rax or rdx.
func (a *Assembler) assembleDivide(buf *asm.CodeBuffer, op *ir.Operator) {
	var (
		want   asm_amd64.Reg
		signed bool
	)
	switch op.Kind {
	case ir.KindDiv:
		want, signed = asm_amd64.RegAX, true
	case ir.KindRem:
		want, signed = asm_amd64.RegDX, true
	case ir.KindUDiv:
		want = asm_amd64.RegAX
	case ir.KindURem:
		want = asm_amd64.RegDX
	default:
		panic(fmt.Sprintf("BUG: %s is not a division", op.Kind))
	}

	if dst := a.gpRegister(op, op.Result, "result"); dst != want {
		panic(fmt.Sprintf("BUG: result of op%d (%s) must be %s, got %s", op.ID(), op.Kind, want, dst))
	}
	divisor := a.resolveSource(op, 2)
	if divisor.Uses(asm_amd64.RegAX) || divisor.Uses(asm_amd64.RegDX) {
		panic(fmt.Sprintf("BUG: divisor of op%d (%s) cannot involve %%rax or %%rdx", op.ID(), op.Kind))
	}
	if divisor.Kind == asm_amd64.OperandKindReg && divisor.Reg.IsVector() {
		panic(fmt.Sprintf("BUG: divisor of op%d (%s) is a vector register", op.ID(), op.Kind))
	}

	move(buf, asm_amd64.RegAX, a.location(op, op.Operand1))
	ext := asm_amd64.RegEnc(6)
	if signed {
		// cqo
		buf.EmitByte(0x48)
		buf.EmitByte(0x99)
		ext = 7
	} else {
		// xor %edx, %edx
		asm_amd64.EncodeRegReg(buf, asm_amd64.PrefixNone, 0x31, 1, asm_amd64.RegDX.Enc(), asm_amd64.RegDX.Enc(), 0)
	}
	asm_amd64.EncodeRegOperand(buf, asm_amd64.PrefixNone, 0xf7, 1, ext, divisor, asm_amd64.Rex(0).SetW(), 0)
}

// assembleBlendv assembles pblendvb, whose mask is implicitly xmm0.
func (a *Assembler) assembleBlendv(buf *asm.CodeBuffer, op *ir.Operator) {
	dst, res := a.result(op, true)
	if mask := a.register(op, op.Operand3, "mask"); mask != asm_amd64.RegX0 {
		panic(fmt.Sprintf("BUG: mask of op%d (%s) must be %%xmm0, got %s", op.ID(), op.Kind, mask))
	}
	if dst == asm_amd64.RegX0 {
		panic(fmt.Sprintf("BUG: result of op%d (%s) cannot be the mask register", op.ID(), op.Kind))
	}
	if op.Mode == ir.AddrIndexed {
		panic(fmt.Sprintf("BUG: op%d (%s) cannot use indexed addressing", op.ID(), op.Kind))
	}

	src := a.resolveSource(op, 2)
	if src.Kind == asm_amd64.OperandKindReg {
		checkClass(op, src.Reg, true, "operand 2")
	}
	src = a.prepareDestination(buf, op, dst, src)
	asm_amd64.EncodeRegOperand(buf, asm_amd64.Prefix0x66, 0x0f3810, 3, dst.Enc(), src, 0, 0)
	spill(buf, dst, res)
}

// assembleMaskStore assembles maskmovdqu, which stores through rdi.
func (a *Assembler) assembleMaskStore(buf *asm.CodeBuffer, op *ir.Operator) {
	if op.Mode != ir.AddrDirect {
		panic(fmt.Sprintf("BUG: op%d (%s) takes its pointer in operand 3", op.ID(), op.Kind))
	}
	data := a.register(op, op.Operand1, "data")
	checkClass(op, data, true, "data")
	mask := a.register(op, op.Operand2, "mask")
	checkClass(op, mask, true, "mask")
	ptr := a.sizedLocation(op, op.Operand3, slotSize(false))
	if ptr.Kind == asm_amd64.OperandKindReg {
		checkClass(op, ptr.Reg, false, "pointer")
	}

	move(buf, asm_amd64.RegDI, ptr)
	asm_amd64.EncodeRegReg(buf, asm_amd64.Prefix0x66, 0x0ff7, 2, data.Enc(), mask.Enc(), 0)
}

func (a *Assembler) assembleLabel(*asm.CodeBuffer, *ir.Operator) {}

// label returns the label targeted by op.
func (a *Assembler) label(op *ir.Operator) *ir.Operator {
	target := a.p.Op(op.Linked)
	if target.Kind != ir.KindLabel {
		panic(fmt.Sprintf("BUG: op%d (%s) targets %s", op.ID(), op.Kind, target.Kind))
	}
	if a.patching && target.BinaryOffset < 0 {
		panic(fmt.Sprintf("BUG: op%d (%s) targets the unplaced label op%d", op.ID(), op.Kind, target.ID()))
	}
	return target
}

func conditionCode(k ir.Kind) byte {
	switch k {
	case ir.KindJe:
		return 0x4
	case ir.KindJne:
		return 0x5
	case ir.KindJl:
		return 0xc
	case ir.KindJge:
		return 0xd
	case ir.KindJle:
		return 0xe
	case ir.KindJg:
		return 0xf
	case ir.KindJb:
		return 0x2
	case ir.KindJae:
		return 0x3
	default:
		panic(fmt.Sprintf("BUG: %s is not a conditional jump", k))
	}
}

// assembleJump uses the 8-bit displacement only for labels already emitted
// and within reach, so the choice made in the first pass holds when the
// forward ones are patched.
func (a *Assembler) assembleJump(buf *asm.CodeBuffer, op *ir.Operator) {
	target := a.label(op)
	start := buf.Len()
	backward := target.BinaryOffset >= 0 && target.BinaryOffset <= op.BinaryOffset

	if backward {
		if rel := target.BinaryOffset - (start + 2); rel >= -128 && rel <= 127 {
			if op.Kind == ir.KindJmp {
				buf.EmitByte(0xeb)
			} else {
				buf.EmitByte(0x70 | conditionCode(op.Kind))
			}
			buf.EmitByte(byte(int8(rel)))
			return
		}
	}

	length := 6
	if op.Kind == ir.KindJmp {
		length = 5
		buf.EmitByte(0xe9)
	} else {
		buf.EmitByte(0x0f)
		buf.EmitByte(0x80 | conditionCode(op.Kind))
	}
	a.emitRel32(buf, target, start+length)
}

// emitRel32 emits the displacement from next to target, or a placeholder to
// be patched.
func (a *Assembler) emitRel32(buf asm.Buffer, target *ir.Operator, next int) {
	if target.BinaryOffset < 0 {
		a.markUnresolved()
		buf.Emit4Bytes(0)
		return
	}
	buf.Emit4Bytes(uint32(int32(target.BinaryOffset - next)))
}

// assembleCall loads the return address into the link register and jumps to
// the subroutine, which comes back with assembleReturn. Subroutines cannot
// call further.
func (a *Assembler) assembleCall(buf *asm.CodeBuffer, op *ir.Operator) {
	const (
		leaSize = 7
		jmpSize = 5
	)
	target := a.label(op)
	start := buf.Len()
	asm_amd64.EncodeRegMem(buf, asm_amd64.PrefixNone, 0x8d, 1, link.Enc(),
		asm_amd64.NewAmodeRipRelative(start+leaSize+jmpSize), asm_amd64.Rex(0).SetW(), 0)
	buf.EmitByte(0xe9)
	a.emitRel32(buf, target, start+leaSize+jmpSize)
}

// assembleReturn emits jmp *%r11.
func (a *Assembler) assembleReturn(buf *asm.CodeBuffer, _ *ir.Operator) {
	asm_amd64.EncodeRegReg(buf, asm_amd64.PrefixNone, 0xff, 1, 4, link.Enc(), 0)
}
