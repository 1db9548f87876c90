package amd64

import (
	"fmt"

	"github.com/swrast/pxjit/internal/asm"
	asm_amd64 "github.com/swrast/pxjit/internal/asm/amd64"
	"github.com/swrast/pxjit/ir"
)

// ABI is the calling convention of the host the kernel is called from.
type ABI byte

const (
	ABISystemV ABI = iota
	ABIWindows
	abiEnd
)

// Valid returns true for known conventions.
func (abi ABI) Valid() bool {
	return abi < abiEnd
}

// String implements fmt.Stringer.
func (abi ABI) String() string {
	switch abi {
	case ABISystemV:
		return "sysv"
	case ABIWindows:
		return "win64"
	default:
		return fmt.Sprintf("ABI(%d)", byte(abi))
	}
}

var (
	sysvCalleeSaved = []asm_amd64.Reg{
		asm_amd64.RegBX, asm_amd64.RegBP, asm_amd64.RegR12, asm_amd64.RegR13, asm_amd64.RegR14, asm_amd64.RegR15,
	}
	win64CalleeSaved = []asm_amd64.Reg{
		asm_amd64.RegBX, asm_amd64.RegBP, asm_amd64.RegDI, asm_amd64.RegSI,
		asm_amd64.RegR12, asm_amd64.RegR13, asm_amd64.RegR14, asm_amd64.RegR15,
	}
	win64CalleeSavedVector = []asm_amd64.Reg{
		asm_amd64.RegX6, asm_amd64.RegX7, asm_amd64.RegX8, asm_amd64.RegX9, asm_amd64.RegX10,
		asm_amd64.RegX11, asm_amd64.RegX12, asm_amd64.RegX13, asm_amd64.RegX14, asm_amd64.RegX15,
	}
)

// frame is the stack layout set up by an entry:
//
//	(high)  return address
//	        pushed callee-saved registers
//	        saved vector registers        <- rsp + locals
//	        locals, frame slot 0 at rsp   <- rsp
//	(low)
//
// rsp stays 16-byte aligned between the entry and the epilogue.
type frame struct {
	pushed, saved []asm_amd64.Reg
	// locals is the size of the area addressed by frame slots.
	locals int32
	// size is subtracted from rsp after the pushes.
	size int32
}

func (a *Assembler) frameOf(entry *ir.Operator) frame {
	f := frame{locals: align16(int32(entry.Imm))}
	switch a.abi {
	case ABISystemV:
		f.pushed = sysvCalleeSaved
	case ABIWindows:
		f.pushed = win64CalleeSaved
		if a.usesVector {
			f.saved = win64CalleeSavedVector
		}
	}
	// The return address and the pushes precede the subtraction.
	above := int32(8 + 8*len(f.pushed))
	f.size = align16(f.locals+int32(16*len(f.saved))+above) - above
	return f
}

func (a *Assembler) assembleEntry(buf *asm.CodeBuffer, op *ir.Operator) {
	f := a.frameOf(op)
	for _, r := range f.pushed {
		asm_amd64.EncodePush(buf, r)
	}
	emitAdjustSP(buf, 5, f.size)
	for i, r := range f.saved {
		// movdqa %xmm, disp(%rsp)
		asm_amd64.EncodeRegMem(buf, asm_amd64.Prefix0x66, 0x0f7f, 2, r.Enc(),
			asm_amd64.NewAmodeImmReg(f.locals+int32(16*i), asm_amd64.RegSP), 0, 0)
	}
}

func (a *Assembler) assembleEpilogue(buf *asm.CodeBuffer, op *ir.Operator) {
	entry := a.p.Op(op.Linked)
	if entry != a.entry {
		panic(fmt.Sprintf("BUG: op%d (%s) closes op%d which is not the entry", op.ID(), op.Kind, op.Linked))
	}
	f := a.frameOf(entry)
	for i, r := range f.saved {
		asm_amd64.EncodeRegMem(buf, asm_amd64.Prefix0x66, 0x0f6f, 2, r.Enc(),
			asm_amd64.NewAmodeImmReg(f.locals+int32(16*i), asm_amd64.RegSP), 0, 0)
	}
	emitAdjustSP(buf, 0, f.size)
	for i := len(f.pushed) - 1; i >= 0; i-- {
		asm_amd64.EncodePop(buf, f.pushed[i])
	}
	buf.EmitByte(0xc3) // ret
}

// emitAdjustSP emits sub (ext 5) or add (ext 0) of size to rsp.
func emitAdjustSP(buf asm.Buffer, ext asm_amd64.RegEnc, size int32) {
	if size == 0 {
		return
	}
	w := asm_amd64.Rex(0).SetW()
	if asm_amd64.Lower8WillSignExtendTo32(uint32(size)) {
		asm_amd64.EncodeRegReg(buf, asm_amd64.PrefixNone, 0x83, 1, ext, asm_amd64.RegSP.Enc(), w)
		buf.EmitByte(byte(size))
		return
	}
	asm_amd64.EncodeRegReg(buf, asm_amd64.PrefixNone, 0x81, 1, ext, asm_amd64.RegSP.Enc(), w)
	buf.Emit4Bytes(uint32(size))
}
