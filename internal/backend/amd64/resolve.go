package amd64

import (
	"fmt"

	"github.com/swrast/pxjit/internal/asm"
	asm_amd64 "github.com/swrast/pxjit/internal/asm/amd64"
	"github.com/swrast/pxjit/ir"
)

const (
	scratch    = asm_amd64.RegR10
	link       = asm_amd64.RegR11
	vecScratch = asm_amd64.RegX15
)

// machineReg converts r. Both register files share the same numbering.
func machineReg(r ir.RealReg) asm_amd64.Reg {
	if !r.Valid() {
		panic(fmt.Sprintf("BUG: invalid register %d", r))
	}
	return asm_amd64.Reg(r)
}

// register returns the register v is assigned to, which must be one.
func (a *Assembler) register(op *ir.Operator, v ir.VReg, what string) asm_amd64.Reg {
	if v == ir.VRegInvalid {
		panic(fmt.Sprintf("BUG: op%d (%s) has no %s", op.ID(), op.Kind, what))
	}
	loc := a.p.Location(v)
	if !loc.IsRegister() {
		panic(fmt.Sprintf("BUG: %s of op%d (%s) must be a register, got %s", what, op.ID(), op.Kind, loc))
	}
	return machineReg(loc.Register())
}

// gpRegister is register restricted to general purpose registers.
func (a *Assembler) gpRegister(op *ir.Operator, v ir.VReg, what string) asm_amd64.Reg {
	r := a.register(op, v, what)
	if r.IsVector() {
		panic(fmt.Sprintf("BUG: %s of op%d (%s) must be a general purpose register, got %s", what, op.ID(), op.Kind, r))
	}
	return r
}

// location returns v as a register or, for frame slots, as a memory operand
// relative to the stack pointer accessed with the width of op.
func (a *Assembler) location(op *ir.Operator, v ir.VReg) asm_amd64.Operand {
	return a.sizedLocation(op, v, int32(op.Flags().WidthBytes()))
}

func (a *Assembler) sizedLocation(op *ir.Operator, v ir.VReg, size int32) asm_amd64.Operand {
	if v == ir.VRegInvalid {
		panic(fmt.Sprintf("BUG: op%d (%s) is missing an operand", op.ID(), op.Kind))
	}
	loc := a.p.Location(v)
	switch {
	case loc.IsRegister():
		return asm_amd64.NewOperandReg(machineReg(loc.Register()))
	case loc.IsFrameSlot():
		return asm_amd64.NewOperandMem(a.frameSlot(op, loc, size))
	default:
		panic(fmt.Sprintf("BUG: %s of op%d (%s) is unassigned", v, op.ID(), op.Kind))
	}
}

// frameSlot returns the address of size bytes at loc, which must lie within
// the locals of the entry.
func (a *Assembler) frameSlot(op *ir.Operator, loc ir.Location, size int32) asm_amd64.Amode {
	if a.entry == nil {
		panic(fmt.Sprintf("BUG: op%d (%s) uses frame slot %s without an entry", op.ID(), op.Kind, loc))
	}
	offset := loc.FrameOffset()
	if locals := align16(int32(a.entry.Imm)); offset+size > locals {
		panic(fmt.Sprintf("BUG: op%d (%s) accesses %d bytes at frame slot %s outside of the %d byte frame",
			op.ID(), op.Kind, size, loc, locals))
	}
	return asm_amd64.NewAmodeImmReg(offset, asm_amd64.RegSP)
}

// slotSize is the size of a frame slot holding a whole register.
func slotSize(vector bool) int32 {
	if vector {
		return 16
	}
	return 8
}

// result returns the register the result of op is computed into and the
// location it belongs to. A result assigned to a frame slot is computed into
// the scratch register of its file and written back by spill.
func (a *Assembler) result(op *ir.Operator, vector bool) (asm_amd64.Reg, asm_amd64.Operand) {
	if op.Result == ir.VRegInvalid {
		panic(fmt.Sprintf("BUG: op%d (%s) has no result", op.ID(), op.Kind))
	}
	loc := a.p.Location(op.Result)
	if !loc.IsFrameSlot() {
		dst := a.register(op, op.Result, "result")
		checkClass(op, dst, vector, "result")
		return dst, asm_amd64.NewOperandReg(dst)
	}
	dst := scratch
	if vector {
		dst = vecScratch
	}
	return dst, asm_amd64.NewOperandMem(a.frameSlot(op, loc, slotSize(vector)))
}

// spill stores r into res when res is a frame slot. The whole register is
// stored.
func spill(buf asm.Buffer, r asm_amd64.Reg, res asm_amd64.Operand) {
	if res.Kind != asm_amd64.OperandKindMem {
		return
	}
	if r.IsVector() {
		// movdqu
		asm_amd64.EncodeRegMem(buf, asm_amd64.Prefix0xF3, 0x0f7f, 2, r.Enc(), res.Amode, 0, 0)
	} else {
		asm_amd64.EncodeRegMem(buf, asm_amd64.PrefixNone, 0x89, 1, r.Enc(), res.Amode, asm_amd64.Rex(0).SetW(), 0)
	}
}

// resolveSource returns the operand read through slot 1 or 2 of op. In
// AddrDirect mode it is the location of the operand, or the immediate when
// operand 2 is unused and the kind accepts one. In the memory modes it is the
// addressed memory.
func (a *Assembler) resolveSource(op *ir.Operator, slot int) asm_amd64.Operand {
	f := op.Flags()
	v := op.Operand1
	if slot == 2 {
		v = op.Operand2
	}

	if op.Mode == ir.AddrDirect {
		if v == ir.VRegInvalid && slot == 2 && f.Has(ir.FlagImmOperand2) {
			return asm_amd64.NewOperandImm(op.Imm)
		}
		o := a.location(op, v)
		if o.Kind == asm_amd64.OperandKindMem && !f.MemoryAllowed(slot) {
			panic(fmt.Sprintf("BUG: op%d (%s) cannot read operand %d from a frame slot", op.ID(), op.Kind, slot))
		}
		return o
	}

	if !f.MemoryAllowed(slot) {
		panic(fmt.Sprintf("BUG: op%d (%s) cannot read operand %d from memory", op.ID(), op.Kind, slot))
	}
	return asm_amd64.NewOperandMem(a.resolveMemory(op))
}

// resolveMemory returns the memory addressed by op: Operand2 is the base,
// Operand3 the index. An indexed operand without base is relative to op.Data,
// whose address emitStaticBase puts in the scratch register.
func (a *Assembler) resolveMemory(op *ir.Operator) asm_amd64.Amode {
	switch op.Mode {
	case ir.AddrStaticData:
		if op.Data == nil {
			panic(fmt.Sprintf("BUG: op%d (%s) references no constant", op.ID(), op.Kind))
		}
		return asm_amd64.NewAmodeRipRelative(a.constTarget(op.Data))

	case ir.AddrBaseDisplacement:
		return asm_amd64.NewAmodeImmReg(op.Displacement, a.gpRegister(op, op.Operand2, "base"))

	case ir.AddrIndexed:
		base := scratch
		if op.Operand2 != ir.VRegInvalid {
			base = a.gpRegister(op, op.Operand2, "base")
		}
		if op.Operand3 == ir.VRegInvalid {
			return asm_amd64.NewAmodeImmReg(op.Displacement, base)
		}
		index := a.gpRegister(op, op.Operand3, "index")
		return asm_amd64.NewAmodeRegRegShift(op.Displacement, base, index, scaleShift(op.Scale))

	default:
		panic(fmt.Sprintf("BUG: op%d (%s) does not address memory", op.ID(), op.Kind))
	}
}

func scaleShift(scale byte) byte {
	switch scale {
	case 0, 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	case 8:
		return 3
	default:
		panic(fmt.Sprintf("BUG: invalid scale %d", scale))
	}
}

func align16(v int32) int32 {
	return (v + 15) &^ 15
}

// move copies src into the register dst.
func move(buf asm.Buffer, dst asm_amd64.Reg, src asm_amd64.Operand) {
	switch src.Kind {
	case asm_amd64.OperandKindReg:
		if src.Reg == dst {
			return
		}
		if src.Reg.IsVector() != dst.IsVector() {
			panic(fmt.Sprintf("BUG: moving %s into %s", src.Reg, dst))
		}
		if dst.IsVector() {
			// movdqa
			asm_amd64.EncodeRegReg(buf, asm_amd64.Prefix0x66, 0x0f6f, 2, dst.Enc(), src.Reg.Enc(), 0)
		} else {
			asm_amd64.EncodeRegReg(buf, asm_amd64.PrefixNone, 0x89, 1, src.Reg.Enc(), dst.Enc(), asm_amd64.Rex(0).SetW())
		}
	case asm_amd64.OperandKindMem:
		if dst.IsVector() {
			// movdqu
			asm_amd64.EncodeRegMem(buf, asm_amd64.Prefix0xF3, 0x0f6f, 2, dst.Enc(), src.Amode, 0, 0)
		} else {
			asm_amd64.EncodeRegMem(buf, asm_amd64.PrefixNone, 0x8b, 1, dst.Enc(), src.Amode, asm_amd64.Rex(0).SetW(), 0)
		}
	case asm_amd64.OperandKindImm:
		if dst.IsVector() {
			panic(fmt.Sprintf("BUG: moving an immediate into %s", dst))
		}
		asm_amd64.EncodeMovImm(buf, dst, src.Imm)
	default:
		panic("BUG: invalid operand")
	}
}
