package amd64

import (
	"fmt"

	"github.com/swrast/pxjit/internal/asm"
	asm_amd64 "github.com/swrast/pxjit/internal/asm/amd64"
	"github.com/swrast/pxjit/ir"
)

// assembleBinary assembles Result = Operand1 OP source 2. Kinds without a
// result (cmp, test) read Operand1 in place.
func (a *Assembler) assembleBinary(buf *asm.CodeBuffer, op *ir.Operator, enc *encoding) {
	src := a.resolveSource(op, 2)
	if src.Kind == asm_amd64.OperandKindReg {
		checkClass(op, src.Reg, enc.vecSrc, "operand 2")
	}

	if !op.Flags().HasResult() {
		dst := a.register(op, op.Operand1, "operand 1")
		checkClass(op, dst, enc.vecDst, "operand 1")
		a.emitBinary(buf, op, enc, dst, src)
		return
	}

	dst, res := a.result(op, enc.vecDst)
	if res.Kind == asm_amd64.OperandKindMem && src.Uses(dst) {
		panic(fmt.Sprintf("BUG: op%d (%s) cannot address static data while its result is in a frame slot", op.ID(), op.Kind))
	}
	src = a.prepareDestination(buf, op, dst, src)
	a.emitBinary(buf, op, enc, dst, src)
	spill(buf, dst, res)
}

// prepareDestination moves Operand1 into dst and returns the operand to
// combine with it, which may differ from src when dst aliases it.
func (a *Assembler) prepareDestination(buf asm.Buffer, op *ir.Operator, dst asm_amd64.Reg, src asm_amd64.Operand) asm_amd64.Operand {
	op1 := a.location(op, op.Operand1)
	if op1.Kind == asm_amd64.OperandKindReg && op1.Reg == dst {
		return src
	}
	if src.Uses(dst) {
		if src.Kind == asm_amd64.OperandKindReg && op.Flags().Commutative() {
			return op1
		}
		tmp := scratch
		if dst.IsVector() {
			tmp = vecScratch
		}
		move(buf, tmp, src)
		src = asm_amd64.NewOperandReg(tmp)
	}
	move(buf, dst, op1)
	return src
}

func (a *Assembler) emitBinary(buf asm.Buffer, op *ir.Operator, enc *encoding, dst asm_amd64.Reg, src asm_amd64.Operand) {
	rex := enc.rex()
	switch src.Kind {
	case asm_amd64.OperandKindReg:
		if enc.rr != 0 {
			asm_amd64.EncodeRegReg(buf, enc.prefix, enc.rr, 1, src.Reg.Enc(), dst.Enc(), rex)
		} else {
			asm_amd64.EncodeRegReg(buf, enc.prefix, enc.opcode, enc.opcodeNum, dst.Enc(), src.Reg.Enc(), rex)
		}
	case asm_amd64.OperandKindMem:
		asm_amd64.EncodeRegMem(buf, enc.prefix, enc.opcode, enc.opcodeNum, dst.Enc(), src.Amode, rex, trailingSize(op))
	case asm_amd64.OperandKindImm:
		emitBinaryImm(buf, op, enc, dst, src.Imm)
		return
	}
	emitTrailing(buf, op, enc)
}

func emitBinaryImm(buf asm.Buffer, op *ir.Operator, enc *encoding, dst asm_amd64.Reg, imm int64) {
	if !asm_amd64.Lower32WillSignExtendTo64(uint64(imm)) {
		panic(fmt.Sprintf("BUG: op%d (%s) immediate %d does not fit in 32 bits", op.ID(), op.Kind, imm))
	}
	reg := enc.immExt
	if enc.immRegIsDst {
		reg = dst.Enc()
	}
	if enc.imm8 != 0 && asm_amd64.Lower8WillSignExtendTo32(uint32(imm)) {
		asm_amd64.EncodeRegReg(buf, enc.prefix, enc.imm8, 1, reg, dst.Enc(), enc.rex())
		buf.EmitByte(byte(imm))
		return
	}
	asm_amd64.EncodeRegReg(buf, enc.prefix, enc.imm32, 1, reg, dst.Enc(), enc.rex())
	buf.Emit4Bytes(uint32(imm))
}

// assembleUnary assembles Result = OP source 1.
func (a *Assembler) assembleUnary(buf *asm.CodeBuffer, op *ir.Operator, enc *encoding) {
	dst, res := a.result(op, enc.vecDst)
	rex := enc.rex()

	switch enc.form {
	case formLoad:
		src := a.resolveSource(op, 1)
		switch src.Kind {
		case asm_amd64.OperandKindReg:
			if op.Flags().Has(ir.FlagAddressOnly) {
				panic(fmt.Sprintf("BUG: op%d (%s) needs a memory operand", op.ID(), op.Kind))
			}
			checkClass(op, src.Reg, enc.vecSrc, "operand 1")
			if enc.copy && src.Reg == dst {
				return
			}
			if enc.byteReg {
				rex = rex.ForByteReg(src.Reg.Enc())
			}
		case asm_amd64.OperandKindImm:
			panic(fmt.Sprintf("BUG: op%d (%s) has an immediate source", op.ID(), op.Kind))
		}
		asm_amd64.EncodeRegOperand(buf, enc.prefix, enc.opcode, enc.opcodeNum, dst.Enc(), src, rex, trailingSize(op))

	case formInPlace:
		if op.Mode != ir.AddrDirect {
			panic(fmt.Sprintf("BUG: op%d (%s) cannot address memory", op.ID(), op.Kind))
		}
		move(buf, dst, a.location(op, op.Operand1))
		asm_amd64.EncodeRegReg(buf, enc.prefix, enc.opcode, enc.opcodeNum, enc.ext, dst.Enc(), rex)

	case formReverse:
		if op.Mode != ir.AddrDirect {
			panic(fmt.Sprintf("BUG: op%d (%s) cannot address memory", op.ID(), op.Kind))
		}
		src := a.register(op, op.Operand1, "operand 1")
		checkClass(op, src, enc.vecSrc, "operand 1")
		asm_amd64.EncodeRegReg(buf, enc.prefix, enc.opcode, enc.opcodeNum, src.Enc(), dst.Enc(), rex)
	}
	emitTrailing(buf, op, enc)
	spill(buf, dst, res)
}

// assembleMemDest stores Operand1 into the addressed memory. A value in a
// frame slot is staged through the scratch register of its file.
func (a *Assembler) assembleMemDest(buf *asm.CodeBuffer, op *ir.Operator, enc *encoding) {
	if !op.Mode.Memory() {
		panic(fmt.Sprintf("BUG: op%d (%s) must store through a base or an index, got %s", op.ID(), op.Kind, op.Mode))
	}
	m := a.resolveMemory(op)

	var src asm_amd64.Reg
	if loc := a.p.Location(op.Operand1); loc.IsFrameSlot() {
		src = scratch
		if enc.vecSrc {
			src = vecScratch
		}
		move(buf, src, asm_amd64.NewOperandMem(a.frameSlot(op, loc, slotSize(enc.vecSrc))))
	} else {
		src = a.register(op, op.Operand1, "stored value")
		checkClass(op, src, enc.vecSrc, "stored value")
	}

	rex := enc.rex()
	if enc.byteReg {
		rex = rex.ForByteReg(src.Enc())
	}
	asm_amd64.EncodeRegMem(buf, enc.prefix, enc.opcode, enc.opcodeNum, src.Enc(), m, rex, 0)
}

func trailingSize(op *ir.Operator) int {
	if op.Flags().Has(ir.FlagImm8) || op.Flags().Has(ir.FlagImmSuffix) {
		return 1
	}
	return 0
}

func emitTrailing(buf asm.Buffer, op *ir.Operator, enc *encoding) {
	f := op.Flags()
	switch {
	case f.Has(ir.FlagImm8):
		buf.EmitByte(byte(op.Imm))
	case f.Has(ir.FlagImmSuffix):
		buf.EmitByte(enc.suffix)
	}
}

func checkClass(op *ir.Operator, r asm_amd64.Reg, vector bool, what string) {
	if r.IsVector() != vector {
		panic(fmt.Sprintf("BUG: %s of op%d (%s) is in the wrong register file: %s", what, op.ID(), op.Kind, r))
	}
}
