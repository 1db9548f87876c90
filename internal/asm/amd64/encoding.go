package asm_amd64

import (
	"fmt"

	"github.com/swrast/pxjit/internal/asm"
)

// EncodeRegReg emits an instruction whose ModRM byte addresses two registers.
// opcodes holds opcodeNum bytes, most significant first.
func EncodeRegReg(
	c asm.Buffer,
	legPrefixes Prefix,
	opcodes uint32,
	opcodeNum uint32,
	r RegEnc,
	rm RegEnc,
	rex Rex,
) {
	legPrefixes.encode(c)
	rex.encode(c, r, rm)
	emitOpcodes(c, opcodes, opcodeNum)
	c.EmitByte(encodeModRM(3, r.encoding(), rm.encoding()))
}

func emitOpcodes(c asm.Buffer, opcodes uint32, opcodeNum uint32) {
	for opcodeNum > 0 {
		opcodeNum--
		c.EmitByte(byte((opcodes >> (opcodeNum << 3)) & 0xff))
	}
}

func encodeModRM(mod byte, reg byte, rm byte) byte {
	return mod<<6 | reg<<3 | rm
}

func encodeSIB(shift byte, encIndex byte, encBase byte) byte {
	return shift<<6 | encIndex<<3 | encBase
}

// EncodeRegMem emits an instruction whose ModRM byte addresses a register and
// the memory operand m. immSize is the number of immediate bytes the caller
// emits after this call; it is needed to compute RIP-relative displacements.
func EncodeRegMem(
	c asm.Buffer, legPrefixes Prefix, opcodes uint32, opcodeNum uint32, r RegEnc, m Amode, rex Rex, immSize int,
) {
	legPrefixes.encode(c)

	const (
		modNoDisplacement    = 0b00
		modShortDisplacement = 0b01
		modLongDisplacement  = 0b10

		useSBI = 4 // the encoding of rsp or r12 register.
	)

	switch m.Kind {
	case AmodeImmReg:
		base := m.Base
		baseEnc := base.Enc()

		rex.encode(c, r, baseEnc)
		emitOpcodes(c, opcodes, opcodeNum)

		// SIB byte is the last byte of the memory encoding before the displacement
		const sibByte = 0x24 // == encodeSIB(0, 4, 4)

		immZero, baseRbp, baseR13 := m.Disp == 0, base == RegBP, base == RegR13
		short := lower8willSignExtendTo32(uint32(m.Disp))
		rspOrR12 := base == RegSP || base == RegR12

		if immZero && !baseRbp && !baseR13 { // rbp or r13 can't be used as base for without displacement encoding.
			c.EmitByte(encodeModRM(modNoDisplacement, r.encoding(), baseEnc.encoding()))
			if rspOrR12 {
				c.EmitByte(sibByte)
			}
		} else if short { // Note: this includes the case where m.Disp == 0 && base == rbp || base == r13.
			c.EmitByte(encodeModRM(modShortDisplacement, r.encoding(), baseEnc.encoding()))
			if rspOrR12 {
				c.EmitByte(sibByte)
			}
			c.EmitByte(byte(m.Disp))
		} else {
			c.EmitByte(encodeModRM(modLongDisplacement, r.encoding(), baseEnc.encoding()))
			if rspOrR12 {
				c.EmitByte(sibByte)
			}
			c.Emit4Bytes(uint32(m.Disp))
		}

	case AmodeRegRegShift:
		base := m.Base
		baseEnc := base.Enc()
		index := m.Index
		indexEnc := index.Enc()

		if index == RegSP {
			panic("BUG: rsp can't be used as index of addressing mode")
		}

		rex.encodeForIndex(c, r, indexEnc, baseEnc)
		emitOpcodes(c, opcodes, opcodeNum)

		immZero, baseRbp, baseR13 := m.Disp == 0, base == RegBP, base == RegR13
		if immZero && !baseRbp && !baseR13 { // rbp or r13 with mod 00 would mean "no base".
			c.EmitByte(encodeModRM(modNoDisplacement, r.encoding(), useSBI))
			c.EmitByte(encodeSIB(m.Shift, indexEnc.encoding(), baseEnc.encoding()))
		} else if lower8willSignExtendTo32(uint32(m.Disp)) {
			c.EmitByte(encodeModRM(modShortDisplacement, r.encoding(), useSBI))
			c.EmitByte(encodeSIB(m.Shift, indexEnc.encoding(), baseEnc.encoding()))
			c.EmitByte(byte(m.Disp))
		} else {
			c.EmitByte(encodeModRM(modLongDisplacement, r.encoding(), useSBI))
			c.EmitByte(encodeSIB(m.Shift, indexEnc.encoding(), baseEnc.encoding()))
			c.Emit4Bytes(uint32(m.Disp))
		}

	case AmodeRipRelative:
		rex.encode(c, r, 0)
		emitOpcodes(c, opcodes, opcodeNum)

		// Indicate "[RIP + 32bit displacement]".
		// https://wiki.osdev.org/X86-64_Instruction_Encoding#32.2F64-bit_addressing
		c.EmitByte(encodeModRM(0b00, r.encoding(), 0b101))
		var disp int
		if m.Target >= 0 {
			next := c.Len() + 4 + immSize
			disp = m.Target - next
		}
		c.Emit4Bytes(uint32(int32(disp)))

	default:
		panic(fmt.Sprintf("BUG: invalid amode kind %d", m.Kind))
	}
}

// EncodeRegOperand emits an instruction whose r/m side is the register or
// memory operand o.
func EncodeRegOperand(
	c asm.Buffer, legPrefixes Prefix, opcodes uint32, opcodeNum uint32, r RegEnc, o Operand, rex Rex, immSize int,
) {
	switch o.Kind {
	case OperandKindReg:
		EncodeRegReg(c, legPrefixes, opcodes, opcodeNum, r, o.Reg.Enc(), rex)
	case OperandKindMem:
		EncodeRegMem(c, legPrefixes, opcodes, opcodeNum, r, o.Amode, rex, immSize)
	default:
		panic("BUG: immediate operand where r/m is expected")
	}
}

const (
	rexEncodingDefault byte = 0x40
	rexEncodingW            = rexEncodingDefault | 0x08
)

// Rex is a bit set to indicate:
//
//	0x01: W bit must be set.
//	0x02: REX prefix must be emitted.
type Rex byte

// SetW sets the 64-bit operand size bit.
func (ri Rex) SetW() Rex {
	return ri | 0x01
}

// ClearW clears the 64-bit operand size bit.
func (ri Rex) ClearW() Rex {
	return ri & 0x02
}

// Always forces the prefix to be emitted even when empty.
func (ri Rex) Always() Rex {
	return ri | 0x02
}

// ForByteReg forces the prefix when r is accessed as spl, bpl, sil or dil.
func (ri Rex) ForByteReg(r RegEnc) Rex {
	if r.needsRexForByte() {
		return ri.Always()
	}
	return ri
}

func (ri Rex) encode(c asm.Buffer, encR RegEnc, encRM RegEnc) {
	var w byte = 0
	if ri&0x01 != 0 {
		w = 0x01
	}
	r := encR.rexBit()
	b := encRM.rexBit()
	rex := rexEncodingDefault | w<<3 | r<<2 | b
	if rex != rexEncodingDefault || ri&0x02 != 0 {
		c.EmitByte(rex)
	}
}

func (ri Rex) encodeForIndex(c asm.Buffer, encR RegEnc, encIndex RegEnc, encBase RegEnc) {
	var w byte = 0
	if ri&0x01 != 0 {
		w = 0x01
	}
	r := encR.rexBit()
	x := encIndex.rexBit()
	b := encBase.rexBit()
	rex := rexEncodingDefault | w<<3 | r<<2 | x<<1 | b
	if rex != rexEncodingDefault || ri&0x02 != 0 {
		c.EmitByte(rex)
	}
}

// Prefix is a legacy prefix combination.
type Prefix byte

const (
	PrefixNone Prefix = iota
	Prefix0x66
	Prefix0xF2
	Prefix0xF3
)

func (p Prefix) encode(c asm.Buffer) {
	switch p {
	case PrefixNone:
	case Prefix0x66:
		c.EmitByte(0x66)
	case Prefix0xF2:
		c.EmitByte(0xf2)
	case Prefix0xF3:
		c.EmitByte(0xf3)
	default:
		panic("BUG: invalid legacy prefix")
	}
}

// EncodeMovImm emits the shortest move of imm into dst: mov r32, imm32 when
// the value zero-extends, mov r/m64, simm32 when it sign-extends, and
// movabs r64, imm64 otherwise.
func EncodeMovImm(c asm.Buffer, dst Reg, imm int64) {
	enc := dst.Enc()
	con := uint64(imm)
	switch {
	case con <= 0xffffffff:
		if enc.rexBit() > 0 {
			c.EmitByte(rexEncodingDefault | 0x1)
		}
		c.EmitByte(0xb8 | enc.encoding())
		c.Emit4Bytes(uint32(con))
	case Lower32WillSignExtendTo64(con):
		// Sign extend mov(imm32).
		EncodeRegReg(c, PrefixNone, 0xc7, 1, 0, enc, Rex(0).SetW())
		c.Emit4Bytes(uint32(con))
	default:
		c.EmitByte(rexEncodingW | enc.rexBit())
		c.EmitByte(0xb8 | enc.encoding())
		c.Emit8Bytes(con)
	}
}

// EncodePush emits push r64.
func EncodePush(c asm.Buffer, r Reg) {
	enc := r.Enc()
	if enc.rexBit() > 0 {
		c.EmitByte(rexEncodingDefault | 0x1)
	}
	c.EmitByte(0x50 | enc.encoding())
}

// EncodePop emits pop r64.
func EncodePop(c asm.Buffer, r Reg) {
	enc := r.Enc()
	if enc.rexBit() > 0 {
		c.EmitByte(rexEncodingDefault | 0x1)
	}
	c.EmitByte(0x58 | enc.encoding())
}

// Lower32WillSignExtendTo64 returns true if x is representable as a sign-extended 32-bit immediate.
func Lower32WillSignExtendTo64(x uint64) bool {
	xs := int64(x)
	return xs == int64(uint64(int32(xs)))
}

// Lower8WillSignExtendTo32 returns true if x is representable as a sign-extended 8-bit immediate.
func Lower8WillSignExtendTo32(x uint32) bool {
	return lower8willSignExtendTo32(x)
}

func lower8willSignExtendTo32(x uint32) bool {
	xs := int32(x)
	return xs == ((xs << 24) >> 24)
}
