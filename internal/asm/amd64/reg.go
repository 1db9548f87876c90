package asm_amd64

import "fmt"

// Reg is a physical amd64 register. The zero value is RegInvalid.
type Reg byte

const (
	RegInvalid Reg = iota
	RegAX
	RegCX
	RegDX
	RegBX
	RegSP
	RegBP
	RegSI
	RegDI
	RegR8
	RegR9
	RegR10
	RegR11
	RegR12
	RegR13
	RegR14
	RegR15
	RegX0
	RegX1
	RegX2
	RegX3
	RegX4
	RegX5
	RegX6
	RegX7
	RegX8
	RegX9
	RegX10
	RegX11
	RegX12
	RegX13
	RegX14
	RegX15
	regEnd
)

// NumRegs is the number of valid registers, RegInvalid excluded.
const NumRegs = int(regEnd) - 1

// Valid returns true if r names a physical register.
func (r Reg) Valid() bool {
	return r > RegInvalid && r < regEnd
}

// IsVector returns true for the XMM registers.
func (r Reg) IsVector() bool {
	return r >= RegX0 && r <= RegX15
}

// Enc returns the 4-bit hardware encoding of r.
func (r Reg) Enc() RegEnc {
	if !r.Valid() {
		panic(fmt.Sprintf("BUG: invalid register %d", r))
	}
	return regEncodings[r]
}

// String implements fmt.Stringer and returns the 64-bit AT&T name, e.g. "%rax".
func (r Reg) String() string {
	return r.Format(64)
}

// Format returns the AT&T name of r when accessed with the given bit width.
// Vector registers ignore the width.
func (r Reg) Format(width int) string {
	if !r.Valid() {
		return fmt.Sprintf("%%invalid%d", r)
	}
	if r.IsVector() {
		return fmt.Sprintf("%%xmm%d", r-RegX0)
	}
	if r >= RegR8 {
		n := int(r-RegR8) + 8
		switch width {
		case 8:
			return fmt.Sprintf("%%r%db", n)
		case 16:
			return fmt.Sprintf("%%r%dw", n)
		case 32:
			return fmt.Sprintf("%%r%dd", n)
		default:
			return fmt.Sprintf("%%r%d", n)
		}
	}
	n := gprNames[r]
	switch width {
	case 8:
		return gprByteNames[r]
	case 16:
		return "%" + n
	case 32:
		return "%e" + n
	default:
		return "%r" + n
	}
}

var gprNames = [...]string{
	RegAX: "ax", RegCX: "cx", RegDX: "dx", RegBX: "bx",
	RegSP: "sp", RegBP: "bp", RegSI: "si", RegDI: "di",
}

var gprByteNames = [...]string{
	RegAX: "%al", RegCX: "%cl", RegDX: "%dl", RegBX: "%bl",
	RegSP: "%spl", RegBP: "%bpl", RegSI: "%sil", RegDI: "%dil",
}

// RegEnc is the hardware encoding of a register: the low three bits go into
// ModRM/SIB and the fourth into the REX prefix. Opcode extensions (the /digit
// of the manuals) are passed as a RegEnc in the reg field as well.
type RegEnc byte

func (r RegEnc) rexBit() byte {
	return byte(r) >> 3
}

func (r RegEnc) encoding() byte {
	return byte(r) & 0x07
}

// needsRexForByte returns true if r, accessed as a byte register, must be
// encoded with a REX prefix to mean spl/bpl/sil/dil rather than ah/ch/dh/bh.
func (r RegEnc) needsRexForByte() bool {
	return r >= 4 && r <= 7
}

var regEncodings = [...]RegEnc{
	RegAX:  0b000,
	RegCX:  0b001,
	RegDX:  0b010,
	RegBX:  0b011,
	RegSP:  0b100,
	RegBP:  0b101,
	RegSI:  0b110,
	RegDI:  0b111,
	RegR8:  0b1000,
	RegR9:  0b1001,
	RegR10: 0b1010,
	RegR11: 0b1011,
	RegR12: 0b1100,
	RegR13: 0b1101,
	RegR14: 0b1110,
	RegR15: 0b1111,
	RegX0:  0b000,
	RegX1:  0b001,
	RegX2:  0b010,
	RegX3:  0b011,
	RegX4:  0b100,
	RegX5:  0b101,
	RegX6:  0b110,
	RegX7:  0b111,
	RegX8:  0b1000,
	RegX9:  0b1001,
	RegX10: 0b1010,
	RegX11: 0b1011,
	RegX12: 0b1100,
	RegX13: 0b1101,
	RegX14: 0b1110,
	RegX15: 0b1111,
}
