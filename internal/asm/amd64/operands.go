package asm_amd64

import "fmt"

// Amode is a memory operand (addressing mode).
type Amode struct {
	Kind AmodeKind
	Disp int32
	Base Reg

	// For AmodeRegRegShift.
	Index Reg
	Shift byte // 0, 1, 2, 3

	// Target is the offset in the binary referenced by an AmodeRipRelative,
	// or negative while it is not known yet.
	Target int
}

// AmodeKind is the kind of an Amode.
type AmodeKind byte

const (
	// AmodeImmReg calculates sign-extend-32-to-64(Disp) + Base.
	AmodeImmReg AmodeKind = iota + 1

	// AmodeRegRegShift calculates sign-extend-32-to-64(Disp) + Base + (Index << Shift).
	AmodeRegRegShift

	// AmodeRipRelative addresses Target relative to the next instruction.
	AmodeRipRelative
)

// NewAmodeImmReg returns [base + disp].
func NewAmodeImmReg(disp int32, base Reg) Amode {
	return Amode{Kind: AmodeImmReg, Disp: disp, Base: base}
}

// NewAmodeRegRegShift returns [base + index<<shift + disp].
func NewAmodeRegRegShift(disp int32, base, index Reg, shift byte) Amode {
	if shift > 3 {
		panic(fmt.Sprintf("BUG: invalid shift %d", shift))
	}
	return Amode{Kind: AmodeRegRegShift, Disp: disp, Base: base, Index: index, Shift: shift}
}

// NewAmodeRipRelative returns a reference to the given offset in the binary.
// A negative target is emitted as a zero displacement and is expected to be
// patched once known.
func NewAmodeRipRelative(target int) Amode {
	return Amode{Kind: AmodeRipRelative, Target: target}
}

// Uses returns true if the address computation reads r.
func (a *Amode) Uses(r Reg) bool {
	switch a.Kind {
	case AmodeImmReg:
		return a.Base == r
	case AmodeRegRegShift:
		return a.Base == r || a.Index == r
	}
	return false
}

// String implements fmt.Stringer.
func (a *Amode) String() string {
	switch a.Kind {
	case AmodeImmReg:
		return fmt.Sprintf("%d(%s)", a.Disp, a.Base)
	case AmodeRegRegShift:
		return fmt.Sprintf("%d(%s,%s,%d)", a.Disp, a.Base, a.Index, 1<<a.Shift)
	case AmodeRipRelative:
		if a.Target < 0 {
			return "?(%rip)"
		}
		return fmt.Sprintf("%#x(%%rip)", a.Target)
	}
	panic("BUG: invalid amode kind")
}

// Operand is a resolved instruction operand.
type Operand struct {
	Kind  OperandKind
	Reg   Reg
	Imm   int64
	Amode Amode
}

// OperandKind is the kind of an Operand.
type OperandKind byte

const (
	// OperandKindReg is a register.
	OperandKindReg OperandKind = iota + 1
	// OperandKindMem is a value in memory.
	OperandKindMem
	// OperandKindImm is an immediate.
	OperandKindImm
)

// NewOperandReg returns a register operand.
func NewOperandReg(r Reg) Operand {
	return Operand{Kind: OperandKindReg, Reg: r}
}

// NewOperandMem returns a memory operand.
func NewOperandMem(a Amode) Operand {
	return Operand{Kind: OperandKindMem, Amode: a}
}

// NewOperandImm returns an immediate operand.
func NewOperandImm(imm int64) Operand {
	return Operand{Kind: OperandKindImm, Imm: imm}
}

// Uses returns true if reading the operand reads r.
func (o *Operand) Uses(r Reg) bool {
	switch o.Kind {
	case OperandKindReg:
		return o.Reg == r
	case OperandKindMem:
		return o.Amode.Uses(r)
	}
	return false
}

// Format returns the AT&T representation of the operand accessed with the given bit width.
func (o *Operand) Format(width int) string {
	switch o.Kind {
	case OperandKindReg:
		return o.Reg.Format(width)
	case OperandKindMem:
		return o.Amode.String()
	case OperandKindImm:
		return fmt.Sprintf("$%d", o.Imm)
	default:
		panic("BUG: invalid operand kind")
	}
}
