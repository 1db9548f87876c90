package ir

import (
	"fmt"
	"strings"
)

// OpID identifies an Operator of a Program. Zero is OpIDInvalid.
type OpID uint32

// OpIDInvalid is the zero OpID.
const OpIDInvalid OpID = 0

// VReg is a virtual register. Zero is VRegInvalid and marks an unused operand.
type VReg uint32

// VRegInvalid is the zero VReg.
const VRegInvalid VReg = 0

// String implements fmt.Stringer.
func (v VReg) String() string {
	if v == VRegInvalid {
		return "_"
	}
	return fmt.Sprintf("v%d", uint32(v))
}

// AddrMode selects how Operand2, Operand3, Displacement and Data form the
// memory-eligible source or the destination of a store.
type AddrMode byte

const (
	// AddrDirect uses the operands themselves: a register or a frame slot.
	AddrDirect AddrMode = iota
	// AddrStaticData references the operator's Constant.
	AddrStaticData
	// AddrBaseDisplacement references [Operand2 + Displacement].
	AddrBaseDisplacement
	// AddrIndexed references [Operand2 + Operand3*Scale + Displacement]. An
	// unused Operand2 takes the operator's Constant as base and an unused
	// Operand3 means no index.
	AddrIndexed
)

// String implements fmt.Stringer.
func (m AddrMode) String() string {
	switch m {
	case AddrDirect:
		return "direct"
	case AddrStaticData:
		return "static"
	case AddrBaseDisplacement:
		return "base+disp"
	case AddrIndexed:
		return "indexed"
	}
	return fmt.Sprintf("AddrMode(%d)", byte(m))
}

// Memory returns true for the modes addressing memory.
func (m AddrMode) Memory() bool {
	return m == AddrBaseDisplacement || m == AddrIndexed
}

// Constant is read-only data owned by the compiled kernel and placed after its code.
type Constant struct {
	Bytes []byte
}

// Operator is one instruction of a Program.
type Operator struct {
	Kind Kind

	// Result is the defined value. Operand1 is the first source. Operand2 is the
	// second source or the memory base, Operand3 the memory index.
	Result, Operand1, Operand2, Operand3 VReg

	Mode         AddrMode
	Scale        byte
	Displacement int32
	// Imm is the immediate of immediate-bearing kinds, or the frame size of KindEntry.
	Imm int64
	// Data is the constant referenced by AddrStaticData, or the implicit base of
	// AddrIndexed without Operand2.
	Data *Constant
	// Linked is the target of jumps and calls, the subroutine label of a return
	// and the entry of an epilogue.
	Linked OpID

	// BinaryOffset is the offset of the operator in the assembled code, or -1
	// before assembly.
	BinaryOffset int

	// Providers are the operators defining a value read by this one, and
	// Consumers the reverse edges.
	Providers, Consumers []OpID
	// Dependents must stay after this operator for reasons other than data
	// flow: register reuse, flags, memory order and barriers.
	Dependents []OpID
	// BlockerCount is the number of predecessors not yet emitted.
	BlockerCount int
	// ChainSize is the length of the longest dependency chain ending here.
	ChainSize int

	id      OpID
	after   []OpID // reverse of Dependents
	placed  bool
	retired bool
}

// ID returns the OpID of the operator once added to a Program.
func (o *Operator) ID() OpID {
	return o.id
}

// Flags returns Lookup(o.Kind).
func (o *Operator) Flags() Flags {
	return Lookup(o.Kind)
}

// Sources returns the operands read by o.
func (o *Operator) Sources() []VReg {
	ret := make([]VReg, 0, 3)
	for _, v := range [...]VReg{o.Operand1, o.Operand2, o.Operand3} {
		if v != VRegInvalid {
			ret = append(ret, v)
		}
	}
	return ret
}

// ReferencesData returns true if o addresses its Constant: directly, or as
// the base of an indexed reference without Operand2.
func (o *Operator) ReferencesData() bool {
	return o.Mode == AddrStaticData || (o.Mode == AddrIndexed && o.Operand2 == VRegInvalid)
}

// ReadsMemory returns true if o loads from memory that a store may change.
// Constants are immutable and frame slots are tracked as locations.
func (o *Operator) ReadsMemory() bool {
	f := o.Flags()
	return o.Mode.Memory() && f&(FlagAddressOnly|TemplateMemDest) == 0
}

// String implements fmt.Stringer.
func (o *Operator) String() string {
	var sb strings.Builder
	if o.Result != VRegInvalid {
		fmt.Fprintf(&sb, "%s = ", o.Result)
	}
	sb.WriteString(o.Kind.String())
	var args []string
	for _, v := range [...]VReg{o.Operand1, o.Operand2, o.Operand3} {
		if v != VRegInvalid {
			args = append(args, v.String())
		}
	}
	if o.Mode != AddrDirect {
		args = append(args, fmt.Sprintf("%s scale=%d disp=%d", o.Mode, o.Scale, o.Displacement))
	}
	if o.Imm != 0 {
		args = append(args, fmt.Sprintf("$%d", o.Imm))
	}
	if o.Linked != OpIDInvalid {
		args = append(args, fmt.Sprintf("-> op%d", o.Linked))
	}
	if len(args) > 0 {
		sb.WriteByte(' ')
		sb.WriteString(strings.Join(args, ", "))
	}
	return sb.String()
}
