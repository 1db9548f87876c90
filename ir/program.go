package ir

import "fmt"

// Program is an arena of Operators in program order, together with the
// virtual register assignments and the constants they reference.
//
// A Program is not safe for concurrent use.
type Program struct {
	ops       []*Operator
	seq       []OpID
	locations []Location // indexed by VReg
	constants []*Constant
	links     linkState
}

// NewProgram returns an empty Program.
func NewProgram() *Program {
	return &Program{locations: []Location{LocationUnassigned}, links: newLinkState()}
}

// NewVReg returns a fresh virtual register.
func (p *Program) NewVReg() VReg {
	p.locations = append(p.locations, LocationUnassigned)
	return VReg(len(p.locations) - 1)
}

// Assign binds v to loc. A virtual register is bound once, before any
// operator referencing it is appended.
func (p *Program) Assign(v VReg, loc Location) {
	p.checkVReg(v)
	if !loc.Valid() {
		panic(fmt.Sprintf("BUG: assigning an invalid location to %s", v))
	}
	if prev := p.locations[v]; prev.Valid() {
		panic(fmt.Sprintf("BUG: %s already assigned to %s", v, prev))
	}
	p.locations[v] = loc
}

// Value returns a fresh virtual register assigned to loc.
func (p *Program) Value(loc Location) VReg {
	v := p.NewVReg()
	p.Assign(v, loc)
	return v
}

// Location returns the location of v.
func (p *Program) Location(v VReg) Location {
	p.checkVReg(v)
	return p.locations[v]
}

// NumVRegs returns the number of virtual registers created so far.
func (p *Program) NumVRegs() int {
	return len(p.locations) - 1
}

func (p *Program) checkVReg(v VReg) {
	if v == VRegInvalid || int(v) >= len(p.locations) {
		panic(fmt.Sprintf("BUG: unknown virtual register %s", v))
	}
}

// NewConstant registers a copy of raw as kernel data.
func (p *Program) NewConstant(raw []byte) *Constant {
	if len(raw) == 0 {
		panic("BUG: empty constant")
	}
	c := &Constant{Bytes: append([]byte(nil), raw...)}
	p.constants = append(p.constants, c)
	return c
}

// Constants returns the constants in creation order.
func (p *Program) Constants() []*Constant {
	return p.constants
}

// NewLabel allocates a label operator so that jumps and calls can target it
// before it is placed with Place.
func (p *Program) NewLabel() OpID {
	return p.alloc(Operator{Kind: KindLabel})
}

// Place appends the label allocated by NewLabel at the current position.
func (p *Program) Place(label OpID) {
	o := p.Op(label)
	if o.Kind != KindLabel {
		panic(fmt.Sprintf("BUG: op%d is %s, not a label", label, o.Kind))
	}
	if o.placed {
		panic(fmt.Sprintf("BUG: label op%d placed twice", label))
	}
	p.place(o)
}

// Append validates op, appends it to the program and links it to the
// operators it depends on.
func (p *Program) Append(op Operator) OpID {
	if op.Kind == KindLabel {
		panic("BUG: labels are created with NewLabel and placed with Place")
	}
	p.validate(&op)
	id := p.alloc(op)
	p.place(p.Op(id))
	return id
}

func (p *Program) alloc(op Operator) OpID {
	op.id = OpID(len(p.ops) + 1)
	op.BinaryOffset = -1
	op.ChainSize = 1
	op.BlockerCount = 0
	op.Providers, op.Consumers, op.Dependents, op.after = nil, nil, nil, nil
	op.placed, op.retired = false, false
	p.ops = append(p.ops, &op)
	return op.id
}

func (p *Program) place(o *Operator) {
	o.placed = true
	p.seq = append(p.seq, o.id)
	p.link(o)
}

// Op returns the operator identified by id.
func (p *Program) Op(id OpID) *Operator {
	if id == OpIDInvalid || int(id) > len(p.ops) {
		panic(fmt.Sprintf("BUG: unknown operator op%d", id))
	}
	return p.ops[id-1]
}

// Sequence returns the placed operators in program order. The slice must not
// be modified.
func (p *Program) Sequence() []OpID {
	return p.seq
}

// NumOps returns the number of allocated operators, placed or not.
func (p *Program) NumOps() int {
	return len(p.ops)
}

// Len returns the number of placed operators.
func (p *Program) Len() int {
	return len(p.seq)
}

// Placed returns true if the operator is part of the sequence.
func (p *Program) Placed(id OpID) bool {
	return p.Op(id).placed
}

func (p *Program) validate(o *Operator) {
	f := Lookup(o.Kind)

	if f.HasResult() != (o.Result != VRegInvalid) {
		if f.HasResult() {
			panic(fmt.Sprintf("BUG: %s requires a result", o.Kind))
		}
		panic(fmt.Sprintf("BUG: %s has no result", o.Kind))
	}

	for _, v := range [...]VReg{o.Result, o.Operand1, o.Operand2, o.Operand3} {
		if v == VRegInvalid {
			continue
		}
		if !p.Location(v).Valid() {
			panic(fmt.Sprintf("BUG: %s of %s is not assigned", v, o.Kind))
		}
	}

	switch o.Mode {
	case AddrDirect:
		if o.Scale != 0 {
			panic(fmt.Sprintf("BUG: scale %d without indexed addressing for %s", o.Scale, o.Kind))
		}
		if f&TemplateMemDest != 0 {
			panic(fmt.Sprintf("BUG: %s requires a memory destination", o.Kind))
		}
	case AddrStaticData:
		if f&(FlagMemOperand1|FlagMemOperand2) == 0 {
			panic(fmt.Sprintf("BUG: %s cannot reference static data", o.Kind))
		}
		if o.Data == nil {
			panic(fmt.Sprintf("BUG: static data reference of %s without data", o.Kind))
		}
		if len(o.Data.Bytes) < f.WidthBytes() {
			panic(fmt.Sprintf("BUG: %d bytes of static data for %d-bit %s", len(o.Data.Bytes), f.Width(), o.Kind))
		}
	case AddrBaseDisplacement:
		if !f.ReferencesMemory() {
			panic(fmt.Sprintf("BUG: %s cannot reference memory", o.Kind))
		}
		if o.Operand2 == VRegInvalid {
			panic(fmt.Sprintf("BUG: base+displacement reference of %s without base", o.Kind))
		}
		if o.Scale != 0 {
			panic(fmt.Sprintf("BUG: scale %d without indexed addressing for %s", o.Scale, o.Kind))
		}
		if o.Operand3 != VRegInvalid && o.Kind != KindBlendv {
			panic(fmt.Sprintf("BUG: base+displacement reference of %s with an index", o.Kind))
		}
	case AddrIndexed:
		if !f.ReferencesMemory() || o.Kind == KindBlendv {
			panic(fmt.Sprintf("BUG: %s cannot use indexed addressing", o.Kind))
		}
		switch o.Scale {
		case 1, 2, 4, 8:
		default:
			panic(fmt.Sprintf("BUG: invalid scale %d for %s", o.Scale, o.Kind))
		}
		if o.Operand2 == VRegInvalid && o.Data == nil {
			panic(fmt.Sprintf("BUG: indexed reference of %s without base nor static data", o.Kind))
		}
	default:
		panic(fmt.Sprintf("BUG: invalid addressing mode %d", o.Mode))
	}

	if o.Data != nil && !o.ReferencesData() {
		panic(fmt.Sprintf("BUG: static data of %s is not referenced in %s mode", o.Kind, o.Mode))
	}

	used, required := operandSlots(o, f)
	for i, v := range [...]VReg{o.Operand1, o.Operand2, o.Operand3} {
		slot := operandSlot(1 << i)
		switch {
		case v != VRegInvalid && used&slot == 0:
			panic(fmt.Sprintf("BUG: %s in %s mode does not read operand%d", o.Kind, o.Mode, i+1))
		case v == VRegInvalid && required&slot != 0:
			panic(fmt.Sprintf("BUG: %s in %s mode requires operand%d", o.Kind, o.Mode, i+1))
		}
	}

	if o.Imm != 0 && !immUsed(o, f) {
		if f.TakesImm() {
			panic(fmt.Sprintf("BUG: immediate of %s is ignored in %s mode with operand2 set", o.Kind, o.Mode))
		}
		panic(fmt.Sprintf("BUG: %s does not take an immediate", o.Kind))
	}

	if f.Control() {
		switch o.Kind {
		case KindEntry:
			if o.Linked != OpIDInvalid {
				panic("BUG: entry cannot be linked")
			}
			if o.Imm < 0 || o.Imm > 1<<30 {
				panic(fmt.Sprintf("BUG: invalid frame size %d", o.Imm))
			}
		default:
			if o.Linked == OpIDInvalid {
				panic(fmt.Sprintf("BUG: %s requires a linked operator", o.Kind))
			}
			target := p.Op(o.Linked).Kind
			switch {
			case o.Kind == KindEpilogue && target != KindEntry:
				panic(fmt.Sprintf("BUG: epilogue linked to %s instead of an entry", target))
			case o.Kind != KindEpilogue && target != KindLabel:
				panic(fmt.Sprintf("BUG: %s linked to %s instead of a label", o.Kind, target))
			}
		}
	} else if o.Linked != OpIDInvalid {
		panic(fmt.Sprintf("BUG: %s cannot be linked", o.Kind))
	}
}

// operandSlot is a bit set of Operand1 to Operand3.
type operandSlot uint8

const (
	slot1 operandSlot = 1 << iota
	slot2
	slot3
)

// operandSlots returns the operands the assembly of o reads and, among them,
// the ones it cannot do without.
func operandSlots(o *Operator, f Flags) (used, required operandSlot) {
	switch {
	case f.Control(), o.Kind == KindMovImm:
		return 0, 0
	case o.Kind == KindMaskStore:
		return slot1 | slot2 | slot3, slot1 | slot2 | slot3
	}

	// The second source: a register in AddrDirect mode, otherwise the base
	// and the index of the memory reference.
	var src, srcRequired operandSlot
	switch o.Mode {
	case AddrDirect:
		src = slot2
		if !f.Has(FlagImmOperand2) {
			srcRequired = slot2
		}
	case AddrBaseDisplacement:
		src, srcRequired = slot2, slot2
	case AddrIndexed:
		src = slot2 | slot3
		// Stores cannot go through the constant pool.
		if f.Template() == TemplateMemDest {
			srcRequired = slot2
		}
	}

	switch {
	case o.Kind == KindBlendv:
		return slot1 | slot3 | src, slot1 | slot3 | srcRequired
	case f.Template() == TemplateUnary:
		if o.Mode == AddrDirect {
			return slot1, slot1
		}
		return src, srcRequired
	default:
		return slot1 | src, slot1 | srcRequired
	}
}

// immUsed returns true if the assembly of o reads Imm.
func immUsed(o *Operator, f Flags) bool {
	switch {
	case o.Kind == KindMovImm, o.Kind == KindEntry, f.Has(FlagImm8):
		return true
	case f.Has(FlagImmOperand2):
		return o.Mode == AddrDirect && o.Operand2 == VRegInvalid
	}
	return false
}
