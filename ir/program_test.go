package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func reg(p *Program, r RealReg) VReg {
	return p.Value(RegisterLocation(r))
}

func TestProgram_Assign(t *testing.T) {
	p := NewProgram()
	v := p.NewVReg()
	require.Equal(t, LocationUnassigned, p.Location(v))
	p.Assign(v, RegisterLocation(RAX))
	require.Equal(t, RegisterLocation(RAX), p.Location(v))
	require.Panics(t, func() { p.Assign(v, RegisterLocation(RBX)) })
	require.Panics(t, func() { p.Assign(VRegInvalid, RegisterLocation(RBX)) })
	require.Panics(t, func() { p.Assign(v+1, RegisterLocation(RBX)) })
	require.Equal(t, 1, p.NumVRegs())
}

func TestProgram_Append_validate(t *testing.T) {
	p := NewProgram()
	rax, rbx, rcx, rsi := reg(p, RAX), reg(p, RBX), reg(p, RCX), reg(p, RSI)
	x1, x2 := reg(p, XMM1), reg(p, XMM2)
	unassigned := p.NewVReg()
	c := p.NewConstant([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	label := p.NewLabel()

	for _, tc := range []struct {
		name string
		op   Operator
	}{
		{name: "missing result", op: Operator{Kind: KindAdd, Operand1: rax, Operand2: rbx}},
		{name: "unexpected result", op: Operator{Kind: KindCmp, Result: rax, Operand1: rax, Operand2: rbx}},
		{name: "unassigned operand", op: Operator{Kind: KindAdd, Result: rax, Operand1: unassigned, Operand2: rbx}},
		{name: "static with operand2", op: Operator{Kind: KindAdd, Result: rax, Operand1: rax, Operand2: rbx, Mode: AddrStaticData, Data: c}},
		{name: "static without data", op: Operator{Kind: KindAdd, Result: rax, Operand1: rax, Mode: AddrStaticData}},
		{name: "static too small", op: Operator{Kind: KindVLoad, Result: rax, Mode: AddrStaticData, Data: c}},
		{name: "base without base", op: Operator{Kind: KindAdd, Result: rax, Operand1: rax, Mode: AddrBaseDisplacement}},
		{name: "indexed bad scale", op: Operator{Kind: KindAdd, Result: rax, Operand1: rax, Operand2: rsi, Mode: AddrIndexed, Scale: 3}},
		{name: "memory for register-only kind", op: Operator{Kind: KindPsllw, Result: rax, Operand1: rax, Operand2: rsi, Mode: AddrBaseDisplacement}},
		{name: "store without memory", op: Operator{Kind: KindStore, Operand1: rax, Operand2: rsi}},
		{name: "imm on register kind", op: Operator{Kind: KindNeg, Result: rax, Operand1: rax, Imm: 3}},
		{name: "jump without target", op: Operator{Kind: KindJmp}},
		{name: "jump to unknown operator", op: Operator{Kind: KindJmp, Linked: 99}},
		{name: "linked non control", op: Operator{Kind: KindAdd, Result: rax, Operand1: rax, Operand2: rbx, Linked: label}},
		{name: "label through append", op: Operator{Kind: KindLabel}},
		{name: "epilogue linked to label", op: Operator{Kind: KindEpilogue, Linked: label}},
		{name: "index in direct mode", op: Operator{Kind: KindAdd, Result: rax, Operand1: rax, Operand2: rbx, Operand3: rcx}},
		{name: "immediate with operand2", op: Operator{Kind: KindSub, Result: rax, Operand1: rax, Operand2: rbx, Imm: 42}},
		{name: "immediate with memory source", op: Operator{Kind: KindAdd, Result: rax, Operand1: rax, Operand2: rsi, Mode: AddrBaseDisplacement, Imm: 4}},
		{name: "operand2 of in-place unary", op: Operator{Kind: KindNeg, Result: rax, Operand1: rax, Operand2: rcx}},
		{name: "operand1 with memory source", op: Operator{Kind: KindMov, Result: rax, Operand1: rbx, Operand2: rsi, Mode: AddrBaseDisplacement}},
		{name: "missing operand1", op: Operator{Kind: KindAdd, Result: rax, Operand2: rbx}},
		{name: "missing register source", op: Operator{Kind: KindPaddw, Result: x1, Operand1: x1}},
		{name: "store through the constant pool", op: Operator{Kind: KindStore, Operand1: rax, Operand3: rcx, Mode: AddrIndexed, Scale: 8, Data: c}},
		{name: "store without value", op: Operator{Kind: KindStore, Operand2: rsi, Mode: AddrBaseDisplacement}},
		{name: "unreferenced data", op: Operator{Kind: KindAdd, Result: rax, Operand1: rax, Operand2: rbx, Data: c}},
		{name: "movimm with operand", op: Operator{Kind: KindMovImm, Result: rax, Operand1: rbx, Imm: 1}},
		{name: "shift without count", op: Operator{Kind: KindShl, Result: rax, Operand1: rax}},
		{name: "shift with index", op: Operator{Kind: KindShl, Result: rax, Operand1: rax, Operand2: rcx, Operand3: rbx}},
		{name: "blend without mask", op: Operator{Kind: KindBlendv, Result: x1, Operand1: x1, Operand2: x2}},
		{name: "mask store without pointer", op: Operator{Kind: KindMaskStore, Operand1: x1, Operand2: x2}},
		{name: "jump with operand", op: Operator{Kind: KindJmp, Operand1: rax, Linked: label}},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			require.Panics(t, func() { p.Append(tc.op) })
		})
	}
	// Nothing was appended.
	require.Equal(t, 0, p.Len())

	id := p.Append(Operator{Kind: KindAdd, Result: rax, Operand1: rax, Mode: AddrStaticData, Data: c})
	require.Equal(t, -1, p.Op(id).BinaryOffset)
	require.Equal(t, []OpID{id}, p.Sequence())
}

func TestProgram_Append_operands(t *testing.T) {
	p := NewProgram()
	rax, rcx, rsi := reg(p, RAX), reg(p, RCX), reg(p, RSI)
	x0, x1, x2 := reg(p, XMM0), reg(p, XMM1), reg(p, XMM2)
	c16 := p.NewConstant(make([]byte, 16))

	for _, tc := range []struct {
		name string
		op   Operator
	}{
		{name: "immediate without operand2", op: Operator{Kind: KindSub, Result: rax, Operand1: rax, Imm: 42}},
		{name: "immediate byte with operand2", op: Operator{Kind: KindPblendw, Result: x1, Operand1: x1, Operand2: x2, Imm: 0x88}},
		{name: "indexed load from static data", op: Operator{Kind: KindVLoad, Result: x1, Operand3: rcx, Mode: AddrIndexed, Scale: 1, Data: c16}},
		{name: "indexed store", op: Operator{Kind: KindStore, Operand1: rax, Operand2: rsi, Operand3: rcx, Mode: AddrIndexed, Scale: 8}},
		{name: "blend with static data", op: Operator{Kind: KindBlendv, Result: x1, Operand1: x1, Operand3: x0, Mode: AddrStaticData, Data: c16}},
		{name: "divide from memory", op: Operator{Kind: KindDiv, Result: rax, Operand1: rax, Operand2: rsi, Operand3: rcx, Mode: AddrIndexed, Scale: 8}},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			require.NotPanics(t, func() { p.Append(tc.op) })
		})
	}
	require.Equal(t, 6, p.Len())
}

func TestProgram_Place(t *testing.T) {
	p := NewProgram()
	label := p.NewLabel()
	require.False(t, p.Placed(label))
	jmp := p.Append(Operator{Kind: KindJmp, Linked: label})
	p.Place(label)
	require.True(t, p.Placed(label))
	require.Equal(t, []OpID{jmp, label}, p.Sequence())
	require.Panics(t, func() { p.Place(label) })
	require.Panics(t, func() { p.Place(jmp) })
}

func TestProgram_NewConstant(t *testing.T) {
	p := NewProgram()
	raw := []byte{1, 2}
	c := p.NewConstant(raw)
	raw[0] = 0xff
	require.Equal(t, []byte{1, 2}, c.Bytes)
	require.Equal(t, []*Constant{c}, p.Constants())
	require.Panics(t, func() { p.NewConstant(nil) })
}

func TestOperator_String(t *testing.T) {
	p := NewProgram()
	rax, rsi := reg(p, RAX), reg(p, RSI)
	id := p.Append(Operator{Kind: KindAdd, Result: rax, Operand1: rax, Operand2: rsi, Mode: AddrBaseDisplacement, Displacement: 8})
	require.Equal(t, "v1 = Add v1, v2, base+disp scale=0 disp=8", p.Op(id).String())
}
