package sched

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swrast/pxjit/ir"
)

func reg(p *ir.Program, r ir.RealReg) ir.VReg {
	return p.Value(ir.RegisterLocation(r))
}

func TestListScheduler_Schedule(t *testing.T) {
	p := ir.NewProgram()
	a, c := reg(p, ir.RAX), reg(p, ir.RCX)
	i1 := p.Append(ir.Operator{Kind: ir.KindMovImm, Result: a, Imm: 1})
	i2 := p.Append(ir.Operator{Kind: ir.KindAdd, Result: a, Operand1: a, Imm: 1})
	i3 := p.Append(ir.Operator{Kind: ir.KindMovImm, Result: c, Imm: 2})

	order := ListScheduler{}.Schedule(p)
	require.Equal(t, []ir.OpID{i1, i3, i2}, order)
	require.NoError(t, Verify(p, order))

	// The program itself is untouched.
	require.Equal(t, 1, p.Op(i2).BlockerCount)
	require.False(t, p.Retired(i1))
}

func TestListScheduler_barriers(t *testing.T) {
	p := ir.NewProgram()
	a, b, c := reg(p, ir.RAX), reg(p, ir.RBX), reg(p, ir.RCX)
	label := p.NewLabel()
	p.Append(ir.Operator{Kind: ir.KindMovImm, Result: a, Imm: 1})
	p.Append(ir.Operator{Kind: ir.KindAdd, Result: a, Operand1: a, Imm: 1})
	p.Place(label)
	p.Append(ir.Operator{Kind: ir.KindMovImm, Result: b, Imm: 2})
	p.Append(ir.Operator{Kind: ir.KindMovImm, Result: c, Imm: 3})
	p.Append(ir.Operator{Kind: ir.KindJmp, Linked: label})

	order := ListScheduler{}.Schedule(p)
	require.NoError(t, Verify(p, order))
	// Nothing crosses the label.
	require.Equal(t, label, order[2])
	require.Equal(t, ir.KindJmp, p.Op(order[5]).Kind)
}

func TestProgramOrder_Schedule(t *testing.T) {
	p := ir.NewProgram()
	a := reg(p, ir.RAX)
	p.Append(ir.Operator{Kind: ir.KindMovImm, Result: a, Imm: 1})
	p.Append(ir.Operator{Kind: ir.KindNeg, Result: a, Operand1: a})
	order := ProgramOrder{}.Schedule(p)
	require.Equal(t, p.Sequence(), order)
	require.NoError(t, Verify(p, order))
}

func TestVerify(t *testing.T) {
	p := ir.NewProgram()
	a, b := reg(p, ir.RAX), reg(p, ir.RBX)
	i1 := p.Append(ir.Operator{Kind: ir.KindMovImm, Result: a, Imm: 1})
	i2 := p.Append(ir.Operator{Kind: ir.KindMov, Result: b, Operand1: a})
	unplaced := p.NewLabel()

	for _, tc := range []struct {
		name   string
		order  []ir.OpID
		expErr string
	}{
		{name: "missing", order: []ir.OpID{i1}, expErr: "order has 1 operators, program has 2"},
		{name: "duplicate", order: []ir.OpID{i1, i1}, expErr: "op1 scheduled twice, at 0 and 1"},
		{name: "unplaced", order: []ir.OpID{i1, unplaced}, expErr: "position 1: op3 is not part of the program"},
		{name: "unknown", order: []ir.OpID{i1, 42}, expErr: "position 1: op42 is not part of the program"},
		{name: "reversed", order: []ir.OpID{i2, i1}, expErr: "op2 (Mov) at 0 before its predecessor op1 (MovImm) at 1"},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := Verify(p, tc.order)
			require.ErrorContains(t, err, tc.expErr)
		})
	}
}
