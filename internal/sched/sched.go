// Package sched contains the reference list scheduler over the dependency
// linkage maintained by ir.Program.
package sched

import (
	"fmt"

	"github.com/google/btree"
	"tlog.app/go/errors"

	"github.com/swrast/pxjit/ir"
)

// ListScheduler emits, among the operators whose predecessors are all
// emitted, the one with the shortest dependency chain first. Ties keep
// program order.
type ListScheduler struct{}

var _ ir.Scheduler = ListScheduler{}

type readyOp struct {
	chain int
	index int
	id    ir.OpID
}

func lessReady(a, b readyOp) bool {
	if a.chain != b.chain {
		return a.chain < b.chain
	}
	return a.index < b.index
}

// Schedule implements ir.Scheduler.
//
// Blocker counts are simulated on a copy: the Program is not modified.
func (ListScheduler) Schedule(p *ir.Program) []ir.OpID {
	seq := p.Sequence()
	index := make(map[ir.OpID]int, len(seq))
	blockers := make(map[ir.OpID]int, len(seq))
	ready := btree.NewG[readyOp](8, lessReady)

	for i, id := range seq {
		index[id] = i
	}
	for i, id := range seq {
		n := len(p.Predecessors(id))
		blockers[id] = n
		if n == 0 {
			ready.ReplaceOrInsert(readyOp{chain: p.Op(id).ChainSize, index: i, id: id})
		}
	}

	order := make([]ir.OpID, 0, len(seq))
	for ready.Len() > 0 {
		r, _ := ready.DeleteMin()
		order = append(order, r.id)
		for _, s := range p.Successors(r.id) {
			blockers[s]--
			if blockers[s] == 0 {
				ready.ReplaceOrInsert(readyOp{chain: p.Op(s).ChainSize, index: index[s], id: s})
			}
		}
	}
	if len(order) != len(seq) {
		panic(fmt.Sprintf("BUG: scheduled %d of %d operators", len(order), len(seq)))
	}
	return order
}

// ProgramOrder keeps the operators in the order they were appended.
type ProgramOrder struct{}

var _ ir.Scheduler = ProgramOrder{}

// Schedule implements ir.Scheduler.
func (ProgramOrder) Schedule(p *ir.Program) []ir.OpID {
	return append([]ir.OpID(nil), p.Sequence()...)
}

// Verify checks that order contains every placed operator of p exactly once
// and never puts an operator before one of its predecessors.
func Verify(p *ir.Program, order []ir.OpID) error {
	if len(order) != p.Len() {
		return errors.New("order has %d operators, program has %d", len(order), p.Len())
	}
	pos := make(map[ir.OpID]int, len(order))
	for i, id := range order {
		if id == ir.OpIDInvalid || int(id) > p.NumOps() || !p.Placed(id) {
			return errors.New("position %d: op%d is not part of the program", i, id)
		}
		if prev, ok := pos[id]; ok {
			return errors.New("op%d scheduled twice, at %d and %d", id, prev, i)
		}
		pos[id] = i
	}
	for i, id := range order {
		for _, pred := range p.Predecessors(id) {
			if pos[pred] > i {
				return errors.New("op%d (%s) at %d before its predecessor op%d (%s) at %d",
					id, p.Op(id).Kind, i, pred, p.Op(pred).Kind, pos[pred])
			}
		}
	}
	return nil
}
