package ir

import "fmt"

// linkState is the bookkeeping Append uses to derive dependency edges.
type linkState struct {
	lastDef map[Location]OpID
	readers map[Location][]OpID

	flagWriter  OpID
	flagReaders []OpID

	sideEffect OpID
	memReaders []OpID

	barrier      OpID
	sinceBarrier []OpID

	edges map[edge]struct{}
}

type edge struct {
	from, to OpID
}

func newLinkState() linkState {
	return linkState{
		lastDef: map[Location]OpID{},
		readers: map[Location][]OpID{},
		edges:   map[edge]struct{}{},
	}
}

// implicitDefs are the registers a kind overwrites besides its Result.
var implicitDefs = [KindEnd][]RealReg{
	KindDiv:       {RAX, RDX},
	KindRem:       {RAX, RDX},
	KindUDiv:      {RAX, RDX},
	KindURem:      {RAX, RDX},
	KindMaskStore: {RDI},
}

func (p *Program) uses(o *Operator) []Location {
	ret := make([]Location, 0, 3)
	for _, v := range o.Sources() {
		ret = appendUnique(ret, p.Location(v))
	}
	return ret
}

func (p *Program) defs(o *Operator) []Location {
	var ret []Location
	if o.Result != VRegInvalid {
		ret = append(ret, p.Location(o.Result))
	}
	for _, r := range implicitDefs[o.Kind] {
		ret = appendUnique(ret, RegisterLocation(r))
	}
	return ret
}

func appendUnique(s []Location, l Location) []Location {
	for _, e := range s {
		if e == l {
			return s
		}
	}
	return append(s, l)
}

func (p *Program) link(o *Operator) {
	s := &p.links
	f := o.Flags()
	id := o.id

	// Values: the latest definer of each location read is a provider.
	for _, loc := range p.uses(o) {
		if def := s.lastDef[loc]; def != OpIDInvalid {
			p.addEdge(def, id, true)
		}
		s.readers[loc] = append(s.readers[loc], id)
	}
	// Redefinitions wait for the readers of the previous value and for the previous definer.
	for _, loc := range p.defs(o) {
		for _, r := range s.readers[loc] {
			p.addEdge(r, id, false)
		}
		if def := s.lastDef[loc]; def != OpIDInvalid {
			p.addEdge(def, id, false)
		}
		s.lastDef[loc] = id
		delete(s.readers, loc)
	}

	if f.ReadsFlags() {
		if s.flagWriter != OpIDInvalid {
			p.addEdge(s.flagWriter, id, false)
		}
		s.flagReaders = append(s.flagReaders, id)
	}
	if f.WritesFlags() {
		if s.flagWriter != OpIDInvalid {
			p.addEdge(s.flagWriter, id, false)
		}
		for _, r := range s.flagReaders {
			p.addEdge(r, id, false)
		}
		s.flagWriter = id
		s.flagReaders = s.flagReaders[:0]
	}

	if f.HasSideEffect() {
		if s.sideEffect != OpIDInvalid {
			p.addEdge(s.sideEffect, id, false)
		}
		for _, r := range s.memReaders {
			p.addEdge(r, id, false)
		}
		s.sideEffect = id
		s.memReaders = s.memReaders[:0]
	} else if o.ReadsMemory() {
		if s.sideEffect != OpIDInvalid {
			p.addEdge(s.sideEffect, id, false)
		}
		s.memReaders = append(s.memReaders, id)
	}

	if s.barrier != OpIDInvalid {
		p.addEdge(s.barrier, id, false)
	}
	if f.Control() {
		for _, prev := range s.sinceBarrier {
			p.addEdge(prev, id, false)
		}
		s.barrier = id
		s.sinceBarrier = s.sinceBarrier[:0]
	} else {
		s.sinceBarrier = append(s.sinceBarrier, id)
	}
}

// addEdge records that to must be emitted after from. Data edges go to
// Providers/Consumers and the others to Dependents. A pair is recorded once.
func (p *Program) addEdge(from, to OpID, data bool) {
	if from == to {
		return
	}
	e := edge{from: from, to: to}
	if _, ok := p.links.edges[e]; ok {
		return
	}
	p.links.edges[e] = struct{}{}

	pred, succ := p.Op(from), p.Op(to)
	if data {
		pred.Consumers = append(pred.Consumers, to)
		succ.Providers = append(succ.Providers, from)
	} else {
		pred.Dependents = append(pred.Dependents, to)
		succ.after = append(succ.after, from)
	}
	if !pred.retired {
		succ.BlockerCount++
	}
	if c := pred.ChainSize + 1; c > succ.ChainSize {
		succ.ChainSize = c
	}
}

// HasEdge returns true if to is ordered after from by a data or order edge.
func (p *Program) HasEdge(from, to OpID) bool {
	_, ok := p.links.edges[edge{from: from, to: to}]
	return ok
}

// Predecessors returns every operator id must be emitted after: its
// Providers followed by the operators listing it as a dependent.
func (p *Program) Predecessors(id OpID) []OpID {
	o := p.Op(id)
	ret := make([]OpID, 0, len(o.Providers)+len(o.after))
	ret = append(ret, o.Providers...)
	return append(ret, o.after...)
}

// Successors returns the Consumers followed by the Dependents of id.
func (p *Program) Successors(id OpID) []OpID {
	o := p.Op(id)
	ret := make([]OpID, 0, len(o.Consumers)+len(o.Dependents))
	ret = append(ret, o.Consumers...)
	return append(ret, o.Dependents...)
}

// Retire marks id as emitted and unblocks its successors. Retiring an
// operator with pending predecessors is a scheduling bug.
func (p *Program) Retire(id OpID) {
	o := p.Op(id)
	switch {
	case !o.placed:
		panic(fmt.Sprintf("BUG: retiring unplaced op%d", id))
	case o.retired:
		panic(fmt.Sprintf("BUG: op%d retired twice", id))
	case o.BlockerCount != 0:
		panic(fmt.Sprintf("BUG: op%d (%s) retired with %d pending predecessors", id, o.Kind, o.BlockerCount))
	}
	o.retired = true
	for _, s := range p.Successors(id) {
		p.Op(s).BlockerCount--
	}
}

// Retired returns true if id was retired since the last ResetEmission.
func (p *Program) Retired(id OpID) bool {
	return p.Op(id).retired
}

// ResetEmission forgets previous emissions: offsets go back to -1 and the
// blocker counts to the number of predecessors.
func (p *Program) ResetEmission() {
	for _, id := range p.seq {
		o := p.Op(id)
		o.retired = false
		o.BinaryOffset = -1
		o.BlockerCount = len(o.Providers) + len(o.after)
	}
	for _, o := range p.ops {
		if !o.placed {
			o.BinaryOffset = -1
		}
	}
}

// Scheduler orders the operators of a program. The returned order contains
// every placed operator once and respects Predecessors.
type Scheduler interface {
	Schedule(p *Program) []OpID
}
