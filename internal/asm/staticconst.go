package asm

import "fmt"

// StaticConst is a constant placed after the code of a kernel and referenced
// with RIP-relative addressing.
type StaticConst struct {
	Raw []byte
	// OffsetInBinary is the offset of the constant in the final binary, valid
	// once the pool is flushed.
	OffsetInBinary int
	placed         bool
}

// NewStaticConst returns a StaticConst holding raw.
func NewStaticConst(raw []byte) *StaticConst {
	return &StaticConst{Raw: raw}
}

// Placed returns true once the constant has been written into the binary.
func (s *StaticConst) Placed() bool {
	return s.placed
}

// SetOffsetInBinary finalizes the offset of the constant.
func (s *StaticConst) SetOffsetInBinary(offset int) {
	s.OffsetInBinary = offset
	s.placed = true
}

// StaticConstPool collects the constants used by a kernel in first-use order.
type StaticConstPool struct {
	Consts      []*StaticConst
	addedConsts map[*StaticConst]struct{}
	// PoolSizeInBytes is the total size of the constants, without alignment.
	PoolSizeInBytes int
}

// NewStaticConstPool returns an empty pool.
func NewStaticConstPool() *StaticConstPool {
	return &StaticConstPool{addedConsts: map[*StaticConst]struct{}{}}
}

// AddConst registers c as used. Adding the same constant twice is a no-op.
func (p *StaticConstPool) AddConst(c *StaticConst) {
	if _, ok := p.addedConsts[c]; ok {
		return
	}
	p.Consts = append(p.Consts, c)
	p.addedConsts[c] = struct{}{}
	p.PoolSizeInBytes += len(c.Raw)
}

// Flush writes every constant into buf, each aligned on align bytes, and
// finalizes their offsets. align must be a power of two.
func (p *StaticConstPool) Flush(buf *CodeBuffer, align int) {
	for _, c := range p.Consts {
		if len(c.Raw) == 0 {
			panic(fmt.Sprintf("BUG: empty static constant %p", c))
		}
		buf.Align(align, 0)
		offset := buf.Len()
		_, _ = buf.Write(c.Raw)
		c.SetOffsetInBinary(offset)
	}
}

// Reset empties the pool, keeping its storage.
func (p *StaticConstPool) Reset() {
	p.Consts = p.Consts[:0]
	clear(p.addedConsts)
	p.PoolSizeInBytes = 0
}
