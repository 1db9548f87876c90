// Package amd64 assembles an ir.Program into x86-64 machine code.
package amd64

import (
	"fmt"

	"github.com/swrast/pxjit/internal/asm"
	asm_amd64 "github.com/swrast/pxjit/internal/asm/amd64"
	"github.com/swrast/pxjit/ir"
)

// constAlign is the alignment of every constant in the pool, so that SSE
// instructions can use them as aligned memory operands.
const constAlign = 16

type (
	// Assembler turns a scheduled ir.Program into machine code. An Assembler can
	// be reused but not shared between goroutines.
	Assembler struct {
		abi ABI

		p      *ir.Program
		buf    *asm.CodeBuffer
		pool   *asm.StaticConstPool
		consts map[*ir.Constant]*asm.StaticConst

		// entry is the single KindEntry of the program, if any.
		entry      *ir.Operator
		usesVector bool

		fixups   []fixup
		emitted  []emittedOp
		patching bool
		// unresolved is set while emitting an operator that refers to a
		// position not known yet.
		unresolved bool
	}

	// fixup is an operator assembled with a placeholder, re-emitted once every
	// position is known.
	fixup struct {
		id     ir.OpID
		offset int
		length int
	}

	emittedOp struct {
		id     ir.OpID
		offset int
		length int
	}
)

// NewAssembler returns an Assembler producing code for the given calling convention.
func NewAssembler(abi ABI) *Assembler {
	if !abi.Valid() {
		panic(fmt.Sprintf("BUG: invalid ABI %d", abi))
	}
	return &Assembler{abi: abi}
}

// ABI returns the calling convention the Assembler was created for.
func (a *Assembler) ABI() ABI {
	return a.abi
}

// Assemble emits the operators of p in the given order, which must contain
// every placed operator once and respect its dependencies, followed by the
// constant pool. Violations of the program invariants panic.
//
// The returned slice is owned by the Assembler and overwritten by the next
// Assemble.
func (a *Assembler) Assemble(p *ir.Program, order []ir.OpID) []byte {
	a.reset(p)
	a.check(order)

	p.ResetEmission()
	for _, id := range order {
		p.Retire(id)
		op := p.Op(id)
		offset := a.buf.Len()
		op.BinaryOffset = offset

		a.unresolved = false
		a.emit(a.buf, op)
		length := a.buf.Len() - offset
		if a.unresolved {
			a.fixups = append(a.fixups, fixup{id: id, offset: offset, length: length})
		}
		a.emitted = append(a.emitted, emittedOp{id: id, offset: offset, length: length})
	}

	a.pool.Flush(a.buf, constAlign)
	a.patch()
	return a.buf.Bytes()
}

// Fixups returns the number of operators re-emitted by the last Assemble.
func (a *Assembler) Fixups() int {
	return len(a.fixups)
}

// ConstPoolSize returns the size in bytes of the constants placed by the last Assemble.
func (a *Assembler) ConstPoolSize() int {
	if a.pool == nil {
		return 0
	}
	return a.pool.PoolSizeInBytes
}

func (a *Assembler) reset(p *ir.Program) {
	a.p = p
	if a.buf == nil {
		a.buf = asm.NewCodeBuffer(16 * p.Len())
		a.pool = asm.NewStaticConstPool()
		a.consts = map[*ir.Constant]*asm.StaticConst{}
	} else {
		a.buf.Reset()
		a.pool.Reset()
		clear(a.consts)
	}
	a.entry = nil
	a.usesVector = false
	a.fixups = a.fixups[:0]
	a.emitted = a.emitted[:0]
	a.patching = false
}

// check validates what only the backend knows about: reserved registers,
// frame slots and the shape of the order.
func (a *Assembler) check(order []ir.OpID) {
	p := a.p
	if len(order) != p.Len() {
		panic(fmt.Sprintf("BUG: order has %d operators, program has %d", len(order), p.Len()))
	}

	usesFrame := false
	for _, id := range p.Sequence() {
		op := p.Op(id)
		if op.Kind == ir.KindEntry {
			if a.entry != nil {
				panic(fmt.Sprintf("BUG: second entry op%d, first is op%d", id, a.entry.ID()))
			}
			a.entry = op
		}
		// Vector values in frame slots are staged through vecScratch.
		if enc := &encodings[op.Kind]; op.Flags().Width() == 128 || enc.vecDst || enc.vecSrc {
			a.usesVector = true
		}
		for _, v := range [...]ir.VReg{op.Result, op.Operand1, op.Operand2, op.Operand3} {
			if v == ir.VRegInvalid {
				continue
			}
			loc := p.Location(v)
			switch {
			case loc.IsRegister():
				r := loc.Register()
				if r.Reserved() {
					panic(fmt.Sprintf("BUG: op%d (%s) uses reserved register %s", id, op.Kind, r))
				}
				if r.IsVector() {
					a.usesVector = true
				}
			case loc.IsFrameSlot():
				usesFrame = true
			}
		}
	}
	if usesFrame && a.entry == nil {
		panic("BUG: frame slots used without an entry operator")
	}
}

// emit assembles op at the end of buf.
func (a *Assembler) emit(buf *asm.CodeBuffer, op *ir.Operator) {
	a.useConstant(op)
	a.emitStaticBase(buf, op)
	if h := irregularHandlers[op.Kind]; h != nil {
		h(a, buf, op)
		return
	}

	enc := &encodings[op.Kind]
	switch op.Flags().Template() {
	case ir.TemplateBinary:
		a.assembleBinary(buf, op, enc)
	case ir.TemplateUnary:
		a.assembleUnary(buf, op, enc)
	case ir.TemplateMemDest:
		a.assembleMemDest(buf, op, enc)
	default:
		panic(fmt.Sprintf("BUG: no assembly path for %s", op.Kind))
	}
}

// patch re-emits every fixup now that labels and constants are placed. The
// new encoding must have the length recorded in the first pass.
func (a *Assembler) patch() {
	a.patching = true
	defer func() { a.patching = false }()

	for _, fx := range a.fixups {
		op := a.p.Op(fx.id)
		tmp := asm.NewCodeBufferAt(fx.offset)
		a.emit(tmp, op)
		if tmp.Size() != fx.length {
			panic(fmt.Sprintf("BUG: fixed point violated by op%d (%s): %d bytes, was %d",
				fx.id, op.Kind, tmp.Size(), fx.length))
		}
		a.buf.OverwriteAt(fx.offset, tmp.Bytes())
	}
}

// markUnresolved records that the operator being emitted must be patched.
func (a *Assembler) markUnresolved() {
	if !a.patching {
		a.unresolved = true
	}
}

// useConstant adds the constant referenced by op to the pool.
func (a *Assembler) useConstant(op *ir.Operator) {
	if !op.ReferencesData() {
		return
	}
	if op.Data == nil {
		panic(fmt.Sprintf("BUG: op%d (%s) references no constant", op.ID(), op.Kind))
	}
	sc := a.staticConst(op.Data)
	if !a.patching {
		a.pool.AddConst(sc)
	}
	if !sc.Placed() {
		a.markUnresolved()
	}
}

func (a *Assembler) staticConst(c *ir.Constant) *asm.StaticConst {
	sc, ok := a.consts[c]
	if !ok {
		sc = asm.NewStaticConst(c.Bytes)
		a.consts[c] = sc
	}
	return sc
}

func (a *Assembler) constTarget(c *ir.Constant) int {
	sc := a.staticConst(c)
	if !sc.Placed() {
		return -1
	}
	return sc.OffsetInBinary
}

// emitStaticBase loads the address of the constant into the scratch register
// when it serves as the base of an indexed operand.
func (a *Assembler) emitStaticBase(buf *asm.CodeBuffer, op *ir.Operator) {
	if op.Mode != ir.AddrIndexed || op.Operand2 != ir.VRegInvalid {
		return
	}
	asm_amd64.EncodeRegMem(buf, asm_amd64.PrefixNone, 0x8d, 1, scratch.Enc(),
		asm_amd64.NewAmodeRipRelative(a.constTarget(op.Data)), asm_amd64.Rex(0).SetW(), 0)
}
