package samples

import (
	"encoding/binary"

	"github.com/swrast/pxjit/ir"
)

// builder appends operators to a program. It stands in for the IR builder
// and the register allocator: every physical register is a single virtual
// register, which is enough since linkage works on locations.
type builder struct {
	p    *ir.Program
	regs [ir.NumRealRegs + 1]ir.VReg
}

func newBuilder() *builder {
	return &builder{p: ir.NewProgram()}
}

func (b *builder) r(r ir.RealReg) ir.VReg {
	if b.regs[r] == ir.VRegInvalid {
		b.regs[r] = b.p.Value(ir.RegisterLocation(r))
	}
	return b.regs[r]
}

func (b *builder) bin(k ir.Kind, dst, x, y ir.RealReg) {
	b.p.Append(ir.Operator{Kind: k, Result: b.r(dst), Operand1: b.r(x), Operand2: b.r(y)})
}

func (b *builder) binImm(k ir.Kind, dst, x ir.RealReg, imm int64) {
	b.p.Append(ir.Operator{Kind: k, Result: b.r(dst), Operand1: b.r(x), Imm: imm})
}

func (b *builder) binConst(k ir.Kind, dst, x ir.RealReg, c *ir.Constant) {
	b.p.Append(ir.Operator{Kind: k, Result: b.r(dst), Operand1: b.r(x), Mode: ir.AddrStaticData, Data: c})
}

func (b *builder) un(k ir.Kind, dst, x ir.RealReg) {
	b.p.Append(ir.Operator{Kind: k, Result: b.r(dst), Operand1: b.r(x)})
}

func (b *builder) unImm(k ir.Kind, dst, x ir.RealReg, imm int64) {
	b.p.Append(ir.Operator{Kind: k, Result: b.r(dst), Operand1: b.r(x), Imm: imm})
}

func (b *builder) load(k ir.Kind, dst, base ir.RealReg, disp int32) {
	b.p.Append(ir.Operator{Kind: k, Result: b.r(dst), Operand2: b.r(base), Mode: ir.AddrBaseDisplacement, Displacement: disp})
}

func (b *builder) loadConst(k ir.Kind, dst ir.RealReg, c *ir.Constant) {
	b.p.Append(ir.Operator{Kind: k, Result: b.r(dst), Mode: ir.AddrStaticData, Data: c})
}

func (b *builder) store(k ir.Kind, src, base ir.RealReg, disp int32) {
	b.p.Append(ir.Operator{Kind: k, Operand1: b.r(src), Operand2: b.r(base), Mode: ir.AddrBaseDisplacement, Displacement: disp})
}

func (b *builder) test(x, y ir.RealReg) {
	b.p.Append(ir.Operator{Kind: ir.KindTest, Operand1: b.r(x), Operand2: b.r(y)})
}

func (b *builder) jump(k ir.Kind, label ir.OpID) {
	b.p.Append(ir.Operator{Kind: k, Linked: label})
}

func (b *builder) entry(frame int64) ir.OpID {
	return b.p.Append(ir.Operator{Kind: ir.KindEntry, Imm: frame})
}

func (b *builder) epilogue(entry ir.OpID) {
	b.p.Append(ir.Operator{Kind: ir.KindEpilogue, Linked: entry})
}

// loop emits the span loop shared by the kernels: body runs count times,
// after which src and dst have moved by step bytes per iteration. A zero
// count skips the loop.
func (b *builder) loop(count ir.RealReg, step int64, body func()) {
	done := b.p.NewLabel()
	b.test(count, count)
	b.jump(ir.KindJe, done)

	top := b.p.NewLabel()
	b.p.Place(top)
	body()
	b.binImm(ir.KindAdd, src, src, step)
	b.binImm(ir.KindAdd, dst, dst, step)
	b.un(ir.KindDec, count, count)
	b.jump(ir.KindJne, top)
	b.p.Place(done)
}

// zero clears the vector register r.
func (b *builder) zero(r ir.RealReg) {
	b.bin(ir.KindPxor, r, r, r)
}

func words(v uint16) []byte {
	ret := make([]byte, 16)
	for i := 0; i < 8; i++ {
		binary.LittleEndian.PutUint16(ret[2*i:], v)
	}
	return ret
}

func dwords(v uint32) []byte {
	ret := make([]byte, 16)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(ret[4*i:], v)
	}
	return ret
}
