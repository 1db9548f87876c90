// Package samples holds pixel kernels built through the ir package. They
// exercise the backend the way a rasterizer does and feed the pxjit command.
//
// Every kernel follows the System V argument registers: %rdi points to the
// destination pixels, %rsi to the source pixels and %rdx holds the number of
// iterations. Pixels are RGBA, 8 bits per channel, alpha in the high byte.
package samples

import (
	"github.com/swrast/pxjit/ir"
)

const (
	dst   = ir.RDI
	src   = ir.RSI
	count = ir.RDX
)

// Kernel is a named kernel generator.
type Kernel struct {
	Name        string
	Description string
	// PixelsPerIteration is the number of pixels processed per count.
	PixelsPerIteration int
	Build              func() *ir.Program
}

var kernels = []Kernel{
	{Name: "fill", Description: "fill 4 pixels per iteration with a constant color", PixelsPerIteration: 4, Build: Fill},
	{Name: "premultiply", Description: "multiply color channels by alpha", PixelsPerIteration: 4, Build: Premultiply},
	{Name: "srcover", Description: "blend premultiplied source over destination", PixelsPerIteration: 4, Build: SrcOver},
	{Name: "swizzle", Description: "convert RGBA to BGRA", PixelsPerIteration: 4, Build: Swizzle},
	{Name: "unpremultiply", Description: "divide color channels by alpha, one pixel per iteration", PixelsPerIteration: 1, Build: Unpremultiply},
	{Name: "masked-copy", Description: "copy pixels whose alpha is not zero", PixelsPerIteration: 4, Build: MaskedCopy},
	{Name: "threshold", Description: "copy pixels whose alpha is at least 128", PixelsPerIteration: 4, Build: Threshold},
}

// Kernels returns all kernels in declaration order.
func Kernels() []Kernel {
	return append([]Kernel(nil), kernels...)
}

// Lookup returns the kernel with the given name.
func Lookup(name string) (Kernel, bool) {
	for _, k := range kernels {
		if k.Name == name {
			return k, true
		}
	}
	return Kernel{}, false
}

// FillColor is the color written by Fill: opaque red.
const FillColor = 0xff0000ff

// Fill writes FillColor to every destination pixel.
func Fill() *ir.Program {
	b := newBuilder()
	entry := b.entry(0)
	b.loadConst(ir.KindVLoad, ir.XMM1, b.p.NewConstant(dwords(FillColor)))
	b.loop(count, 16, func() {
		b.store(ir.KindVStore, ir.XMM1, dst, 0)
	})
	b.epilogue(entry)
	return b.p
}

// Premultiply computes c*a/255 for the color channels, approximated as
// (c*a+128)>>8, and keeps alpha.
func Premultiply() *ir.Program {
	b := newBuilder()
	entry := b.entry(0)
	round := b.p.NewConstant(words(0x80))
	b.zero(ir.XMM7)
	b.loop(count, 16, func() {
		b.load(ir.KindVLoad, ir.XMM0, src, 0)
		b.bin(ir.KindPunpcklbw, ir.XMM1, ir.XMM0, ir.XMM7)
		b.bin(ir.KindPunpckhbw, ir.XMM2, ir.XMM0, ir.XMM7)
		for _, half := range [...]struct{ px, alpha ir.RealReg }{{ir.XMM1, ir.XMM3}, {ir.XMM2, ir.XMM4}} {
			b.broadcastAlpha(half.alpha, half.px)
			b.bin(ir.KindPmullw, half.px, half.px, half.alpha)
			b.binConst(ir.KindPaddw, half.px, half.px, round)
			b.unImm(ir.KindPsrlw, half.px, half.px, 8)
			// Words 3 and 7 are alpha.
			b.p.Append(ir.Operator{Kind: ir.KindPblendw, Result: b.r(half.px), Operand1: b.r(half.px), Operand2: b.r(half.alpha), Imm: 0x88})
		}
		b.bin(ir.KindPackuswb, ir.XMM1, ir.XMM1, ir.XMM2)
		b.store(ir.KindVStore, ir.XMM1, dst, 0)
	})
	b.epilogue(entry)
	return b.p
}

// broadcastAlpha copies the alpha word of each of the two pixels in px to
// all four words of that pixel.
func (b *builder) broadcastAlpha(out, px ir.RealReg) {
	b.unImm(ir.KindPshuflw, out, px, 0xff)
	b.unImm(ir.KindPshufhw, out, out, 0xff)
}

// SrcOver computes src + dst*(255-srcAlpha)/255 with saturation.
func SrcOver() *ir.Program {
	b := newBuilder()
	entry := b.entry(0)
	round := b.p.NewConstant(words(0x80))
	b.zero(ir.XMM7)
	b.loadConst(ir.KindVLoad, ir.XMM6, b.p.NewConstant(words(0xff)))
	b.loop(count, 16, func() {
		b.load(ir.KindVLoad, ir.XMM0, src, 0)
		b.load(ir.KindVLoad, ir.XMM1, dst, 0)
		for _, half := range [...]struct {
			unpack      ir.Kind
			px, inverse ir.RealReg
		}{{ir.KindPunpcklbw, ir.XMM2, ir.XMM4}, {ir.KindPunpckhbw, ir.XMM3, ir.XMM5}} {
			b.bin(half.unpack, half.px, ir.XMM1, ir.XMM7)
			b.bin(half.unpack, half.inverse, ir.XMM0, ir.XMM7)
			b.broadcastAlpha(half.inverse, half.inverse)
			b.bin(ir.KindPsubw, half.inverse, ir.XMM6, half.inverse)
			b.bin(ir.KindPmullw, half.px, half.px, half.inverse)
			b.binConst(ir.KindPaddw, half.px, half.px, round)
			b.unImm(ir.KindPsrlw, half.px, half.px, 8)
		}
		b.bin(ir.KindPackuswb, ir.XMM2, ir.XMM2, ir.XMM3)
		b.bin(ir.KindPaddusb, ir.XMM2, ir.XMM2, ir.XMM0)
		b.store(ir.KindVStore, ir.XMM2, dst, 0)
	})
	b.epilogue(entry)
	return b.p
}

// SwizzleMask is the pshufb control exchanging the first and third byte of
// every pixel.
var SwizzleMask = [16]byte{2, 1, 0, 3, 6, 5, 4, 7, 10, 9, 8, 11, 14, 13, 12, 15}

// Swizzle exchanges the red and blue channels.
func Swizzle() *ir.Program {
	b := newBuilder()
	entry := b.entry(0)
	mask := b.p.NewConstant(SwizzleMask[:])
	b.loop(count, 16, func() {
		b.load(ir.KindVLoad, ir.XMM0, src, 0)
		b.binConst(ir.KindPshufb, ir.XMM0, ir.XMM0, mask)
		b.store(ir.KindVStore, ir.XMM0, dst, 0)
	})
	b.epilogue(entry)
	return b.p
}

// Unpremultiply computes c*255/a for the color channels. Pixels with a zero
// alpha are left untouched. The division is a subroutine called once per
// channel.
func Unpremultiply() *ir.Program {
	b := newBuilder()
	entry := b.entry(0)
	divide := b.p.NewLabel()

	// The division clobbers %rdx.
	b.un(ir.KindMov, ir.R8, count)
	b.loop(ir.R8, 4, func() {
		skip := b.p.NewLabel()
		b.load(ir.KindMovZX8, ir.RCX, src, 3)
		b.test(ir.RCX, ir.RCX)
		b.jump(ir.KindJe, skip)
		for ch := int32(0); ch < 3; ch++ {
			b.load(ir.KindMovZX8, ir.RAX, src, ch)
			b.jump(ir.KindCall, divide)
			b.store(ir.KindStore8, ir.RAX, dst, ch)
		}
		b.store(ir.KindStore8, ir.RCX, dst, 3)
		b.p.Place(skip)
	})
	b.epilogue(entry)

	// %rax = %rax*255 / %rcx
	b.p.Place(divide)
	b.binImm(ir.KindMul, ir.RAX, ir.RAX, 255)
	b.bin(ir.KindUDiv, ir.RAX, ir.RAX, ir.RCX)
	b.jump(ir.KindReturn, divide)
	return b.p
}

// MaskedCopy copies the source pixels whose alpha is not zero.
func MaskedCopy() *ir.Program {
	b := newBuilder()
	entry := b.entry(0)
	alpha := b.p.NewConstant(dwords(0xff000000))
	b.zero(ir.XMM7)
	b.bin(ir.KindPcmpeqd, ir.XMM6, ir.XMM6, ir.XMM6)
	b.loop(count, 16, func() {
		b.load(ir.KindVLoad, ir.XMM0, src, 0)
		b.binConst(ir.KindPand, ir.XMM1, ir.XMM0, alpha)
		b.bin(ir.KindPcmpeqd, ir.XMM1, ir.XMM1, ir.XMM7)
		b.bin(ir.KindPxor, ir.XMM1, ir.XMM1, ir.XMM6)
		b.p.Append(ir.Operator{Kind: ir.KindMaskStore, Operand1: b.r(ir.XMM0), Operand2: b.r(ir.XMM1), Operand3: b.r(dst)})
	})
	b.epilogue(entry)
	return b.p
}

// Threshold replaces the destination pixels by the source pixels whose alpha
// is at least 128.
func Threshold() *ir.Program {
	b := newBuilder()
	entry := b.entry(0)
	b.loop(count, 16, func() {
		b.load(ir.KindVLoad, ir.XMM1, src, 0)
		b.load(ir.KindVLoad, ir.XMM2, dst, 0)
		// The sign of alpha spread over the whole pixel.
		b.unImm(ir.KindPsrad, ir.XMM0, ir.XMM1, 24)
		b.p.Append(ir.Operator{Kind: ir.KindBlendv, Result: b.r(ir.XMM2), Operand1: b.r(ir.XMM2), Operand2: b.r(ir.XMM1), Operand3: b.r(ir.XMM0)})
		b.store(ir.KindVStore, ir.XMM2, dst, 0)
	})
	b.epilogue(entry)
	return b.p
}
