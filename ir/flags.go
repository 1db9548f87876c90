package ir

import (
	"fmt"
	"math/bits"
)

// Flags classifies a Kind: data width, which operand slots may live in
// memory, flag effects, immediates and the assembly path used for it.
type Flags uint32

const (
	Width8 Flags = 1 << iota
	Width16
	Width32
	Width64
	Width128

	// FlagMemOperand1 allows Operand1 to be a memory reference.
	FlagMemOperand1
	// FlagMemOperand2 allows the second source to be a memory reference.
	FlagMemOperand2
	// FlagImmOperand2 allows the second source to be Imm when Operand2 is unused.
	FlagImmOperand2
	// FlagCommutative allows the two sources to be swapped.
	FlagCommutative
	// FlagReadsFlags is set when the zero/compare flags are an input.
	FlagReadsFlags
	// FlagWritesFlags is set when the flags are clobbered.
	FlagWritesFlags
	// FlagImm8 appends the low byte of Imm to the encoding.
	FlagImm8
	// FlagImmSuffix appends a fixed selector byte (comparison predicate or
	// rounding mode) owned by the kind itself.
	FlagImmSuffix
	// FlagIrregular routes the kind to a dedicated handler instead of a template.
	FlagIrregular
	// FlagSideEffect forbids elimination and orders the operator with other
	// memory accesses.
	FlagSideEffect
	// FlagNoResult is set for kinds without a Result.
	FlagNoResult
	// FlagControl marks control transfers and labels. They act as scheduling barriers.
	FlagControl
	// FlagAddressOnly is set when the memory reference is computed but never accessed.
	FlagAddressOnly

	TemplateBinary
	TemplateUnary
	TemplateMemDest

	// FlagSSSE3 requires the SSSE3 extension.
	FlagSSSE3
	// FlagSSE41 requires the SSE4.1 extension.
	FlagSSE41
)

const (
	widthMask    = Width8 | Width16 | Width32 | Width64 | Width128
	pathMask     = TemplateBinary | TemplateUnary | TemplateMemDest | FlagIrregular
	templateMask = TemplateBinary | TemplateUnary | TemplateMemDest
)

const (
	gprBinary    = Width64 | TemplateBinary | FlagMemOperand2 | FlagImmOperand2 | FlagWritesFlags
	gprInPlace   = Width64 | TemplateUnary
	gprShiftImm  = gprInPlace | FlagImm8 | FlagWritesFlags
	gprShift     = Width64 | FlagIrregular | FlagWritesFlags
	gprDivide    = Width64 | FlagIrregular | FlagMemOperand2 | FlagWritesFlags
	store        = TemplateMemDest | FlagNoResult | FlagSideEffect
	simdBinary   = Width128 | TemplateBinary | FlagMemOperand2
	simdCommBin  = simdBinary | FlagCommutative
	simdCompare  = simdBinary | FlagImmSuffix
	simdUnary    = Width128 | TemplateUnary | FlagMemOperand1
	simdRound    = simdUnary | FlagImmSuffix | FlagSSE41
	simdShiftImm = Width128 | TemplateUnary | FlagImm8
	control      = Width64 | FlagControl | FlagNoResult | FlagIrregular
	jcc          = control | FlagReadsFlags
)

var flagsTable = [KindEnd]Flags{
	KindMov:     Width64 | TemplateUnary | FlagMemOperand1,
	KindMov32:   Width32 | TemplateUnary | FlagMemOperand1,
	KindMovZX8:  Width8 | TemplateUnary | FlagMemOperand1,
	KindMovZX16: Width16 | TemplateUnary | FlagMemOperand1,
	KindMovImm:  Width64 | FlagIrregular,
	KindLea:     Width64 | TemplateUnary | FlagMemOperand1 | FlagAddressOnly,

	KindAdd:    gprBinary | FlagCommutative,
	KindSub:    gprBinary,
	KindAnd:    gprBinary | FlagCommutative,
	KindOr:     gprBinary | FlagCommutative,
	KindXor:    gprBinary | FlagCommutative,
	KindMul:    gprBinary | FlagCommutative,
	KindCmp:    gprBinary | FlagNoResult,
	KindTest:   gprBinary | FlagNoResult | FlagCommutative,
	KindCmovEq: Width64 | TemplateBinary | FlagMemOperand2 | FlagReadsFlags,
	KindCmovNe: Width64 | TemplateBinary | FlagMemOperand2 | FlagReadsFlags,
	KindNeg:    gprInPlace | FlagWritesFlags,
	KindNot:    gprInPlace,
	KindInc:    gprInPlace | FlagWritesFlags,
	KindDec:    gprInPlace | FlagWritesFlags,
	KindShlImm: gprShiftImm,
	KindShrImm: gprShiftImm,
	KindSarImm: gprShiftImm,

	KindShl:  gprShift,
	KindShr:  gprShift,
	KindSar:  gprShift,
	KindDiv:  gprDivide,
	KindRem:  gprDivide,
	KindUDiv: gprDivide,
	KindURem: gprDivide,

	KindStore:         Width64 | store,
	KindStore32:       Width32 | store,
	KindStore16:       Width16 | store,
	KindStore8:        Width8 | store,
	KindVStore:        Width128 | store,
	KindVStoreAligned: Width128 | store,
	KindVStoreNT:      Width128 | store,
	KindMovdStore:     Width32 | store,

	KindPaddb:      simdCommBin,
	KindPaddw:      simdCommBin,
	KindPaddd:      simdCommBin,
	KindPaddq:      simdCommBin,
	KindPaddusb:    simdCommBin,
	KindPaddusw:    simdCommBin,
	KindPsubb:      simdBinary,
	KindPsubw:      simdBinary,
	KindPsubd:      simdBinary,
	KindPsubusb:    simdBinary,
	KindPsubusw:    simdBinary,
	KindPmullw:     simdCommBin,
	KindPmulhuw:    simdCommBin,
	KindPmulhw:     simdCommBin,
	KindPmulld:     simdCommBin | FlagSSE41,
	KindPand:       simdCommBin,
	KindPandn:      simdBinary,
	KindPor:        simdCommBin,
	KindPxor:       simdCommBin,
	KindPavgb:      simdCommBin,
	KindPavgw:      simdCommBin,
	KindPmaxub:     simdCommBin,
	KindPminub:     simdCommBin,
	KindPmaxsw:     simdCommBin,
	KindPminsw:     simdCommBin,
	KindPcmpeqb:    simdCommBin,
	KindPcmpeqw:    simdCommBin,
	KindPcmpeqd:    simdCommBin,
	KindPcmpgtb:    simdBinary,
	KindPcmpgtw:    simdBinary,
	KindPcmpgtd:    simdBinary,
	KindPackuswb:   simdBinary,
	KindPackssdw:   simdBinary,
	KindPacksswb:   simdBinary,
	KindPunpcklbw:  simdBinary,
	KindPunpcklwd:  simdBinary,
	KindPunpckldq:  simdBinary,
	KindPunpcklqdq: simdBinary,
	KindPunpckhbw:  simdBinary,
	KindPunpckhwd:  simdBinary,
	KindPunpckhdq:  simdBinary,
	KindPunpckhqdq: simdBinary,
	KindPshufb:     simdBinary | FlagSSSE3,
	KindPblendw:    simdBinary | FlagImm8 | FlagSSE41,

	KindAddps:      simdCommBin,
	KindSubps:      simdBinary,
	KindMulps:      simdCommBin,
	KindDivps:      simdBinary,
	KindMinps:      simdBinary,
	KindMaxps:      simdBinary,
	KindAndps:      simdCommBin,
	KindAndnps:     simdBinary,
	KindOrps:       simdCommBin,
	KindXorps:      simdCommBin,
	KindCmpEqPS:    simdCompare | FlagCommutative,
	KindCmpLtPS:    simdCompare,
	KindCmpLePS:    simdCompare,
	KindCmpUnordPS: simdCompare | FlagCommutative,
	KindCmpNeqPS:   simdCompare | FlagCommutative,
	KindCmpNltPS:   simdCompare,
	KindCmpNlePS:   simdCompare,
	KindCmpOrdPS:   simdCompare | FlagCommutative,

	KindVMov:           Width128 | TemplateUnary,
	KindVLoad:          simdUnary,
	KindMovdToVec:      Width32 | TemplateUnary | FlagMemOperand1,
	KindMovdFromVec:    Width32 | TemplateUnary,
	KindPmovzxbw:       simdUnary | FlagSSE41,
	KindPmovzxbd:       simdUnary | FlagSSE41,
	KindSqrtps:         simdUnary,
	KindRcpps:          simdUnary,
	KindRsqrtps:        simdUnary,
	KindCvtdq2ps:       simdUnary,
	KindCvtps2dq:       simdUnary,
	KindCvttps2dq:      simdUnary,
	KindPshufd:         simdUnary | FlagImm8,
	KindPshuflw:        simdUnary | FlagImm8,
	KindPshufhw:        simdUnary | FlagImm8,
	KindRoundNearestPS: simdRound,
	KindRoundFloorPS:   simdRound,
	KindRoundCeilPS:    simdRound,
	KindRoundTruncPS:   simdRound,
	KindPsllw:          simdShiftImm,
	KindPsrlw:          simdShiftImm,
	KindPsraw:          simdShiftImm,
	KindPslld:          simdShiftImm,
	KindPsrld:          simdShiftImm,
	KindPsrad:          simdShiftImm,
	KindPsllq:          simdShiftImm,
	KindPsrlq:          simdShiftImm,
	KindPslldq:         simdShiftImm,
	KindPsrldq:         simdShiftImm,

	KindBlendv:    Width128 | FlagIrregular | FlagMemOperand2 | FlagSSE41,
	KindMaskStore: Width128 | FlagIrregular | FlagNoResult | FlagSideEffect,

	KindLabel:    control,
	KindJmp:      control,
	KindJe:       jcc,
	KindJne:      jcc,
	KindJl:       jcc,
	KindJge:      jcc,
	KindJle:      jcc,
	KindJg:       jcc,
	KindJb:       jcc,
	KindJae:      jcc,
	KindCall:     control | FlagSideEffect,
	KindReturn:   control | FlagSideEffect,
	KindEntry:    control | FlagSideEffect | FlagWritesFlags,
	KindEpilogue: control | FlagSideEffect | FlagWritesFlags,
}

func init() {
	for k := KindInvalid + 1; k < KindEnd; k++ {
		f := flagsTable[k]
		if f == 0 {
			panic(fmt.Sprintf("BUG: no flags for %s", k))
		}
		if bits.OnesCount32(uint32(f&widthMask)) != 1 {
			panic(fmt.Sprintf("BUG: %s must have exactly one width class", k))
		}
		if bits.OnesCount32(uint32(f&pathMask)) != 1 {
			panic(fmt.Sprintf("BUG: %s must have exactly one assembly path", k))
		}
		if f&FlagImm8 != 0 && f&FlagImmSuffix != 0 {
			panic(fmt.Sprintf("BUG: %s has both an immediate byte and a fixed suffix", k))
		}
	}
}

// Lookup returns the Flags of kind.
func Lookup(kind Kind) Flags {
	if !kind.Valid() {
		panic(fmt.Sprintf("BUG: invalid kind %d", uint16(kind)))
	}
	return flagsTable[kind]
}

// Has returns true if every bit of o is set in f.
func (f Flags) Has(o Flags) bool {
	return f&o == o
}

// Width returns the data width class in bits.
func (f Flags) Width() int {
	switch f & widthMask {
	case Width8:
		return 8
	case Width16:
		return 16
	case Width32:
		return 32
	case Width64:
		return 64
	case Width128:
		return 128
	}
	panic(fmt.Sprintf("BUG: invalid width class in %#x", uint32(f)))
}

// WidthBytes returns the data width class in bytes.
func (f Flags) WidthBytes() int {
	return f.Width() / 8
}

// MemoryAllowed returns true if operand slot 1 or 2 may reference memory.
func (f Flags) MemoryAllowed(slot int) bool {
	switch slot {
	case 1:
		return f&FlagMemOperand1 != 0
	case 2:
		return f&FlagMemOperand2 != 0
	}
	return false
}

// Commutative returns true if the sources may be swapped.
func (f Flags) Commutative() bool { return f&FlagCommutative != 0 }

// ReadsFlags returns true if the kind consumes the flags register.
func (f Flags) ReadsFlags() bool { return f&FlagReadsFlags != 0 }

// WritesFlags returns true if the kind clobbers the flags register.
func (f Flags) WritesFlags() bool { return f&FlagWritesFlags != 0 }

// HasSideEffect returns true if the kind must not be eliminated.
func (f Flags) HasSideEffect() bool { return f&FlagSideEffect != 0 }

// Irregular returns true if the kind has a dedicated assembly handler.
func (f Flags) Irregular() bool { return f&FlagIrregular != 0 }

// HasResult returns true if the kind defines Result.
func (f Flags) HasResult() bool { return f&FlagNoResult == 0 }

// Control returns true for labels and control transfers.
func (f Flags) Control() bool { return f&FlagControl != 0 }

// Template returns the template class bit, or zero for irregular kinds.
func (f Flags) Template() Flags { return f & templateMask }

// TakesImm returns true if Imm is meaningful for the kind.
func (f Flags) TakesImm() bool { return f&(FlagImmOperand2|FlagImm8) != 0 }

// ReferencesMemory returns true if some slot of the kind may be a memory reference.
func (f Flags) ReferencesMemory() bool {
	return f&(FlagMemOperand1|FlagMemOperand2|TemplateMemDest) != 0
}
