package amd64

import (
	"fmt"

	"github.com/swrast/pxjit/internal/asm"
	asm_amd64 "github.com/swrast/pxjit/internal/asm/amd64"
	"github.com/swrast/pxjit/ir"
)

// unaryForm selects how a TemplateUnary kind uses its ModRM byte.
type unaryForm byte

const (
	// formLoad: result in reg, source in r/m.
	formLoad unaryForm = iota
	// formInPlace: operand1 is moved into the result, which is then modified
	// in r/m with the opcode extension in reg.
	formInPlace
	// formReverse: source in reg, result in r/m.
	formReverse
)

// encoding describes how a template kind is encoded.
type encoding struct {
	prefix    asm_amd64.Prefix
	opcode    uint32 // reg <- r/m form
	opcodeNum uint32
	rexW      bool

	// rr is the r/m <- reg form used between two registers, if any.
	rr uint32
	// Immediate forms of binary kinds: 8-bit and 32-bit sign-extended.
	imm8, imm32 uint32
	immExt      asm_amd64.RegEnc
	// immRegIsDst puts the destination in the reg field of immediate forms (imul).
	immRegIsDst bool

	// ext is the opcode extension of formInPlace.
	ext  asm_amd64.RegEnc
	form unaryForm

	// suffix is appended to FlagImmSuffix kinds.
	suffix byte
	// byteReg is set when a register in r/m (or the stored register) is accessed as a byte.
	byteReg bool
	// copy is set for plain register copies, omitted when source and result coincide.
	copy bool

	vecDst, vecSrc bool
}

func (e *encoding) defined() bool {
	return e.opcodeNum > 0
}

func (e *encoding) rex() asm_amd64.Rex {
	if e.rexW {
		return asm_amd64.Rex(0).SetW()
	}
	return 0
}

func gprALU(rr, rm uint32, ext asm_amd64.RegEnc) encoding {
	return encoding{opcode: rm, opcodeNum: 1, rexW: true, rr: rr, imm8: 0x83, imm32: 0x81, immExt: ext}
}

func gprInPlace(opcode uint32, ext asm_amd64.RegEnc) encoding {
	return encoding{opcode: opcode, opcodeNum: 1, rexW: true, ext: ext, form: formInPlace}
}

func sse66(opcode uint32, num uint32) encoding {
	return encoding{prefix: asm_amd64.Prefix0x66, opcode: opcode, opcodeNum: num, vecDst: true, vecSrc: true}
}

func ssePS(opcode uint32) encoding {
	return encoding{opcode: opcode, opcodeNum: 2, vecDst: true, vecSrc: true}
}

func sseWithPrefix(p asm_amd64.Prefix, opcode uint32, num uint32) encoding {
	return encoding{prefix: p, opcode: opcode, opcodeNum: num, vecDst: true, vecSrc: true}
}

func cmpps(predicate byte) encoding {
	e := ssePS(0x0fc2)
	e.suffix = predicate
	return e
}

func roundps(mode byte) encoding {
	e := sse66(0x0f3a08, 3)
	e.suffix = mode
	return e
}

func sseShift(opcode uint32, ext asm_amd64.RegEnc) encoding {
	e := sse66(opcode, 2)
	e.ext, e.form = ext, formInPlace
	return e
}

func store(p asm_amd64.Prefix, opcode uint32, num uint32, w bool, vec bool) encoding {
	return encoding{prefix: p, opcode: opcode, opcodeNum: num, rexW: w, vecSrc: vec}
}

var encodings = [ir.KindEnd]encoding{
	ir.KindMov:     {opcode: 0x8b, opcodeNum: 1, rexW: true, copy: true},
	ir.KindMov32:   {opcode: 0x8b, opcodeNum: 1},
	ir.KindMovZX8:  {opcode: 0x0fb6, opcodeNum: 2, byteReg: true},
	ir.KindMovZX16: {opcode: 0x0fb7, opcodeNum: 2},
	ir.KindLea:     {opcode: 0x8d, opcodeNum: 1, rexW: true},

	ir.KindAdd: gprALU(0x01, 0x03, 0),
	ir.KindSub: gprALU(0x29, 0x2b, 5),
	ir.KindAnd: gprALU(0x21, 0x23, 4),
	ir.KindOr:  gprALU(0x09, 0x0b, 1),
	ir.KindXor: gprALU(0x31, 0x33, 6),
	ir.KindMul: {opcode: 0x0faf, opcodeNum: 2, rexW: true, imm8: 0x6b, imm32: 0x69, immRegIsDst: true},
	ir.KindCmp: gprALU(0x39, 0x3b, 7),
	// test has no sign-extended 8-bit immediate form.
	ir.KindTest:   {opcode: 0x85, opcodeNum: 1, rexW: true, rr: 0x85, imm32: 0xf7, immExt: 0},
	ir.KindCmovEq: {opcode: 0x0f44, opcodeNum: 2, rexW: true},
	ir.KindCmovNe: {opcode: 0x0f45, opcodeNum: 2, rexW: true},
	ir.KindNeg:    gprInPlace(0xf7, 3),
	ir.KindNot:    gprInPlace(0xf7, 2),
	ir.KindInc:    gprInPlace(0xff, 0),
	ir.KindDec:    gprInPlace(0xff, 1),
	ir.KindShlImm: gprInPlace(0xc1, 4),
	ir.KindShrImm: gprInPlace(0xc1, 5),
	ir.KindSarImm: gprInPlace(0xc1, 7),

	ir.KindStore:         store(asm_amd64.PrefixNone, 0x89, 1, true, false),
	ir.KindStore32:       store(asm_amd64.PrefixNone, 0x89, 1, false, false),
	ir.KindStore16:       store(asm_amd64.Prefix0x66, 0x89, 1, false, false),
	ir.KindStore8:        {opcode: 0x88, opcodeNum: 1, byteReg: true},
	ir.KindVStore:        store(asm_amd64.Prefix0xF3, 0x0f7f, 2, false, true),
	ir.KindVStoreAligned: store(asm_amd64.Prefix0x66, 0x0f7f, 2, false, true),
	ir.KindVStoreNT:      store(asm_amd64.Prefix0x66, 0x0fe7, 2, false, true),
	ir.KindMovdStore:     store(asm_amd64.Prefix0x66, 0x0f7e, 2, false, true),

	ir.KindPaddb:      sse66(0x0ffc, 2),
	ir.KindPaddw:      sse66(0x0ffd, 2),
	ir.KindPaddd:      sse66(0x0ffe, 2),
	ir.KindPaddq:      sse66(0x0fd4, 2),
	ir.KindPaddusb:    sse66(0x0fdc, 2),
	ir.KindPaddusw:    sse66(0x0fdd, 2),
	ir.KindPsubb:      sse66(0x0ff8, 2),
	ir.KindPsubw:      sse66(0x0ff9, 2),
	ir.KindPsubd:      sse66(0x0ffa, 2),
	ir.KindPsubusb:    sse66(0x0fd8, 2),
	ir.KindPsubusw:    sse66(0x0fd9, 2),
	ir.KindPmullw:     sse66(0x0fd5, 2),
	ir.KindPmulhuw:    sse66(0x0fe4, 2),
	ir.KindPmulhw:     sse66(0x0fe5, 2),
	ir.KindPmulld:     sse66(0x0f3840, 3),
	ir.KindPand:       sse66(0x0fdb, 2),
	ir.KindPandn:      sse66(0x0fdf, 2),
	ir.KindPor:        sse66(0x0feb, 2),
	ir.KindPxor:       sse66(0x0fef, 2),
	ir.KindPavgb:      sse66(0x0fe0, 2),
	ir.KindPavgw:      sse66(0x0fe3, 2),
	ir.KindPmaxub:     sse66(0x0fde, 2),
	ir.KindPminub:     sse66(0x0fda, 2),
	ir.KindPmaxsw:     sse66(0x0fee, 2),
	ir.KindPminsw:     sse66(0x0fea, 2),
	ir.KindPcmpeqb:    sse66(0x0f74, 2),
	ir.KindPcmpeqw:    sse66(0x0f75, 2),
	ir.KindPcmpeqd:    sse66(0x0f76, 2),
	ir.KindPcmpgtb:    sse66(0x0f64, 2),
	ir.KindPcmpgtw:    sse66(0x0f65, 2),
	ir.KindPcmpgtd:    sse66(0x0f66, 2),
	ir.KindPackuswb:   sse66(0x0f67, 2),
	ir.KindPackssdw:   sse66(0x0f6b, 2),
	ir.KindPacksswb:   sse66(0x0f63, 2),
	ir.KindPunpcklbw:  sse66(0x0f60, 2),
	ir.KindPunpcklwd:  sse66(0x0f61, 2),
	ir.KindPunpckldq:  sse66(0x0f62, 2),
	ir.KindPunpcklqdq: sse66(0x0f6c, 2),
	ir.KindPunpckhbw:  sse66(0x0f68, 2),
	ir.KindPunpckhwd:  sse66(0x0f69, 2),
	ir.KindPunpckhdq:  sse66(0x0f6a, 2),
	ir.KindPunpckhqdq: sse66(0x0f6d, 2),
	ir.KindPshufb:     sse66(0x0f3800, 3),
	ir.KindPblendw:    sse66(0x0f3a0e, 3),

	ir.KindAddps:      ssePS(0x0f58),
	ir.KindSubps:      ssePS(0x0f5c),
	ir.KindMulps:      ssePS(0x0f59),
	ir.KindDivps:      ssePS(0x0f5e),
	ir.KindMinps:      ssePS(0x0f5d),
	ir.KindMaxps:      ssePS(0x0f5f),
	ir.KindAndps:      ssePS(0x0f54),
	ir.KindAndnps:     ssePS(0x0f55),
	ir.KindOrps:       ssePS(0x0f56),
	ir.KindXorps:      ssePS(0x0f57),
	ir.KindCmpEqPS:    cmpps(0),
	ir.KindCmpLtPS:    cmpps(1),
	ir.KindCmpLePS:    cmpps(2),
	ir.KindCmpUnordPS: cmpps(3),
	ir.KindCmpNeqPS:   cmpps(4),
	ir.KindCmpNltPS:   cmpps(5),
	ir.KindCmpNlePS:   cmpps(6),
	ir.KindCmpOrdPS:   cmpps(7),

	ir.KindVMov:           {prefix: asm_amd64.Prefix0x66, opcode: 0x0f6f, opcodeNum: 2, vecDst: true, vecSrc: true, copy: true},
	ir.KindVLoad:          sseWithPrefix(asm_amd64.Prefix0xF3, 0x0f6f, 2),
	ir.KindMovdToVec:      {prefix: asm_amd64.Prefix0x66, opcode: 0x0f6e, opcodeNum: 2, vecDst: true},
	ir.KindMovdFromVec:    {prefix: asm_amd64.Prefix0x66, opcode: 0x0f7e, opcodeNum: 2, vecSrc: true, form: formReverse},
	ir.KindPmovzxbw:       sse66(0x0f3830, 3),
	ir.KindPmovzxbd:       sse66(0x0f3831, 3),
	ir.KindSqrtps:         ssePS(0x0f51),
	ir.KindRcpps:          ssePS(0x0f53),
	ir.KindRsqrtps:        ssePS(0x0f52),
	ir.KindCvtdq2ps:       ssePS(0x0f5b),
	ir.KindCvtps2dq:       sse66(0x0f5b, 2),
	ir.KindCvttps2dq:      sseWithPrefix(asm_amd64.Prefix0xF3, 0x0f5b, 2),
	ir.KindPshufd:         sse66(0x0f70, 2),
	ir.KindPshuflw:        sseWithPrefix(asm_amd64.Prefix0xF2, 0x0f70, 2),
	ir.KindPshufhw:        sseWithPrefix(asm_amd64.Prefix0xF3, 0x0f70, 2),
	ir.KindRoundNearestPS: roundps(0),
	ir.KindRoundFloorPS:   roundps(1),
	ir.KindRoundCeilPS:    roundps(2),
	ir.KindRoundTruncPS:   roundps(3),
	ir.KindPsllw:          sseShift(0x0f71, 6),
	ir.KindPsrlw:          sseShift(0x0f71, 2),
	ir.KindPsraw:          sseShift(0x0f71, 4),
	ir.KindPslld:          sseShift(0x0f72, 6),
	ir.KindPsrld:          sseShift(0x0f72, 2),
	ir.KindPsrad:          sseShift(0x0f72, 4),
	ir.KindPsllq:          sseShift(0x0f73, 6),
	ir.KindPsrlq:          sseShift(0x0f73, 2),
	ir.KindPslldq:         sseShift(0x0f73, 7),
	ir.KindPsrldq:         sseShift(0x0f73, 3),
}

// handler assembles an irregular kind.
type handler func(a *Assembler, buf *asm.CodeBuffer, op *ir.Operator)

var irregularHandlers [ir.KindEnd]handler

func init() {
	irregularHandlers = [ir.KindEnd]handler{
		ir.KindMovImm:    (*Assembler).assembleMovImm,
		ir.KindShl:       (*Assembler).assembleShift,
		ir.KindShr:       (*Assembler).assembleShift,
		ir.KindSar:       (*Assembler).assembleShift,
		ir.KindDiv:       (*Assembler).assembleDivide,
		ir.KindRem:       (*Assembler).assembleDivide,
		ir.KindUDiv:      (*Assembler).assembleDivide,
		ir.KindURem:      (*Assembler).assembleDivide,
		ir.KindBlendv:    (*Assembler).assembleBlendv,
		ir.KindMaskStore: (*Assembler).assembleMaskStore,
		ir.KindLabel:     (*Assembler).assembleLabel,
		ir.KindJmp:       (*Assembler).assembleJump,
		ir.KindJe:        (*Assembler).assembleJump,
		ir.KindJne:       (*Assembler).assembleJump,
		ir.KindJl:        (*Assembler).assembleJump,
		ir.KindJge:       (*Assembler).assembleJump,
		ir.KindJle:       (*Assembler).assembleJump,
		ir.KindJg:        (*Assembler).assembleJump,
		ir.KindJb:        (*Assembler).assembleJump,
		ir.KindJae:       (*Assembler).assembleJump,
		ir.KindCall:      (*Assembler).assembleCall,
		ir.KindReturn:    (*Assembler).assembleReturn,
		ir.KindEntry:     (*Assembler).assembleEntry,
		ir.KindEpilogue:  (*Assembler).assembleEpilogue,
	}

	for k := ir.KindInvalid + 1; k < ir.KindEnd; k++ {
		if n := assemblyPaths(k); n != 1 {
			panic(fmt.Sprintf("BUG: %s has %d assembly paths", k, n))
		}
	}
}

// assemblyPaths returns the number of ways the dispatcher could assemble k.
func assemblyPaths(k ir.Kind) int {
	f := ir.Lookup(k)
	n := 0
	if irregularHandlers[k] != nil {
		n++
	}
	if encodings[k].defined() {
		n++
	}
	if f.Irregular() != (irregularHandlers[k] != nil) {
		return 0
	}
	return n
}
