package ir

import "fmt"

// Kind is the operation of an Operator.
type Kind uint16

const (
	KindInvalid Kind = iota

	// GPR data movement.
	KindMov
	KindMov32
	KindMovZX8
	KindMovZX16
	KindMovImm
	KindLea

	// GPR arithmetic and logic.
	KindAdd
	KindSub
	KindAnd
	KindOr
	KindXor
	KindMul
	KindCmp
	KindTest
	KindCmovEq
	KindCmovNe
	KindNeg
	KindNot
	KindInc
	KindDec
	KindShlImm
	KindShrImm
	KindSarImm

	// Variable shifts take their count in RCX; divisions use the RDX:RAX pair.
	KindShl
	KindShr
	KindSar
	KindDiv
	KindRem
	KindUDiv
	KindURem

	// Stores write Operand1 to the memory addressed by the operator.
	KindStore
	KindStore32
	KindStore16
	KindStore8
	KindVStore
	KindVStoreAligned
	KindVStoreNT
	KindMovdStore

	// SIMD integer binary.
	KindPaddb
	KindPaddw
	KindPaddd
	KindPaddq
	KindPaddusb
	KindPaddusw
	KindPsubb
	KindPsubw
	KindPsubd
	KindPsubusb
	KindPsubusw
	KindPmullw
	KindPmulhuw
	KindPmulhw
	KindPmulld
	KindPand
	KindPandn
	KindPor
	KindPxor
	KindPavgb
	KindPavgw
	KindPmaxub
	KindPminub
	KindPmaxsw
	KindPminsw
	KindPcmpeqb
	KindPcmpeqw
	KindPcmpeqd
	KindPcmpgtb
	KindPcmpgtw
	KindPcmpgtd
	KindPackuswb
	KindPackssdw
	KindPacksswb
	KindPunpcklbw
	KindPunpcklwd
	KindPunpckldq
	KindPunpcklqdq
	KindPunpckhbw
	KindPunpckhwd
	KindPunpckhdq
	KindPunpckhqdq
	KindPshufb
	KindPblendw

	// SIMD float binary.
	KindAddps
	KindSubps
	KindMulps
	KindDivps
	KindMinps
	KindMaxps
	KindAndps
	KindAndnps
	KindOrps
	KindXorps
	KindCmpEqPS
	KindCmpLtPS
	KindCmpLePS
	KindCmpUnordPS
	KindCmpNeqPS
	KindCmpNltPS
	KindCmpNlePS
	KindCmpOrdPS

	// SIMD unary.
	KindVMov
	KindVLoad
	KindMovdToVec
	KindMovdFromVec
	KindPmovzxbw
	KindPmovzxbd
	KindSqrtps
	KindRcpps
	KindRsqrtps
	KindCvtdq2ps
	KindCvtps2dq
	KindCvttps2dq
	KindPshufd
	KindPshuflw
	KindPshufhw
	KindRoundNearestPS
	KindRoundFloorPS
	KindRoundCeilPS
	KindRoundTruncPS
	KindPsllw
	KindPsrlw
	KindPsraw
	KindPslld
	KindPsrld
	KindPsrad
	KindPsllq
	KindPsrlq
	KindPslldq
	KindPsrldq

	// Blendv selects bytes of Operand2 where the mask in XMM0 has its top bit set.
	// MaskStore writes the bytes of Operand1 selected by the mask Operand2 to the
	// address in Operand3 with a non-temporal hint.
	KindBlendv
	KindMaskStore

	// Control flow.
	KindLabel
	KindJmp
	KindJe
	KindJne
	KindJl
	KindJge
	KindJle
	KindJg
	KindJb
	KindJae
	KindCall
	KindReturn
	KindEntry
	KindEpilogue

	// KindEnd is the number of kinds. It is not a valid Kind.
	KindEnd
)

var kindNames = [...]string{
	KindMov:            "Mov",
	KindMov32:          "Mov32",
	KindMovZX8:         "MovZX8",
	KindMovZX16:        "MovZX16",
	KindMovImm:         "MovImm",
	KindLea:            "Lea",
	KindAdd:            "Add",
	KindSub:            "Sub",
	KindAnd:            "And",
	KindOr:             "Or",
	KindXor:            "Xor",
	KindMul:            "Mul",
	KindCmp:            "Cmp",
	KindTest:           "Test",
	KindCmovEq:         "CmovEq",
	KindCmovNe:         "CmovNe",
	KindNeg:            "Neg",
	KindNot:            "Not",
	KindInc:            "Inc",
	KindDec:            "Dec",
	KindShlImm:         "ShlImm",
	KindShrImm:         "ShrImm",
	KindSarImm:         "SarImm",
	KindShl:            "Shl",
	KindShr:            "Shr",
	KindSar:            "Sar",
	KindDiv:            "Div",
	KindRem:            "Rem",
	KindUDiv:           "UDiv",
	KindURem:           "URem",
	KindStore:          "Store",
	KindStore32:        "Store32",
	KindStore16:        "Store16",
	KindStore8:         "Store8",
	KindVStore:         "VStore",
	KindVStoreAligned:  "VStoreAligned",
	KindVStoreNT:       "VStoreNT",
	KindMovdStore:      "MovdStore",
	KindPaddb:          "Paddb",
	KindPaddw:          "Paddw",
	KindPaddd:          "Paddd",
	KindPaddq:          "Paddq",
	KindPaddusb:        "Paddusb",
	KindPaddusw:        "Paddusw",
	KindPsubb:          "Psubb",
	KindPsubw:          "Psubw",
	KindPsubd:          "Psubd",
	KindPsubusb:        "Psubusb",
	KindPsubusw:        "Psubusw",
	KindPmullw:         "Pmullw",
	KindPmulhuw:        "Pmulhuw",
	KindPmulhw:         "Pmulhw",
	KindPmulld:         "Pmulld",
	KindPand:           "Pand",
	KindPandn:          "Pandn",
	KindPor:            "Por",
	KindPxor:           "Pxor",
	KindPavgb:          "Pavgb",
	KindPavgw:          "Pavgw",
	KindPmaxub:         "Pmaxub",
	KindPminub:         "Pminub",
	KindPmaxsw:         "Pmaxsw",
	KindPminsw:         "Pminsw",
	KindPcmpeqb:        "Pcmpeqb",
	KindPcmpeqw:        "Pcmpeqw",
	KindPcmpeqd:        "Pcmpeqd",
	KindPcmpgtb:        "Pcmpgtb",
	KindPcmpgtw:        "Pcmpgtw",
	KindPcmpgtd:        "Pcmpgtd",
	KindPackuswb:       "Packuswb",
	KindPackssdw:       "Packssdw",
	KindPacksswb:       "Packsswb",
	KindPunpcklbw:      "Punpcklbw",
	KindPunpcklwd:      "Punpcklwd",
	KindPunpckldq:      "Punpckldq",
	KindPunpcklqdq:     "Punpcklqdq",
	KindPunpckhbw:      "Punpckhbw",
	KindPunpckhwd:      "Punpckhwd",
	KindPunpckhdq:      "Punpckhdq",
	KindPunpckhqdq:     "Punpckhqdq",
	KindPshufb:         "Pshufb",
	KindPblendw:        "Pblendw",
	KindAddps:          "Addps",
	KindSubps:          "Subps",
	KindMulps:          "Mulps",
	KindDivps:          "Divps",
	KindMinps:          "Minps",
	KindMaxps:          "Maxps",
	KindAndps:          "Andps",
	KindAndnps:         "Andnps",
	KindOrps:           "Orps",
	KindXorps:          "Xorps",
	KindCmpEqPS:        "CmpEqPS",
	KindCmpLtPS:        "CmpLtPS",
	KindCmpLePS:        "CmpLePS",
	KindCmpUnordPS:     "CmpUnordPS",
	KindCmpNeqPS:       "CmpNeqPS",
	KindCmpNltPS:       "CmpNltPS",
	KindCmpNlePS:       "CmpNlePS",
	KindCmpOrdPS:       "CmpOrdPS",
	KindVMov:           "VMov",
	KindVLoad:          "VLoad",
	KindMovdToVec:      "MovdToVec",
	KindMovdFromVec:    "MovdFromVec",
	KindPmovzxbw:       "Pmovzxbw",
	KindPmovzxbd:       "Pmovzxbd",
	KindSqrtps:         "Sqrtps",
	KindRcpps:          "Rcpps",
	KindRsqrtps:        "Rsqrtps",
	KindCvtdq2ps:       "Cvtdq2ps",
	KindCvtps2dq:       "Cvtps2dq",
	KindCvttps2dq:      "Cvttps2dq",
	KindPshufd:         "Pshufd",
	KindPshuflw:        "Pshuflw",
	KindPshufhw:        "Pshufhw",
	KindRoundNearestPS: "RoundNearestPS",
	KindRoundFloorPS:   "RoundFloorPS",
	KindRoundCeilPS:    "RoundCeilPS",
	KindRoundTruncPS:   "RoundTruncPS",
	KindPsllw:          "Psllw",
	KindPsrlw:          "Psrlw",
	KindPsraw:          "Psraw",
	KindPslld:          "Pslld",
	KindPsrld:          "Psrld",
	KindPsrad:          "Psrad",
	KindPsllq:          "Psllq",
	KindPsrlq:          "Psrlq",
	KindPslldq:         "Pslldq",
	KindPsrldq:         "Psrldq",
	KindBlendv:         "Blendv",
	KindMaskStore:      "MaskStore",
	KindLabel:          "Label",
	KindJmp:            "Jmp",
	KindJe:             "Je",
	KindJne:            "Jne",
	KindJl:             "Jl",
	KindJge:            "Jge",
	KindJle:            "Jle",
	KindJg:             "Jg",
	KindJb:             "Jb",
	KindJae:            "Jae",
	KindCall:           "Call",
	KindReturn:         "Return",
	KindEntry:          "Entry",
	KindEpilogue:       "Epilogue",
}

// Valid returns true if k is one of the defined kinds.
func (k Kind) Valid() bool {
	return k > KindInvalid && k < KindEnd
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", uint16(k))
	}
	return kindNames[k]
}
