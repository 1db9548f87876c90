package asm_amd64

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swrast/pxjit/internal/asm"
)

func TestEncodeRegReg(t *testing.T) {
	for _, tc := range []struct {
		name     string
		prefix   Prefix
		opcode   uint32
		num      uint32
		r, rm    RegEnc
		rex      Rex
		expected string
	}{
		{name: "add %rbx, %rax", opcode: 0x01, num: 1, r: RegBX.Enc(), rm: RegAX.Enc(), rex: Rex(0).SetW(), expected: "4801d8"},
		{name: "add %ebx, %eax", opcode: 0x01, num: 1, r: RegBX.Enc(), rm: RegAX.Enc(), rex: Rex(0).ClearW(), expected: "01d8"},
		{name: "add %r15, %r8", opcode: 0x01, num: 1, r: RegR15.Enc(), rm: RegR8.Enc(), rex: Rex(0).SetW(), expected: "4d01f8"},
		{name: "imul %rbx, %rax", opcode: 0x0faf, num: 2, r: RegAX.Enc(), rm: RegBX.Enc(), rex: Rex(0).SetW(), expected: "480fafc3"},
		{name: "paddw %xmm1, %xmm0", prefix: Prefix0x66, opcode: 0x0ffd, num: 2, r: RegX0.Enc(), rm: RegX1.Enc(), expected: "660ffdc1"},
		{name: "pxor %xmm9, %xmm8", prefix: Prefix0x66, opcode: 0x0fef, num: 2, r: RegX8.Enc(), rm: RegX9.Enc(), expected: "66450fefc1"},
		{name: "pmulld %xmm2, %xmm1", prefix: Prefix0x66, opcode: 0x0f3840, num: 3, r: RegX1.Enc(), rm: RegX2.Enc(), expected: "660f3840ca"},
		{name: "idiv %rcx", opcode: 0xf7, num: 1, r: 7, rm: RegCX.Enc(), rex: Rex(0).SetW(), expected: "48f7f9"},
		{name: "movzbl %sil, %eax", opcode: 0x0fb6, num: 2, r: RegAX.Enc(), rm: RegSI.Enc(), rex: Rex(0).ForByteReg(RegSI.Enc()), expected: "400fb6c6"},
		{name: "movzbl %bl, %eax", opcode: 0x0fb6, num: 2, r: RegAX.Enc(), rm: RegBX.Enc(), rex: Rex(0).ForByteReg(RegBX.Enc()), expected: "0fb6c3"},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			buf := asm.NewCodeBuffer(0)
			EncodeRegReg(buf, tc.prefix, tc.opcode, tc.num, tc.r, tc.rm, tc.rex)
			require.Equal(t, tc.expected, hex.EncodeToString(buf.Bytes()))
		})
	}
}

func TestEncodeRegMem(t *testing.T) {
	for _, tc := range []struct {
		name     string
		m        Amode
		expected string
	}{
		{name: "(%rax)", m: NewAmodeImmReg(0, RegAX), expected: "488b00"},
		{name: "8(%rsi)", m: NewAmodeImmReg(8, RegSI), expected: "488b4608"},
		{name: "-1(%rsi)", m: NewAmodeImmReg(-1, RegSI), expected: "488b46ff"},
		{name: "0x1000(%rsi)", m: NewAmodeImmReg(0x1000, RegSI), expected: "488b8600100000"},
		{name: "(%rbp)", m: NewAmodeImmReg(0, RegBP), expected: "488b4500"},
		{name: "(%r13)", m: NewAmodeImmReg(0, RegR13), expected: "498b4500"},
		{name: "(%rsp)", m: NewAmodeImmReg(0, RegSP), expected: "488b0424"},
		{name: "16(%rsp)", m: NewAmodeImmReg(16, RegSP), expected: "488b442410"},
		{name: "(%r12)", m: NewAmodeImmReg(0, RegR12), expected: "498b0424"},
		{name: "0x200(%r12)", m: NewAmodeImmReg(0x200, RegR12), expected: "498b842400020000"},
		{name: "(%rsi,%rcx,1)", m: NewAmodeRegRegShift(0, RegSI, RegCX, 0), expected: "488b040e"},
		{name: "16(%rsi,%rcx,4)", m: NewAmodeRegRegShift(16, RegSI, RegCX, 2), expected: "488b448e10"},
		{name: "(%rbp,%rcx,8)", m: NewAmodeRegRegShift(0, RegBP, RegCX, 3), expected: "488b44cd00"},
		{name: "0x100(%r8,%r9,2)", m: NewAmodeRegRegShift(0x100, RegR8, RegR9, 1), expected: "4b8b844800010000"},
		{name: "unresolved rip", m: NewAmodeRipRelative(-1), expected: "488b0500000000"},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			buf := asm.NewCodeBuffer(0)
			EncodeRegMem(buf, PrefixNone, 0x8b, 1, RegAX.Enc(), tc.m, Rex(0).SetW(), 0)
			require.Equal(t, tc.expected, hex.EncodeToString(buf.Bytes()))
		})
	}

	t.Run("rsp index", func(t *testing.T) {
		require.Panics(t, func() {
			EncodeRegMem(asm.NewCodeBuffer(0), PrefixNone, 0x8b, 1, RegAX.Enc(),
				NewAmodeRegRegShift(0, RegAX, RegSP, 0), Rex(0).SetW(), 0)
		})
	})
}

func TestEncodeRegMem_ripRelative(t *testing.T) {
	// lea r11, [rip+5]: the target is 5 bytes past the end of the instruction.
	buf := asm.NewCodeBuffer(0)
	EncodeRegMem(buf, PrefixNone, 0x8d, 1, RegR11.Enc(), NewAmodeRipRelative(12), Rex(0).SetW(), 0)
	require.Equal(t, "4c8d1d05000000", hex.EncodeToString(buf.Bytes()))

	// Trailing immediate bytes are accounted for.
	buf = asm.NewCodeBufferAt(0x10)
	EncodeRegMem(buf, Prefix0x66, 0x0f3a0e, 3, RegX1.Enc(), NewAmodeRipRelative(0x40), Rex(0), 1)
	buf.EmitByte(0xaa)
	// next instruction starts at 0x10+10 = 0x1a.
	require.Equal(t, "660f3a0e0d26000000aa", hex.EncodeToString(buf.Bytes()))
}

func TestEncodeMovImm(t *testing.T) {
	for _, tc := range []struct {
		dst      Reg
		imm      int64
		expected string
	}{
		{dst: RegAX, imm: 0, expected: "b800000000"},
		{dst: RegAX, imm: 0xffffffff, expected: "b8ffffffff"},
		{dst: RegR9, imm: 1, expected: "41b901000000"},
		{dst: RegAX, imm: -1, expected: "48c7c0ffffffff"},
		{dst: RegR15, imm: -2, expected: "49c7c7feffffff"},
		{dst: RegAX, imm: 0x1_0000_0000, expected: "48b80000000001000000"},
		{dst: RegR8, imm: 0x1_0000_0000, expected: "49b80000000001000000"},
	} {
		buf := asm.NewCodeBuffer(0)
		EncodeMovImm(buf, tc.dst, tc.imm)
		require.Equal(t, tc.expected, hex.EncodeToString(buf.Bytes()), "%s <- %d", tc.dst, tc.imm)
	}
}

func TestEncodePushPop(t *testing.T) {
	buf := asm.NewCodeBuffer(0)
	EncodePush(buf, RegBX)
	EncodePush(buf, RegR15)
	EncodePop(buf, RegR15)
	EncodePop(buf, RegBX)
	require.Equal(t, "534157415f5b", hex.EncodeToString(buf.Bytes()))
}

func TestLower8WillSignExtendTo32(t *testing.T) {
	for _, tc := range []struct {
		in  int32
		exp bool
	}{
		{in: 0, exp: true},
		{in: 127, exp: true},
		{in: -128, exp: true},
		{in: 128, exp: false},
		{in: -129, exp: false},
	} {
		require.Equal(t, tc.exp, Lower8WillSignExtendTo32(uint32(tc.in)), tc.in)
	}
}

func TestLower32WillSignExtendTo64(t *testing.T) {
	require.True(t, Lower32WillSignExtendTo64(uint64(0x7fffffff)))
	require.True(t, Lower32WillSignExtendTo64(^uint64(0)))
	require.False(t, Lower32WillSignExtendTo64(uint64(0x80000000)))
}
