package ir

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookup_total(t *testing.T) {
	for k := KindInvalid + 1; k < KindEnd; k++ {
		f := Lookup(k)
		require.NotZero(t, f, k.String())
		require.Equal(t, 1, bits.OnesCount32(uint32(f&pathMask)), k.String())
		require.Equal(t, 1, bits.OnesCount32(uint32(f&widthMask)), k.String())
		require.NotEqual(t, f.Irregular(), f.Template() != 0, k.String())
		require.NotEqual(t, "", kindNames[k], "kind %d has no name", k)
	}
	require.Panics(t, func() { Lookup(KindInvalid) })
	require.Panics(t, func() { Lookup(KindEnd) })
}

func TestFlags(t *testing.T) {
	add := Lookup(KindAdd)
	require.Equal(t, 64, add.Width())
	require.True(t, add.Commutative())
	require.True(t, add.WritesFlags())
	require.False(t, add.ReadsFlags())
	require.True(t, add.MemoryAllowed(2))
	require.False(t, add.MemoryAllowed(1))
	require.True(t, add.HasResult())
	require.Equal(t, TemplateBinary, add.Template())

	require.False(t, Lookup(KindSub).Commutative())
	require.False(t, Lookup(KindCmp).HasResult())
	require.True(t, Lookup(KindCmovEq).ReadsFlags())
	require.False(t, Lookup(KindNot).WritesFlags())

	store := Lookup(KindStore8)
	require.Equal(t, 1, store.WidthBytes())
	require.True(t, store.HasSideEffect())
	require.Equal(t, TemplateMemDest, store.Template())

	require.True(t, Lookup(KindDiv).Irregular())
	require.True(t, Lookup(KindPshufb).Has(FlagSSSE3))
	require.True(t, Lookup(KindPmulld).Has(FlagSSE41))
	require.True(t, Lookup(KindCmpLtPS).Has(FlagImmSuffix))
	require.True(t, Lookup(KindPshufd).Has(FlagImm8))
	require.True(t, Lookup(KindJe).Control())
	require.True(t, Lookup(KindJe).ReadsFlags())
	// The frame adjustment of sub/add %rsp clobbers the flags.
	require.True(t, Lookup(KindEntry).WritesFlags())
	require.True(t, Lookup(KindEpilogue).WritesFlags())
	require.False(t, Lookup(KindJmp).WritesFlags())
	require.Equal(t, 128, Lookup(KindVLoad).Width())
	require.True(t, Lookup(KindVLoad).MemoryAllowed(1))
}

func TestKind_String(t *testing.T) {
	require.Equal(t, "Add", KindAdd.String())
	require.Equal(t, "Epilogue", KindEpilogue.String())
	require.Equal(t, "Kind(0)", KindInvalid.String())
}

func TestLocation(t *testing.T) {
	l := RegisterLocation(RBX)
	require.True(t, l.Valid())
	require.True(t, l.IsRegister())
	require.False(t, l.IsFrameSlot())
	require.Equal(t, RBX, l.Register())
	require.Equal(t, "%rbx", l.String())

	l = FrameSlotLocation(24)
	require.True(t, l.IsFrameSlot())
	require.Equal(t, int32(24), l.FrameOffset())
	require.Equal(t, "24(%rsp)", l.String())
	require.Panics(t, func() { l.Register() })

	require.False(t, LocationUnassigned.Valid())
	require.Panics(t, func() { RegisterLocation(RealRegInvalid) })
	require.Panics(t, func() { FrameSlotLocation(-8) })

	require.Equal(t, "%xmm3", XMM3.String())
	require.True(t, R11.Reserved())
	require.True(t, XMM15.Reserved())
	require.False(t, RAX.Reserved())
	require.Equal(t, 32, NumRealRegs)
}
