package asm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swrast/pxjit/internal/asm"
)

func TestCodeBuffer_Emit(t *testing.T) {
	buf := asm.NewCodeBuffer(0)
	buf.EmitByte(0xc3)
	buf.Emit4Bytes(0x04030201)
	buf.Emit8Bytes(0x0c0b0a0908070605)
	require.Equal(t, []byte{0xc3, 1, 2, 3, 4, 5, 6, 7, 8, 9, 0xa, 0xb, 0xc}, buf.Bytes())
	require.Equal(t, 13, buf.Len())
	require.Equal(t, 13, buf.Size())
}

func TestCodeBuffer_NewCodeBufferAt(t *testing.T) {
	buf := asm.NewCodeBufferAt(100)
	require.Equal(t, 100, buf.Len())
	require.Equal(t, 0, buf.Size())
	buf.Emit4Bytes(0)
	require.Equal(t, 104, buf.Len())
	require.Equal(t, 4, buf.Size())

	buf.OverwriteAt(101, []byte{0xaa, 0xbb})
	require.Equal(t, []byte{0, 0xaa, 0xbb, 0}, buf.Bytes())
}

func TestCodeBuffer_OverwriteAt(t *testing.T) {
	buf := asm.NewCodeBuffer(16)
	_, err := buf.Write([]byte{0xe9, 0, 0, 0, 0, 0x90})
	require.NoError(t, err)

	buf.OverwriteAt(1, []byte{0x10, 0, 0, 0})
	require.Equal(t, []byte{0xe9, 0x10, 0, 0, 0, 0x90}, buf.Bytes())

	for _, tc := range []struct {
		name   string
		offset int
		data   []byte
	}{
		{name: "negative", offset: -1, data: []byte{1}},
		{name: "past end", offset: 5, data: []byte{1, 2}},
		{name: "at end", offset: 6, data: []byte{1}},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			require.Panics(t, func() { buf.OverwriteAt(tc.offset, tc.data) })
		})
	}
}

func TestCodeBuffer_Align(t *testing.T) {
	buf := asm.NewCodeBuffer(0)
	buf.EmitByte(0xc3)
	buf.Align(16, 0xcc)
	require.Equal(t, 16, buf.Len())
	require.Equal(t, byte(0xcc), buf.Bytes()[15])

	// Already aligned.
	buf.Align(16, 0xcc)
	require.Equal(t, 16, buf.Len())

	require.Panics(t, func() { buf.Align(3, 0) })
}

func TestCodeBuffer_Reset(t *testing.T) {
	buf := asm.NewCodeBufferAt(8)
	buf.Emit8Bytes(1)
	buf.Reset()
	require.Equal(t, 8, buf.Len())
	require.Equal(t, 0, buf.Size())

	// The storage is reused.
	buf.Emit4Bytes(0xaabbccdd)
	require.Equal(t, []byte{0xdd, 0xcc, 0xbb, 0xaa}, buf.Bytes())
}
