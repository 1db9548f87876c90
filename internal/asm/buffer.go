package asm

import (
	"encoding/binary"
	"fmt"
)

// Buffer is the emission context the encoders write into.
//
// Len reports the offset of the next byte in the final binary, which is not
// necessarily the number of bytes held by the Buffer: a buffer created with
// NewCodeBufferAt is based at a non-zero offset so that PC-relative
// displacements computed while re-emitting an instruction are identical to the
// ones of the first emission.
type Buffer interface {
	// Len returns the offset in the binary at which the next byte is written.
	Len() int
	// EmitByte appends a single byte.
	EmitByte(b byte)
	// Emit4Bytes appends a little-endian 32-bit value.
	Emit4Bytes(v uint32)
	// Emit8Bytes appends a little-endian 64-bit value.
	Emit8Bytes(v uint64)
}

// CodeBuffer is a growable Buffer of native code. The zero value is ready to use.
type CodeBuffer struct {
	base int
	code []byte
}

// NewCodeBuffer returns an empty CodeBuffer with room for sizeHint bytes.
func NewCodeBuffer(sizeHint int) *CodeBuffer {
	return &CodeBuffer{code: make([]byte, 0, sizeHint)}
}

// NewCodeBufferAt returns an empty CodeBuffer whose first byte lives at offset
// base of the final binary.
func NewCodeBufferAt(base int) *CodeBuffer {
	return &CodeBuffer{base: base}
}

// Len implements Buffer.Len.
func (b *CodeBuffer) Len() int {
	return b.base + len(b.code)
}

// Size returns the number of bytes actually held by this buffer.
func (b *CodeBuffer) Size() int {
	return len(b.code)
}

// EmitByte implements Buffer.EmitByte.
func (b *CodeBuffer) EmitByte(v byte) {
	b.code = append(b.code, v)
}

// Emit4Bytes implements Buffer.Emit4Bytes.
func (b *CodeBuffer) Emit4Bytes(v uint32) {
	b.code = binary.LittleEndian.AppendUint32(b.code, v)
}

// Emit8Bytes implements Buffer.Emit8Bytes.
func (b *CodeBuffer) Emit8Bytes(v uint64) {
	b.code = binary.LittleEndian.AppendUint64(b.code, v)
}

// Write appends p and never fails. This makes CodeBuffer an io.Writer.
func (b *CodeBuffer) Write(p []byte) (int, error) {
	b.code = append(b.code, p...)
	return len(p), nil
}

// Bytes returns the bytes held by this buffer. The slice is valid until the
// next write.
func (b *CodeBuffer) Bytes() []byte {
	return b.code
}

// Align pads the buffer with the given byte until Len is a multiple of align,
// which must be a power of two.
func (b *CodeBuffer) Align(align int, pad byte) {
	if align&(align-1) != 0 {
		panic(fmt.Sprintf("BUG: alignment %d is not a power of two", align))
	}
	for b.Len()&(align-1) != 0 {
		b.code = append(b.code, pad)
	}
}

// OverwriteAt replaces the bytes previously written at the given binary offset.
// Overwriting past the end of the written region is a bug.
func (b *CodeBuffer) OverwriteAt(offset int, p []byte) {
	i := offset - b.base
	if i < 0 || i+len(p) > len(b.code) {
		panic(fmt.Sprintf("BUG: overwrite of %d bytes at offset %d outside of [%d, %d)",
			len(p), offset, b.base, b.Len()))
	}
	copy(b.code[i:], p)
}

// Reset discards the content of the buffer while keeping its base offset and
// its underlying storage.
func (b *CodeBuffer) Reset() {
	b.code = b.code[:0]
}
