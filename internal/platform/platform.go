// Package platform maps generated code into executable memory and reports the
// instruction set extensions of the host.
package platform

import (
	"errors"
	"runtime"
)

// ErrUnsupported is returned when executable memory cannot be mapped on this GOOS.
var ErrUnsupported = errors.New("executable memory is not supported on " + runtime.GOOS)

// MmapCodeSegment copies the code into a new read-only executable region and
// returns the byte slice of the whole region.
//
// See https://man7.org/linux/man-pages/man2/mmap.2.html for mmap API and flags.
func MmapCodeSegment(code []byte) ([]byte, error) {
	if len(code) == 0 {
		panic(errors.New("BUG: MmapCodeSegment with zero length"))
	}
	return mmapCodeSegment(code)
}

// MunmapCodeSegment unmaps a region returned by MmapCodeSegment.
func MunmapCodeSegment(code []byte) error {
	if len(code) == 0 {
		panic(errors.New("BUG: MunmapCodeSegment with zero length"))
	}
	return munmapCodeSegment(code)
}
