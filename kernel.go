package pxjit

import (
	"fmt"

	"github.com/docker/go-units"
	"tlog.app/go/errors"

	"github.com/swrast/pxjit/internal/platform"
)

// Kernel is compiled machine code. The code starts with the first operator
// in schedule order and ends with the constant pool.
type Kernel struct {
	name string
	abi  ABI
	code []byte

	ops       int
	fixups    int
	constPool int

	mapped []byte
	closed bool
}

// Name returns the name given to Compile.
func (k *Kernel) Name() string { return k.name }

// ABI returns the calling convention the kernel was compiled for.
func (k *Kernel) ABI() ABI { return k.abi }

// Code returns the machine code. It must not be modified.
func (k *Kernel) Code() []byte { return k.code }

// Size returns the size of the machine code including the constant pool.
func (k *Kernel) Size() int { return len(k.code) }

// Fixups returns the number of operators re-emitted in the patch pass.
func (k *Kernel) Fixups() int { return k.fixups }

// ConstPoolSize returns the size of the constants at the end of the code.
func (k *Kernel) ConstPoolSize() int { return k.constPool }

// String implements fmt.Stringer.
func (k *Kernel) String() string {
	return fmt.Sprintf("%s (%s, %d ops, %s)", k.name, k.abi, k.ops, units.BytesSize(float64(len(k.code))))
}

// Map copies the code into read-only executable memory and returns it. The
// memory is mapped once and stays valid until Close. Map is not safe for
// concurrent use.
func (k *Kernel) Map() ([]byte, error) {
	if k.closed {
		return nil, ErrClosed
	}
	if k.mapped == nil {
		m, err := platform.MmapCodeSegment(k.code)
		if err != nil {
			return nil, errors.Wrap(err, "map kernel %q", k.name)
		}
		k.mapped = m
	}
	return k.mapped[:len(k.code)], nil
}

// Close releases the executable memory, if any. Close is idempotent.
func (k *Kernel) Close() (err error) {
	if k.closed {
		return nil
	}
	k.closed = true
	if k.mapped == nil {
		return nil
	}
	err = platform.MunmapCodeSegment(k.mapped)
	k.mapped = nil
	if err != nil {
		return errors.Wrap(err, "unmap kernel %q", k.name)
	}
	return nil
}
