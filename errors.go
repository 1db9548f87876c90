package pxjit

import (
	"tlog.app/go/errors"
)

var (
	// ErrCompilation is the cause of every error returned by Compile for a
	// program the backend cannot assemble. Callers are expected to fall back
	// to a path without generated code.
	ErrCompilation = errors.New("pxjit: compilation failed")

	// ErrUnsupportedFeature is the cause of the error returned by Compile when
	// a program needs an extension missing from the configured Features.
	ErrUnsupportedFeature = errors.New("pxjit: unsupported cpu feature")

	// ErrClosed is returned by Kernel.Map after Close.
	ErrClosed = errors.New("pxjit: kernel closed")
)
