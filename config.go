package pxjit

import (
	"io"

	"github.com/swrast/pxjit/internal/backend/amd64"
	"github.com/swrast/pxjit/internal/platform"
	"github.com/swrast/pxjit/ir"
)

// ABI is the calling convention of a compiled kernel. It decides which
// registers the prologue saves.
type ABI = amd64.ABI

const (
	// ABISystemV is the convention of Linux, BSD and macOS.
	ABISystemV = amd64.ABISystemV
	// ABIWindows is the Windows x64 convention. It saves %rdi, %rsi and, when
	// the kernel uses vector registers, %xmm6 to %xmm15.
	ABIWindows = amd64.ABIWindows
)

// Feature is an instruction set extension beyond the SSE2 baseline.
type Feature = platform.CpuFeature

// Features is a set of Feature.
type Features = platform.CpuFeatureFlags

const (
	FeatureSSSE3 = platform.CpuFeatureSSSE3
	FeatureSSE41 = platform.CpuFeatureSSE41
)

// HostFeatures returns the extensions supported by the running CPU.
func HostFeatures() Features {
	return platform.CpuFeatures
}

// CompilerConfig controls code generation, with the default implementation as NewCompilerConfig.
//
// CompilerConfig is immutable: each WithXXX function returns a new instance
// including the corresponding change.
type CompilerConfig struct {
	abi       ABI
	features  Features
	scheduler ir.Scheduler
	listing   io.Writer
}

// defaultConfig helps avoid copy/pasting the wrong defaults.
var defaultConfig = &CompilerConfig{
	abi:      ABISystemV,
	features: platform.CpuFeatures,
}

// clone ensures all fields are copied even if nil.
func (c *CompilerConfig) clone() *CompilerConfig {
	return &CompilerConfig{
		abi:       c.abi,
		features:  c.features,
		scheduler: c.scheduler,
		listing:   c.listing,
	}
}

// NewCompilerConfig returns a config for the System V ABI, the host CPU
// features and program order.
func NewCompilerConfig() *CompilerConfig {
	return defaultConfig.clone()
}

// WithABI sets the calling convention. Kernels make no external calls, so
// no shadow space is reserved under ABIWindows.
func (c *CompilerConfig) WithABI(abi ABI) *CompilerConfig {
	ret := c.clone()
	ret.abi = abi
	return ret
}

// WithFeatures replaces the extensions the generated code may use. Defaults
// to HostFeatures. Compiling a kernel which needs a missing extension fails
// with ErrUnsupportedFeature.
func (c *CompilerConfig) WithFeatures(features Features) *CompilerConfig {
	ret := c.clone()
	ret.features = features
	return ret
}

// WithScheduler sets the scheduler ordering the operators before assembly.
// nil keeps the order in which they were appended.
func (c *CompilerConfig) WithScheduler(s ir.Scheduler) *CompilerConfig {
	ret := c.clone()
	ret.scheduler = s
	return ret
}

// WithListing writes a listing of every compiled kernel to w, one operator
// per line with its offset and encoding. nil disables it.
func (c *CompilerConfig) WithListing(w io.Writer) *CompilerConfig {
	ret := c.clone()
	ret.listing = w
	return ret
}

// ABI returns the configured calling convention.
func (c *CompilerConfig) ABI() ABI { return c.abi }

// Features returns the configured extensions.
func (c *CompilerConfig) Features() Features { return c.features }
