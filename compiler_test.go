package pxjit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/swrast/pxjit/internal/backend/amd64"
	"github.com/swrast/pxjit/internal/platform"
	"github.com/swrast/pxjit/internal/samples"
	"github.com/swrast/pxjit/internal/sched"
	"github.com/swrast/pxjit/ir"
)

var allFeatures = Features(0).With(FeatureSSSE3).With(FeatureSSE41)

func TestCompilerConfig(t *testing.T) {
	var sb strings.Builder
	tests := []struct {
		name     string
		with     func(*CompilerConfig) *CompilerConfig
		expected *CompilerConfig
	}{
		{
			name:     "WithABI",
			with:     func(c *CompilerConfig) *CompilerConfig { return c.WithABI(ABIWindows) },
			expected: &CompilerConfig{abi: ABIWindows},
		},
		{
			name:     "WithFeatures",
			with:     func(c *CompilerConfig) *CompilerConfig { return c.WithFeatures(allFeatures) },
			expected: &CompilerConfig{features: allFeatures},
		},
		{
			name:     "WithScheduler",
			with:     func(c *CompilerConfig) *CompilerConfig { return c.WithScheduler(sched.ListScheduler{}) },
			expected: &CompilerConfig{scheduler: sched.ListScheduler{}},
		},
		{
			name:     "WithListing",
			with:     func(c *CompilerConfig) *CompilerConfig { return c.WithListing(&sb) },
			expected: &CompilerConfig{listing: &sb},
		},
	}

	for _, tt := range tests {
		tc := tt

		t.Run(tc.name, func(t *testing.T) {
			input := &CompilerConfig{}
			rc := tc.with(input)
			require.Equal(t, tc.expected, rc)
			// The original wasn't affected
			require.Equal(t, &CompilerConfig{}, input)
		})
	}
}

func TestNewCompilerConfig(t *testing.T) {
	c := NewCompilerConfig()
	require.Equal(t, ABISystemV, c.ABI())
	require.Equal(t, HostFeatures(), c.Features())
	require.Nil(t, c.scheduler)
	require.Nil(t, c.listing)

	// The defaults are not shared.
	c.abi = ABIWindows
	require.Equal(t, ABISystemV, NewCompilerConfig().ABI())

	require.Equal(t, ABIWindows, NewCompiler(c).Config().ABI())
	require.Equal(t, ABISystemV, NewCompiler(nil).Config().ABI())
}

func TestCompile_samples(t *testing.T) {
	for _, k := range samples.Kernels() {
		k := k
		for _, abi := range []ABI{ABISystemV, ABIWindows} {
			abi := abi
			t.Run(k.Name+"/"+abi.String(), func(t *testing.T) {
				var listing strings.Builder
				c := NewCompiler(NewCompilerConfig().
					WithABI(abi).
					WithFeatures(allFeatures).
					WithScheduler(sched.ListScheduler{}).
					WithListing(&listing))

				kernel, err := c.Compile(context.Background(), k.Name, k.Build())
				require.NoError(t, err)
				require.Equal(t, k.Name, kernel.Name())
				require.Equal(t, abi, kernel.ABI())
				require.Equal(t, len(kernel.Code()), kernel.Size())
				require.Contains(t, kernel.String(), k.Name)

				// Same bytes as the backend produces for the same schedule.
				p := k.Build()
				expected := amd64.NewAssembler(abi).Assemble(p, sched.ListScheduler{}.Schedule(p))
				require.Equal(t, expected, kernel.Code())

				require.True(t, strings.HasPrefix(listing.String(), "0x0000: "), listing.String())
				require.Contains(t, listing.String(), "epilogue")
			})
		}
	}
}

func TestCompile_unpremultiplyFixups(t *testing.T) {
	kernel, err := NewCompiler(nil).Compile(context.Background(), "unpremultiply", samples.Unpremultiply())
	require.NoError(t, err)
	// The calls of the division subroutine are forward references.
	require.True(t, kernel.Fixups() >= 3, kernel.Fixups())
	require.Zero(t, kernel.ConstPoolSize())
}

func TestCompile_constPool(t *testing.T) {
	kernel, err := NewCompiler(nil).Compile(context.Background(), "fill", samples.Fill())
	require.NoError(t, err)
	require.Equal(t, 16, kernel.ConstPoolSize())
	require.Zero(t, kernel.Size()%16)
}

func TestCompile_unsupportedFeature(t *testing.T) {
	c := NewCompiler(NewCompilerConfig().WithFeatures(Features(0).With(FeatureSSE41)))

	kernel, err := c.Compile(context.Background(), "swizzle", samples.Swizzle())
	require.Nil(t, kernel)
	require.ErrorIs(t, err, ErrUnsupportedFeature)
	require.NotErrorIs(t, err, ErrCompilation)
	require.Contains(t, err.Error(), "Pshufb")
	require.Contains(t, err.Error(), "ssse3")

	// Fill only needs SSE2.
	_, err = NewCompiler(NewCompilerConfig().WithFeatures(0)).Compile(context.Background(), "fill", samples.Fill())
	require.NoError(t, err)
}

func TestCompile_errors(t *testing.T) {
	reg := func(p *ir.Program, r ir.RealReg) ir.VReg { return p.Value(ir.RegisterLocation(r)) }

	tests := []struct {
		name        string
		build       func() *ir.Program
		config      *CompilerConfig
		expectedErr string
	}{
		{
			name: "shift count not in rcx",
			build: func() *ir.Program {
				p := ir.NewProgram()
				rax := reg(p, ir.RAX)
				p.Append(ir.Operator{Kind: ir.KindShl, Result: rax, Operand1: rax, Operand2: reg(p, ir.RBX)})
				return p
			},
			expectedErr: "must be in %rcx",
		},
		{
			name: "frame slot without entry",
			build: func() *ir.Program {
				p := ir.NewProgram()
				rax := reg(p, ir.RAX)
				p.Append(ir.Operator{Kind: ir.KindAdd, Result: rax, Operand1: rax, Operand2: p.Value(ir.FrameSlotLocation(8))})
				return p
			},
			expectedErr: "frame slots used without an entry operator",
		},
		{
			name:        "empty",
			build:       ir.NewProgram,
			expectedErr: "no code",
		},
		{
			name:        "invalid schedule",
			build:       samples.Fill,
			config:      NewCompilerConfig().WithScheduler(reversed{}),
			expectedErr: "schedule pxjit.reversed",
		},
	}

	for _, tt := range tests {
		tc := tt

		t.Run(tc.name, func(t *testing.T) {
			kernel, err := NewCompiler(tc.config).Compile(context.Background(), "test", tc.build())
			require.Nil(t, kernel)
			require.ErrorIs(t, err, ErrCompilation)
			require.Contains(t, err.Error(), tc.expectedErr)
		})
	}
}

type reversed struct{}

func (reversed) Schedule(p *ir.Program) []ir.OpID {
	seq := p.Sequence()
	order := make([]ir.OpID, len(seq))
	for i, id := range seq {
		order[len(seq)-1-i] = id
	}
	return order
}

type errWriter struct{}

func (errWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestCompile_listingError(t *testing.T) {
	kernel, err := NewCompiler(NewCompilerConfig().WithListing(errWriter{})).
		Compile(context.Background(), "fill", samples.Fill())
	require.Nil(t, kernel)
	require.Contains(t, err.Error(), "disk full")
	require.NotErrorIs(t, err, ErrCompilation)
}

func TestRequiredFeatures(t *testing.T) {
	tests := []struct {
		name     string
		build    func() *ir.Program
		expected Features
	}{
		{name: "fill", build: samples.Fill},
		{name: "swizzle", build: samples.Swizzle, expected: Features(0).With(FeatureSSSE3)},
		{name: "threshold", build: samples.Threshold, expected: Features(0).With(FeatureSSE41)},
		{name: "premultiply", build: samples.Premultiply, expected: Features(0).With(FeatureSSE41)},
	}

	for _, tt := range tests {
		tc := tt

		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, RequiredFeatures(tc.build()))
		})
	}
}

func TestKernel_Map(t *testing.T) {
	kernel, err := NewCompiler(nil).Compile(context.Background(), "fill", samples.Fill())
	require.NoError(t, err)

	code, err := kernel.Map()
	if errors.Is(err, platform.ErrUnsupported) {
		t.Skip(err)
	}
	require.NoError(t, err)
	require.Equal(t, kernel.Code(), code)

	again, err := kernel.Map()
	require.NoError(t, err)
	require.Equal(t, &code[0], &again[0])

	require.NoError(t, kernel.Close())
	require.NoError(t, kernel.Close())

	_, err = kernel.Map()
	require.ErrorIs(t, err, ErrClosed)
}

func TestKernel_CloseUnmapped(t *testing.T) {
	kernel, err := NewCompiler(nil).Compile(context.Background(), "fill", samples.Fill())
	require.NoError(t, err)
	require.NoError(t, kernel.Close())

	_, err = kernel.Map()
	require.ErrorIs(t, err, ErrClosed)
}
