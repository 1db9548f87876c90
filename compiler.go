// Package pxjit compiles pixel kernels expressed as ir.Program values into
// x86-64 machine code.
//
// A kernel is built through the ir package with every value already assigned
// to a register or a frame slot, ordered by an ir.Scheduler and assembled in
// two passes so that forward references are patched in place:
//
//	k, err := pxjit.NewCompiler(nil).Compile(ctx, "fill", p)
//	if errors.Is(err, pxjit.ErrCompilation) {
//		// fall back to the portable path
//	}
package pxjit

import (
	"bytes"
	"context"
	"fmt"

	"github.com/docker/go-units"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/swrast/pxjit/internal/backend/amd64"
	"github.com/swrast/pxjit/internal/sched"
	"github.com/swrast/pxjit/ir"
)

// Compiler turns programs into Kernels. A Compiler is safe for concurrent use,
// a Program is not.
type Compiler struct {
	config *CompilerConfig
}

// NewCompiler returns a Compiler using config, or NewCompilerConfig when nil.
func NewCompiler(config *CompilerConfig) *Compiler {
	if config == nil {
		config = NewCompilerConfig()
	}
	return &Compiler{config: config.clone()}
}

// Config returns the configuration of the Compiler.
func (c *Compiler) Config() *CompilerConfig {
	return c.config.clone()
}

// Compile schedules and assembles p. The emission state of p (BinaryOffset and
// retirement of every operator) is overwritten.
//
// Errors caused by the program match ErrCompilation or ErrUnsupportedFeature
// with errors.Is. No partial code is ever returned.
func (c *Compiler) Compile(ctx context.Context, name string, p *ir.Program) (k *Kernel, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "pxjit: compile kernel", "name", name, "abi", c.config.abi, "ops", p.Len())
	defer tr.Finish("err", &err)

	if err = checkFeatures(p, c.config.features); err != nil {
		return nil, errors.Wrap(err, "compile kernel %q", name)
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		k = nil
		err = errors.Wrap(ErrCompilation, "compile kernel %q: %v", name, r)
	}()

	order, err := c.schedule(ctx, p)
	if err != nil {
		return nil, errors.Wrap(err, "compile kernel %q", name)
	}

	a := amd64.NewAssembler(c.config.abi)
	code := a.Assemble(p, order)
	if len(code) == 0 {
		return nil, errors.Wrap(ErrCompilation, "compile kernel %q: no code", name)
	}

	k = &Kernel{
		name:      name,
		abi:       c.config.abi,
		code:      append([]byte(nil), code...),
		ops:       p.Len(),
		fixups:    a.Fixups(),
		constPool: a.ConstPoolSize(),
	}

	tr.Printw("assembled", "ops", k.ops, "fixups", k.fixups, "const_pool", k.constPool, "size", units.BytesSize(float64(len(k.code))))

	if c.config.listing != nil {
		if err = a.Listing(c.config.listing); err != nil {
			return nil, errors.Wrap(err, "write listing")
		}
	}

	if tr.If("pxjit_listing") {
		var b bytes.Buffer
		_ = a.Listing(&b)
		tr.Printw("listing", "text", b.String())
	}

	return k, nil
}

func (c *Compiler) schedule(ctx context.Context, p *ir.Program) ([]ir.OpID, error) {
	s := c.config.scheduler
	if s == nil {
		s = sched.ProgramOrder{}
	}
	order := s.Schedule(p)
	if err := sched.Verify(p, order); err != nil {
		return nil, errors.Wrap(ErrCompilation, "schedule %T: %v", s, err)
	}

	tlog.SpanFromContext(ctx).Printw("scheduled", "scheduler", fmt.Sprintf("%T", s), "ops", len(order))

	return order, nil
}

// RequiredFeatures returns the extensions the operators of p need.
func RequiredFeatures(p *ir.Program) (f Features) {
	for _, id := range p.Sequence() {
		f |= opFeatures(p.Op(id).Flags())
	}
	return f
}

func opFeatures(flags ir.Flags) (f Features) {
	if flags.Has(ir.FlagSSSE3) {
		f = f.With(FeatureSSSE3)
	}
	if flags.Has(ir.FlagSSE41) {
		f = f.With(FeatureSSE41)
	}
	return f
}

func checkFeatures(p *ir.Program, have Features) error {
	for _, id := range p.Sequence() {
		op := p.Op(id)
		if missing := opFeatures(op.Flags()) &^ have; missing != 0 {
			return errors.Wrap(ErrUnsupportedFeature, "op%d (%s) needs %s", id, op.Kind, missing)
		}
	}
	return nil
}
