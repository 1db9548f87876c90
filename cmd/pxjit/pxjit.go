package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/docker/go-units"
	"tlog.app/go/errors"

	"github.com/swrast/pxjit"
	"github.com/swrast/pxjit/internal/platform"
	"github.com/swrast/pxjit/internal/samples"
	"github.com/swrast/pxjit/internal/sched"
	"github.com/swrast/pxjit/ir"
)

type options struct {
	abi       pxjit.ABI
	features  pxjit.Features
	scheduler ir.Scheduler
}

func parseOptions(abi, features, scheduler string) (opts options, err error) {
	switch abi {
	case pxjit.ABISystemV.String():
		opts.abi = pxjit.ABISystemV
	case pxjit.ABIWindows.String():
		opts.abi = pxjit.ABIWindows
	default:
		return opts, errors.New("invalid abi %q, expected %s or %s", abi, pxjit.ABISystemV, pxjit.ABIWindows)
	}

	switch features {
	case "host":
		opts.features = pxjit.HostFeatures()
	case "all":
		opts.features = pxjit.Features(0).With(pxjit.FeatureSSSE3).With(pxjit.FeatureSSE41)
	case "none":
	default:
		var ok bool
		if opts.features, ok = platform.ParseCpuFeatures(features); !ok {
			return opts, errors.New("invalid features %q", features)
		}
	}

	switch scheduler {
	case "list":
		opts.scheduler = sched.ListScheduler{}
	case "program":
		opts.scheduler = sched.ProgramOrder{}
	default:
		return opts, errors.New("invalid scheduler %q, expected list or program", scheduler)
	}

	return opts, nil
}

func (o options) config() *pxjit.CompilerConfig {
	return pxjit.NewCompilerConfig().
		WithABI(o.abi).
		WithFeatures(o.features).
		WithScheduler(o.scheduler)
}

// list prints one line per sample kernel. Kernels needing a missing
// extension are listed without a size.
func list(ctx context.Context, w io.Writer, opts options) error {
	c := pxjit.NewCompiler(opts.config())

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "NAME\tPIXELS\tFEATURES\tSIZE\tDESCRIPTION\n")

	for _, s := range samples.Kernels() {
		p := s.Build()
		required := pxjit.RequiredFeatures(p)

		size := "-"
		k, err := c.Compile(ctx, s.Name, p)
		switch {
		case errors.Is(err, pxjit.ErrUnsupportedFeature):
		case err != nil:
			return errors.Wrap(err, "list")
		default:
			size = units.BytesSize(float64(k.Size()))
		}

		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", s.Name, s.PixelsPerIteration, featureNames(required), size, s.Description)
	}

	return tw.Flush()
}

func featureNames(f pxjit.Features) string {
	if f == 0 {
		return "-"
	}
	return f.String()
}

// dump prints the listing of the named kernels, or of all of them.
func dump(ctx context.Context, w io.Writer, opts options, names []string) error {
	var kernels []samples.Kernel
	if len(names) == 0 {
		kernels = samples.Kernels()
	}
	for _, n := range names {
		s, ok := samples.Lookup(n)
		if !ok {
			return errors.New("unknown kernel %q, known: %s", n, strings.Join(kernelNames(), ", "))
		}
		kernels = append(kernels, s)
	}

	c := pxjit.NewCompiler(opts.config().WithListing(w))

	for i, s := range kernels {
		if i != 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s: %s\n", s.Name, s.Description)

		k, err := c.Compile(ctx, s.Name, s.Build())
		if err != nil {
			return errors.Wrap(err, "dump")
		}

		fmt.Fprintf(w, "%s, %d fixups, %d bytes of constants\n", k, k.Fixups(), k.ConstPoolSize())
	}

	return nil
}

func kernelNames() (names []string) {
	for _, s := range samples.Kernels() {
		names = append(names, s.Name)
	}
	return names
}
