package main

import (
	"context"
	"fmt"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/tlog"

	"github.com/swrast/pxjit/internal/version"
)

func main() {
	cli.RunAndExit(newApp(), os.Args, os.Environ())
}

func newApp() *cli.Command {
	configFlags := func() []*cli.Flag {
		return []*cli.Flag{
			cli.NewFlag("abi", "sysv", "calling convention: sysv or win64"),
			cli.NewFlag("features", "host", "instruction set extensions: host, all, none or a list like ssse3,sse4.1"),
			cli.NewFlag("sched", "list", "operator order: list or program"),
		}
	}

	listCmd := &cli.Command{
		Name:        "list",
		Description: "list the sample kernels with their code size",
		Action:      listAct,
		Flags:       configFlags(),
	}

	dumpCmd := &cli.Command{
		Name:        "dump",
		Description: "print the listing of sample kernels, all of them when no name is given",
		Action:      dumpAct,
		Args:        cli.Args{},
		Flags:       configFlags(),
	}

	versionCmd := &cli.Command{
		Name:   "version",
		Action: versionAct,
	}

	return &cli.Command{
		Name:        "pxjit",
		Description: "pxjit compiles the sample pixel kernels into x86-64 machine code",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("verbosity,v", "", "logger verbosity topics, pxjit_listing logs every listing"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			listCmd,
			dumpCmd,
			versionCmd,
		},
	}
}

func before(c *cli.Command) error {
	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}

func newContext() context.Context {
	return tlog.ContextWithSpan(context.Background(), tlog.Root())
}

func listAct(c *cli.Command) error {
	opts, err := parseOptions(c.String("abi"), c.String("features"), c.String("sched"))
	if err != nil {
		return err
	}

	return list(newContext(), os.Stdout, opts)
}

func dumpAct(c *cli.Command) error {
	opts, err := parseOptions(c.String("abi"), c.String("features"), c.String("sched"))
	if err != nil {
		return err
	}

	return dump(newContext(), os.Stdout, opts, c.Args)
}

func versionAct(c *cli.Command) error {
	fmt.Println(version.GetPxjitVersion())
	return nil
}
