package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rv5sim/benchmarks"
)

var errBenchmarkFailed = errors.New("benchmark failed")

type benchOptions struct {
	*rootOptions

	noForwarding bool
	core         bool
	format       string
	maxCycles    int
}

func newBenchCmd(root *rootOptions) *cobra.Command {
	opts := &benchOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the built-in benchmarks and cross-check the emulator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.noForwarding, "no-forwarding", false, "disable the bypass paths")
	flags.BoolVar(&opts.core, "core", false, "run only the three core benchmarks")
	flags.StringVar(&opts.format, "format", "text", "output format: text, csv or json")
	flags.IntVar(&opts.maxCycles, "max-cycles", 0, "cycle budget per benchmark (0 uses the default)")

	return cmd
}

func runBench(cmd *cobra.Command, opts *benchOptions) error {
	cfg := benchmarks.DefaultConfig()
	cfg.Forwarding = !opts.noForwarding
	cfg.MaxCycles = opts.maxCycles
	cfg.Output = cmd.OutOrStdout()
	cfg.Logger = newLogger(cmd.ErrOrStderr(), opts.verbose)

	harness := benchmarks.NewHarness(cfg)
	if opts.core {
		harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
	} else {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
	}

	results := harness.RunAll()

	switch opts.format {
	case "text":
		harness.PrintResults(results)
	case "csv":
		harness.PrintCSV(results)
	case "json":
		if err := harness.PrintJSON(results); err != nil {
			return err
		}
	default:
		return &exitError{exitUsage, fmt.Errorf("unknown output format %q", opts.format)}
	}

	for _, r := range results {
		if !r.Passed() {
			return fmt.Errorf("%w: %s", errBenchmarkFailed, r.Name)
		}
	}
	return nil
}
