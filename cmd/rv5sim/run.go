package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rv5sim/emu"
	"github.com/sarchlab/rv5sim/loader"
	"github.com/sarchlab/rv5sim/report"
	"github.com/sarchlab/rv5sim/timing/config"
	"github.com/sarchlab/rv5sim/timing/core"
	"github.com/sarchlab/rv5sim/timing/pipeline"
)

type runOptions struct {
	*rootOptions

	configPath   string
	noForwarding bool
	permissive   bool
	abi          bool
	format       string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "run <program> <cycles>",
		Short: "Simulate a program for at most the given number of cycles",
		Long: `Run loads a program and simulates it until the pipeline drains or the
cycle budget runs out. Programs are hex text (one word per line, optional
assembly text after it), raw little-endian binaries (.bin) or RV32 ELF
executables linked at address 0.

The exit status is 1 for load or configuration errors and 2 when the run
stops on an out-of-range memory access.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], args[1], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "path to a JSON configuration file")
	flags.BoolVar(&opts.noForwarding, "no-forwarding", false, "disable the bypass paths")
	flags.BoolVar(&opts.permissive, "permissive", false,
		"read zero and drop writes on out-of-range accesses instead of halting")
	flags.BoolVar(&opts.abi, "abi", false, "initialize ra, sp and gp before the run")
	flags.StringVar(&opts.format, "format", string(report.FormatSemicolon),
		"diagram format: semicolon or table")

	return cmd
}

func (o *runOptions) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		cfg, err = config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
	}

	if o.noForwarding {
		cfg.Forwarding = false
	}
	if o.permissive {
		cfg.PermissiveMemory = true
	}
	if o.abi {
		cfg.ABIRegisters = true
	}

	return cfg, cfg.Validate()
}

func runProgram(stdout, stderr io.Writer, path, cyclesArg string, opts *runOptions) error {
	logger := newLogger(stderr, opts.verbose)

	cycles, err := strconv.Atoi(cyclesArg)
	if err != nil {
		return &exitError{exitUsage,
			fmt.Errorf("%w: invalid cycle count %q", config.ErrConfiguration, cyclesArg)}
	}

	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return &exitError{exitUsage, err}
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return &exitError{exitUsage, err}
	}

	prog, err := loader.Load(path)
	if err != nil {
		return &exitError{exitUsage, fmt.Errorf("loading %s: %w", path, err)}
	}
	for _, w := range prog.Warnings {
		logger.Warn("skipped program line", "file", path, "detail", w)
	}

	memory := emu.NewMemory(cfg.MemorySize)
	if err := prog.LoadInto(memory); err != nil {
		return &exitError{exitUsage, err}
	}

	pipe := pipeline.NewPipeline(prog.Image, &emu.RegFile{}, memory,
		pipeline.WithConfig(cfg),
		pipeline.WithLogger(logger))
	c := core.NewCore("Core", pipe)

	fmt.Fprintf(stdout, "Loaded %d instructions (%s). Starting at 0x%08x.\n",
		prog.Image.Len(), prog.Format, pipe.PC())

	result, err := c.Run(cycles)
	if err != nil {
		return &exitError{exitUsage, err}
	}

	if err := writeRunReport(stdout, c, result, format); err != nil {
		return err
	}

	if pipeline.IsMemoryFault(pipe.Fault()) {
		return &exitError{exitMemoryFault, pipe.Fault()}
	}
	return nil
}

func writeRunReport(w io.Writer, c *core.Core, result pipeline.RunResult, format report.Format) error {
	pipe := c.Pipeline()

	fmt.Fprintf(w, "\nPipeline (%s after %d cycles):\n", result.Reason, result.Cycles)
	if err := report.WriteDiagram(w, pipe.Trace(), format); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nFinal Register State:")
	if err := report.WriteRegisters(w, c.Registers()); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nStatistics:")
	if err := report.WriteStats(w, pipe.Stats()); err != nil {
		return err
	}
	fmt.Fprintf(w, "Simulated time: %.3gs\n", c.Stats().Seconds)

	if diags := pipe.Diagnostics(); len(diags) > 0 {
		fmt.Fprintln(w, "\nDiagnostics:")
		if err := report.WriteDiagnostics(w, diags); err != nil {
			return err
		}
	}

	return nil
}
