package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// Exit statuses.
const (
	exitUsage       = 1
	exitMemoryFault = 2
)

type rootOptions struct {
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "rv5sim",
		Short: "Cycle-level simulator of a 5-stage pipelined RV32I core",
		Long: `rv5sim runs RV32I programs on a classic IF/ID/EX/MEM/WB pipeline
with hazard detection, forwarding and decode-stage branch resolution, and
prints a cycle-by-cycle stage diagram.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"log pipeline state changes")

	root.AddCommand(newRunCmd(opts), newBenchCmd(opts))

	return root
}

// newLogger builds the structured logger for a command writing
// diagnostics to w.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
