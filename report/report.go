// Package report renders simulation results as text.
package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/sarchlab/rv5sim/timing/pipeline"
)

// ErrUnknownFormat is returned for an unsupported diagram format.
var ErrUnknownFormat = errors.New("unknown diagram format")

// Format selects how the pipeline diagram is laid out.
type Format string

// Diagram formats.
const (
	// FormatSemicolon writes one ';'-separated row per instruction
	// instance, with the instruction text padded to a fixed width.
	FormatSemicolon Format = "semicolon"
	// FormatTable writes an aligned table.
	FormatTable Format = "table"
)

// ParseFormat converts a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatSemicolon, FormatTable:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

const textWidth = 20

// row returns the cells of one instance, one per cycle from 1 to cycles.
// Cycles outside the instance's lifetime are empty.
func row(h pipeline.History, cycles uint64) []string {
	cells := make([]string, cycles)
	for i, label := range h.Labels {
		c := h.FirstCycle + uint64(i)
		if c >= 1 && c <= cycles {
			cells[c-1] = string(label)
		}
	}
	return cells
}

func displayText(h pipeline.History) string {
	if h.Text == "" {
		return fmt.Sprintf("0x%08x", h.PC)
	}
	return h.Text
}

// WriteDiagram writes the stage diagram of trace.
func WriteDiagram(w io.Writer, trace *pipeline.Trace, format Format) error {
	switch format {
	case FormatSemicolon:
		return writeSemicolon(w, trace)
	case FormatTable:
		return writeTable(w, trace)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func writeSemicolon(w io.Writer, trace *pipeline.Trace) error {
	cycles := trace.Cycles()

	var b strings.Builder
	for _, h := range trace.Histories() {
		text := displayText(h)
		if len(text) > textWidth-1 {
			text = text[:textWidth-1]
		}
		fmt.Fprintf(&b, "%-*s", textWidth, text)
		for _, cell := range row(h, cycles) {
			fmt.Fprintf(&b, ";%-3s", cell)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeTable(w io.Writer, trace *pipeline.Trace) error {
	cycles := trace.Cycles()
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	header := []string{"PC", "Instruction"}
	for c := uint64(1); c <= cycles; c++ {
		header = append(header, strconv.FormatUint(c, 10))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, h := range trace.Histories() {
		cells := append([]string{fmt.Sprintf("0x%08x", h.PC), displayText(h)}, row(h, cycles)...)
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}

	return tw.Flush()
}

// WriteRegisters writes the register file four registers per line.
func WriteRegisters(w io.Writer, regs [32]int32) error {
	var b strings.Builder
	for i, v := range regs {
		if i > 0 && i%4 == 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "x%-2d: 0x%08x  ", i, uint32(v))
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteStats writes the run statistics.
func WriteStats(w io.Writer, stats pipeline.Statistics) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Cycles:\t%d\n", stats.Cycles)
	fmt.Fprintf(tw, "Instructions:\t%d\n", stats.Instructions)
	fmt.Fprintf(tw, "CPI:\t%.2f\n", stats.CPI())
	fmt.Fprintf(tw, "Stalls:\t%d\n", stats.Stalls)
	fmt.Fprintf(tw, "Flushes:\t%d\n", stats.Flushes)
	fmt.Fprintf(tw, "Forwards:\t%d\n", stats.Forwards)
	fmt.Fprintf(tw, "Decode faults:\t%d\n", stats.DecodeFaults)
	fmt.Fprintf(tw, "Memory faults:\t%d\n", stats.MemoryFaults)
	return tw.Flush()
}

// WriteDiagnostics writes one line per diagnostic.
func WriteDiagnostics(w io.Writer, diags []pipeline.Diagnostic) error {
	for _, d := range diags {
		if _, err := fmt.Fprintln(w, d.String()); err != nil {
			return err
		}
	}
	return nil
}
