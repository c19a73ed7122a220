// Package benchmarks provides RV32I benchmark programs and a harness that
// runs them on the timing core and cross-checks the functional emulator.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/sarchlab/rv5sim/emu"
	"github.com/sarchlab/rv5sim/timing/config"
	"github.com/sarchlab/rv5sim/timing/core"
	"github.com/sarchlab/rv5sim/timing/pipeline"
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// StallCycles is the number of cycles decode was held by data hazards
	StallCycles uint64 `json:"stall_cycles"`

	// PipelineFlushes is the number of squashed fetches
	PipelineFlushes uint64 `json:"pipeline_flushes"`

	// Forwards is the number of operands taken from a bypass path
	Forwards uint64 `json:"forwards"`

	// SimulatedSeconds is the simulated run time at the clock frequency
	SimulatedSeconds float64 `json:"simulated_seconds"`

	// Result is the final value of a0 (x10)
	Result int32 `json:"result"`

	// Expected is the value a0 should hold
	Expected int32 `json:"expected"`

	// CrossCheck is true when registers and memory match the emulator
	CrossCheck bool `json:"cross_check"`

	// Error describes a run that did not halt normally
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Passed reports whether the benchmark halted with the expected result
// and agreed with the emulator.
func (r BenchmarkResult) Passed() bool {
	return r.Error == "" && r.CrossCheck && r.Result == r.Expected
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares the initial state (e.g., initialize registers, memory)
	Setup func(regFile *emu.RegFile, memory *emu.Memory)

	// Program is the instruction image. It returns to the halt address
	// with its result in a0.
	Program []uint32

	// Expected is the expected value of a0
	Expected int32
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Forwarding enables the bypass paths
	Forwarding bool

	// MaxCycles is the cycle budget of each run
	MaxCycles int

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Logger receives pipeline diagnostics (default: discard)
	Logger *slog.Logger
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Forwarding: true,
		MaxCycles:  config.Default().MaxCycles,
		Output:     os.Stdout,
	}
}

// Harness runs benchmarks and reports their results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a harness.
func NewHarness(cfg HarnessConfig) *Harness {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.MaxCycles <= 0 {
		cfg.MaxCycles = config.Default().MaxCycles
	}
	return &Harness{config: cfg}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll runs every benchmark in the order they were added.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))
	for _, bench := range h.benchmarks {
		results = append(results, h.runBenchmark(bench))
	}
	return results
}

func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	cfg := config.Default()
	cfg.Forwarding = h.config.Forwarding
	cfg.ABIRegisters = true
	cfg.MaxCycles = h.config.MaxCycles

	regFile := &emu.RegFile{}
	memory := emu.NewMemory(cfg.MemorySize)
	if bench.Setup != nil {
		bench.Setup(regFile, memory)
	}

	refRegs := &emu.RegFile{}
	*refRegs = *regFile
	refRegs.InitABI(cfg.HaltAddress, cfg.StackPointer, cfg.GlobalPointer)
	refMem := memory.Clone()

	image := emu.NewImage(bench.Program, nil)
	pipe := pipeline.NewPipeline(image, regFile, memory,
		pipeline.WithConfig(cfg),
		pipeline.WithLogger(h.config.Logger.With("benchmark", bench.Name)))
	c := core.NewCore(bench.Name, pipe)

	start := time.Now()
	run, err := c.Run(cfg.MaxCycles)
	wallTime := time.Since(start)

	stats := c.Stats()
	result := BenchmarkResult{
		Name:                bench.Name,
		Description:         bench.Description,
		SimulatedCycles:     stats.Cycles,
		InstructionsRetired: stats.Instructions,
		CPI:                 stats.CPI(),
		StallCycles:         stats.Stalls,
		PipelineFlushes:     stats.Flushes,
		Forwards:            stats.Forwards,
		SimulatedSeconds:    stats.Seconds,
		Result:              c.Registers()[10],
		Expected:            bench.Expected,
		WallTime:            wallTime,
	}

	switch {
	case err != nil:
		result.Error = err.Error()
	case run.Reason != pipeline.StopHalted:
		result.Error = fmt.Sprintf("no halt within %d cycles", cfg.MaxCycles)
	case pipe.Fault() != nil:
		result.Error = pipe.Fault().Error()
	}

	ref := emu.NewEmulator(image, refRegs, refMem,
		emu.WithHaltAddress(cfg.HaltAddress),
		emu.WithMaxInstructions(uint64(cfg.MaxCycles)))
	if refErr := ref.Run(); refErr != nil && result.Error == "" {
		result.Error = fmt.Sprintf("emulator: %v", refErr)
	}

	result.CrossCheck = c.Registers() == refRegs.Snapshot() &&
		slices.Equal(memory.Words(), refMem.Words()) &&
		stats.Instructions == ref.InstructionCount()

	return result
}

// PrintResults writes a human-readable report.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	w := h.config.Output
	_, _ = fmt.Fprintln(w, "=== rv5sim Benchmark Results ===")
	_, _ = fmt.Fprintln(w, "")

	for _, r := range results {
		status := "PASS"
		if !r.Passed() {
			status = "FAIL"
		}

		_, _ = fmt.Fprintf(w, "Benchmark: %s [%s]\n", r.Name, status)
		_, _ = fmt.Fprintf(w, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(w, "  Result: %d (expected %d)\n", r.Result, r.Expected)
		if r.Error != "" {
			_, _ = fmt.Fprintf(w, "  Error: %s\n", r.Error)
		}
		_, _ = fmt.Fprintln(w, "  --- Timing ---")
		_, _ = fmt.Fprintf(w, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(w, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(w, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(w, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(w, "  Pipeline Flushes:     %d\n", r.PipelineFlushes)
		_, _ = fmt.Fprintf(w, "  Forwards:             %d\n", r.Forwards)
		_, _ = fmt.Fprintf(w, "  Simulated Time:       %.3gs\n", r.SimulatedSeconds)
		_, _ = fmt.Fprintf(w, "  Emulator Match:       %t\n", r.CrossCheck)
		_, _ = fmt.Fprintf(w, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(w, "")
	}
}

// PrintCSV writes one CSV row per result.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,stalls,flushes,forwards,result,expected,cross_check")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%t\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.StallCycles,
			r.PipelineFlushes,
			r.Forwards,
			r.Result,
			r.Expected,
			r.CrossCheck,
		)
	}
}

// PrintJSON writes the results as an indented JSON array.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	enc := json.NewEncoder(h.config.Output)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
