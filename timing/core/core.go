// Package core runs a pipeline as an akita ticking component.
//
// The core owns a serial akita engine. Each engine tick advances the
// pipeline by exactly one cycle, so cycle counts match Pipeline.Run while
// the engine keeps track of simulated time at the configured frequency.
package core

import (
	"strings"
	"unicode"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/rv5sim/emu"
	"github.com/sarchlab/rv5sim/timing/pipeline"
)

// Stats holds performance statistics for the core.
type Stats struct {
	pipeline.Statistics

	// Seconds is the simulated time at the configured clock frequency.
	Seconds float64
}

// Core represents a cycle-level CPU core model.
// It wraps a 5-stage pipeline and drives it from an akita engine.
type Core struct {
	*sim.TickingComponent

	engine   sim.Engine
	pipeline *pipeline.Pipeline

	budget int
	ticked int
}

// NewCore creates a core around pipe, ticking at the frequency configured
// on the pipeline.
//
// akita component names are dot-separated CamelCase elements and must not
// contain underscores. name is converted to that form before it is
// registered, so "branch_taken" becomes "BranchTaken".
func NewCore(name string, pipe *pipeline.Pipeline) *Core {
	c := &Core{
		engine:   sim.NewSerialEngine(),
		pipeline: pipe,
	}
	c.TickingComponent = sim.NewTickingComponent(
		componentName(name), c.engine, pipe.Config().ClockFrequency, c)

	return c
}

// componentName turns an arbitrary label into a valid akita name. Runs of
// characters other than letters and digits separate words.
func componentName(name string) string {
	elems := strings.Split(name, ".")
	for i, elem := range elems {
		var b strings.Builder
		upper := true
		for _, r := range elem {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
				upper = true
				continue
			}
			if upper {
				r = unicode.ToUpper(r)
				upper = false
			}
			b.WriteRune(r)
		}

		elem = b.String()
		if elem == "" || !unicode.IsLetter([]rune(elem)[0]) {
			elem = "Core" + elem
		}
		elems[i] = elem
	}

	return strings.Join(elems, ".")
}

// Pipeline returns the underlying pipeline.
func (c *Core) Pipeline() *pipeline.Pipeline {
	return c.pipeline
}

// Engine returns the engine the core is scheduled on.
func (c *Core) Engine() sim.Engine {
	return c.engine
}

// Tick advances the pipeline by one cycle. It reports false, which stops
// further ticks, once the pipeline halts or the run budget is spent.
func (c *Core) Tick() bool {
	if c.pipeline.Halted() || c.ticked >= c.budget {
		return false
	}

	c.pipeline.Step()
	c.ticked++

	return !c.pipeline.Halted() && c.ticked < c.budget
}

// Run schedules the core and runs the engine until the pipeline halts or
// budget cycles have elapsed. It accepts the same budgets as
// Pipeline.Run and leaves the core resumable when the budget runs out.
func (c *Core) Run(budget int) (pipeline.RunResult, error) {
	if err := c.pipeline.Validate(budget); err != nil {
		return pipeline.RunResult{}, err
	}

	first := len(c.pipeline.Diagnostics())
	c.budget = budget
	c.ticked = 0

	if !c.pipeline.Halted() {
		c.TickLater()
		if err := c.engine.Run(); err != nil {
			return pipeline.RunResult{}, err
		}
	}

	return c.pipeline.Summarize(c.ticked, first), nil
}

// Halted returns true if the core has halted.
func (c *Core) Halted() bool {
	return c.pipeline.Halted()
}

// Registers returns a snapshot of the register file.
func (c *Core) Registers() [32]int32 {
	return c.pipeline.Registers()
}

// Memory returns the data memory.
func (c *Core) Memory() *emu.Memory {
	return c.pipeline.Memory()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	s := c.pipeline.Stats()
	return Stats{
		Statistics: s,
		Seconds:    c.pipeline.Config().Seconds(s.Cycles),
	}
}
