package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sarchlab/rv5sim/emu"
	"github.com/sarchlab/rv5sim/insts"
	"github.com/sarchlab/rv5sim/timing/config"
)

// State is the run state of the pipeline.
type State int

// Pipeline states.
const (
	// StateRunning fetches and advances instructions.
	StateRunning State = iota
	// StateDraining no longer fetches useful instructions and waits for
	// the instructions in flight to leave the pipeline.
	StateDraining
	// StateHalted is terminal. Further steps do nothing.
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateDraining:
		return "DRAINING"
	case StateHalted:
		return "HALTED"
	default:
		return "UNKNOWN"
	}
}

// StopReason tells why Run returned.
type StopReason int

// Stop reasons.
const (
	StopHalted StopReason = iota
	StopBudget
)

func (r StopReason) String() string {
	if r == StopHalted {
		return "halted"
	}
	return "cycle budget exhausted"
}

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions completed (retired).
	Instructions uint64
	// Stalls is the number of cycles decode was held by a data hazard.
	Stalls uint64
	// Flushes is the number of fetched instructions squashed by redirects.
	Flushes uint64
	// Forwards is the number of operand values taken from a bypass path.
	Forwards uint64
	// DecodeFaults is the number of undecodable words that reached decode.
	DecodeFaults uint64
	// MemoryFaults is the number of out-of-range data accesses.
	MemoryFaults uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// StepResult holds what one cycle observed.
type StepResult struct {
	Cycle        uint64
	State        State
	Observations []Observation
	Diagnostics  []Diagnostic
}

// RunResult summarizes a call to Run.
type RunResult struct {
	Reason      StopReason
	Cycles      int
	State       State
	Diagnostics []Diagnostic
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithConfig sets the simulation configuration. The config is copied.
func WithConfig(c *config.Config) PipelineOption {
	return func(p *Pipeline) {
		p.config = c.Clone()
	}
}

// WithForwarding enables or disables the bypass paths.
func WithForwarding(enabled bool) PipelineOption {
	return func(p *Pipeline) {
		p.config.Forwarding = enabled
	}
}

// WithLogger sets the structured logger for faults and state transitions.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// Pipeline implements a 5-stage pipelined RV32I core.
// Stages: Fetch (IF) -> Decode (ID) -> Execute (EX) -> Memory (MEM) -> Writeback (WB)
type Pipeline struct {
	// Pipeline registers
	ifid  IFIDRegister
	idex  IDEXRegister
	exmem EXMEMRegister
	memwb MEMWBRegister

	// Pipeline stages
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	// Hazard detection
	hazardUnit *HazardUnit

	// Shared resources
	image   *emu.Image
	regFile *emu.RegFile
	memory  *emu.Memory

	config *config.Config
	logger *slog.Logger

	// Program counter
	pc uint32

	// Execution state
	cycle         uint64
	nextSeq       uint64
	stall         int
	haltRequested bool
	state         State
	fault         error

	stats       Statistics
	trace       *Trace
	diagnostics []Diagnostic
}

// NewPipeline creates a new 5-stage pipeline that runs image from address
// 0 against the given register file and data memory.
func NewPipeline(
	image *emu.Image,
	regFile *emu.RegFile,
	memory *emu.Memory,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		image:   image,
		regFile: regFile,
		memory:  memory,
		config:  config.Default(),
		logger:  slog.New(slog.DiscardHandler),
		trace:   NewTrace(),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.fetchStage = NewFetchStage(image)
	p.decodeStage = NewDecodeStage(regFile)
	p.executeStage = NewExecuteStage()
	p.memoryStage = NewMemoryStage(memory, p.config.PermissiveMemory)
	p.writebackStage = NewWritebackStage(regFile)
	p.hazardUnit = NewHazardUnit(p.config.Forwarding)

	if p.config.ABIRegisters {
		regFile.InitABI(p.config.HaltAddress, p.config.StackPointer, p.config.GlobalPointer)
	}

	return p
}

// PC returns the current fetch address.
func (p *Pipeline) PC() uint32 {
	return p.pc
}

// GetIFID returns the IF/ID pipeline register.
func (p *Pipeline) GetIFID() *IFIDRegister {
	return &p.ifid
}

// GetIDEX returns the ID/EX pipeline register.
func (p *Pipeline) GetIDEX() *IDEXRegister {
	return &p.idex
}

// GetEXMEM returns the EX/MEM pipeline register.
func (p *Pipeline) GetEXMEM() *EXMEMRegister {
	return &p.exmem
}

// GetMEMWB returns the MEM/WB pipeline register.
func (p *Pipeline) GetMEMWB() *MEMWBRegister {
	return &p.memwb
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// State returns the run state.
func (p *Pipeline) State() State {
	return p.state
}

// Halted returns true if the pipeline has halted.
func (p *Pipeline) Halted() bool {
	return p.state == StateHalted
}

// Fault returns the fault that stopped the pipeline early, or nil.
func (p *Pipeline) Fault() error {
	return p.fault
}

// Registers returns a snapshot of the register file.
func (p *Pipeline) Registers() [32]int32 {
	return p.regFile.Snapshot()
}

// Memory returns the data memory.
func (p *Pipeline) Memory() *emu.Memory {
	return p.memory
}

// Trace returns the stage trace.
func (p *Pipeline) Trace() *Trace {
	return p.trace
}

// Diagnostics returns every diagnostic reported so far.
func (p *Pipeline) Diagnostics() []Diagnostic {
	return p.diagnostics
}

// Config returns the configuration in effect.
func (p *Pipeline) Config() *config.Config {
	return p.config
}

// Run steps the pipeline until it halts or budget cycles have elapsed.
// An empty image or a non-positive budget is rejected with
// config.ErrConfiguration before any cycle runs. Running out of budget
// leaves the pipeline resumable.
func (p *Pipeline) Run(budget int) (RunResult, error) {
	if err := p.Validate(budget); err != nil {
		return RunResult{}, err
	}

	first := len(p.diagnostics)
	cycles := 0
	for cycles < budget && p.state != StateHalted {
		p.Step()
		cycles++
	}

	return p.Summarize(cycles, first), nil
}

// Validate checks that a run of budget cycles may start.
func (p *Pipeline) Validate(budget int) error {
	if p.image.Len() == 0 {
		return fmt.Errorf("%w: empty program image", config.ErrConfiguration)
	}
	if budget <= 0 {
		return fmt.Errorf("%w: cycle budget must be > 0, got %d",
			config.ErrConfiguration, budget)
	}
	return nil
}

// Summarize builds the result of a run that took cycles cycles and started
// when firstDiag diagnostics had been reported.
func (p *Pipeline) Summarize(cycles, firstDiag int) RunResult {
	result := RunResult{
		Reason:      StopBudget,
		Cycles:      cycles,
		State:       p.state,
		Diagnostics: p.diagnostics[firstDiag:],
	}
	if p.state == StateHalted {
		result.Reason = StopHalted
	}
	return result
}

// RunCycles executes the pipeline for the specified number of cycles.
// Returns true if still running, false if halted.
func (p *Pipeline) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && p.state != StateHalted; i++ {
		p.Step()
	}
	return p.state != StateHalted
}

// tick carries the per-cycle scratch state of Step.
type tick struct {
	observations []Observation
	diagnostics  []Diagnostic
}

func (p *Pipeline) observe(t *tick, seq uint64, pc uint32, label Label) {
	obs := Observation{Seq: seq, PC: pc, Label: label}
	t.observations = append(t.observations, obs)
	p.trace.record(obs)
}

func (p *Pipeline) diagnose(t *tick, kind DiagnosticKind, pc uint32, err error) {
	d := Diagnostic{Kind: kind, Cycle: p.cycle, PC: pc, Err: err}
	t.diagnostics = append(t.diagnostics, d)
	p.diagnostics = append(p.diagnostics, d)
	p.logger.Warn(kind.String(), "cycle", p.cycle, "pc", fmt.Sprintf("0x%08x", pc), "err", err)
}

func (p *Pipeline) forward(reg uint8, exmem *EXMEMRegister, memwb *MEMWBRegister, fallback int32) int32 {
	v, src := p.hazardUnit.Forward(reg, exmem, memwb, fallback)
	if src != ForwardNone {
		p.stats.Forwards++
	}
	return v
}

// Step executes one pipeline cycle.
//
// Stages are evaluated in reverse order (WB→MEM→EX→ID→IF) to compute new
// latch values from the previous ones; all four latches are committed at
// the end of the cycle.
//
// Hazard handling:
//   - Execute forwards from the EX/MEM and MEM/WB latches of the previous
//     cycle
//   - Decode checks the instructions that just left EX and MEM against a
//     stall table, and stalls by freezing PC and IF/ID and inserting a
//     bubble into ID/EX
//   - Branches and jumps resolve in decode; a redirect squashes the one
//     instruction fetched in the same cycle
//   - Store data is forwarded again in Memory from the previous MEM/WB
func (p *Pipeline) Step() StepResult {
	if p.state == StateHalted {
		return StepResult{Cycle: p.cycle, State: p.state}
	}

	p.cycle++
	p.stats.Cycles++
	p.trace.tick(p.cycle)

	t := &tick{}
	fatal := false

	// Stage 5: Writeback
	if p.writebackStage.Writeback(&p.memwb) {
		p.stats.Instructions++
		p.observe(t, p.memwb.Seq, p.memwb.PC, LabelWB)
	}

	// Stage 4: Memory
	var nextMEMWB MEMWBRegister
	if p.exmem.Valid {
		storeValue := p.exmem.StoreValue
		if p.exmem.Inst.Ctrl.MemWrite {
			storeValue = p.forward(p.exmem.Inst.Rs2, nil, &p.memwb, storeValue)
		}

		var err error
		nextMEMWB, err = p.memoryStage.Access(&p.exmem, storeValue)
		if err != nil {
			p.stats.MemoryFaults++
			p.diagnose(t, DiagMemoryFault, p.exmem.PC, err)
			if !p.memoryStage.Permissive() {
				fatal = true
				p.fault = err
			}
		}
		p.observe(t, p.exmem.Seq, p.exmem.PC, LabelMEM)
	}

	// Stage 3: Execute
	var nextEXMEM EXMEMRegister
	if p.idex.Valid {
		inst := p.idex.Inst
		rs1 := p.forward(inst.Rs1, &p.exmem, &p.memwb, p.idex.Rs1Value)
		rs2 := p.forward(inst.Rs2, &p.exmem, &p.memwb, p.idex.Rs2Value)
		nextEXMEM = p.executeStage.Execute(&p.idex, rs1, rs2)
		p.observe(t, p.idex.Seq, p.idex.PC, LabelEX)
	}

	// Stage 2: Decode
	var (
		nextIDEX IDEXRegister
		stalled  bool
		redirect bool
		target   uint32
	)
	switch {
	case p.ifid.Squashed:
		p.stall = 0
		p.observe(t, p.ifid.Seq, p.ifid.PC, LabelSquash)
	case p.ifid.Valid:
		nextIDEX, stalled, redirect, target = p.decode(t, &nextEXMEM, &nextMEMWB)
	default:
		p.stall = 0
	}

	// Stage 1: Fetch
	var nextIFID IFIDRegister
	if stalled {
		nextIFID = p.ifid
	} else {
		nextIFID = p.fetch(t)
	}

	if redirect {
		if nextIFID.Valid {
			nextIFID.Valid = false
			nextIFID.Squashed = true
			p.stats.Flushes++
		}
		p.pc = target
		if target == p.config.HaltAddress&^1 {
			p.haltRequested = true
			p.logger.Debug("halt address reached", "cycle", p.cycle)
		}
	}

	p.memwb = nextMEMWB
	p.exmem = nextEXMEM
	p.idex = nextIDEX
	p.ifid = nextIFID

	p.updateState(fatal)

	return StepResult{
		Cycle:        p.cycle,
		State:        p.state,
		Observations: t.observations,
		Diagnostics:  t.diagnostics,
	}
}

// decode runs the decode stage on the IF/ID latch. exmem and memwb are the
// latches produced earlier in this cycle.
func (p *Pipeline) decode(
	t *tick,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) (next IDEXRegister, stalled, redirect bool, target uint32) {
	ifid := &p.ifid
	res := p.decodeStage.Decode(ifid)

	if res.Err != nil {
		p.stall = 0
		p.stats.DecodeFaults++
		p.diagnose(t, DiagDecodeFault, ifid.PC, res.Err)
		p.observe(t, ifid.Seq, ifid.PC, LabelID)
		return IDEXRegister{}, false, false, 0
	}

	inst := res.Inst
	p.stall = max(p.stall-1, p.hazardUnit.StallCycles(inst, exmem, memwb))
	if p.stall > 0 {
		p.stats.Stalls++
		p.observe(t, ifid.Seq, ifid.PC, LabelStall)
		return IDEXRegister{}, true, false, 0
	}

	if inst.Ctrl.IsBranch || inst.Ctrl.IsJump {
		rs1 := p.forward(inst.Rs1, exmem, memwb, res.Rs1Value)
		rs2 := p.forward(inst.Rs2, exmem, memwb, res.Rs2Value)
		target, redirect = emu.Resolve(inst, rs1, rs2)
	}

	p.observe(t, ifid.Seq, ifid.PC, LabelID)

	next = IDEXRegister{
		Valid:    true,
		Seq:      ifid.Seq,
		PC:       ifid.PC,
		Inst:     inst,
		Rs1Value: res.Rs1Value,
		Rs2Value: res.Rs2Value,
	}
	return next, false, redirect, target
}

// fetch runs the fetch stage at the current PC.
func (p *Pipeline) fetch(t *tick) IFIDRegister {
	if p.haltRequested {
		return IFIDRegister{}
	}

	if p.pc&3 != 0 {
		err := emu.ErrMisalignedFetch
		p.diagnose(t, DiagMisalignedFetch, p.pc, err)
		p.haltRequested = true
		p.fault = err
		return IFIDRegister{}
	}

	word, text, ok := p.fetchStage.Fetch(p.pc)
	if !ok {
		return IFIDRegister{}
	}

	seq := p.nextSeq
	p.nextSeq++
	p.trace.begin(seq, p.pc, text, p.cycle)
	p.observe(t, seq, p.pc, LabelIF)

	ifid := IFIDRegister{
		Valid:           true,
		Seq:             seq,
		PC:              p.pc,
		InstructionWord: word,
	}
	p.pc += 4

	return ifid
}

// updateState advances the run state at the end of a cycle.
func (p *Pipeline) updateState(fatal bool) {
	prev := p.state

	switch {
	case fatal:
		p.state = StateHalted
	case p.haltRequested || !p.image.Contains(p.pc):
		p.state = StateDraining
		if p.empty() {
			p.state = StateHalted
		}
	default:
		p.state = StateRunning
	}

	if p.state == prev {
		return
	}

	p.logger.Debug("pipeline state changed",
		"cycle", p.cycle, "from", prev.String(), "to", p.state.String())

	if p.state == StateHalted {
		p.trace.freeze()
	}
}

// empty reports whether no instruction is in flight.
func (p *Pipeline) empty() bool {
	return !p.ifid.Valid && !p.ifid.Squashed &&
		!p.idex.Valid && !p.exmem.Valid && !p.memwb.Valid &&
		p.stall == 0
}

// IsMemoryFault reports whether err stems from an out-of-range access.
func IsMemoryFault(err error) bool {
	return errors.Is(err, emu.ErrMemoryOutOfRange)
}

// IsDecodeFault reports whether err stems from an undecodable word.
func IsDecodeFault(err error) bool {
	return errors.Is(err, insts.ErrDecodeFault)
}
