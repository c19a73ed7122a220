package pipeline

import "github.com/sarchlab/rv5sim/insts"

// ForwardSource indicates where a forwarded value came from.
type ForwardSource int

const (
	// ForwardNone means no forwarding - use the register file value.
	ForwardNone ForwardSource = iota
	// ForwardFromEXMEM means forward from EX/MEM pipeline register.
	ForwardFromEXMEM
	// ForwardFromMEMWB means forward from MEM/WB pipeline register.
	ForwardFromMEMWB
)

// producerKind classifies an in-flight producer of a register value by
// position and by whether its value is ready.
type producerKind int

const (
	producerEXMEMALU producerKind = iota
	producerEXMEMLoad
	producerMEMWB
	numProducerKinds
)

// StallTable maps (consumer, producer kind) to the number of cycles the
// consumer must wait in decode.
type StallTable [insts.NumConsumers][numProducerKinds]int

// ForwardingStallTable applies when the bypass paths are enabled. Only
// values that are not produced in time for their consumer cost cycles.
var ForwardingStallTable = StallTable{
	insts.ConsumeEX:  {producerEXMEMALU: 0, producerEXMEMLoad: 1, producerMEMWB: 0},
	insts.ConsumeID:  {producerEXMEMALU: 1, producerEXMEMLoad: 2, producerMEMWB: 0},
	insts.ConsumeMEM: {producerEXMEMALU: 0, producerEXMEMLoad: 0, producerMEMWB: 0},
}

// NoForwardingStallTable applies when the bypass paths are disabled. Every
// consumer waits until the producer has written back.
var NoForwardingStallTable = StallTable{
	insts.ConsumeEX:  {producerEXMEMALU: 2, producerEXMEMLoad: 2, producerMEMWB: 1},
	insts.ConsumeID:  {producerEXMEMALU: 2, producerEXMEMLoad: 2, producerMEMWB: 1},
	insts.ConsumeMEM: {producerEXMEMALU: 2, producerEXMEMLoad: 2, producerMEMWB: 1},
}

// HazardUnit detects data hazards and resolves forwarding.
type HazardUnit struct {
	forwarding bool
	table      *StallTable
}

// NewHazardUnit creates a hazard unit with forwarding enabled or disabled.
func NewHazardUnit(forwarding bool) *HazardUnit {
	h := &HazardUnit{
		forwarding: forwarding,
		table:      &ForwardingStallTable,
	}
	if !forwarding {
		h.table = &NoForwardingStallTable
	}
	return h
}

// ForwardingEnabled reports whether bypass paths are used.
func (h *HazardUnit) ForwardingEnabled() bool {
	return h.forwarding
}

func writes(inst *insts.Instruction, reg uint8) bool {
	return inst.WritesReg() && inst.Rd != 0 && inst.Rd == reg
}

// StallCycles returns how many cycles inst must wait in decode given the
// instructions that have just left Execute (exmem) and Memory (memwb).
// Only the nearest producer of each source register is considered.
func (h *HazardUnit) StallCycles(
	inst *insts.Instruction,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) int {
	stall := 0

	for _, src := range inst.Sources() {
		var kind producerKind
		switch {
		case exmem != nil && exmem.Valid && writes(exmem.Inst, src.Reg):
			kind = producerEXMEMALU
			if exmem.Inst.IsLoad() {
				kind = producerEXMEMLoad
			}
		case memwb != nil && memwb.Valid && writes(memwb.Inst, src.Reg):
			kind = producerMEMWB
		default:
			continue
		}

		stall = max(stall, h.table[src.Consumer][kind])
	}

	return stall
}

// Forward returns the newest value of reg visible in the given latches,
// or fallback when none of them produces it. An EX/MEM load has no value
// yet and defers to MEM/WB. Either latch may be nil. With forwarding
// disabled the fallback is always returned.
func (h *HazardUnit) Forward(
	reg uint8,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
	fallback int32,
) (int32, ForwardSource) {
	if !h.forwarding || reg == 0 {
		return fallback, ForwardNone
	}

	if exmem != nil && exmem.Valid && writes(exmem.Inst, reg) && !exmem.Inst.IsLoad() {
		return exmem.ALUResult, ForwardFromEXMEM
	}

	if memwb != nil && memwb.Valid && writes(memwb.Inst, reg) {
		return memwb.Result(), ForwardFromMEMWB
	}

	return fallback, ForwardNone
}
