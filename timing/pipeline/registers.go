// Package pipeline provides the 5-stage pipeline implementation for timing simulation.
package pipeline

import "github.com/sarchlab/rv5sim/insts"

// IFIDRegister holds state between Fetch and Decode stages.
type IFIDRegister struct {
	// Valid indicates if this pipeline register contains an instruction.
	Valid bool

	// Squashed marks an instruction flushed by a redirect in the cycle it
	// was fetched. Valid is false, but Seq and PC still identify it so that
	// it receives its squash marker.
	Squashed bool

	// Seq is the fetch sequence number identifying this instance.
	Seq uint64

	// PC is the program counter of the fetched instruction.
	PC uint32

	// InstructionWord is the raw 32-bit instruction word.
	InstructionWord uint32
}

// Clear resets the IF/ID register to empty state.
func (r *IFIDRegister) Clear() {
	*r = IFIDRegister{}
}

// IDEXRegister holds state between Decode and Execute stages.
type IDEXRegister struct {
	// Valid indicates if this pipeline register contains an instruction.
	Valid bool

	Seq uint64
	PC  uint32

	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// Register values read in decode. Execute replaces them with
	// forwarded values when a newer producer is still in flight.
	Rs1Value int32
	Rs2Value int32
}

// Clear resets the ID/EX register to empty state.
func (r *IDEXRegister) Clear() {
	*r = IDEXRegister{}
}

// EXMEMRegister holds state between Execute and Memory stages.
type EXMEMRegister struct {
	// Valid indicates if this pipeline register contains an instruction.
	Valid bool

	Seq  uint64
	PC   uint32
	Inst *insts.Instruction

	// ALUResult is the result for ALU ops, the link value for jumps and
	// the effective address for loads and stores.
	ALUResult int32

	// StoreValue is the value to store (for store instructions).
	StoreValue int32
}

// Clear resets the EX/MEM register to empty state.
func (r *EXMEMRegister) Clear() {
	*r = EXMEMRegister{}
}

// MEMWBRegister holds state between Memory and Writeback stages.
type MEMWBRegister struct {
	// Valid indicates if this pipeline register contains an instruction.
	Valid bool

	Seq  uint64
	PC   uint32
	Inst *insts.Instruction

	ALUResult int32

	// MemData is the value read from memory (for loads).
	MemData int32
}

// Clear resets the MEM/WB register to empty state.
func (r *MEMWBRegister) Clear() {
	*r = MEMWBRegister{}
}

// Result returns the value the instruction writes back.
func (r *MEMWBRegister) Result() int32 {
	if r.Inst.IsLoad() {
		return r.MemData
	}
	return r.ALUResult
}
