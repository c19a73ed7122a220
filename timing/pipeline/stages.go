package pipeline

import (
	"fmt"

	"github.com/sarchlab/rv5sim/emu"
	"github.com/sarchlab/rv5sim/insts"
)

// FetchStage handles instruction fetch from the program image.
type FetchStage struct {
	image   *emu.Image
	decoder *insts.Decoder
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage(image *emu.Image) *FetchStage {
	return &FetchStage{
		image:   image,
		decoder: insts.NewDecoder(),
	}
}

// Fetch reads the instruction at the given PC. ok is false when pc is
// outside the image.
func (s *FetchStage) Fetch(pc uint32) (word uint32, text string, ok bool) {
	word, text, ok = s.image.Fetch(pc)
	if ok && text == "" {
		text = s.displayText(word, pc)
	}
	return word, text, ok
}

// displayText renders text for images that carry none.
func (s *FetchStage) displayText(word, pc uint32) string {
	inst, err := s.decoder.Decode(word, pc)
	if err != nil {
		return fmt.Sprintf(".word 0x%08x", word)
	}
	return insts.Disassemble(inst)
}

// DecodeStage handles instruction decode and register read.
type DecodeStage struct {
	regFile *emu.RegFile
	decoder *insts.Decoder
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(regFile *emu.RegFile) *DecodeStage {
	return &DecodeStage{
		regFile: regFile,
		decoder: insts.NewDecoder(),
	}
}

// DecodeResult holds the result of the decode stage.
type DecodeResult struct {
	Inst     *insts.Instruction
	Rs1Value int32
	Rs2Value int32

	// Err wraps insts.ErrDecodeFault for undecodable words; Inst is then a
	// bubble.
	Err error
}

// Decode decodes the instruction and reads register values. It runs after
// writeback in a cycle, so values written this cycle are visible.
func (s *DecodeStage) Decode(ifid *IFIDRegister) DecodeResult {
	inst, err := s.decoder.Decode(ifid.InstructionWord, ifid.PC)
	if err != nil {
		return DecodeResult{Inst: inst, Err: err}
	}

	return DecodeResult{
		Inst:     inst,
		Rs1Value: s.regFile.ReadReg(inst.Rs1),
		Rs2Value: s.regFile.ReadReg(inst.Rs2),
	}
}

// ExecuteStage handles ALU operations, link values and address
// calculation.
type ExecuteStage struct{}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage() *ExecuteStage {
	return &ExecuteStage{}
}

// Execute computes the ALU result of idex using the (forwarded) operand
// values rs1 and rs2.
func (s *ExecuteStage) Execute(idex *IDEXRegister, rs1, rs2 int32) EXMEMRegister {
	if !idex.Valid {
		return EXMEMRegister{}
	}

	inst := idex.Inst
	result := EXMEMRegister{
		Valid: true,
		Seq:   idex.Seq,
		PC:    idex.PC,
		Inst:  inst,
	}

	switch inst.Class {
	case insts.ClassBranch, insts.ClassNop:
		return result
	}

	a, b := emu.Operands(inst, rs1, rs2)
	result.ALUResult = emu.ALU(inst.Ctrl.ALUOp, a, b)
	if inst.Ctrl.MemWrite {
		result.StoreValue = rs2
	}

	return result
}

// MemoryStage handles memory load/store operations.
type MemoryStage struct {
	lsu *emu.LoadStoreUnit
}

// NewMemoryStage creates a new memory stage.
func NewMemoryStage(memory *emu.Memory, permissive bool) *MemoryStage {
	return &MemoryStage{
		lsu: emu.NewLoadStoreUnit(memory, permissive),
	}
}

// Access performs the memory read or write of exmem. storeValue is the
// final store data after any late forwarding. A fault is returned along
// with the latch the instruction continues with; in permissive mode a
// faulting load carries zero.
func (s *MemoryStage) Access(exmem *EXMEMRegister, storeValue int32) (MEMWBRegister, error) {
	if !exmem.Valid {
		return MEMWBRegister{}, nil
	}

	result := MEMWBRegister{
		Valid:     true,
		Seq:       exmem.Seq,
		PC:        exmem.PC,
		Inst:      exmem.Inst,
		ALUResult: exmem.ALUResult,
	}

	data, err := s.lsu.Access(exmem.Inst, uint32(exmem.ALUResult), storeValue)
	result.MemData = data
	return result, err
}

// Permissive reports whether memory faults are absorbed.
func (s *MemoryStage) Permissive() bool {
	return s.lsu.Permissive()
}

// WritebackStage handles register file writeback.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{
		regFile: regFile,
	}
}

// Writeback writes the result to the register file. It reports whether an
// instruction retired.
func (s *WritebackStage) Writeback(memwb *MEMWBRegister) bool {
	if !memwb.Valid {
		return false
	}

	if memwb.Inst.WritesReg() {
		s.regFile.WriteReg(memwb.Inst.Rd, memwb.Result())
	}

	return true
}
