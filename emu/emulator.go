package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/rv5sim/insts"
)

// DefaultHaltAddress is the return sentinel. Jumping to it stops the
// machine.
const DefaultHaltAddress uint32 = 0xFFFFFFFF

// ErrInstructionLimit is returned by Run when the instruction limit is hit
// before the program stops.
var ErrInstructionLimit = errors.New("max instructions reached")

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Halted is true once the machine has stopped: the program jumped to
	// the halt address, ran off the image, or hit a fatal fault.
	Halted bool

	// Err is set if the step faulted. Decode faults do not halt.
	Err error
}

// Emulator executes RV32I instructions one at a time with no timing. It
// shares decoding, ALU, comparator and memory semantics with the pipeline
// and serves as the reference for its final architectural state.
type Emulator struct {
	image   *Image
	regFile *RegFile
	memory  *Memory
	decoder *insts.Decoder
	lsu     *LoadStoreUnit

	pc          uint32
	haltAddress uint32
	permissive  bool
	halted      bool

	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
	faults           []error
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithHaltAddress sets the address whose jump target stops the machine.
func WithHaltAddress(addr uint32) EmulatorOption {
	return func(e *Emulator) {
		e.haltAddress = addr
	}
}

// WithPermissiveMemory makes out-of-range accesses read zero or be dropped
// instead of stopping the machine.
func WithPermissiveMemory(permissive bool) EmulatorOption {
	return func(e *Emulator) {
		e.permissive = permissive
	}
}

// WithMaxInstructions sets the maximum number of instructions Run executes.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates an emulator that runs image from address 0 against
// the given register file and memory.
func NewEmulator(image *Image, regFile *RegFile, memory *Memory, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		image:       image,
		regFile:     regFile,
		memory:      memory,
		decoder:     insts.NewDecoder(),
		haltAddress: DefaultHaltAddress,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.lsu = NewLoadStoreUnit(memory, e.permissive)

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// PC returns the address of the next instruction.
func (e *Emulator) PC() uint32 {
	return e.pc
}

// Halted reports whether the machine has stopped.
func (e *Emulator) Halted() bool {
	return e.halted
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Faults returns every fault observed so far, in order.
func (e *Emulator) Faults() []error {
	return e.faults
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	if e.halted {
		return StepResult{Halted: true}
	}

	if e.pc&3 != 0 {
		return e.fault(fmt.Errorf("%w: pc 0x%08x", ErrMisalignedFetch, e.pc), true)
	}

	word, _, ok := e.image.Fetch(e.pc)
	if !ok {
		e.halted = true
		return StepResult{Halted: true}
	}

	inst, err := e.decoder.Decode(word, e.pc)
	if err != nil {
		err = fmt.Errorf("pc 0x%08x: %w", e.pc, err)
		e.pc += 4
		return e.fault(err, false)
	}

	return e.execute(inst)
}

// Run executes instructions until the machine halts. It returns
// ErrInstructionLimit if the instruction limit is reached first, or the
// fault that stopped the machine.
func (e *Emulator) Run() error {
	for !e.halted {
		if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
			return ErrInstructionLimit
		}

		result := e.Step()
		if result.Halted && result.Err != nil {
			return result.Err
		}
	}
	return nil
}

func (e *Emulator) execute(inst *insts.Instruction) StepResult {
	e.instructionCount++

	if inst.Class == insts.ClassNop {
		e.pc += 4
		return StepResult{}
	}

	rs1 := e.regFile.ReadReg(inst.Rs1)
	rs2 := e.regFile.ReadReg(inst.Rs2)

	target, taken := Resolve(inst, rs1, rs2)

	a, b := Operands(inst, rs1, rs2)
	result := ALU(inst.Ctrl.ALUOp, a, b)

	if inst.Ctrl.MemRead || inst.Ctrl.MemWrite {
		data, err := e.lsu.Access(inst, uint32(result), rs2)
		if err != nil {
			err = fmt.Errorf("pc 0x%08x: %w", inst.PC, err)
			if !e.lsu.Permissive() {
				return e.fault(err, true)
			}
			e.faults = append(e.faults, err)
		}
		if inst.Ctrl.MemRead {
			result = data
		}
	}

	if inst.Ctrl.RegWrite {
		e.regFile.WriteReg(inst.Rd, result)
	}

	e.pc += 4
	if taken {
		e.pc = target
		if target == e.haltAddress&^1 {
			e.halted = true
			return StepResult{Halted: true}
		}
	}

	return StepResult{}
}

func (e *Emulator) fault(err error, fatal bool) StepResult {
	e.faults = append(e.faults, err)
	if fatal {
		e.halted = true
	}
	return StepResult{Halted: e.halted, Err: err}
}
