// Package insts provides RV32I instruction definitions and decoding.
//
// This package turns RV32I machine words into structured instruction
// descriptors carrying the control signals a pipelined core needs. It
// supports the full RV32I base integer set:
//   - Register-register ALU: ADD, SUB, SLL, SLT, SLTU, XOR, SRL, SRA, OR, AND
//   - Register-immediate ALU: ADDI, SLTI, SLTIU, XORI, ORI, ANDI, SLLI, SRLI, SRAI
//   - Loads and stores: LB, LH, LW, LBU, LHU, SB, SH, SW
//   - Control flow: BEQ, BNE, BLT, BGE, BLTU, BGEU, JAL, JALR
//   - Upper immediates: LUI, AUIPC
//   - FENCE, ECALL and EBREAK, which are recognized but have no effect
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst, err := decoder.Decode(0x00500093, 0) // addi x1, x0, 5
//	fmt.Printf("Op: %v, Rd: %d, Imm: %d\n", inst.Op, inst.Rd, inst.Imm)
package insts

// Op represents an RV32I operation.
type Op uint8

// RV32I operations.
const (
	OpUnknown Op = iota
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI
	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU
	OpSB
	OpSH
	OpSW
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU
	OpJAL
	OpJALR
	OpLUI
	OpAUIPC
	OpFENCE
	OpECALL
	OpEBREAK
)

var opNames = [...]string{
	OpUnknown: "unknown",
	OpADD:     "add",
	OpSUB:     "sub",
	OpSLL:     "sll",
	OpSLT:     "slt",
	OpSLTU:    "sltu",
	OpXOR:     "xor",
	OpSRL:     "srl",
	OpSRA:     "sra",
	OpOR:      "or",
	OpAND:     "and",
	OpADDI:    "addi",
	OpSLTI:    "slti",
	OpSLTIU:   "sltiu",
	OpXORI:    "xori",
	OpORI:     "ori",
	OpANDI:    "andi",
	OpSLLI:    "slli",
	OpSRLI:    "srli",
	OpSRAI:    "srai",
	OpLB:      "lb",
	OpLH:      "lh",
	OpLW:      "lw",
	OpLBU:     "lbu",
	OpLHU:     "lhu",
	OpSB:      "sb",
	OpSH:      "sh",
	OpSW:      "sw",
	OpBEQ:     "beq",
	OpBNE:     "bne",
	OpBLT:     "blt",
	OpBGE:     "bge",
	OpBLTU:    "bltu",
	OpBGEU:    "bgeu",
	OpJAL:     "jal",
	OpJALR:    "jalr",
	OpLUI:     "lui",
	OpAUIPC:   "auipc",
	OpFENCE:   "fence",
	OpECALL:   "ecall",
	OpEBREAK:  "ebreak",
}

// String returns the assembler mnemonic of the operation.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "unknown"
}

// Class is the instruction class. Every pipeline decision that depends on
// the kind of instruction switches over Class.
type Class uint8

// Instruction classes.
const (
	ClassBubble Class = iota // No instruction; never has side effects
	ClassALUReg              // R-type arithmetic/logic
	ClassALUImm              // I-type arithmetic/logic
	ClassLoad                // I-type loads
	ClassStore               // S-type stores
	ClassBranch              // B-type conditional branches
	ClassJAL                 // J-type jump and link
	ClassJALR                // I-type jump and link register
	ClassLUI                 // U-type load upper immediate
	ClassAUIPC               // U-type add upper immediate to PC
	ClassNop                 // FENCE/ECALL/EBREAK, recognized and ignored
)

// ALUOp selects the ALU function.
type ALUOp uint8

// ALU operations.
const (
	ALUAdd ALUOp = iota
	ALUSub
	ALUAnd
	ALUOr
	ALUXor
	ALUSll
	ALUSrl
	ALUSra
	ALUSlt
	ALUSltu
)

// OperandSrc selects where an ALU input comes from.
type OperandSrc uint8

// ALU operand sources.
const (
	SrcReg  OperandSrc = iota // rs1 for input A, rs2 for input B
	SrcImm                    // the decoded immediate (input B only)
	SrcPC                     // the instruction's PC (input A only)
	SrcZero                   // constant 0 (input A only)
	SrcFour                   // constant 4 (input B only)
)

// Width is a memory access width.
type Width uint8

// Memory access widths.
const (
	WidthWord Width = iota
	WidthByte
	WidthHalf
)

// Bytes returns the access size in bytes.
func (w Width) Bytes() uint32 {
	switch w {
	case WidthByte:
		return 1
	case WidthHalf:
		return 2
	default:
		return 4
	}
}

// Cmp selects the branch comparator.
type Cmp uint8

// Branch comparators, numbered by funct3.
const (
	CmpEQ  Cmp = 0b000
	CmpNE  Cmp = 0b001
	CmpLT  Cmp = 0b100
	CmpGE  Cmp = 0b101
	CmpLTU Cmp = 0b110
	CmpGEU Cmp = 0b111
)

// Control holds the control signals derived at decode.
type Control struct {
	RegWrite bool // Instruction produces a value for rd (even when rd is x0)
	MemRead  bool // Load
	MemWrite bool // Store
	IsBranch bool // Conditional branch
	IsJump   bool // JAL or JALR

	ALUOp ALUOp
	ASrc  OperandSrc
	BSrc  OperandSrc

	MemWidth  Width
	MemSigned bool

	Cmp Cmp
}

// Instruction is a decoded RV32I instruction.
type Instruction struct {
	Op    Op
	Class Class

	Word uint32 // Raw machine word
	PC   uint32 // Fetch address

	Rd     uint8
	Rs1    uint8
	Rs2    uint8
	Funct3 uint8
	Funct7 uint8

	// Imm is the format-dependent sign-extended immediate. For U-type it
	// already holds the value shifted into bits [31:12].
	Imm int32

	Ctrl Control
}

// Bubble is the canonical no-instruction descriptor.
var Bubble = Instruction{Op: OpUnknown, Class: ClassBubble}

// IsBubble reports whether the descriptor is the bubble variant.
func (i *Instruction) IsBubble() bool {
	return i == nil || i.Class == ClassBubble
}

// IsLoad reports whether the instruction reads data memory.
func (i *Instruction) IsLoad() bool {
	return !i.IsBubble() && i.Ctrl.MemRead
}

// WritesReg reports whether the instruction would write rd. rd == x0 still
// counts; the write is discarded at writeback.
func (i *Instruction) WritesReg() bool {
	return !i.IsBubble() && i.Ctrl.RegWrite
}

// Consumer is the stage in which a source register value is first needed.
type Consumer uint8

// Source consumers.
const (
	ConsumeEX     Consumer = iota // ALU operand, forwarded into Execute
	ConsumeID                     // Branch comparator or JALR target, needed in Decode
	ConsumeMEM                    // Store data, needed in Memory
	numConsumers
)

// NumConsumers is the number of consumer classes.
const NumConsumers = int(numConsumers)

// Source is a register read by an instruction.
type Source struct {
	Reg      uint8
	Consumer Consumer
}

// Sources returns the registers the instruction reads and the stage each
// one is needed in. x0 is never reported.
func (i *Instruction) Sources() []Source {
	if i.IsBubble() {
		return nil
	}

	var srcs []Source
	add := func(reg uint8, c Consumer) {
		if reg != 0 {
			srcs = append(srcs, Source{Reg: reg, Consumer: c})
		}
	}

	switch i.Class {
	case ClassALUReg:
		add(i.Rs1, ConsumeEX)
		add(i.Rs2, ConsumeEX)
	case ClassALUImm, ClassLoad:
		add(i.Rs1, ConsumeEX)
	case ClassStore:
		add(i.Rs1, ConsumeEX)
		add(i.Rs2, ConsumeMEM)
	case ClassBranch:
		add(i.Rs1, ConsumeID)
		add(i.Rs2, ConsumeID)
	case ClassJALR:
		add(i.Rs1, ConsumeID)
	case ClassBubble, ClassJAL, ClassLUI, ClassAUIPC, ClassNop:
	}

	return srcs
}
