package insts

import (
	"errors"
	"fmt"
)

// ErrDecodeFault is returned for words whose opcode/funct combination is
// not an RV32I instruction.
var ErrDecodeFault = errors.New("decode fault")

// RV32I major opcodes, bits [6:0].
const (
	opcodeLoad   = 0b0000011
	opcodeFence  = 0b0001111
	opcodeOpImm  = 0b0010011
	opcodeAUIPC  = 0b0010111
	opcodeStore  = 0b0100011
	opcodeOp     = 0b0110011
	opcodeLUI    = 0b0110111
	opcodeBranch = 0b1100011
	opcodeJALR   = 0b1100111
	opcodeJAL    = 0b1101111
	opcodeSystem = 0b1110011
)

const (
	funct7Base = 0b0000000
	funct7Alt  = 0b0100000
)

type functKey struct{ f3, f7 uint8 }

var aluRegOps = map[functKey]struct {
	op  Op
	alu ALUOp
}{
	{0b000, funct7Base}: {OpADD, ALUAdd},
	{0b000, funct7Alt}:  {OpSUB, ALUSub},
	{0b001, funct7Base}: {OpSLL, ALUSll},
	{0b010, funct7Base}: {OpSLT, ALUSlt},
	{0b011, funct7Base}: {OpSLTU, ALUSltu},
	{0b100, funct7Base}: {OpXOR, ALUXor},
	{0b101, funct7Base}: {OpSRL, ALUSrl},
	{0b101, funct7Alt}:  {OpSRA, ALUSra},
	{0b110, funct7Base}: {OpOR, ALUOr},
	{0b111, funct7Base}: {OpAND, ALUAnd},
}

var branchOps = map[uint8]Op{
	0b000: OpBEQ,
	0b001: OpBNE,
	0b100: OpBLT,
	0b101: OpBGE,
	0b110: OpBLTU,
	0b111: OpBGEU,
}

// Decoder decodes RV32I machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new RV32I instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit RV32I instruction word fetched from pc.
//
// Unrecognized encodings yield a copy of Bubble (carrying the word and pc)
// together with an error wrapping ErrDecodeFault. The returned instruction
// is never nil.
func (d *Decoder) Decode(word uint32, pc uint32) (*Instruction, error) {
	inst := &Instruction{
		Word:   word,
		PC:     pc,
		Rd:     uint8((word >> 7) & 0x1F),
		Funct3: uint8((word >> 12) & 0x7),
		Rs1:    uint8((word >> 15) & 0x1F),
		Rs2:    uint8((word >> 20) & 0x1F),
		Funct7: uint8((word >> 25) & 0x7F),
	}

	var ok bool
	switch word & 0x7F {
	case opcodeOp:
		ok = d.decodeALUReg(inst)
	case opcodeOpImm:
		ok = d.decodeALUImm(inst)
	case opcodeLoad:
		ok = d.decodeLoad(inst)
	case opcodeStore:
		ok = d.decodeStore(inst)
	case opcodeBranch:
		ok = d.decodeBranch(inst)
	case opcodeJAL:
		ok = d.decodeJAL(inst)
	case opcodeJALR:
		ok = d.decodeJALR(inst)
	case opcodeLUI, opcodeAUIPC:
		ok = d.decodeUpper(inst)
	case opcodeFence, opcodeSystem:
		ok = d.decodeSystem(inst)
	}

	if !ok {
		bubble := Bubble
		bubble.Word = word
		bubble.PC = pc
		return &bubble, fmt.Errorf("%w: word 0x%08x", ErrDecodeFault, word)
	}

	return inst, nil
}

// immI extracts the sign-extended I-type immediate, bits [31:20].
func immI(word uint32) int32 {
	return int32(word) >> 20
}

// immS extracts the sign-extended S-type immediate.
// Layout: imm[11:5] = bits [31:25], imm[4:0] = bits [11:7].
func immS(word uint32) int32 {
	return (int32(word)>>25)<<5 | int32((word>>7)&0x1F)
}

// immB extracts the sign-extended B-type immediate.
// Layout: imm[12] = bit 31, imm[11] = bit 7, imm[10:5] = bits [30:25],
// imm[4:1] = bits [11:8], imm[0] = 0.
func immB(word uint32) int32 {
	return (int32(word)>>31)<<12 |
		int32((word>>7)&0x1)<<11 |
		int32((word>>25)&0x3F)<<5 |
		int32((word>>8)&0xF)<<1
}

// immU extracts the U-type immediate already placed in bits [31:12].
func immU(word uint32) int32 {
	return int32(word & 0xFFFFF000)
}

// immJ extracts the sign-extended J-type immediate.
// Layout: imm[20] = bit 31, imm[19:12] = bits [19:12], imm[11] = bit 20,
// imm[10:1] = bits [30:21], imm[0] = 0.
func immJ(word uint32) int32 {
	return (int32(word)>>31)<<20 |
		int32(word&0xFF000) |
		int32((word>>20)&0x1)<<11 |
		int32((word>>21)&0x3FF)<<1
}

// decodeALUReg decodes R-type arithmetic/logic instructions.
// Format: funct7 | rs2 | rs1 | funct3 | rd | 0110011
func (d *Decoder) decodeALUReg(inst *Instruction) bool {
	entry, ok := aluRegOps[functKey{inst.Funct3, inst.Funct7}]
	if !ok {
		return false
	}

	inst.Op = entry.op
	inst.Class = ClassALUReg
	inst.Ctrl = Control{
		RegWrite: true,
		ALUOp:    entry.alu,
		ASrc:     SrcReg,
		BSrc:     SrcReg,
	}
	return true
}

// decodeALUImm decodes I-type arithmetic/logic instructions.
// Shifts encode shamt in bits [24:20] and select SRLI/SRAI with funct7.
func (d *Decoder) decodeALUImm(inst *Instruction) bool {
	inst.Class = ClassALUImm
	inst.Rs2 = 0
	inst.Imm = immI(inst.Word)
	inst.Ctrl = Control{RegWrite: true, ASrc: SrcReg, BSrc: SrcImm}

	switch inst.Funct3 {
	case 0b000:
		inst.Op, inst.Ctrl.ALUOp = OpADDI, ALUAdd
	case 0b010:
		inst.Op, inst.Ctrl.ALUOp = OpSLTI, ALUSlt
	case 0b011:
		inst.Op, inst.Ctrl.ALUOp = OpSLTIU, ALUSltu
	case 0b100:
		inst.Op, inst.Ctrl.ALUOp = OpXORI, ALUXor
	case 0b110:
		inst.Op, inst.Ctrl.ALUOp = OpORI, ALUOr
	case 0b111:
		inst.Op, inst.Ctrl.ALUOp = OpANDI, ALUAnd
	case 0b001:
		if inst.Funct7 != funct7Base {
			return false
		}
		inst.Op, inst.Ctrl.ALUOp = OpSLLI, ALUSll
		inst.Imm = int32((inst.Word >> 20) & 0x1F)
	case 0b101:
		switch inst.Funct7 {
		case funct7Base:
			inst.Op, inst.Ctrl.ALUOp = OpSRLI, ALUSrl
		case funct7Alt:
			inst.Op, inst.Ctrl.ALUOp = OpSRAI, ALUSra
		default:
			return false
		}
		inst.Imm = int32((inst.Word >> 20) & 0x1F)
	default:
		return false
	}

	inst.Funct7 = 0
	if inst.Op == OpSRAI {
		inst.Funct7 = funct7Alt
	}
	return true
}

// decodeLoad decodes LB, LH, LW, LBU and LHU.
func (d *Decoder) decodeLoad(inst *Instruction) bool {
	inst.Class = ClassLoad
	inst.Rs2 = 0
	inst.Funct7 = 0
	inst.Imm = immI(inst.Word)
	inst.Ctrl = Control{
		RegWrite: true,
		MemRead:  true,
		ALUOp:    ALUAdd,
		ASrc:     SrcReg,
		BSrc:     SrcImm,
	}

	switch inst.Funct3 {
	case 0b000:
		inst.Op, inst.Ctrl.MemWidth, inst.Ctrl.MemSigned = OpLB, WidthByte, true
	case 0b001:
		inst.Op, inst.Ctrl.MemWidth, inst.Ctrl.MemSigned = OpLH, WidthHalf, true
	case 0b010:
		inst.Op, inst.Ctrl.MemWidth, inst.Ctrl.MemSigned = OpLW, WidthWord, true
	case 0b100:
		inst.Op, inst.Ctrl.MemWidth = OpLBU, WidthByte
	case 0b101:
		inst.Op, inst.Ctrl.MemWidth = OpLHU, WidthHalf
	default:
		return false
	}
	return true
}

// decodeStore decodes SB, SH and SW. rs2 holds the value to store.
func (d *Decoder) decodeStore(inst *Instruction) bool {
	inst.Class = ClassStore
	inst.Rd = 0
	inst.Funct7 = 0
	inst.Imm = immS(inst.Word)
	inst.Ctrl = Control{
		MemWrite: true,
		ALUOp:    ALUAdd,
		ASrc:     SrcReg,
		BSrc:     SrcImm,
	}

	switch inst.Funct3 {
	case 0b000:
		inst.Op, inst.Ctrl.MemWidth = OpSB, WidthByte
	case 0b001:
		inst.Op, inst.Ctrl.MemWidth = OpSH, WidthHalf
	case 0b010:
		inst.Op, inst.Ctrl.MemWidth = OpSW, WidthWord
	default:
		return false
	}
	return true
}

// decodeBranch decodes the six conditional branches.
func (d *Decoder) decodeBranch(inst *Instruction) bool {
	op, ok := branchOps[inst.Funct3]
	if !ok {
		return false
	}

	inst.Op = op
	inst.Class = ClassBranch
	inst.Rd = 0
	inst.Funct7 = 0
	inst.Imm = immB(inst.Word)
	inst.Ctrl = Control{IsBranch: true, Cmp: Cmp(inst.Funct3)}
	return true
}

// decodeJAL decodes JAL. The link value pc+4 is produced by the ALU.
func (d *Decoder) decodeJAL(inst *Instruction) bool {
	inst.Op = OpJAL
	inst.Class = ClassJAL
	inst.Rs1, inst.Rs2, inst.Funct3, inst.Funct7 = 0, 0, 0, 0
	inst.Imm = immJ(inst.Word)
	inst.Ctrl = Control{
		RegWrite: true,
		IsJump:   true,
		ALUOp:    ALUAdd,
		ASrc:     SrcPC,
		BSrc:     SrcFour,
	}
	return true
}

// decodeJALR decodes JALR; only funct3 == 0 is defined.
func (d *Decoder) decodeJALR(inst *Instruction) bool {
	if inst.Funct3 != 0 {
		return false
	}

	inst.Op = OpJALR
	inst.Class = ClassJALR
	inst.Rs2, inst.Funct7 = 0, 0
	inst.Imm = immI(inst.Word)
	inst.Ctrl = Control{
		RegWrite: true,
		IsJump:   true,
		ALUOp:    ALUAdd,
		ASrc:     SrcPC,
		BSrc:     SrcFour,
	}
	return true
}

// decodeUpper decodes LUI (0 + imm) and AUIPC (pc + imm).
func (d *Decoder) decodeUpper(inst *Instruction) bool {
	inst.Rs1, inst.Rs2, inst.Funct3, inst.Funct7 = 0, 0, 0, 0
	inst.Imm = immU(inst.Word)
	inst.Ctrl = Control{RegWrite: true, ALUOp: ALUAdd, BSrc: SrcImm}

	if inst.Word&0x7F == opcodeLUI {
		inst.Op, inst.Class = OpLUI, ClassLUI
		inst.Ctrl.ASrc = SrcZero
	} else {
		inst.Op, inst.Class = OpAUIPC, ClassAUIPC
		inst.Ctrl.ASrc = SrcPC
	}
	return true
}

// decodeSystem accepts FENCE, ECALL and EBREAK as no-ops. CSR accesses and
// other SYSTEM encodings are not part of RV32I.
func (d *Decoder) decodeSystem(inst *Instruction) bool {
	switch {
	case inst.Word&0x7F == opcodeFence && inst.Funct3 == 0:
		inst.Op = OpFENCE
	case inst.Word == 0x00000073:
		inst.Op = OpECALL
	case inst.Word == 0x00100073:
		inst.Op = OpEBREAK
	default:
		return false
	}

	inst.Class = ClassNop
	inst.Rd, inst.Rs1, inst.Rs2 = 0, 0, 0
	inst.Ctrl = Control{}
	return true
}
