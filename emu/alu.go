package emu

import "github.com/sarchlab/rv5sim/insts"

// ALU computes op over a and b. Shift amounts use the low 5 bits of b.
func ALU(op insts.ALUOp, a, b int32) int32 {
	shamt := uint32(b) & 0x1F

	switch op {
	case insts.ALUAdd:
		return a + b
	case insts.ALUSub:
		return a - b
	case insts.ALUAnd:
		return a & b
	case insts.ALUOr:
		return a | b
	case insts.ALUXor:
		return a ^ b
	case insts.ALUSll:
		return int32(uint32(a) << shamt)
	case insts.ALUSrl:
		return int32(uint32(a) >> shamt)
	case insts.ALUSra:
		return a >> shamt
	case insts.ALUSlt:
		if a < b {
			return 1
		}
		return 0
	case insts.ALUSltu:
		if uint32(a) < uint32(b) {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// Operands selects the two ALU inputs of inst from the (possibly
// forwarded) register values rs1 and rs2.
func Operands(inst *insts.Instruction, rs1, rs2 int32) (a, b int32) {
	switch inst.Ctrl.ASrc {
	case insts.SrcPC:
		a = int32(inst.PC)
	case insts.SrcZero:
		a = 0
	default:
		a = rs1
	}

	switch inst.Ctrl.BSrc {
	case insts.SrcImm:
		b = inst.Imm
	case insts.SrcFour:
		b = 4
	default:
		b = rs2
	}

	return a, b
}
