package emu

import "github.com/sarchlab/rv5sim/insts"

// Compare evaluates a branch comparator.
func Compare(cmp insts.Cmp, a, b int32) bool {
	switch cmp {
	case insts.CmpEQ:
		return a == b
	case insts.CmpNE:
		return a != b
	case insts.CmpLT:
		return a < b
	case insts.CmpGE:
		return a >= b
	case insts.CmpLTU:
		return uint32(a) < uint32(b)
	case insts.CmpGEU:
		return uint32(a) >= uint32(b)
	default:
		return false
	}
}

// Resolve decides whether a control-flow instruction redirects the PC and
// where to. rs1 and rs2 are the operand values as seen by the comparator.
// Non-control-flow instructions never redirect.
func Resolve(inst *insts.Instruction, rs1, rs2 int32) (target uint32, taken bool) {
	switch inst.Class {
	case insts.ClassBranch:
		if !Compare(inst.Ctrl.Cmp, rs1, rs2) {
			return 0, false
		}
		return inst.PC + uint32(inst.Imm), true
	case insts.ClassJAL:
		return inst.PC + uint32(inst.Imm), true
	case insts.ClassJALR:
		return uint32(rs1+inst.Imm) &^ 1, true
	default:
		return 0, false
	}
}
