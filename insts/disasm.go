package insts

import "fmt"

// Disassemble renders an instruction in assembler syntax, for example
// "addi x1, x0, 5" or "lw x2, 8(x1)". Bubbles render as "nop".
func Disassemble(inst *Instruction) string {
	if inst.IsBubble() {
		return "nop"
	}

	name := inst.Op.String()
	switch inst.Class {
	case ClassALUReg:
		return fmt.Sprintf("%s x%d, x%d, x%d", name, inst.Rd, inst.Rs1, inst.Rs2)
	case ClassALUImm:
		if inst.Word == EncodeNOP() {
			return "nop"
		}
		return fmt.Sprintf("%s x%d, x%d, %d", name, inst.Rd, inst.Rs1, inst.Imm)
	case ClassLoad:
		return fmt.Sprintf("%s x%d, %d(x%d)", name, inst.Rd, inst.Imm, inst.Rs1)
	case ClassStore:
		return fmt.Sprintf("%s x%d, %d(x%d)", name, inst.Rs2, inst.Imm, inst.Rs1)
	case ClassBranch:
		return fmt.Sprintf("%s x%d, x%d, %d", name, inst.Rs1, inst.Rs2, inst.Imm)
	case ClassJAL:
		return fmt.Sprintf("%s x%d, %d", name, inst.Rd, inst.Imm)
	case ClassJALR:
		return fmt.Sprintf("%s x%d, %d(x%d)", name, inst.Rd, inst.Imm, inst.Rs1)
	case ClassLUI, ClassAUIPC:
		return fmt.Sprintf("%s x%d, 0x%x", name, inst.Rd, uint32(inst.Imm)>>12)
	default:
		return name
	}
}
