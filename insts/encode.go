package insts

// Encoding tables keyed by operation. Used by Encode to assemble words for
// tests and the built-in benchmark programs.
var (
	rTypeFuncts = map[Op]functKey{
		OpADD:  {0b000, funct7Base},
		OpSUB:  {0b000, funct7Alt},
		OpSLL:  {0b001, funct7Base},
		OpSLT:  {0b010, funct7Base},
		OpSLTU: {0b011, funct7Base},
		OpXOR:  {0b100, funct7Base},
		OpSRL:  {0b101, funct7Base},
		OpSRA:  {0b101, funct7Alt},
		OpOR:   {0b110, funct7Base},
		OpAND:  {0b111, funct7Base},
	}

	iTypeFuncts = map[Op]functKey{
		OpADDI:  {0b000, 0},
		OpSLTI:  {0b010, 0},
		OpSLTIU: {0b011, 0},
		OpXORI:  {0b100, 0},
		OpORI:   {0b110, 0},
		OpANDI:  {0b111, 0},
		OpSLLI:  {0b001, funct7Base},
		OpSRLI:  {0b101, funct7Base},
		OpSRAI:  {0b101, funct7Alt},
	}

	loadFunct3 = map[Op]uint32{
		OpLB: 0b000, OpLH: 0b001, OpLW: 0b010, OpLBU: 0b100, OpLHU: 0b101,
	}

	storeFunct3 = map[Op]uint32{
		OpSB: 0b000, OpSH: 0b001, OpSW: 0b010,
	}

	branchFunct3 = map[Op]uint32{
		OpBEQ: 0b000, OpBNE: 0b001, OpBLT: 0b100,
		OpBGE: 0b101, OpBLTU: 0b110, OpBGEU: 0b111,
	}
)

// Encode assembles an RV32I instruction word. Operands that the format
// does not use are ignored. Unsupported operations encode as 0, which
// decodes as a fault.
func Encode(op Op, rd, rs1, rs2 uint8, imm int32) uint32 {
	r := func(x uint8) uint32 { return uint32(x) & 0x1F }
	u := uint32(imm)

	if f, ok := rTypeFuncts[op]; ok {
		return uint32(f.f7)<<25 | r(rs2)<<20 | r(rs1)<<15 |
			uint32(f.f3)<<12 | r(rd)<<7 | opcodeOp
	}

	if f, ok := iTypeFuncts[op]; ok {
		immField := u & 0xFFF
		if f.f3 == 0b001 || f.f3 == 0b101 {
			immField = uint32(f.f7)<<5 | u&0x1F
		}
		return immField<<20 | r(rs1)<<15 | uint32(f.f3)<<12 | r(rd)<<7 | opcodeOpImm
	}

	if f3, ok := loadFunct3[op]; ok {
		return (u&0xFFF)<<20 | r(rs1)<<15 | f3<<12 | r(rd)<<7 | opcodeLoad
	}

	if f3, ok := storeFunct3[op]; ok {
		return (u>>5&0x7F)<<25 | r(rs2)<<20 | r(rs1)<<15 | f3<<12 |
			(u&0x1F)<<7 | opcodeStore
	}

	if f3, ok := branchFunct3[op]; ok {
		return (u>>12&0x1)<<31 | (u>>5&0x3F)<<25 | r(rs2)<<20 | r(rs1)<<15 |
			f3<<12 | (u>>1&0xF)<<8 | (u>>11&0x1)<<7 | opcodeBranch
	}

	switch op {
	case OpJAL:
		return (u>>20&0x1)<<31 | (u>>1&0x3FF)<<21 | (u>>11&0x1)<<20 |
			(u>>12&0xFF)<<12 | r(rd)<<7 | opcodeJAL
	case OpJALR:
		return (u&0xFFF)<<20 | r(rs1)<<15 | r(rd)<<7 | opcodeJALR
	case OpLUI:
		return u&0xFFFFF000 | r(rd)<<7 | opcodeLUI
	case OpAUIPC:
		return u&0xFFFFF000 | r(rd)<<7 | opcodeAUIPC
	case OpFENCE:
		return 0x0FF0000F
	case OpECALL:
		return 0x00000073
	case OpEBREAK:
		return 0x00100073
	}

	return 0
}

// EncodeNOP returns the canonical NOP, addi x0, x0, 0.
func EncodeNOP() uint32 {
	return Encode(OpADDI, 0, 0, 0, 0)
}

// EncodeADDI encodes addi rd, rs1, imm.
func EncodeADDI(rd, rs1 uint8, imm int32) uint32 {
	return Encode(OpADDI, rd, rs1, 0, imm)
}

// EncodeADD encodes add rd, rs1, rs2.
func EncodeADD(rd, rs1, rs2 uint8) uint32 {
	return Encode(OpADD, rd, rs1, rs2, 0)
}

// EncodeSUB encodes sub rd, rs1, rs2.
func EncodeSUB(rd, rs1, rs2 uint8) uint32 {
	return Encode(OpSUB, rd, rs1, rs2, 0)
}

// EncodeLW encodes lw rd, imm(rs1).
func EncodeLW(rd, rs1 uint8, imm int32) uint32 {
	return Encode(OpLW, rd, rs1, 0, imm)
}

// EncodeSW encodes sw rs2, imm(rs1).
func EncodeSW(rs2, rs1 uint8, imm int32) uint32 {
	return Encode(OpSW, 0, rs1, rs2, imm)
}

// EncodeBEQ encodes beq rs1, rs2, offset.
func EncodeBEQ(rs1, rs2 uint8, offset int32) uint32 {
	return Encode(OpBEQ, 0, rs1, rs2, offset)
}

// EncodeBNE encodes bne rs1, rs2, offset.
func EncodeBNE(rs1, rs2 uint8, offset int32) uint32 {
	return Encode(OpBNE, 0, rs1, rs2, offset)
}

// EncodeJAL encodes jal rd, offset.
func EncodeJAL(rd uint8, offset int32) uint32 {
	return Encode(OpJAL, rd, 0, 0, offset)
}

// EncodeJALR encodes jalr rd, imm(rs1).
func EncodeJALR(rd, rs1 uint8, imm int32) uint32 {
	return Encode(OpJALR, rd, rs1, 0, imm)
}

// EncodeRET encodes ret, i.e. jalr x0, 0(ra).
func EncodeRET() uint32 {
	return EncodeJALR(0, 1, 0)
}
