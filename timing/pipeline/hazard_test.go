package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv5sim/insts"
	"github.com/sarchlab/rv5sim/timing/pipeline"
)

func decode(word uint32) *insts.Instruction {
	inst, err := insts.NewDecoder().Decode(word, 0)
	Expect(err).NotTo(HaveOccurred())
	return inst
}

var _ = Describe("HazardUnit", func() {
	var (
		hazardUnit *pipeline.HazardUnit
		exmem      *pipeline.EXMEMRegister
		memwb      *pipeline.MEMWBRegister
	)

	aluX1 := func() *insts.Instruction { return decode(insts.EncodeADDI(1, 0, 5)) }
	loadX1 := func() *insts.Instruction { return decode(insts.EncodeLW(1, 0, 0)) }

	BeforeEach(func() {
		hazardUnit = pipeline.NewHazardUnit(true)
		exmem = &pipeline.EXMEMRegister{}
		memwb = &pipeline.MEMWBRegister{}
	})

	Describe("StallCycles with forwarding", func() {
		DescribeTable("consumer against producer",
			func(consumer uint32, producer func() *insts.Instruction, inEXMEM bool, want int) {
				if inEXMEM {
					*exmem = pipeline.EXMEMRegister{Valid: true, Inst: producer()}
				} else {
					*memwb = pipeline.MEMWBRegister{Valid: true, Inst: producer()}
				}

				Expect(hazardUnit.StallCycles(decode(consumer), exmem, memwb)).To(Equal(want))
			},
			Entry("ALU operand after ALU", insts.EncodeADD(2, 1, 1), aluX1, true, 0),
			Entry("ALU operand after load", insts.EncodeADD(2, 1, 1), loadX1, true, 1),
			Entry("ALU operand after load in MEM/WB", insts.EncodeADD(2, 1, 1), loadX1, false, 0),
			Entry("branch after ALU", insts.EncodeBEQ(1, 0, 8), aluX1, true, 1),
			Entry("branch after load", insts.EncodeBEQ(1, 0, 8), loadX1, true, 2),
			Entry("branch after ALU in MEM/WB", insts.EncodeBEQ(1, 0, 8), aluX1, false, 0),
			Entry("JALR after load", insts.EncodeJALR(0, 1, 0), loadX1, true, 2),
			Entry("store data after load", insts.EncodeSW(1, 0, 0), loadX1, true, 0),
			Entry("store address after load", insts.EncodeSW(0, 1, 0), loadX1, true, 1),
		)

		It("should ignore producers writing x0", func() {
			*exmem = pipeline.EXMEMRegister{Valid: true, Inst: decode(insts.EncodeLW(0, 0, 0))}

			Expect(hazardUnit.StallCycles(decode(insts.EncodeADD(2, 0, 0)), exmem, memwb)).To(BeZero())
		})

		It("should ignore bubbles", func() {
			*exmem = pipeline.EXMEMRegister{Valid: false, Inst: loadX1()}

			Expect(hazardUnit.StallCycles(decode(insts.EncodeADD(2, 1, 1)), exmem, memwb)).To(BeZero())
		})

		It("should ignore producers that do not write registers", func() {
			*exmem = pipeline.EXMEMRegister{Valid: true, Inst: decode(insts.EncodeSW(1, 1, 0))}

			Expect(hazardUnit.StallCycles(decode(insts.EncodeBEQ(1, 0, 8)), exmem, memwb)).To(BeZero())
		})

		It("should only consider the nearest producer", func() {
			*exmem = pipeline.EXMEMRegister{Valid: true, Inst: aluX1()}
			*memwb = pipeline.MEMWBRegister{Valid: true, Inst: loadX1()}

			Expect(hazardUnit.StallCycles(decode(insts.EncodeADD(2, 1, 1)), exmem, memwb)).To(BeZero())
		})
	})

	Describe("StallCycles without forwarding", func() {
		BeforeEach(func() {
			hazardUnit = pipeline.NewHazardUnit(false)
		})

		It("should wait two cycles behind an EX/MEM producer", func() {
			*exmem = pipeline.EXMEMRegister{Valid: true, Inst: aluX1()}

			Expect(hazardUnit.StallCycles(decode(insts.EncodeADD(2, 1, 1)), exmem, memwb)).To(Equal(2))
		})

		It("should wait one cycle behind a MEM/WB producer", func() {
			*memwb = pipeline.MEMWBRegister{Valid: true, Inst: aluX1()}

			Expect(hazardUnit.StallCycles(decode(insts.EncodeSW(1, 0, 0)), exmem, memwb)).To(Equal(1))
		})
	})

	Describe("Forward", func() {
		It("should prefer EX/MEM over MEM/WB", func() {
			*exmem = pipeline.EXMEMRegister{Valid: true, Inst: aluX1(), ALUResult: 10}
			*memwb = pipeline.MEMWBRegister{Valid: true, Inst: aluX1(), ALUResult: 20}

			v, src := hazardUnit.Forward(1, exmem, memwb, 30)

			Expect(v).To(Equal(int32(10)))
			Expect(src).To(Equal(pipeline.ForwardFromEXMEM))
		})

		It("should defer an EX/MEM load to MEM/WB", func() {
			*exmem = pipeline.EXMEMRegister{Valid: true, Inst: loadX1(), ALUResult: 10}
			*memwb = pipeline.MEMWBRegister{Valid: true, Inst: aluX1(), ALUResult: 20}

			v, src := hazardUnit.Forward(1, exmem, memwb, 30)

			Expect(v).To(Equal(int32(20)))
			Expect(src).To(Equal(pipeline.ForwardFromMEMWB))
		})

		It("should forward loaded data from MEM/WB", func() {
			*memwb = pipeline.MEMWBRegister{Valid: true, Inst: loadX1(), ALUResult: 0x40, MemData: -7}

			v, _ := hazardUnit.Forward(1, nil, memwb, 0)

			Expect(v).To(Equal(int32(-7)))
		})

		It("should fall back when no latch produces the register", func() {
			*exmem = pipeline.EXMEMRegister{Valid: true, Inst: aluX1(), ALUResult: 10}

			v, src := hazardUnit.Forward(2, exmem, memwb, 30)

			Expect(v).To(Equal(int32(30)))
			Expect(src).To(Equal(pipeline.ForwardNone))
		})

		It("should never forward x0", func() {
			*exmem = pipeline.EXMEMRegister{Valid: true, Inst: decode(insts.EncodeADDI(0, 0, 5)), ALUResult: 5}

			v, _ := hazardUnit.Forward(0, exmem, memwb, 0)

			Expect(v).To(BeZero())
		})

		It("should not forward when disabled", func() {
			hazardUnit = pipeline.NewHazardUnit(false)
			*exmem = pipeline.EXMEMRegister{Valid: true, Inst: aluX1(), ALUResult: 10}

			v, src := hazardUnit.Forward(1, exmem, memwb, 30)

			Expect(v).To(Equal(int32(30)))
			Expect(src).To(Equal(pipeline.ForwardNone))
			Expect(hazardUnit.ForwardingEnabled()).To(BeFalse())
		})
	})
})
