package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv5sim/emu"
	"github.com/sarchlab/rv5sim/insts"
	"github.com/sarchlab/rv5sim/timing/pipeline"
)

var _ = Describe("Trace", func() {
	var pipe *pipeline.Pipeline

	loop := []uint32{
		insts.EncodeADDI(1, 0, 2),
		insts.EncodeADDI(1, 1, -1),
		insts.EncodeBNE(1, 0, -4),
		insts.EncodeNOP(),
	}

	runImage := func(image *emu.Image) {
		pipe = pipeline.NewPipeline(image, &emu.RegFile{}, emu.NewMemory(0))
		_, err := pipe.Run(100)
		Expect(err).NotTo(HaveOccurred())
	}

	It("should start empty", func() {
		trace := pipeline.NewTrace()

		Expect(trace.Cycles()).To(BeZero())
		Expect(trace.Histories()).To(BeEmpty())
		Expect(trace.Labels(0)).To(BeEmpty())
		Expect(trace.Text(0)).To(BeEmpty())
	})

	It("should keep one history per fetched instance", func() {
		runImage(emu.NewImage(loop, nil))

		var atFour []pipeline.History
		for _, h := range pipe.Trace().Histories() {
			if h.PC == 4 {
				atFour = append(atFour, h)
			}
		}

		Expect(atFour).To(HaveLen(2))
		Expect(atFour[0].Seq).To(Equal(uint64(1)))
		Expect(atFour[0].FirstCycle).To(Equal(uint64(2)))
		Expect(atFour[1].Seq).To(Equal(uint64(4)))
		Expect(atFour[1].FirstCycle).To(Equal(uint64(6)))
		Expect(atFour[1].Labels).To(Equal(labels(IF, ID, EX, MEM, WB)))
	})

	It("should concatenate the labels of repeated fetches", func() {
		runImage(emu.NewImage(loop, nil))

		Expect(pipe.Trace().Labels(8)).To(Equal(labels(
			IF, STL, ID, EX, MEM, WB,
			IF, STL, ID, EX, MEM, WB,
		)))
		Expect(pipe.Trace().Labels(12)).To(Equal(labels(
			IF, SQ,
			IF, ID, EX, MEM, WB,
		)))
	})

	It("should record display text", func() {
		runImage(emu.NewImage(loop, []string{"li x1, 2"}))

		Expect(pipe.Trace().Text(0)).To(Equal("li x1, 2"))
		Expect(pipe.Trace().Text(4)).To(Equal("addi x1, x1, -1"))
		Expect(pipe.Trace().Text(12)).To(Equal("nop"))
		Expect(pipe.Trace().Text(0x100)).To(BeEmpty())
	})

	It("should hand out copies of the histories", func() {
		runImage(emu.NewImage(loop, nil))

		histories := pipe.Trace().Histories()
		histories[0].Labels[0] = STL

		Expect(pipe.Trace().Histories()[0].Labels[0]).To(Equal(IF))
	})

	It("should stop growing once the pipeline halts", func() {
		runImage(emu.NewImage(loop, nil))
		cycles := pipe.Trace().Cycles()
		histories := pipe.Trace().Histories()

		pipe.Step()
		pipe.Step()

		Expect(cycles).To(Equal(pipe.Stats().Cycles))
		Expect(pipe.Trace().Cycles()).To(Equal(cycles))
		Expect(pipe.Trace().Histories()).To(Equal(histories))
	})
})
