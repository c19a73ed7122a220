package report_test

import (
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv5sim/emu"
	"github.com/sarchlab/rv5sim/insts"
	"github.com/sarchlab/rv5sim/report"
	"github.com/sarchlab/rv5sim/timing/pipeline"
)

var _ = Describe("Report", func() {
	var (
		pipe *pipeline.Pipeline
		out  strings.Builder
	)

	runWith := func(text []string) {
		words := []uint32{
			insts.EncodeADDI(1, 0, 5),
			insts.EncodeADD(2, 1, 1),
		}
		pipe = pipeline.NewPipeline(emu.NewImage(words, text), &emu.RegFile{}, emu.NewMemory(0))
		_, err := pipe.Run(100)
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		out.Reset()
	})

	Describe("ParseFormat", func() {
		It("should accept known formats in any case", func() {
			Expect(report.ParseFormat("semicolon")).To(Equal(report.FormatSemicolon))
			Expect(report.ParseFormat("TABLE")).To(Equal(report.FormatTable))
		})

		It("should reject unknown formats", func() {
			_, err := report.ParseFormat("csv")

			Expect(err).To(MatchError(report.ErrUnknownFormat))
		})
	})

	Describe("WriteDiagram", func() {
		It("should write one semicolon row per instance", func() {
			runWith(nil)

			Expect(report.WriteDiagram(&out, pipe.Trace(), report.FormatSemicolon)).To(Succeed())

			lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
			Expect(lines).To(Equal([]string{
				fmt.Sprintf("%-20s", "addi x1, x0, 5") + ";IF ;ID ;EX ;MEM;WB ;   ",
				fmt.Sprintf("%-20s", "add x2, x1, x1") + ";   ;IF ;ID ;EX ;MEM;WB ",
			}))
		})

		It("should truncate long instruction text", func() {
			runWith([]string{"addi x1, x0, 5 # load five", "add"})

			Expect(report.WriteDiagram(&out, pipe.Trace(), report.FormatSemicolon)).To(Succeed())

			Expect(out.String()).To(HavePrefix("addi x1, x0, 5 # lo ;IF "))
		})

		It("should write an aligned table", func() {
			runWith(nil)

			Expect(report.WriteDiagram(&out, pipe.Trace(), report.FormatTable)).To(Succeed())

			lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
			Expect(lines).To(HaveLen(3))
			Expect(lines[0]).To(HavePrefix("PC"))
			Expect(strings.Fields(lines[0])).To(HaveLen(2 + 6))
			Expect(lines[2]).To(HavePrefix("0x00000004"))
			Expect(lines[2]).To(ContainSubstring("MEM"))
		})

		It("should reject an unknown format", func() {
			runWith(nil)

			err := report.WriteDiagram(&out, pipe.Trace(), report.Format("csv"))

			Expect(err).To(MatchError(report.ErrUnknownFormat))
		})
	})

	It("should dump registers four per line", func() {
		runWith(nil)

		Expect(report.WriteRegisters(&out, pipe.Registers())).To(Succeed())

		lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
		Expect(lines).To(HaveLen(8))
		Expect(lines[0]).To(ContainSubstring("x1 : 0x00000005"))
		Expect(lines[0]).To(ContainSubstring("x2 : 0x0000000a"))
		Expect(lines[7]).To(ContainSubstring("x31: 0x00000000"))
	})

	It("should print negative registers as two's complement", func() {
		regs := [32]int32{}
		regs[5] = -1

		Expect(report.WriteRegisters(&out, regs)).To(Succeed())

		Expect(out.String()).To(ContainSubstring("x5 : 0xffffffff"))
	})

	It("should write statistics", func() {
		runWith(nil)

		Expect(report.WriteStats(&out, pipe.Stats())).To(Succeed())

		Expect(out.String()).To(MatchRegexp(`Cycles:\s+6\n`))
		Expect(out.String()).To(MatchRegexp(`Instructions:\s+2\n`))
		Expect(out.String()).To(MatchRegexp(`CPI:\s+3\.00\n`))
	})

	It("should write diagnostics", func() {
		diags := []pipeline.Diagnostic{{
			Kind:  pipeline.DiagDecodeFault,
			Cycle: 3,
			PC:    8,
			Err:   insts.ErrDecodeFault,
		}}

		Expect(report.WriteDiagnostics(&out, diags)).To(Succeed())

		Expect(out.String()).To(HavePrefix("cycle 3: decode fault at 0x00000008"))
	})
})
