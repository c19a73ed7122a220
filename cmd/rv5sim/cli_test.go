package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv5sim/insts"
	"github.com/sarchlab/rv5sim/timing/config"
)

var _ = Describe("rv5sim", func() {
	var (
		tempDir        string
		stdout, stderr bytes.Buffer
	)

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
		stdout.Reset()
		stderr.Reset()
	})

	execute := func(args ...string) error {
		root := newRootCmd()
		root.SetOut(&stdout)
		root.SetErr(&stderr)
		root.SetArgs(args)
		return root.Execute()
	}

	writeHex := func(lines ...string) string {
		path := filepath.Join(tempDir, "prog.hex")
		Expect(os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)).To(Succeed())
		return path
	}

	hexLine := func(word uint32, text string) string {
		return fmt.Sprintf("%08x %s", word, text)
	}

	Describe("run", func() {
		It("should print the diagram, registers and statistics", func() {
			path := writeHex(
				hexLine(insts.EncodeADDI(1, 0, 5), "addi x1, x0, 5"),
				hexLine(insts.EncodeADD(2, 1, 1), "add x2, x1, x1"),
			)

			Expect(execute("run", path, "20")).To(Succeed())

			out := stdout.String()
			Expect(out).To(ContainSubstring("Loaded 2 instructions (hex). Starting at 0x00000000."))
			Expect(out).To(ContainSubstring(fmt.Sprintf("%-20s", "addi x1, x0, 5") + ";IF ;ID ;EX ;MEM;WB ;   "))
			Expect(out).To(ContainSubstring("x2 : 0x0000000a"))
			Expect(out).To(MatchRegexp(`Cycles:\s+6\n`))
			Expect(out).To(ContainSubstring("halted after 6 cycles"))
		})

		It("should stop at the cycle budget", func() {
			path := writeHex(hexLine(insts.EncodeADDI(1, 0, 5), ""))

			Expect(execute("run", path, "2")).To(Succeed())

			Expect(stdout.String()).To(ContainSubstring("cycle budget exhausted after 2 cycles"))
		})

		It("should honor --no-forwarding and --format table", func() {
			path := writeHex(
				hexLine(insts.EncodeADDI(1, 0, 5), ""),
				hexLine(insts.EncodeADD(2, 1, 1), ""),
			)

			Expect(execute("run", "--no-forwarding", "--format", "table", path, "20")).To(Succeed())

			Expect(stdout.String()).To(MatchRegexp(`Stalls:\s+2\n`))
			Expect(stdout.String()).To(ContainSubstring("0x00000004"))
		})

		It("should warn about skipped lines", func() {
			path := writeHex("garbage", hexLine(insts.EncodeNOP(), "nop"))

			Expect(execute("run", path, "10")).To(Succeed())

			Expect(stderr.String()).To(ContainSubstring("skipped program line"))
		})

		It("should read the configuration file", func() {
			cfg := config.Default()
			cfg.Forwarding = false
			cfgPath := filepath.Join(tempDir, "config.json")
			Expect(cfg.Save(cfgPath)).To(Succeed())
			path := writeHex(
				hexLine(insts.EncodeADDI(1, 0, 5), ""),
				hexLine(insts.EncodeADD(2, 1, 1), ""),
			)

			Expect(execute("run", "--config", cfgPath, path, "20")).To(Succeed())

			Expect(stdout.String()).To(MatchRegexp(`Stalls:\s+2\n`))
		})

		It("should exit with 1 for a bad cycle count", func() {
			path := writeHex(hexLine(insts.EncodeNOP(), ""))

			err := execute("run", path, "many")

			Expect(err).To(MatchError(config.ErrConfiguration))
			Expect(exitCode(err)).To(Equal(1))
		})

		It("should exit with 1 for a zero cycle budget", func() {
			path := writeHex(hexLine(insts.EncodeNOP(), ""))

			err := execute("run", path, "0")

			Expect(err).To(MatchError(config.ErrConfiguration))
			Expect(exitCode(err)).To(Equal(1))
		})

		It("should exit with 1 for a missing program", func() {
			err := execute("run", filepath.Join(tempDir, "missing.hex"), "10")

			Expect(err).To(HaveOccurred())
			Expect(exitCode(err)).To(Equal(1))
		})

		It("should exit with 1 for an unknown format", func() {
			path := writeHex(hexLine(insts.EncodeNOP(), ""))

			err := execute("run", "--format", "csv", path, "10")

			Expect(exitCode(err)).To(Equal(1))
		})

		It("should exit with 2 when a memory fault halts the run", func() {
			path := writeHex(hexLine(insts.EncodeLW(1, 0, -2), "lw x1, -2(x0)"))

			err := execute("run", path, "20")

			Expect(err).To(HaveOccurred())
			Expect(exitCode(err)).To(Equal(2))
			Expect(stdout.String()).To(ContainSubstring("memory fault"))
			Expect(stderr.String()).To(ContainSubstring("memory fault"))
		})

		It("should continue past faults with --permissive", func() {
			path := writeHex(
				hexLine(insts.EncodeLW(1, 0, -2), ""),
				hexLine(insts.EncodeADDI(2, 0, 1), ""),
			)

			Expect(execute("run", "--permissive", path, "20")).To(Succeed())

			Expect(stdout.String()).To(ContainSubstring("x2 : 0x00000001"))
		})

		It("should stop on return with --abi", func() {
			path := writeHex(
				hexLine(insts.EncodeADDI(10, 0, 7), ""),
				hexLine(insts.EncodeRET(), ""),
				hexLine(insts.EncodeADDI(10, 0, 99), ""),
			)

			Expect(execute("run", "--abi", path, "50")).To(Succeed())

			Expect(stdout.String()).To(ContainSubstring("x10: 0x00000007"))
			Expect(stdout.String()).To(ContainSubstring("halted after 6 cycles"))
		})

		It("should log state changes with -v", func() {
			path := writeHex(hexLine(insts.EncodeNOP(), ""))

			Expect(execute("run", "-v", path, "10")).To(Succeed())

			Expect(stderr.String()).To(ContainSubstring("pipeline state changed"))
		})
	})

	Describe("bench", func() {
		It("should run the core benchmarks", func() {
			Expect(execute("bench", "--core")).To(Succeed())

			Expect(stdout.String()).To(ContainSubstring("Benchmark: vector_sum [PASS]"))
		})

		It("should write CSV", func() {
			Expect(execute("bench", "--core", "--format", "csv", "--no-forwarding")).To(Succeed())

			Expect(stdout.String()).To(HavePrefix("name,cycles,"))
		})

		It("should fail when a benchmark does not halt", func() {
			err := execute("bench", "--core", "--max-cycles", "3")

			Expect(err).To(MatchError(errBenchmarkFailed))
			Expect(exitCode(err)).To(Equal(1))
		})

		It("should reject an unknown output format", func() {
			err := execute("bench", "--format", "xml")

			Expect(err).To(HaveOccurred())
		})
	})
})
