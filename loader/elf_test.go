package loader_test

import (
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv5sim/emu"
	"github.com/sarchlab/rv5sim/loader"
)

// testSegment describes one PT_LOAD segment of a generated ELF file.
type testSegment struct {
	vaddr   uint32
	data    []byte
	memSize uint32
	flags   uint32
}

const (
	pfX = 0x1
	pfW = 0x2
	pfR = 0x4
)

var _ = Describe("ELF Loader", func() {
	var tempDir string

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
	})

	code := []byte{
		0x93, 0x00, 0x50, 0x00, // addi x1, x0, 5
		0x13, 0x00, 0x00, 0x00, // nop
	}

	Context("with a valid RV32 executable", func() {
		var elfPath string

		BeforeEach(func() {
			elfPath = filepath.Join(tempDir, "test.elf")
			createRV32ELF(elfPath, 243, 0, []testSegment{
				{vaddr: 0, data: code, memSize: uint32(len(code)), flags: pfR | pfX},
				{vaddr: 0x1000, data: []byte{0xAA, 0xBB}, memSize: 8, flags: pfR | pfW},
			})
		})

		It("should build the image from the executable segment", func() {
			prog, err := loader.LoadELF(elfPath)

			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Image.Words).To(Equal([]uint32{0x00500093, 0x00000013}))
		})

		It("should zero-fill data segments to their memory size", func() {
			prog, err := loader.LoadELF(elfPath)
			Expect(err).NotTo(HaveOccurred())

			Expect(prog.Segments).To(HaveLen(2))
			Expect(prog.Segments[1].Addr).To(Equal(uint32(0x1000)))
			Expect(prog.Segments[1].Data).To(Equal([]byte{0xAA, 0xBB, 0, 0, 0, 0, 0, 0}))
		})

		It("should load segments into memory", func() {
			prog, err := loader.LoadELF(elfPath)
			Expect(err).NotTo(HaveOccurred())

			memory := emu.NewMemory(0)
			Expect(prog.LoadInto(memory)).To(Succeed())

			Expect(memory.Read32(0x1000)).To(Equal(uint32(0xBBAA)))
			Expect(memory.Read32(0)).To(Equal(uint32(0x00500093)))
		})
	})

	It("should return error for non-existent file", func() {
		_, err := loader.LoadELF(filepath.Join(tempDir, "missing.elf"))

		Expect(err).To(HaveOccurred())
	})

	It("should return error for non-ELF file", func() {
		path := filepath.Join(tempDir, "not.elf")
		Expect(os.WriteFile(path, []byte("not an elf"), 0o644)).To(Succeed())

		_, err := loader.LoadELF(path)

		Expect(err).To(HaveOccurred())
	})

	It("should reject other machines", func() {
		path := filepath.Join(tempDir, "arm.elf")
		createRV32ELF(path, 40, 0, []testSegment{
			{vaddr: 0, data: code, memSize: uint32(len(code)), flags: pfR | pfX},
		})

		_, err := loader.LoadELF(path)

		Expect(err).To(MatchError(loader.ErrUnsupportedELF))
	})

	It("should reject a non-zero entry point", func() {
		path := filepath.Join(tempDir, "entry.elf")
		createRV32ELF(path, 243, 0x10074, []testSegment{
			{vaddr: 0x10074, data: code, memSize: uint32(len(code)), flags: pfR | pfX},
		})

		_, err := loader.LoadELF(path)

		Expect(err).To(MatchError(loader.ErrUnsupportedELF))
	})

	It("should reject an executable segment away from address 0", func() {
		path := filepath.Join(tempDir, "text.elf")
		createRV32ELF(path, 243, 0, []testSegment{
			{vaddr: 0x400, data: code, memSize: uint32(len(code)), flags: pfR | pfX},
		})

		_, err := loader.LoadELF(path)

		Expect(err).To(MatchError(loader.ErrUnsupportedELF))
	})

	It("should reject a file without code", func() {
		path := filepath.Join(tempDir, "data.elf")
		createRV32ELF(path, 243, 0, []testSegment{
			{vaddr: 0x1000, data: []byte{1, 2, 3, 4}, memSize: 4, flags: pfR | pfW},
		})

		_, err := loader.LoadELF(path)

		Expect(err).To(MatchError(loader.ErrNoInstructions))
	})
})

// createMinimalRV32ELF writes an executable with a single code segment at 0.
func createMinimalRV32ELF(path string, code []byte) {
	createRV32ELF(path, 243, 0, []testSegment{
		{vaddr: 0, data: code, memSize: uint32(len(code)), flags: pfR | pfX},
	})
}

// createRV32ELF writes a little-endian 32-bit ELF file with the given
// machine, entry point and PT_LOAD segments.
func createRV32ELF(path string, machine uint16, entry uint32, segs []testSegment) {
	const (
		ehSize = 52
		phSize = 32
	)

	elfHeader := make([]byte, ehSize)
	copy(elfHeader[0:4], []byte{0x7f, 'E', 'L', 'F'})
	elfHeader[4] = 1                                                   // ELFCLASS32
	elfHeader[5] = 1                                                   // little endian
	elfHeader[6] = 1                                                   // version
	binary.LittleEndian.PutUint16(elfHeader[16:18], 2)                 // executable
	binary.LittleEndian.PutUint16(elfHeader[18:20], machine)           // machine
	binary.LittleEndian.PutUint32(elfHeader[20:24], 1)                 // version
	binary.LittleEndian.PutUint32(elfHeader[24:28], entry)             // entry
	binary.LittleEndian.PutUint32(elfHeader[28:32], ehSize)            // phoff
	binary.LittleEndian.PutUint16(elfHeader[40:42], ehSize)            // ehsize
	binary.LittleEndian.PutUint16(elfHeader[42:44], phSize)            // phentsize
	binary.LittleEndian.PutUint16(elfHeader[44:46], uint16(len(segs))) // phnum
	binary.LittleEndian.PutUint16(elfHeader[46:48], 40)                // shentsize

	offset := uint32(ehSize + phSize*len(segs))
	var progHeaders, body []byte
	for _, seg := range segs {
		ph := make([]byte, phSize)
		binary.LittleEndian.PutUint32(ph[0:4], 1) // PT_LOAD
		binary.LittleEndian.PutUint32(ph[4:8], offset)
		binary.LittleEndian.PutUint32(ph[8:12], seg.vaddr)
		binary.LittleEndian.PutUint32(ph[12:16], seg.vaddr)
		binary.LittleEndian.PutUint32(ph[16:20], uint32(len(seg.data)))
		binary.LittleEndian.PutUint32(ph[20:24], seg.memSize)
		binary.LittleEndian.PutUint32(ph[24:28], seg.flags)
		binary.LittleEndian.PutUint32(ph[28:32], 4)

		progHeaders = append(progHeaders, ph...)
		body = append(body, seg.data...)
		offset += uint32(len(seg.data))
	}

	file, err := os.Create(path)
	Expect(err).NotTo(HaveOccurred())
	defer func() { _ = file.Close() }()

	_, _ = file.Write(elfHeader)
	_, _ = file.Write(progHeaders)
	_, _ = file.Write(body)
}
