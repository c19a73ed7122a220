// Package loader reads RV32I programs into instruction images.
//
// Three formats are supported: hex text with one instruction word per line
// and optional assembly text, raw little-endian binaries, and 32-bit
// RISC-V ELF executables linked at address 0.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sarchlab/rv5sim/emu"
	"github.com/sarchlab/rv5sim/insts"
)

// ErrNoInstructions is returned when a program contains no instruction.
var ErrNoInstructions = errors.New("program contains no instructions")

// Format is a program file format.
type Format int

// Program file formats.
const (
	FormatHex Format = iota
	FormatBinary
	FormatELF
)

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatELF:
		return "elf"
	default:
		return "hex"
	}
}

// Segment is initialized data to place in data memory.
type Segment struct {
	// Addr is the first byte address of the segment.
	Addr uint32
	// Data holds the segment contents, including zero fill.
	Data []byte
}

// Program is a loaded program.
type Program struct {
	// Image is the instruction image, based at address 0.
	Image *emu.Image
	// Segments is data to copy into memory before the run.
	Segments []Segment
	// Warnings lists input lines that were skipped.
	Warnings []string
	// Format is the format the program was read from.
	Format Format
}

// LoadInto copies the program's segments into memory.
func (p *Program) LoadInto(memory *emu.Memory) error {
	for _, seg := range p.Segments {
		for i, b := range seg.Data {
			addr := seg.Addr + uint32(i)
			if err := memory.Store(addr, insts.WidthByte, int32(b)); err != nil {
				return fmt.Errorf("loading segment at 0x%08x: %w", seg.Addr, err)
			}
		}
	}
	return nil
}

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// DetectFormat guesses the format of a program file from its first bytes
// and its file name.
func DetectFormat(path string, head []byte) Format {
	switch {
	case bytes.HasPrefix(head, elfMagic):
		return FormatELF
	case strings.EqualFold(filepath.Ext(path), ".bin"):
		return FormatBinary
	default:
		return FormatHex
	}
}

// Load reads the program at path, detecting its format.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}

	switch DetectFormat(path, data) {
	case FormatELF:
		return LoadELF(path)
	case FormatBinary:
		return LoadBinary(bytes.NewReader(data))
	default:
		return LoadHex(bytes.NewReader(data))
	}
}
