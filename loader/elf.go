package loader

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/rv5sim/emu"
)

// ErrUnsupportedELF is returned for ELF files the simulator cannot run.
var ErrUnsupportedELF = errors.New("unsupported ELF file")

// LoadELF loads a 32-bit little-endian RISC-V executable. Execution starts
// at address 0, so the entry point and the executable segment must both be
// at 0. Every PT_LOAD segment is also copied into data memory, zero-filled
// up to its memory size.
func LoadELF(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("%w: not a 32-bit ELF file", ErrUnsupportedELF)
	}
	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("%w: not a RISC-V ELF file (machine type: %v)",
			ErrUnsupportedELF, f.Machine)
	}
	if f.Entry != 0 {
		return nil, fmt.Errorf("%w: entry point 0x%x, expected 0",
			ErrUnsupportedELF, f.Entry)
	}

	prog := &Program{Format: FormatELF}
	var text []byte

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		if phdr.Filesz > phdr.Memsz {
			return nil, fmt.Errorf("%w: segment at 0x%x has file size 0x%x > memory size 0x%x",
				ErrUnsupportedELF, phdr.Vaddr, phdr.Filesz, phdr.Memsz)
		}

		data := make([]byte, phdr.Memsz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data[:phdr.Filesz], 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		if phdr.Flags&elf.PF_X != 0 {
			if phdr.Vaddr != 0 || text != nil {
				return nil, fmt.Errorf("%w: executable segment at 0x%x",
					ErrUnsupportedELF, phdr.Vaddr)
			}
			text = data[:phdr.Filesz]
		}

		prog.Segments = append(prog.Segments, Segment{
			Addr: uint32(phdr.Vaddr),
			Data: data,
		})
	}

	words := wordsOf(text)
	if len(words) == 0 {
		return nil, ErrNoInstructions
	}
	prog.Image = emu.NewImage(words, nil)

	return prog, nil
}
