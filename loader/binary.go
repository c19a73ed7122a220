package loader

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sarchlab/rv5sim/emu"
)

// LoadBinary reads a raw little-endian instruction stream. A trailing
// partial word is zero-padded.
func LoadBinary(r io.Reader) (*Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read binary program: %w", err)
	}

	words := wordsOf(data)
	if len(words) == 0 {
		return nil, ErrNoInstructions
	}

	return &Program{
		Image:  emu.NewImage(words, nil),
		Format: FormatBinary,
	}, nil
}

func wordsOf(data []byte) []uint32 {
	if rem := len(data) % 4; rem != 0 {
		data = append(data[:len(data):len(data)], make([]byte, 4-rem)...)
	}

	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[4*i:])
	}
	return words
}
