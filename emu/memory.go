package emu

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/sarchlab/rv5sim/insts"
)

// ErrMemoryOutOfRange is returned for accesses that reach past the end of
// the data address space.
var ErrMemoryOutOfRange = errors.New("memory access out of range")

// Word is one populated memory word.
type Word struct {
	Addr  uint32
	Value uint32
}

// Memory is a sparse, little-endian, word-organized data memory. Words
// that were never written read as zero.
type Memory struct {
	words map[uint32]uint32

	// size is the address-space limit in bytes; 0 means the full 32-bit
	// space.
	size uint64
}

// NewMemory creates an empty memory limited to size bytes. A size of 0
// allows the full 32-bit address space.
func NewMemory(size uint64) *Memory {
	return &Memory{
		words: make(map[uint32]uint32),
		size:  size,
	}
}

// Size returns the address-space limit in bytes, 0 meaning unlimited.
func (m *Memory) Size() uint64 {
	return m.size
}

// Read32 returns the word containing addr.
func (m *Memory) Read32(addr uint32) uint32 {
	return m.words[addr&^3]
}

// Write32 sets the word containing addr.
func (m *Memory) Write32(addr uint32, value uint32) {
	m.words[addr&^3] = value
}

func (m *Memory) readByte(addr uint32) uint32 {
	shift := (addr & 3) * 8
	return (m.words[addr&^3] >> shift) & 0xFF
}

func (m *Memory) writeByte(addr uint32, b uint32) {
	shift := (addr & 3) * 8
	word := m.words[addr&^3]
	word = word&^(0xFF<<shift) | (b&0xFF)<<shift
	m.words[addr&^3] = word
}

// check verifies that all n bytes starting at addr are addressable.
func (m *Memory) check(addr uint32, n uint32) error {
	last := uint64(addr) + uint64(n) - 1
	limit := m.size
	if limit == 0 {
		limit = 1 << 32
	}

	if last >= limit {
		return fmt.Errorf("%w: %d-byte access at 0x%08x", ErrMemoryOutOfRange, n, addr)
	}
	return nil
}

// Load reads width bytes at addr and extends them to 32 bits.
func (m *Memory) Load(addr uint32, width insts.Width, signed bool) (int32, error) {
	n := width.Bytes()
	if err := m.check(addr, n); err != nil {
		return 0, err
	}

	var raw uint32
	if n == 4 && addr&3 == 0 {
		raw = m.words[addr]
	} else {
		for i := uint32(0); i < n; i++ {
			raw |= m.readByte(addr+i) << (8 * i)
		}
	}

	switch {
	case n == 1 && signed:
		return int32(int8(raw)), nil
	case n == 2 && signed:
		return int32(int16(raw)), nil
	default:
		return int32(raw), nil
	}
}

// Store writes the low width bytes of value at addr. Bytes of the
// containing words outside the access are unchanged. A faulting store
// writes nothing.
func (m *Memory) Store(addr uint32, width insts.Width, value int32) error {
	n := width.Bytes()
	if err := m.check(addr, n); err != nil {
		return err
	}

	if n == 4 && addr&3 == 0 {
		m.words[addr] = uint32(value)
		return nil
	}

	for i := uint32(0); i < n; i++ {
		m.writeByte(addr+i, uint32(value)>>(8*i))
	}
	return nil
}

// Words returns all populated words sorted by address.
func (m *Memory) Words() []Word {
	words := make([]Word, 0, len(m.words))
	for _, addr := range slices.Sorted(maps.Keys(m.words)) {
		words = append(words, Word{Addr: addr, Value: m.words[addr]})
	}
	return words
}

// Clone returns an independent copy of the memory.
func (m *Memory) Clone() *Memory {
	return &Memory{
		words: maps.Clone(m.words),
		size:  m.size,
	}
}
