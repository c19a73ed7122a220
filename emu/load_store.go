package emu

import "github.com/sarchlab/rv5sim/insts"

// LoadStoreUnit performs the data-memory side effect of loads and stores.
type LoadStoreUnit struct {
	memory *Memory

	// permissive turns faulting loads into zero reads and faulting stores
	// into dropped writes.
	permissive bool
}

// NewLoadStoreUnit creates a LoadStoreUnit connected to the given memory.
func NewLoadStoreUnit(memory *Memory, permissive bool) *LoadStoreUnit {
	return &LoadStoreUnit{
		memory:     memory,
		permissive: permissive,
	}
}

// Permissive reports whether memory faults are absorbed.
func (lsu *LoadStoreUnit) Permissive() bool {
	return lsu.permissive
}

// Access performs the memory operation of inst at addr. Loads return the
// extended value; stores write the low bytes of data and return 0. Other
// instructions do nothing.
//
// A fault is always returned to the caller. In permissive mode the load
// value is 0 and the store is dropped; the caller decides whether the
// fault stops the machine.
func (lsu *LoadStoreUnit) Access(inst *insts.Instruction, addr uint32, data int32) (int32, error) {
	switch {
	case inst.IsBubble():
		return 0, nil
	case inst.Ctrl.MemRead:
		v, err := lsu.memory.Load(addr, inst.Ctrl.MemWidth, inst.Ctrl.MemSigned)
		if err != nil {
			return 0, err
		}
		return v, nil
	case inst.Ctrl.MemWrite:
		return 0, lsu.memory.Store(addr, inst.Ctrl.MemWidth, data)
	default:
		return 0, nil
	}
}
