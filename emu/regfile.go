// Package emu provides the architectural state of an RV32I core and a
// functional reference interpreter.
package emu

// ABI register numbers used by InitABI.
const (
	RegRA = 1
	RegSP = 2
	RegGP = 3
)

// Default ABI register values.
const (
	DefaultStackPointer  uint32 = 0x7ffffff0
	DefaultGlobalPointer uint32 = 0x10000000
)

// RegFile represents the RV32I integer register file.
// X[0] is hardwired to zero.
type RegFile struct {
	X [32]int32
}

// ReadReg reads a register value. x0 and out-of-range registers read 0.
func (r *RegFile) ReadReg(reg uint8) int32 {
	if reg == 0 || reg >= 32 {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to x0 are ignored.
func (r *RegFile) WriteReg(reg uint8, value int32) {
	if reg == 0 || reg >= 32 {
		return
	}
	r.X[reg] = value
}

// Snapshot returns a copy of all 32 registers.
func (r *RegFile) Snapshot() [32]int32 {
	snap := r.X
	snap[0] = 0
	return snap
}

// InitABI sets ra to the return sentinel, and sp and gp to their initial
// values, so that a program's final ret stops the machine.
func (r *RegFile) InitABI(ra, sp, gp uint32) {
	r.WriteReg(RegRA, int32(ra))
	r.WriteReg(RegSP, int32(sp))
	r.WriteReg(RegGP, int32(gp))
}
