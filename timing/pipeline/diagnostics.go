package pipeline

import "fmt"

// DiagnosticKind classifies a diagnostic.
type DiagnosticKind int

// Diagnostic kinds.
const (
	DiagDecodeFault DiagnosticKind = iota
	DiagMemoryFault
	DiagMisalignedFetch
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagDecodeFault:
		return "decode fault"
	case DiagMemoryFault:
		return "memory fault"
	case DiagMisalignedFetch:
		return "misaligned fetch"
	default:
		return "unknown"
	}
}

// Diagnostic reports a fault observed during a cycle. Err wraps one of
// insts.ErrDecodeFault, emu.ErrMemoryOutOfRange or emu.ErrMisalignedFetch.
type Diagnostic struct {
	Kind  DiagnosticKind
	Cycle uint64
	PC    uint32
	Err   error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("cycle %d: %s at 0x%08x: %v", d.Cycle, d.Kind, d.PC, d.Err)
}
