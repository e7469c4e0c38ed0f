package probe

import "fmt"

// LoadErrorKind classifies why the Probe Runtime failed to come up, so
// the CLI can tell a fatal misconfiguration from something the operator
// can fix and retry.
type LoadErrorKind int

const (
	// Privilege means euid != 0 or a required capability is missing.
	Privilege LoadErrorKind = iota
	// MissingTracepoint means a filter group's kernel tracepoint isn't
	// present (old kernel, tracefs not mounted).
	MissingTracepoint
	// BytecodeRejected means the verifier rejected the program, or
	// attaching a kprobe/tracepoint link failed outright.
	BytecodeRejected
)

func (k LoadErrorKind) String() string {
	switch k {
	case Privilege:
		return "privilege"
	case MissingTracepoint:
		return "missing_tracepoint"
	case BytecodeRejected:
		return "bytecode_rejected"
	default:
		return "unknown"
	}
}

// LoadError is returned by Load when the probe runtime cannot come up
// at all for the requested filter.
type LoadError struct {
	Kind   LoadErrorKind
	Detail string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("probe load failed (%s): %s", e.Kind, e.Detail)
}
