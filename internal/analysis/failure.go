package analysis

import "fmt"

// FailureKind says why an analysis call produced no usable result.
type FailureKind int

const (
	FailureTransport FailureKind = iota
	FailureStatus
	FailureTimeout
	FailureEmpty
	FailureDecode
	FailureRateLimited
	FailureUnconfigured
)

func (k FailureKind) String() string {
	switch k {
	case FailureTransport:
		return "transport"
	case FailureStatus:
		return "status"
	case FailureTimeout:
		return "timeout"
	case FailureEmpty:
		return "empty"
	case FailureDecode:
		return "decode"
	case FailureRateLimited:
		return "rate_limited"
	case FailureUnconfigured:
		return "unconfigured"
	}
	return fmt.Sprintf("FailureKind(%d)", int(k))
}

// Failure is the only error type returned by Client. Callers fall back to a
// deterministic result instead of propagating it.
type Failure struct {
	Kind   FailureKind
	Status int // HTTP status for FailureStatus
	Err    error
}

func (f *Failure) Error() string {
	switch {
	case f.Kind == FailureStatus:
		return fmt.Sprintf("analysis failed: status %d", f.Status)
	case f.Err != nil:
		return fmt.Sprintf("analysis failed (%s): %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("analysis failed (%s)", f.Kind)
}

func (f *Failure) Unwrap() error { return f.Err }
