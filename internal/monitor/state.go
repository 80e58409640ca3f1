package monitor

import (
	"errors"
	"fmt"
	"time"
)

// ErrProbePanic is wrapped by a [ProbeError] when the probe panicked instead
// of returning.
var ErrProbePanic = errors.New("probe panicked")

// Kind identifies the type of transition carried by an [Event].
type Kind int

const (
	// KindFailure is emitted on the first failed tick of an episode and again
	// every time the debounce window elapses while the store stays down.
	KindFailure Kind = iota + 1

	// KindRecovery is emitted on the first successful tick after a failure.
	KindRecovery
)

// String returns "failure" or "recovery".
func (k Kind) String() string {
	switch k {
	case KindFailure:
		return "failure"
	case KindRecovery:
		return "recovery"
	default:
		return "unknown"
	}
}

// Event is a transition that warrants a notification.
type Event struct {
	Kind Kind

	// Err is the probe failure that triggered a [KindFailure] event.
	// nil for [KindRecovery].
	Err *ProbeError

	// At is the monitor clock time the transition was classified.
	At time.Time
}

// ProbeError records a single failed connectivity check.
type ProbeError struct {
	// At is when the failing check completed.
	At time.Time

	// Err is the error returned by the probe, or one wrapping [ErrProbePanic].
	Err error

	// CorrelationID is set when the probe panicked; the same ID appears in the
	// server log next to the stack trace.
	CorrelationID string
}

func (e *ProbeError) Error() string {
	if e.CorrelationID != "" {
		return fmt.Sprintf("probe failed (correlation_id: %s): %v", e.CorrelationID, e.Err)
	}
	return fmt.Sprintf("probe failed: %v", e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// State is a snapshot of the monitor's availability classification.
type State struct {
	// Available mirrors the latest probe outcome. Starts true.
	Available bool

	// StateChanged is true while a failure episode has not yet been followed
	// by a reported recovery.
	StateChanged bool

	// LastNotifiedAt is when the most recent failure notification fired.
	// nil if none has fired since start or since the last recovery.
	LastNotifiedAt *time.Time
}

// InitialState returns the optimistic start state: available, no episode open.
func InitialState() State {
	return State{Available: true}
}

// clone returns a copy that shares no memory with s.
func (s State) clone() State {
	if s.LastNotifiedAt != nil {
		t := *s.LastNotifiedAt
		s.LastNotifiedAt = &t
	}
	return s
}
