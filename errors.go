package storewatch

import "fmt"

// Startup stages reported by [StartupError].
const (
	StageConnect = "connect"
	StageListen  = "listen"
)

// StartupError is returned by [Monitor.Start] when the monitor cannot begin
// running: the store is unreachable at boot, or the HTTP listener cannot
// bind. The CLI exits non-zero on it.
//
// Failures after startup are never returned; they become state transitions.
type StartupError struct {
	// Stage is [StageConnect] or [StageListen].
	Stage string
	Err   error
}

func (e *StartupError) Error() string {
	switch e.Stage {
	case StageConnect:
		return fmt.Sprintf("data store unreachable at startup: %v", e.Err)
	case StageListen:
		return fmt.Sprintf("cannot start status server: %v", e.Err)
	default:
		return fmt.Sprintf("startup failed: %v", e.Err)
	}
}

func (e *StartupError) Unwrap() error {
	return e.Err
}
