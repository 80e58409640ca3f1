package storewatch

import (
	"time"

	"github.com/jpalmerr/storewatch/internal/monitor"
)

// EventKind identifies a state transition of the monitored store.
//
// EventKind is a string type for readable logs and JSON payloads.
type EventKind string

const (
	// EventFailure reports that the store is unavailable. While the outage
	// lasts it is repeated at most once per debounce window.
	EventFailure EventKind = "failure"

	// EventRecovery reports that the store became available again after a
	// failure. It is emitted once per outage.
	EventRecovery EventKind = "recovery"
)

// String returns the string representation of the kind.
func (k EventKind) String() string {
	return string(k)
}

// Event is a transition delivered to every [Notifier].
type Event struct {
	// Kind is [EventFailure] or [EventRecovery].
	Kind EventKind

	// Err is the probe failure that triggered a failure event. It unwraps to
	// the probe's own error. nil for recoveries.
	Err error

	// At is the tick time at which the transition was observed.
	At time.Time

	// Message is the status line observers see for this transition, e.g.
	// "Data store unavailable. Last failure reported 0 seconds ago".
	Message string
}

// toPublicEvent converts a core event, attaching the rendered status line.
func toPublicEvent(ev monitor.Event, message string) Event {
	out := Event{
		At:      ev.At,
		Message: message,
	}
	switch ev.Kind {
	case monitor.KindFailure:
		out.Kind = EventFailure
	case monitor.KindRecovery:
		out.Kind = EventRecovery
	}
	// avoid a typed nil in the error interface
	if ev.Err != nil {
		out.Err = ev.Err
	}
	return out
}
