// Package status renders the monitor state into the message shown to
// observers and status-query clients.
package status

import (
	"fmt"
	"time"

	"github.com/jpalmerr/storewatch/internal/monitor"
)

// HealthyText is the constant message for an available store.
const HealthyText = "All systems up"

// Message is the rendered status pushed to subscribers and returned by the
// status query endpoint. It is derived from a [monitor.State] and never stored.
type Message struct {
	// Healthy is true while the last probe succeeded.
	Healthy bool `json:"healthy"`

	// Elapsed is the time since the last reported failure. Zero when healthy.
	Elapsed time.Duration `json:"-"`

	// ElapsedSeconds mirrors Elapsed for JSON clients.
	ElapsedSeconds int64 `json:"elapsed_seconds,omitempty"`

	// Since is the human-readable form of Elapsed, e.g. "2 minutes ago".
	Since string `json:"since,omitempty"`

	// Text is the full display line.
	Text string `json:"text"`

	// RenderedAt is the time the message was computed.
	RenderedAt time.Time `json:"rendered_at"`
}

// Render computes the [Message] for state at now.
//
// The elapsed time is measured from LastNotifiedAt, the last reported
// failure, not from the start of the episode.
func Render(state monitor.State, now time.Time) Message {
	if state.Available {
		return Message{
			Healthy:    true,
			Text:       HealthyText,
			RenderedAt: now,
		}
	}

	var elapsed time.Duration
	if state.LastNotifiedAt != nil {
		elapsed = now.Sub(*state.LastNotifiedAt)
	}
	if elapsed < 0 {
		elapsed = 0
	}

	since := FormatElapsed(elapsed)
	return Message{
		Healthy:        false,
		Elapsed:        elapsed,
		ElapsedSeconds: int64(elapsed / time.Second),
		Since:          since,
		Text:           "Data store unavailable. Last failure reported " + since,
		RenderedAt:     now,
	}
}

// RenderEvent computes the [Message] announcing ev, as of now.
//
// It renders the state the transition produced rather than the live state,
// so a message built after the monitor has moved on still describes ev.
func RenderEvent(ev monitor.Event, now time.Time) Message {
	if ev.Kind == monitor.KindRecovery {
		return Render(monitor.InitialState(), now)
	}
	at := ev.At
	return Render(monitor.State{StateChanged: true, LastNotifiedAt: &at}, now)
}

// FormatElapsed buckets d into seconds (<1m), minutes (<1h) or hours,
// truncating within each bucket. Units are always plural: 4000s renders as
// "1 hours ago".
func FormatElapsed(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds ago", int64(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int64(d/time.Minute))
	default:
		return fmt.Sprintf("%d hours ago", int64(d/time.Hour))
	}
}
