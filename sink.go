package storewatch

import (
	"context"
	"fmt"
	"time"

	"github.com/jpalmerr/storewatch/internal/metrics"
)

// defaultNotifyQueue is the number of events a sink may fall behind by before
// new events are dropped for it.
const defaultNotifyQueue = 16

// sink delivers events to one [Notifier] from its own goroutine, so a slow
// sink holds up neither the poll loop, the broadcaster nor the other sinks.
type sink struct {
	notifier Notifier
	name     string
	queue    chan Event
	done     chan struct{}
}

// startSinks launches one delivery goroutine per notifier. They stop when
// ctx is cancelled; events still queued at that point are skipped.
func (m *Monitor) startSinks(ctx context.Context, met *metrics.Metrics) []*sink {
	sinks := make([]*sink, 0, len(m.notifiers))
	for _, n := range m.notifiers {
		s := &sink{
			notifier: n,
			name:     fmt.Sprintf("%T", n),
			queue:    make(chan Event, m.notifyQueue),
			done:     make(chan struct{}),
		}
		go m.runSink(ctx, s, met)
		sinks = append(sinks, s)
	}
	return sinks
}

// enqueue hands ev to the sink without blocking. A full queue drops ev.
func (m *Monitor) enqueue(s *sink, ev Event, met *metrics.Metrics) {
	select {
	case s.queue <- ev:
	default:
		met.IncNotificationDropped(metrics.DropQueueFull)
		m.logger.Warn("notifier queue full, event dropped",
			"notifier", s.name,
			"event", ev.Kind.String(),
		)
	}
}

func (m *Monitor) runSink(ctx context.Context, s *sink, met *metrics.Metrics) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			m.skipPending(s, met)
			return
		case ev := <-s.queue:
			// both cases may be ready at once; never start a delivery after shutdown
			if ctx.Err() != nil {
				m.skipOne(s, ev, met)
				m.skipPending(s, met)
				return
			}
			m.notify(ctx, s.notifier, ev, met)
		}
	}
}

// skipPending discards whatever is still queued for s.
func (m *Monitor) skipPending(s *sink, met *metrics.Metrics) {
	for {
		select {
		case ev := <-s.queue:
			m.skipOne(s, ev, met)
		default:
			return
		}
	}
}

func (m *Monitor) skipOne(s *sink, ev Event, met *metrics.Metrics) {
	met.IncNotificationDropped(metrics.DropShutdown)
	m.logger.Info("shutting down, notification skipped",
		"notifier", s.name,
		"event", ev.Kind.String(),
	)
}

// waitSinks waits for every sink goroutine to exit, giving up after grace.
// A notifier that ignores its context cannot hold shutdown open.
func (m *Monitor) waitSinks(sinks []*sink, grace time.Duration) {
	timer := time.NewTimer(grace)
	defer timer.Stop()

	for _, s := range sinks {
		select {
		case <-s.done:
		case <-timer.C:
			m.logger.Warn("notifier still running at shutdown, abandoning it",
				"notifier", s.name,
				"grace", grace.String(),
			)
			return
		}
	}
}
