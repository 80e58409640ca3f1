package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	// DefaultInterval is the time between two probe ticks.
	DefaultInterval = 500 * time.Millisecond

	// eventBuffer sizes the events channel. A flapping store emits two
	// events per flap; when the consumer falls this far behind, new events
	// are dropped rather than stalling the poll loop.
	eventBuffer = 16
)

// Scheduler drives [Core.Tick] on a fixed interval.
//
// Ticks run on a single goroutine and are never re-entered: if a probe call
// outlasts the interval, the ticks that elapse meanwhile are dropped, not
// queued. Transition events are emitted on [Scheduler.Events]; the poll loop
// never waits for them to be read.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	core     *Core
	interval time.Duration
	clock    clock.Clock
	events   chan Event
	logger   *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once
}

// NewScheduler creates a new [Scheduler] for core.
//
// Parameters:
//   - core: The state machine to tick
//   - interval: Time between ticks (defaults to 500ms if not positive)
//   - clk: Time source for the ticker (wall clock if nil)
//   - logger: Logger for lifecycle events
//
// The scheduler must be started with [Scheduler.Start] and stopped with
// [Scheduler.Stop].
func NewScheduler(core *Core, interval time.Duration, clk clock.Clock, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		core:     core,
		interval: interval,
		clock:    clk,
		events:   make(chan Event, eventBuffer),
		logger:   logger,
	}
}

// Events returns a receive-only channel of transition events.
//
// The channel is closed when the scheduler stops.
func (s *Scheduler) Events() <-chan Event {
	return s.events
}

// Interval returns the tick interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start begins the poll loop in a background goroutine.
//
// The first tick runs immediately, then one per interval until [Scheduler.Stop]
// is called or ctx is cancelled. If ctx is nil, context.Background() is used.
// Start is idempotent; if Stop was called before Start, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	pollCtx := s.ctx // capture under lock to avoid race
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.closeOnce.Do(func() { close(s.events) })

		s.logger.Debug("poll loop started", "interval", s.interval.String())

		if !s.tick(pollCtx) {
			return
		}

		ticker := s.clock.Ticker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				if !s.tick(pollCtx) {
					return
				}
			}
		}
	}()
}

// Stop halts the poll loop and waits for it to exit.
//
// An in-flight probe is cancelled through its context. Stop closes the
// events channel, is idempotent, and is safe to call before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	// ensure channel is closed even if Start() was never called
	s.closeOnce.Do(func() { close(s.events) })
}

// tick runs one probe and forwards its event without blocking. It reports
// false once ctx is done.
func (s *Scheduler) tick(ctx context.Context) bool {
	ev, ok := s.core.Tick(ctx)
	if !ok {
		return ctx.Err() == nil
	}

	select {
	case s.events <- ev:
	default:
		s.core.metrics.IncEventDropped()
		s.logger.Warn("event consumer behind, event dropped",
			"event", ev.Kind.String(),
			"at", ev.At,
		)
	}
	return ctx.Err() == nil
}
