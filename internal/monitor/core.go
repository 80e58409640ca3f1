package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/jpalmerr/storewatch/internal/metrics"
)

const (
	// DefaultDebounceWindow is the minimum spacing between failure notifications.
	DefaultDebounceWindow = 5 * time.Minute

	// DefaultProbeTimeout bounds a single connectivity check.
	DefaultProbeTimeout = 2 * time.Second
)

// Probe is a single connectivity attempt against the monitored store.
// A nil error means the store is available.
type Probe interface {
	Check(ctx context.Context) error
}

// Config holds the tunables for a [Core]. Zero values select defaults.
type Config struct {
	// DebounceWindow is the minimum time between two failure events.
	DebounceWindow time.Duration

	// ProbeTimeout bounds each probe call. Negative disables the bound.
	ProbeTimeout time.Duration

	// Clock is the time source. Defaults to the wall clock.
	Clock clock.Clock

	// Logger receives tick diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Core is the availability state machine.
//
// [Core.Tick] must only be called from one goroutine at a time (the
// [Scheduler] guarantees this). [Core.Snapshot] is safe from any goroutine.
type Core struct {
	probe   Probe
	window  time.Duration
	timeout time.Duration
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu    sync.RWMutex
	state State
}

// NewCore creates a [Core] in the optimistic initial state.
func NewCore(probe Probe, cfg Config) *Core {
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = DefaultDebounceWindow
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Core{
		probe:   probe,
		window:  cfg.DebounceWindow,
		timeout: cfg.ProbeTimeout,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		state:   InitialState(),
	}
}

// Now returns the current time on the core's clock.
func (c *Core) Now() time.Time {
	return c.clock.Now()
}

// DebounceWindow returns the configured failure notification spacing.
func (c *Core) DebounceWindow() time.Duration {
	return c.window
}

// Snapshot returns a copy of the current state.
func (c *Core) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.clone()
}

// Tick runs one probe and applies the outcome to the state.
//
// It returns the transition event and true when a notification should fire:
// a recovery closing an episode, or a failure outside the debounce window.
// Probe errors are absorbed here; Tick never fails.
//
// If ctx is cancelled while the probe runs, the outcome is discarded: a
// shutdown is not a connectivity verdict.
func (c *Core) Tick(ctx context.Context) (Event, bool) {
	start := c.clock.Now()
	correlationID, err := c.check(ctx)
	now := c.clock.Now()
	elapsed := now.Sub(start)

	if err != nil && ctx.Err() != nil {
		c.metrics.ObserveTick(metrics.ResultCanceled, elapsed)
		c.logger.Debug("probe interrupted by shutdown", "error", err)
		return Event{}, false
	}

	if err == nil {
		c.metrics.ObserveTick(metrics.ResultUp, elapsed)
		return c.succeeded(now)
	}

	if correlationID != "" {
		c.metrics.ObserveTick(metrics.ResultPanic, elapsed)
	} else {
		c.metrics.ObserveTick(metrics.ResultDown, elapsed)
	}
	return c.failed(&ProbeError{At: now, Err: err, CorrelationID: correlationID})
}

func (c *Core) succeeded(now time.Time) (Event, bool) {
	c.mu.Lock()
	c.state.Available = true
	if !c.state.StateChanged {
		c.mu.Unlock()
		c.metrics.SetAvailable(true)
		return Event{}, false
	}
	c.state.StateChanged = false
	c.state.LastNotifiedAt = nil
	c.mu.Unlock()

	c.metrics.SetAvailable(true)
	c.metrics.IncNotification(KindRecovery.String())
	c.logger.Info("store available again")
	return Event{Kind: KindRecovery, At: now}, true
}

func (c *Core) failed(perr *ProbeError) (Event, bool) {
	now := perr.At

	c.mu.Lock()
	c.state.Available = false
	c.state.StateChanged = true
	last := c.state.LastNotifiedAt
	valid := last == nil || !now.Before(last.Add(c.window))
	if valid {
		c.state.LastNotifiedAt = &now
	}
	c.mu.Unlock()

	c.metrics.SetAvailable(false)

	if !valid {
		c.metrics.IncSuppressed()
		c.logger.Debug("store still unavailable, notification suppressed",
			"error", perr.Err,
			"next_eligible_at", last.Add(c.window),
		)
		return Event{}, false
	}

	c.metrics.IncNotification(KindFailure.String())
	c.logger.Warn("store unavailable", "error", perr.Err)
	return Event{Kind: KindFailure, Err: perr, At: now}, true
}

// Check runs the probe once with the configured timeout and panic recovery.
// The state is left untouched.
func (c *Core) Check(ctx context.Context) error {
	_, err := c.check(ctx)
	return err
}

// check calls the probe with a timeout and panic recovery.
// If the probe panics, the stack is logged with a correlation ID and the
// returned error wraps [ErrProbePanic].
func (c *Core) check(ctx context.Context) (correlationID string, err error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			correlationID = uuid.NewString()
			c.logger.Error("probe panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%w: %v", ErrProbePanic, r)
		}
	}()

	return "", c.probe.Check(ctx)
}
