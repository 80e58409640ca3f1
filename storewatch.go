package storewatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/jpalmerr/storewatch/dashboard"
	"github.com/jpalmerr/storewatch/internal/metrics"
	"github.com/jpalmerr/storewatch/internal/monitor"
	"github.com/jpalmerr/storewatch/internal/registry"
	"github.com/jpalmerr/storewatch/internal/server"
	"github.com/jpalmerr/storewatch/internal/status"
)

const (
	defaultPollInterval   = monitor.DefaultInterval
	defaultDebounceWindow = monitor.DefaultDebounceWindow
	defaultProbeTimeout   = monitor.DefaultProbeTimeout
	defaultNotifyTimeout  = 10 * time.Second
	defaultPort           = 9999

	// sinkShutdownGrace bounds how long Start waits for notifiers that
	// ignore cancellation.
	sinkShutdownGrace = 2 * time.Second
)

// Monitor is the main orchestrator for store polling, notification and
// status serving.
//
// Monitor probes the store on a fixed interval, classifies availability
// transitions, debounces failure notifications, delivers events to every
// [Notifier], and pushes status messages to live subscribers. It is created
// using [New] with functional options and started with [Monitor.Start].
//
// The typical lifecycle is:
//
//	p, _ := storewatch.PostgresProbe(ctx, dsn)
//	m, err := storewatch.New(storewatch.WithProbe(p))
//	if err != nil {
//	    slog.Error("failed to create monitor", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	if err := m.Start(ctx); err != nil { // blocks until context cancelled
//	    slog.Error("monitor failed", "error", err)
//	    os.Exit(1)
//	}
type Monitor struct {
	title            string
	probe            Probe
	pollInterval     time.Duration
	debounceWindow   time.Duration
	probeTimeout     time.Duration
	notifyTimeout    time.Duration
	notifyQueue      int
	port             int
	logger           *slog.Logger
	notifiers        []Notifier
	clock            clock.Clock
	startupCheck     bool
	subscriberBuffer int

	started atomic.Bool
	ready   chan struct{}

	mu   sync.RWMutex
	addr net.Addr
}

// New creates a new [Monitor] instance with the given options.
//
// A probe must be configured via [WithProbe]. Other options have defaults:
//   - Poll interval: 500 milliseconds
//   - Debounce window: 5 minutes
//   - Probe timeout: 2 seconds
//   - Port: 9999
//   - Notifiers: a [LogNotifier] on the configured logger
//   - Startup check: enabled
//
// Returns an error if no probe is configured or if any option is invalid.
func New(opts ...Option) (*Monitor, error) {
	cfg := &swConfig{
		pollInterval:     defaultPollInterval,
		debounceWindow:   defaultDebounceWindow,
		probeTimeout:     defaultProbeTimeout,
		notifyTimeout:    defaultNotifyTimeout,
		notifyQueue:      defaultNotifyQueue,
		port:             defaultPort,
		startupCheck:     true,
		subscriberBuffer: registry.DefaultBuffer,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.probe == nil {
		return nil, errors.New("a probe is required")
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	notifiers := cfg.notifiers
	if len(notifiers) == 0 {
		notifiers = []Notifier{LogNotifier(logger)}
	}

	clk := cfg.clock
	if clk == nil {
		clk = clock.New()
	}

	return &Monitor{
		title:            cfg.title,
		probe:            cfg.probe,
		pollInterval:     cfg.pollInterval,
		debounceWindow:   cfg.debounceWindow,
		probeTimeout:     cfg.probeTimeout,
		notifyTimeout:    cfg.notifyTimeout,
		notifyQueue:      cfg.notifyQueue,
		port:             cfg.port,
		logger:           logger,
		notifiers:        notifiers,
		clock:            clk,
		startupCheck:     cfg.startupCheck,
		subscriberBuffer: cfg.subscriberBuffer,
		ready:            make(chan struct{}),
	}, nil
}

// Start runs the monitor until ctx is cancelled.
//
// Start is a blocking call. In order it:
//
//   - probes the store once, failing with a [StartupError] if it is
//     unreachable (unless disabled with [WithStartupCheck])
//   - binds the status server, failing with a [StartupError] if the port
//     is unavailable
//   - polls the store immediately, then once per poll interval, delivering
//     transition events to the notifiers and live subscribers
//
// Each notifier is fed from its own queue (see [WithNotifyQueue]), so a slow
// or hung sink never delays polling, live subscribers or the other sinks.
//
// On cancellation the poll loop stops, in-flight notifier calls see their
// context cancelled, queued notifications are skipped, subscribers are
// disconnected, and the probe and notifiers are closed if they implement
// io.Closer. Start returns
// nil on graceful shutdown, or the combined close errors. A Monitor can be
// started only once.
func (m *Monitor) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return errors.New("monitor already started")
	}

	// check if context already cancelled
	if ctx.Err() != nil {
		return m.close()
	}

	m.logger.Info("storewatch starting",
		"poll_interval", m.pollInterval.String(),
		"debounce_window", m.debounceWindow.String(),
		"notifiers", len(m.notifiers),
	)

	met := metrics.New()
	core := monitor.NewCore(m.probe, monitor.Config{
		DebounceWindow: m.debounceWindow,
		ProbeTimeout:   m.probeTimeout,
		Clock:          m.clock,
		Logger:         m.logger,
		Metrics:        met,
	})

	if m.startupCheck {
		if err := core.Check(ctx); err != nil {
			return multierr.Append(&StartupError{Stage: StageConnect, Err: err}, m.close())
		}
		m.logger.Info("data store reachable")
	}

	source := coreSource{core}
	reg := registry.New(
		source.Current,
		registry.WithBuffer(m.subscriberBuffer),
		registry.WithLogger(m.logger),
		registry.WithMetrics(met),
	)
	defer reg.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpServer := server.NewServer(source, reg, m.port, dashboard.Assets, m.title, met, m.logger)
	if err := httpServer.Start(runCtx); err != nil {
		return multierr.Append(&StartupError{Stage: StageListen, Err: err}, m.close())
	}

	m.mu.Lock()
	m.addr = httpServer.Addr()
	m.mu.Unlock()
	close(m.ready)

	m.logger.Info("status server listening", "url", fmt.Sprintf("http://localhost:%d", tcpPort(httpServer.Addr())))

	scheduler := monitor.NewScheduler(core, m.pollInterval, m.clock, m.logger)

	g, gctx := errgroup.WithContext(runCtx)
	sinks := m.startSinks(gctx, met)
	scheduler.Start(gctx)

	// consumer exits once Stop closes the events channel
	g.Go(func() error {
		for ev := range scheduler.Events() {
			m.dispatch(gctx, ev, core, reg, sinks, met)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})

	_ = g.Wait()
	m.waitSinks(sinks, min(m.notifyTimeout, sinkShutdownGrace))
	reg.Close()

	err := m.close()
	m.logger.Info("storewatch stopped")
	return err
}

// Ready returns a channel closed once the status server is listening.
func (m *Monitor) Ready() <-chan struct{} {
	return m.ready
}

// Addr returns the status server's listen address, or nil before it is
// listening.
func (m *Monitor) Addr() net.Addr {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.addr
}

// Port returns the configured HTTP port for the status server.
func (m *Monitor) Port() int {
	return m.port
}

// PollInterval returns the configured interval between connectivity checks.
func (m *Monitor) PollInterval() time.Duration {
	return m.pollInterval
}

// DebounceWindow returns the configured minimum spacing of failure notifications.
func (m *Monitor) DebounceWindow() time.Duration {
	return m.debounceWindow
}

// dispatch announces ev to live subscribers, then queues it for each sink.
// Neither step blocks.
func (m *Monitor) dispatch(ctx context.Context, ev monitor.Event, core *monitor.Core, reg *registry.Registry, sinks []*sink, met *metrics.Metrics) {
	msg := status.RenderEvent(ev, core.Now())
	reg.Broadcast(registry.TopicStatus, msg)

	public := toPublicEvent(ev, msg.Text)
	for _, s := range sinks {
		if ctx.Err() != nil {
			m.skipOne(s, public, met)
			continue
		}
		m.enqueue(s, public, met)
	}
}

// notify calls a notifier with a timeout and panic recovery.
// Panics are logged with a correlation ID but do not propagate.
func (m *Monitor) notify(ctx context.Context, n Notifier, ev Event, met *metrics.Metrics) {
	nctx, cancel := context.WithTimeout(ctx, m.notifyTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			met.IncNotifierError()
			m.logger.Error("notifier panicked",
				"correlation_id", uuid.NewString(),
				"event", ev.Kind.String(),
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()

	if err := n.Notify(nctx, ev); err != nil {
		met.IncNotifierError()
		m.logger.Warn("notifier failed", "event", ev.Kind.String(), "error", err)
	}
}

// close releases the probe and every notifier that holds resources.
func (m *Monitor) close() error {
	var err error
	if c, ok := m.probe.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}
	for _, n := range m.notifiers {
		if c, ok := n.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	if err != nil {
		m.logger.Warn("shutdown incomplete", "error", err)
	}
	return err
}

// Check probes p once, bounded by timeout, and reports whether the store is
// reachable. Panics in p are recovered and returned as errors.
func Check(ctx context.Context, p Probe, timeout time.Duration) error {
	if p == nil {
		return errors.New("probe cannot be nil")
	}
	core := monitor.NewCore(p, monitor.Config{
		ProbeTimeout: timeout,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return core.Check(ctx)
}

// coreSource adapts a core to the server's status source.
type coreSource struct {
	core *monitor.Core
}

func (s coreSource) Current() status.Message {
	return status.Render(s.core.Snapshot(), s.core.Now())
}

func tcpPort(addr net.Addr) int {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}
