package storewatch

import (
	"errors"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

// swConfig holds mutable state during Monitor construction.
type swConfig struct {
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
}

// Option is a function that configures a [Monitor] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*swConfig) error

// WithProbe sets the connectivity check for the monitored store. Required.
//
// Example:
//
//	p, _ := storewatch.RedisProbe("redis://cache:6379/0")
//	m, err := storewatch.New(storewatch.WithProbe(p))
//
// Returns an error if p is nil.
func WithProbe(p Probe) Option {
	return func(cfg *swConfig) error {
		if p == nil {
			return errors.New("probe cannot be nil")
		}
		cfg.probe = p
		return nil
	}
}

// WithPollInterval sets the time between connectivity checks.
// Defaults to 500 milliseconds.
//
// Returns an error if the duration is zero or negative.
func WithPollInterval(d time.Duration) Option {
	return func(cfg *swConfig) error {
		if d <= 0 {
			return errors.New("poll interval must be positive")
		}
		cfg.pollInterval = d
		return nil
	}
}

// WithDebounceWindow sets the minimum time between two failure
// notifications during one outage. Defaults to 5 minutes.
//
// Returns an error if the duration is zero or negative.
func WithDebounceWindow(d time.Duration) Option {
	return func(cfg *swConfig) error {
		if d <= 0 {
			return errors.New("debounce window must be positive")
		}
		cfg.debounceWindow = d
		return nil
	}
}

// WithProbeTimeout bounds a single connectivity check. A check that outlives
// it counts as a failure. Defaults to 2 seconds.
//
// Returns an error if the duration is zero or negative.
func WithProbeTimeout(d time.Duration) Option {
	return func(cfg *swConfig) error {
		if d <= 0 {
			return errors.New("probe timeout must be positive")
		}
		cfg.probeTimeout = d
		return nil
	}
}

// WithNotifyTimeout bounds a single [Notifier] call. Defaults to 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithNotifyTimeout(d time.Duration) Option {
	return func(cfg *swConfig) error {
		if d <= 0 {
			return errors.New("notify timeout must be positive")
		}
		cfg.notifyTimeout = d
		return nil
	}
}

// WithNotifyQueue sets how many events may wait for a single [Notifier]
// while it is busy. Further events for that notifier are dropped and counted
// until it catches up. Defaults to 16.
//
// Returns an error if n is less than 1.
func WithNotifyQueue(n int) Option {
	return func(cfg *swConfig) error {
		if n < 1 {
			return errors.New("notify queue must be at least 1")
		}
		cfg.notifyQueue = n
		return nil
	}
}

// WithPort sets the HTTP port for the status server.
//
// Status, subscriptions and the dashboard are served at
// http://localhost:<port>. Defaults to 9999. Port 0 selects a free port;
// see [Monitor.Addr].
//
// Returns an error if the port is outside 0-65535.
func WithPort(port int) Option {
	return func(cfg *swConfig) error {
		if port < 0 || port > 65535 {
			return errors.New("port must be between 0 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Monitor instance.
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *swConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithNotifier adds a notification sink.
//
// Can be called multiple times. Each sink is fed from its own queue (see
// [WithNotifyQueue]), so a slow sink does not delay the others.
// When no notifier is configured, a [LogNotifier] on the monitor's logger is
// used. Nil notifiers are silently ignored.
func WithNotifier(n Notifier) Option {
	return func(cfg *swConfig) error {
		if n == nil {
			return nil
		}
		cfg.notifiers = append(cfg.notifiers, n)
		return nil
	}
}

// WithNotifiers adds several notification sinks at once.
// Equivalent to calling [WithNotifier] for each.
func WithNotifiers(ns ...Notifier) Option {
	return func(cfg *swConfig) error {
		for _, n := range ns {
			if n != nil {
				cfg.notifiers = append(cfg.notifiers, n)
			}
		}
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and header.
// If not specified, defaults to "storewatch".
func WithTitle(title string) Option {
	return func(cfg *swConfig) error {
		cfg.title = title
		return nil
	}
}

// WithClock replaces the wall clock used for ticks and debounce arithmetic.
// Intended for tests, with clock.NewMock.
//
// Returns an error if c is nil.
func WithClock(c clock.Clock) Option {
	return func(cfg *swConfig) error {
		if c == nil {
			return errors.New("clock cannot be nil")
		}
		cfg.clock = c
		return nil
	}
}

// WithStartupCheck controls whether [Monitor.Start] probes the store once
// before serving and fails with a [StartupError] if it is unreachable.
// Enabled by default.
func WithStartupCheck(enabled bool) Option {
	return func(cfg *swConfig) error {
		cfg.startupCheck = enabled
		return nil
	}
}

// WithSubscriberBuffer sets how many status messages a live subscriber may
// have pending before it is dropped as too slow. Defaults to 16.
//
// Returns an error if n is less than 1.
func WithSubscriberBuffer(n int) Option {
	return func(cfg *swConfig) error {
		if n < 1 {
			return errors.New("subscriber buffer must be at least 1")
		}
		cfg.subscriberBuffer = n
		return nil
	}
}
