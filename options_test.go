package storewatch

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

// upProbe always reports the store as reachable.
var upProbe = ProbeFunc(func(ctx context.Context) error { return nil })

func TestNew_Valid(t *testing.T) {
	m, err := New(WithProbe(upProbe))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if m == nil {
		t.Fatal("New() returned nil monitor")
	}
}

func TestNew_NoProbe(t *testing.T) {
	_, err := New()
	if err == nil {
		t.Fatal("New() expected error for missing probe, got nil")
	}
	if !strings.Contains(err.Error(), "probe is required") {
		t.Errorf("New() error = %v, want error containing 'probe is required'", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	m, err := New(WithProbe(upProbe))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if m.PollInterval() != 500*time.Millisecond {
		t.Errorf("PollInterval() = %v, want %v", m.PollInterval(), 500*time.Millisecond)
	}
	if m.DebounceWindow() != 5*time.Minute {
		t.Errorf("DebounceWindow() = %v, want %v", m.DebounceWindow(), 5*time.Minute)
	}
	if m.Port() != 9999 {
		t.Errorf("Port() = %v, want %v", m.Port(), 9999)
	}
	if len(m.notifiers) != 1 {
		t.Errorf("default notifiers = %d, want 1 (log)", len(m.notifiers))
	}
	if !m.startupCheck {
		t.Error("startup check should be enabled by default")
	}
	if m.notifyQueue != 16 {
		t.Errorf("notifyQueue = %d, want 16", m.notifyQueue)
	}
	if m.Addr() != nil {
		t.Error("Addr() should be nil before Start")
	}
}

func TestWithProbe_Nil(t *testing.T) {
	if _, err := New(WithProbe(nil)); err == nil {
		t.Error("New() expected error for nil probe, got nil")
	}
}

func TestDurationOptions_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"zero poll interval", WithPollInterval(0)},
		{"negative poll interval", WithPollInterval(-time.Second)},
		{"zero debounce window", WithDebounceWindow(0)},
		{"negative debounce window", WithDebounceWindow(-time.Minute)},
		{"zero probe timeout", WithProbeTimeout(0)},
		{"negative notify timeout", WithNotifyTimeout(-time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(WithProbe(upProbe), tt.opt); err == nil {
				t.Error("New() expected error, got nil")
			}
		})
	}
}

func TestDurationOptions(t *testing.T) {
	m, err := New(
		WithProbe(upProbe),
		WithPollInterval(2*time.Second),
		WithDebounceWindow(time.Minute),
		WithProbeTimeout(300*time.Millisecond),
		WithNotifyTimeout(time.Second),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if m.PollInterval() != 2*time.Second {
		t.Errorf("PollInterval() = %v", m.PollInterval())
	}
	if m.DebounceWindow() != time.Minute {
		t.Errorf("DebounceWindow() = %v", m.DebounceWindow())
	}
	if m.probeTimeout != 300*time.Millisecond {
		t.Errorf("probeTimeout = %v", m.probeTimeout)
	}
	if m.notifyTimeout != time.Second {
		t.Errorf("notifyTimeout = %v", m.notifyTimeout)
	}
}

func TestWithPort(t *testing.T) {
	tests := []struct {
		port    int
		wantErr bool
	}{
		{0, false},
		{1, false},
		{9999, false},
		{65535, false},
		{-1, true},
		{65536, true},
	}

	for _, tt := range tests {
		m, err := New(WithProbe(upProbe), WithPort(tt.port))
		if (err != nil) != tt.wantErr {
			t.Errorf("WithPort(%d) error = %v, wantErr %v", tt.port, err, tt.wantErr)
			continue
		}
		if err == nil && m.Port() != tt.port {
			t.Errorf("Port() = %d, want %d", m.Port(), tt.port)
		}
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	m, err := New(WithProbe(upProbe), WithLogger(logger))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if m.logger != logger {
		t.Error("WithLogger() did not set logger")
	}
}

func TestWithLogger_Nil(t *testing.T) {
	if _, err := New(WithProbe(upProbe), WithLogger(nil)); err == nil {
		t.Error("New() expected error for nil logger, got nil")
	}
}

func TestWithLogger_DefaultsToSlogDefault(t *testing.T) {
	m, err := New(WithProbe(upProbe))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if m.logger != slog.Default() {
		t.Error("logger should default to slog.Default()")
	}
}

func TestWithNotifier(t *testing.T) {
	n1 := NotifierFunc(func(ctx context.Context, ev Event) error { return nil })
	n2 := NotifierFunc(func(ctx context.Context, ev Event) error { return nil })

	m, err := New(
		WithProbe(upProbe),
		WithNotifier(n1),
		WithNotifier(nil), // ignored
		WithNotifiers(n2, nil),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// configured notifiers replace the default log sink
	if len(m.notifiers) != 2 {
		t.Errorf("notifiers = %d, want 2", len(m.notifiers))
	}
}

func TestWithClock(t *testing.T) {
	mock := clock.NewMock()
	m, err := New(WithProbe(upProbe), WithClock(mock))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if m.clock != mock {
		t.Error("WithClock() did not set clock")
	}

	if _, err := New(WithProbe(upProbe), WithClock(nil)); err == nil {
		t.Error("New() expected error for nil clock, got nil")
	}
}

func TestWithStartupCheck(t *testing.T) {
	m, err := New(WithProbe(upProbe), WithStartupCheck(false))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if m.startupCheck {
		t.Error("WithStartupCheck(false) did not disable the check")
	}
}

func TestWithSubscriberBuffer(t *testing.T) {
	m, err := New(WithProbe(upProbe), WithSubscriberBuffer(4))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if m.subscriberBuffer != 4 {
		t.Errorf("subscriberBuffer = %d, want 4", m.subscriberBuffer)
	}

	if _, err := New(WithProbe(upProbe), WithSubscriberBuffer(0)); err == nil {
		t.Error("New() expected error for zero buffer, got nil")
	}
}

func TestWithTitle(t *testing.T) {
	m, err := New(WithProbe(upProbe), WithTitle("Orders DB"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if m.title != "Orders DB" {
		t.Errorf("title = %q, want %q", m.title, "Orders DB")
	}
}

func TestWithNotifyQueue(t *testing.T) {
	m, err := New(WithProbe(upProbe), WithNotifyQueue(2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if m.notifyQueue != 2 {
		t.Errorf("notifyQueue = %d, want 2", m.notifyQueue)
	}

	if _, err := New(WithProbe(upProbe), WithNotifyQueue(0)); err == nil {
		t.Error("New() expected error for zero queue, got nil")
	}
}
