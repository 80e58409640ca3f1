package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestScheduler_StopBeforeStart verifies that calling Stop() on a scheduler
// that was never started does not panic and closes the events channel.
func TestScheduler_StopBeforeStart(t *testing.T) {
	s := NewScheduler(newTestCore(&switchProbe{}, nil), time.Minute, nil, testLogger())

	s.Stop()

	select {
	case _, ok := <-s.Events():
		if ok {
			t.Error("expected events channel to be closed")
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for events channel to close")
	}
}

// TestScheduler_StopTwice verifies that Stop() is idempotent.
func TestScheduler_StopTwice(t *testing.T) {
	s := NewScheduler(newTestCore(&switchProbe{}, nil), time.Minute, nil, testLogger())
	s.Start(context.Background())

	s.Stop()
	s.Stop()
}

// TestScheduler_StartTwice verifies that a second Start does not spawn a
// second poll loop.
func TestScheduler_StartTwice(t *testing.T) {
	var calls atomic.Int32
	core := newTestCore(probeFunc(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}), nil)

	s := NewScheduler(core, time.Hour, nil, testLogger())
	s.Start(context.Background())
	s.Start(context.Background())

	time.Sleep(50 * time.Millisecond)
	s.Stop()

	// only the immediate tick of a single loop should have run
	if got := calls.Load(); got != 1 {
		t.Errorf("probe calls = %d, want 1", got)
	}
}

// TestScheduler_ConcurrentStartStop verifies that calling Start() and Stop()
// concurrently does not race. Run with: go test -race ./internal/monitor/...
func TestScheduler_ConcurrentStartStop(t *testing.T) {
	for i := 0; i < 100; i++ {
		s := NewScheduler(newTestCore(&switchProbe{}, nil), time.Minute, nil, testLogger())

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Start(context.Background())
		}()
		go func() {
			defer wg.Done()
			s.Stop()
		}()
		wg.Wait()

		s.Stop()
		for range s.Events() {
		}
	}
}

func TestScheduler_EmitsTransitions(t *testing.T) {
	p := &switchProbe{down: true}
	s := NewScheduler(newTestCore(p, nil), 10*time.Millisecond, nil, testLogger())
	s.Start(context.Background())
	defer s.Stop()

	select {
	case ev := <-s.Events():
		if ev.Kind != KindFailure {
			t.Fatalf("first event = %v, want failure", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("no failure event emitted")
	}

	p.set(false)

	select {
	case ev := <-s.Events():
		if ev.Kind != KindRecovery {
			t.Fatalf("second event = %v, want recovery", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("no recovery event emitted")
	}
}

// TestScheduler_UnreadEventsDoNotStallLoop flaps the store with nobody
// reading Events and checks the loop keeps probing after the buffer fills.
func TestScheduler_UnreadEventsDoNotStallLoop(t *testing.T) {
	var calls atomic.Int32
	// up, down, up, down...: every flap after the first emits two events
	core := newTestCore(probeFunc(func(ctx context.Context) error {
		if calls.Add(1)%2 == 0 {
			return errRefused
		}
		return nil
	}), nil)

	s := NewScheduler(core, 2*time.Millisecond, nil, testLogger())
	s.Start(context.Background())
	defer s.Stop()

	const want = 8 * eventBuffer
	deadline := time.Now().Add(3 * time.Second)
	for calls.Load() < want {
		if time.Now().After(deadline) {
			t.Fatalf("poll loop stalled after %d probe calls, want at least %d", calls.Load(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if got := len(s.Events()); got != eventBuffer {
		t.Errorf("queued events = %d, want a full buffer of %d", got, eventBuffer)
	}
}

// TestScheduler_NeverReentrant verifies a slow probe is never run
// concurrently with itself.
func TestScheduler_NeverReentrant(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	core := newTestCore(probeFunc(func(ctx context.Context) error {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond) // 6x the interval
		inFlight.Add(-1)
		return nil
	}), nil)

	s := NewScheduler(core, 5*time.Millisecond, nil, testLogger())
	s.Start(context.Background())
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if got := maxInFlight.Load(); got != 1 {
		t.Errorf("max concurrent probes = %d, want 1", got)
	}
}

func TestScheduler_ContextCancelStopsLoop(t *testing.T) {
	var calls atomic.Int32
	core := newTestCore(probeFunc(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(core, 5*time.Millisecond, nil, testLogger())
	s.Start(ctx)

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case _, ok := <-s.Events():
		if ok {
			t.Fatal("unexpected event from healthy probe")
		}
	case <-time.After(time.Second):
		t.Fatal("events channel not closed after context cancellation")
	}

	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	if calls.Load() != after {
		t.Error("probe still running after context cancellation")
	}
}

func TestNewScheduler_DefaultInterval(t *testing.T) {
	s := NewScheduler(newTestCore(&switchProbe{}, nil), 0, nil, nil)
	if s.Interval() != DefaultInterval {
		t.Errorf("Interval() = %v, want %v", s.Interval(), DefaultInterval)
	}
}
