package storewatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/redis/go-redis/v9"

	"github.com/jpalmerr/storewatch/internal/monitor"
)

func failureEvent() Event {
	return Event{
		Kind:    EventFailure,
		Err:     &monitor.ProbeError{Err: errRefused},
		At:      time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Message: "Data store unavailable. Last failure reported 0 seconds ago",
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))

	if err := n.Notify(context.Background(), failureEvent()); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if err := n.Notify(context.Background(), Event{Kind: EventRecovery, Message: "All systems up"}); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"level=WARN", "event=failure", "connection refused", "level=INFO", "event=recovery", "All systems up"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestNotifierFunc(t *testing.T) {
	var got Event
	n := NotifierFunc(func(ctx context.Context, ev Event) error {
		got = ev
		return nil
	})

	_ = n.Notify(context.Background(), failureEvent())
	if got.Kind != EventFailure {
		t.Errorf("Kind = %v, want failure", got.Kind)
	}
}

func TestWebhookNotifier(t *testing.T) {
	var (
		mu      sync.Mutex
		payload webhookPayload
		header  http.Header
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		header = r.Header.Clone()
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	n := NewWebhookNotifier(ts.URL, map[string]string{"Authorization": "Bearer secret"})
	defer func() { _ = n.Close() }()

	if err := n.Notify(context.Background(), failureEvent()); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if payload.Event != "failure" {
		t.Errorf("event = %q, want failure", payload.Event)
	}
	if !strings.HasPrefix(payload.Message, "Data store unavailable") {
		t.Errorf("message = %q", payload.Message)
	}
	if !strings.Contains(payload.Error, "connection refused") {
		t.Errorf("error = %q", payload.Error)
	}
	if header.Get("Authorization") != "Bearer secret" {
		t.Errorf("Authorization = %q", header.Get("Authorization"))
	}
	if header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", header.Get("Content-Type"))
	}
}

func TestWebhookNotifier_Non2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	n := NewWebhookNotifier(ts.URL, nil)
	err := n.Notify(context.Background(), failureEvent())
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("Notify() error = %v, want status 502", err)
	}
}

func TestWebhookNotifier_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer ts.Close()
	// runs before ts.Close so the handler is never left holding the server open
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	n := NewWebhookNotifier(ts.URL, nil)
	if err := n.Notify(ctx, failureEvent()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Notify() error = %v, want deadline exceeded", err)
	}
}

func TestRedisProbeFromClient_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})

	p := RedisProbeFromClient(client)
	if err := Check(context.Background(), p, time.Second); err == nil {
		t.Error("Check() against a closed port should fail")
	}

	c, ok := p.(io.Closer)
	if !ok {
		t.Fatalf("%T does not implement io.Closer", p)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNewTelegramNotifier_Validation(t *testing.T) {
	if _, err := NewTelegramNotifier("", 42); err == nil {
		t.Error("expected error for empty token")
	}
	if _, err := NewTelegramNotifier("123:abc", 0); err == nil {
		t.Error("expected error for zero chat id")
	}
}

func TestTelegramNotifier(t *testing.T) {
	var (
		mu   sync.Mutex
		path string
		body string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		path = r.URL.Path
		body = string(raw)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`))
	}))
	defer ts.Close()

	n, err := NewTelegramNotifier("123:abc", 42, bot.WithServerURL(ts.URL))
	if err != nil {
		t.Fatalf("NewTelegramNotifier() error = %v", err)
	}

	if err := n.Notify(context.Background(), failureEvent()); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if path != "/bot123:abc/sendMessage" {
		t.Errorf("path = %q, want /bot123:abc/sendMessage", path)
	}
	if !strings.Contains(body, "Data store unavailable") || !strings.Contains(body, "connection refused") {
		t.Errorf("request body missing message text: %s", body)
	}
}

func TestTelegramNotifier_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer ts.Close()

	n, err := NewTelegramNotifier("123:abc", 42, bot.WithServerURL(ts.URL))
	if err != nil {
		t.Fatalf("NewTelegramNotifier() error = %v", err)
	}

	if err := n.Notify(context.Background(), failureEvent()); err == nil {
		t.Error("Notify() error = nil, want API error")
	}
}

func TestToPublicEvent(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	recovery := toPublicEvent(monitor.Event{Kind: monitor.KindRecovery, At: at}, "All systems up")
	if recovery.Kind != EventRecovery || recovery.Err != nil || !recovery.At.Equal(at) {
		t.Errorf("recovery = %+v", recovery)
	}

	perr := &monitor.ProbeError{At: at, Err: errRefused}
	failure := toPublicEvent(monitor.Event{Kind: monitor.KindFailure, Err: perr, At: at}, "down")
	if failure.Kind != EventFailure || !errors.Is(failure.Err, errRefused) || failure.Message != "down" {
		t.Errorf("failure = %+v", failure)
	}
}

func TestStartupError(t *testing.T) {
	err := &StartupError{Stage: StageConnect, Err: errRefused}
	if !errors.Is(err, errRefused) {
		t.Error("StartupError should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "unreachable at startup") {
		t.Errorf("Error() = %q", err.Error())
	}

	listen := &StartupError{Stage: StageListen, Err: errors.New("address in use")}
	if !strings.Contains(listen.Error(), "cannot start status server") {
		t.Errorf("Error() = %q", listen.Error())
	}
}

func TestCheck(t *testing.T) {
	if err := Check(context.Background(), upProbe, time.Second); err != nil {
		t.Errorf("Check() error = %v", err)
	}

	down := ProbeFunc(func(ctx context.Context) error { return errRefused })
	if err := Check(context.Background(), down, time.Second); !errors.Is(err, errRefused) {
		t.Errorf("Check() error = %v, want errRefused", err)
	}

	slow := ProbeFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err := Check(context.Background(), slow, 20*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Check() error = %v, want deadline exceeded", err)
	}

	if err := Check(context.Background(), nil, time.Second); err == nil {
		t.Error("Check() with nil probe should fail")
	}
}
