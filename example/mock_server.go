package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// mockStore tracks whether the fake store is up and when it next flips.
type mockStore struct {
	mu           sync.Mutex
	up           bool
	nextChangeAt time.Time
}

// flapDelay returns the time until the next up/down flip (20-60 seconds).
func flapDelay() time.Duration {
	return time.Duration(20+rand.Intn(41)) * time.Second
}

// StartMockStore runs a fake data store ping endpoint that alternates between
// reachable and unreachable. Replies mimic a MongoDB ping: {"ok": 1} or
// {"ok": 0} with a 503.
// Call this in a goroutine before starting the monitor.
func StartMockStore(addr string) {
	store := &mockStore{up: true, nextChangeAt: time.Now().Add(flapDelay())}

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		// simulate small latency variance
		time.Sleep(time.Duration(5+rand.Intn(20)) * time.Millisecond)

		store.mu.Lock()
		if time.Now().After(store.nextChangeAt) {
			store.up = !store.up
			store.nextChangeAt = time.Now().Add(flapDelay())
			slog.Info("mock store flipped", "up", store.up)
		}
		up := store.up
		store.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		ok := 1
		if !up {
			ok = 0
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(map[string]int{"ok": ok}); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock store error", "error", err)
	}
}
