// Standalone mock data store for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/storewatch serve -c example/config.yaml
//
// Toggle the store by hand with:
//
//	curl -X POST localhost:8081/down
//	curl -X POST localhost:8081/up
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
)

func main() {
	fmt.Println("Mock data store starting on :8081")
	fmt.Println("GET /ping answers {\"ok\": 1} while up, 503 {\"ok\": 0} while down")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var down atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		ok := 1
		if down.Load() {
			ok = 0
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"ok": ok})
	})
	mux.HandleFunc("POST /down", func(w http.ResponseWriter, r *http.Request) {
		down.Store(true)
		slog.Info("store marked down")
	})
	mux.HandleFunc("POST /up", func(w http.ResponseWriter, r *http.Request) {
		down.Store(false)
		slog.Info("store marked up")
	})

	if err := http.ListenAndServe(":8081", mux); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
