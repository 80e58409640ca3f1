package storewatch

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/jpalmerr/storewatch/internal/probe"
)

// Probe is a single connectivity attempt against the monitored data store.
//
// Check returns nil when the store is reachable. Any error means the store is
// unavailable; timeouts, refused connections and protocol errors are treated
// alike. Check is called from one goroutine at a time and is bounded by the
// probe timeout (see [WithProbeTimeout]).
//
// A Probe that also implements io.Closer is closed when the monitor stops.
type Probe interface {
	Check(ctx context.Context) error
}

// ProbeFunc adapts an ordinary function to the [Probe] interface.
type ProbeFunc func(ctx context.Context) error

// Check calls f(ctx).
func (f ProbeFunc) Check(ctx context.Context) error {
	return f(ctx)
}

// Classifier decides whether an HTTP health response means the store is up.
// It returns nil for a healthy response.
type Classifier = probe.Classifier

// HTTPProbeOption configures an HTTP health-endpoint probe.
type HTTPProbeOption = probe.HTTPOption

// Built-in classifiers for [HTTPProbe].
var (
	// StatusCodeClassifier treats any 2xx response as healthy.
	StatusCodeClassifier Classifier = probe.StatusCodeClassifier

	// JSONFieldClassifier reads a dot-notation field from a JSON body, e.g.
	// "ok" for a MongoDB-style {"ok": 1} ping reply.
	JSONFieldClassifier = probe.JSONFieldClassifier

	// ContainsClassifier requires a 2xx response whose body contains text.
	ContainsClassifier = probe.ContainsClassifier
)

// HTTP probe options.
var (
	WithProbeMethod     = probe.WithMethod
	WithProbeHeaders    = probe.WithHeaders
	WithProbeClassifier = probe.WithClassifier
)

// PostgresProbe returns a [Probe] that pings a PostgreSQL server through a
// small pgx connection pool. The pool is created lazily; an unreachable
// server is reported by Check, not here. Returns an error for a malformed DSN.
//
// Example:
//
//	p, err := storewatch.PostgresProbe(ctx, "postgres://monitor@db:5432/app")
func PostgresProbe(ctx context.Context, dsn string) (Probe, error) {
	p, err := probe.NewPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// RedisProbe returns a [Probe] that sends PING to the Redis server at url
// (redis:// or rediss://). Returns an error for a malformed URL.
func RedisProbe(url string) (Probe, error) {
	p, err := probe.NewRedis(url)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// RedisProbeFromClient returns a [Probe] that sends PING through an existing
// client, such as a cluster or sentinel client the caller already built.
// Closing the probe closes the client.
func RedisProbeFromClient(client redis.UniversalClient) Probe {
	return probe.NewRedisFromClient(client)
}

// HTTPProbe returns a [Probe] that requests a health endpoint and classifies
// the response. Without options it sends GET and accepts any 2xx status.
//
// Example:
//
//	p := storewatch.HTTPProbe("http://db-proxy:8080/ping",
//	    storewatch.WithProbeClassifier(storewatch.JSONFieldClassifier("ok")),
//	)
func HTTPProbe(url string, opts ...HTTPProbeOption) Probe {
	return probe.NewHTTP(url, opts...)
}
