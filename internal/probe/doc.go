// Package probe provides connectivity checks for the data stores storewatch
// can monitor.
//
// Each probe exposes Check(ctx) error, where nil means the store answered.
// Any failure (timeout, refused connection, protocol error, unhealthy
// response) is reported as a non-nil error; the monitor treats them all as
// "unavailable".
//
// The main components are:
//
//   - [Postgres]: Pings a PostgreSQL server through a pgx connection pool
//   - [Redis]: Sends PING to a Redis server
//   - [HTTP]: Fetches a health endpoint and classifies the response
//
// Users of the storewatch library construct probes through the root package
// (storewatch.PostgresProbe, storewatch.RedisProbe, storewatch.HTTPProbe).
package probe
