package probe

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis checks a Redis server with PING.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis creates a [Redis] probe from a redis:// or rediss:// URL.
// The client connects lazily on the first Check.
func NewRedis(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	// one attempt per tick; the poll interval is the retry mechanism
	opts.MaxRetries = -1
	return &Redis{client: redis.NewClient(opts)}, nil
}

// NewRedisFromClient wraps an existing client, e.g. a cluster or sentinel
// client built by the caller.
func NewRedisFromClient(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// Check sends PING and expects PONG.
func (r *Redis) Check(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
