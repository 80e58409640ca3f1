package probe

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresMaxConns keeps the probe's footprint on the monitored server small.
const postgresMaxConns = 2

// Postgres checks a PostgreSQL server with a ping over a small pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a [Postgres] probe for dsn.
//
// The pool connects lazily; no connection is attempted until the first
// Check. Returns an error if dsn cannot be parsed.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	// PgBouncer in transaction pooling mode rejects prepared statements.
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	cfg.MaxConns = postgresMaxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Check pings the server.
func (p *Postgres) Check(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping: %w", err)
	}
	return nil
}

// Close releases all pooled connections.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
