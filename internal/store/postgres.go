package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is a Backend storing documents in a single table.
type Postgres struct {
	Pool *pgxpool.Pool
}

// ParsePostgresURL validates a PostgreSQL connection URL.
func ParsePostgresURL(url string) (*pgxpool.Config, error) {
	if url == "" {
		return nil, fmt.Errorf("postgres URL is empty")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres URL: %w", err)
	}
	return cfg, nil
}

// NewPostgres connects to url, verifies the connection and creates the
// documents table if needed.
func NewPostgres(ctx context.Context, url string) (*Postgres, error) {
	cfg, err := ParsePostgresURL(url)
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = 4
	cfg.MinConns = 0
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS cadence_documents (
		id TEXT PRIMARY KEY,
		body BYTEA NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}

	return &Postgres{Pool: pool}, nil
}

func (p *Postgres) Get(ctx context.Context, id string) ([]byte, error) {
	var body []byte
	err := p.Pool.QueryRow(ctx,
		`SELECT body FROM cadence_documents WHERE id = $1`, id,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return body, nil
}

func (p *Postgres) Put(ctx context.Context, id string, doc []byte) error {
	_, err := p.Pool.Exec(ctx,
		`INSERT INTO cadence_documents (id, body, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
		id, doc,
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", id, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := p.Pool.Exec(ctx, `DELETE FROM cadence_documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := p.Pool.Query(ctx,
		`SELECT id FROM cadence_documents WHERE id LIKE $1 ESCAPE '\' ORDER BY id`,
		escapeLike(prefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	return ids, nil
}

// Close shuts down the connection pool.
func (p *Postgres) Close() error {
	p.Pool.Close()
	return nil
}

// HealthCheck verifies the database connection is alive.
func (p *Postgres) HealthCheck(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}

// escapeLike escapes LIKE wildcards using backslash.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
