package store

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// SQLite is the default Backend: one row per document in a local SQLite
// database, plus the transition event log.
type SQLite struct {
	db     *stdsql.DB
	drv    *entsql.Driver
	events *EventRepo
}

// OpenSQLite opens the SQLite database at dsn, applies the recommended
// pragmas and creates the tables.
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := stdsql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	drv := entsql.OpenDB(dialect.SQLite, db)
	ctx := context.Background()
	m, err := schema.NewMigrate(drv)
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	if err := m.Create(ctx, tables...); err != nil {
		drv.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	seq, err := newSequenceCounter(db)
	if err != nil {
		drv.Close()
		return nil, err
	}

	return &SQLite{
		db:     db,
		drv:    drv,
		events: &EventRepo{drv: drv, seq: seq},
	}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *SQLite) DB() *stdsql.DB {
	return s.db
}

// Events returns the transition event log stored in this database.
func (s *SQLite) Events() *EventRepo {
	return s.events
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.drv.Close()
}

func (s *SQLite) Get(ctx context.Context, id string) ([]byte, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select("body").
		From(entsql.Table(documentsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get %s: %w", id, err)
		}
		return nil, ErrNotFound
	}
	var body []byte
	if err := rows.Scan(&body); err != nil {
		return nil, fmt.Errorf("scan %s: %w", id, err)
	}
	return body, nil
}

func (s *SQLite) Put(ctx context.Context, id string, doc []byte) error {
	query, args := entsql.Dialect(dialect.SQLite).
		Insert(documentsTable.Name).
		Columns("id", "body", "updated_at").
		Values(id, doc, time.Now().UnixMilli()).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()

	var res stdsql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("put %s: %w", id, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	query, args := entsql.Dialect(dialect.SQLite).
		Delete(documentsTable.Name).
		Where(entsql.EQ("id", id)).
		Query()

	var res stdsql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) List(ctx context.Context, prefix string) ([]string, error) {
	b := entsql.Dialect(dialect.SQLite).
		Select("id").
		From(entsql.Table(documentsTable.Name)).
		OrderBy("id")
	if prefix != "" {
		b = b.Where(entsql.HasPrefix("id", prefix))
	}
	query, args := b.Query()

	rows := &entsql.Rows{}
	if err := s.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// applyPragmas configures SQLite for optimal single-user performance.
func applyPragmas(db *stdsql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. CADENCE_DB environment variable
// 2. $XDG_DATA_HOME/cadence/cadence.db
// 3. ~/.local/share/cadence/cadence.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("CADENCE_DB"); p != "" {
		return p, ensureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "cadence", "cadence.db")
	return p, ensureDir(p)
}

// ensureDir creates the parent directory of path if it doesn't exist.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
