package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Backend.Get and Backend.Delete for unknown ids.
var ErrNotFound = errors.New("document not found")

// Backend stores opaque documents by id. Implementations must be safe for
// use from multiple goroutines.
type Backend interface {
	// Get returns the document stored under id, or ErrNotFound.
	Get(ctx context.Context, id string) ([]byte, error)

	// Put creates or replaces the document stored under id.
	Put(ctx context.Context, id string, doc []byte) error

	// Delete removes the document stored under id, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// List returns the ids starting with prefix in ascending order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Close releases the backend's resources.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Open creates the named backend. dsn is a file path for sqlite and a URL
// for redis and postgres; it is ignored for memory.
func Open(ctx context.Context, backend, dsn string) (Backend, error) {
	switch strings.ToLower(backend) {
	case "", BackendSQLite:
		return OpenSQLite(dsn)
	case BackendRedis:
		return NewRedis(ctx, dsn)
	case BackendPostgres, "postgresql":
		return NewPostgres(ctx, dsn)
	case BackendMemory:
		return NewMemory(), nil
	}
	return nil, &UnknownBackendError{Name: backend}
}

// UnknownBackendError is returned by Open for an unsupported backend name.
type UnknownBackendError struct {
	Name string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown store backend %q (want sqlite, redis, postgres or memory)", e.Name)
}
