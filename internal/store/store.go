package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/nbyapp/nbyapp/internal/app"
)

// ErrNotFound is returned by GetByID when no record has the id
var ErrNotFound = errors.New("app not found")

// Store persists generated app records by id
type Store interface {
	// Save appends rec to the collection and returns it
	Save(ctx context.Context, rec app.Record) (app.Record, error)
	// GetByID returns ErrNotFound when id is unknown
	GetByID(ctx context.Context, id string) (app.Record, error)
	// GetAll returns every record in no particular order
	GetAll(ctx context.Context) ([]app.Record, error)
	// DeleteByID reports whether a record existed and was removed
	DeleteByID(ctx context.Context, id string) (bool, error)
	Close() error
}

// PersistenceError reports that the storage medium failed
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ErrorKind names the category shown in generation status
func (e *PersistenceError) ErrorKind() string {
	return "persistence"
}

// Config selects and tunes the storage backend
type Config struct {
	Driver    string // memory, sqlite or postgres
	DSN       string
	CacheSize int
}

// Open builds the store described by cfg, wrapped in an LRU cache when CacheSize > 0
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", DriverMemory:
		s = NewMemoryStore()
	case DriverSQLite, DriverPostgres:
		s, err = OpenSQL(ctx, cfg.Driver, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		return NewCachedStore(s, cfg.CacheSize)
	}
	return s, nil
}
