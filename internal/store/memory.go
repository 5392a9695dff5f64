package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/nbyapp/nbyapp/internal/app"
)

// MemoryStore keeps records in process memory
type MemoryStore struct {
	mu   sync.RWMutex
	apps map[string]app.Record
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{apps: make(map[string]app.Record)}
}

// Save stores a copy of rec
func (m *MemoryStore) Save(ctx context.Context, rec app.Record) (app.Record, error) {
	if rec.ID == "" {
		return app.Record{}, &PersistenceError{Op: "save", Err: fmt.Errorf("record id is required")}
	}
	m.mu.Lock()
	m.apps[rec.ID] = rec.Clone()
	m.mu.Unlock()
	return rec, nil
}

// GetByID retrieves a record by id
func (m *MemoryStore) GetByID(ctx context.Context, id string) (app.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.apps[id]
	if !ok {
		return app.Record{}, ErrNotFound
	}
	return rec.Clone(), nil
}

// GetAll returns all records
func (m *MemoryStore) GetAll(ctx context.Context) ([]app.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]app.Record, 0, len(m.apps))
	for _, rec := range m.apps {
		out = append(out, rec.Clone())
	}
	return out, nil
}

// DeleteByID removes a record
func (m *MemoryStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.apps[id]; !ok {
		return false, nil
	}
	delete(m.apps, id)
	return true, nil
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}
