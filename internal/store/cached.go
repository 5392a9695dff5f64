package store

import (
	"context"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nbyapp/nbyapp/internal/app"
)

// CachedStore is a read-through LRU cache in front of another store
type CachedStore struct {
	next  Store
	cache *lru.Cache[string, app.Record]
}

// NewCachedStore wraps next with a cache of size entries
func NewCachedStore(next Store, size int) (*CachedStore, error) {
	cache, err := lru.New[string, app.Record](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{next: next, cache: cache}, nil
}

// Save writes through and caches the record
func (c *CachedStore) Save(ctx context.Context, rec app.Record) (app.Record, error) {
	saved, err := c.next.Save(ctx, rec)
	if err != nil {
		return saved, err
	}
	c.cache.Add(saved.ID, saved.Clone())
	return saved, nil
}

// GetByID serves from cache when possible
func (c *CachedStore) GetByID(ctx context.Context, id string) (app.Record, error) {
	if rec, ok := c.cache.Get(id); ok {
		return rec.Clone(), nil
	}
	rec, err := c.next.GetByID(ctx, id)
	if err != nil {
		return rec, err
	}
	c.cache.Add(id, rec.Clone())
	return rec, nil
}

// GetAll always reads the underlying store
func (c *CachedStore) GetAll(ctx context.Context) ([]app.Record, error) {
	return c.next.GetAll(ctx)
}

// DeleteByID evicts the entry and deletes it from the underlying store
func (c *CachedStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	c.cache.Remove(id)
	ok, err := c.next.DeleteByID(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return false, err
	}
	return ok, nil
}

// Close purges the cache and closes the underlying store
func (c *CachedStore) Close() error {
	c.cache.Purge()
	return c.next.Close()
}
