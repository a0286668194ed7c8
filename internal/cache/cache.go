// Package cache implements the URL-keyed response cache behind a uniform
// Store interface, with in-memory and SQLite-file backends.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/alvarolinarescabre/href-counter/internal/config"
)

// Store is the response cache contract. Entries expire after the
// configured TTL; expired entries are treated as absent.
type Store interface {
	// Get returns the cached body for key, reporting whether a live
	// entry was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put stores body under key, stamping it with the current time.
	Put(ctx context.Context, key string, body []byte) error
	// Close releases backend resources. Safe to call more than once.
	Close() error
}

// New selects and constructs the backend named by cfg. The choice is made
// once here; callers only ever see the Store contract.
func New(cfg config.CacheConfig) (Store, error) {
	expire := time.Duration(cfg.ExpireSeconds) * time.Second
	switch cfg.Backend {
	case config.CacheBackendMemory:
		return NewMemory(cfg.Capacity, expire), nil
	case config.CacheBackendSQLite:
		store, err := NewSQLite(cfg.DBPath, expire)
		if err != nil {
			return nil, fmt.Errorf("open sqlite cache: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
