package tabstore

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps a tab's entries in process memory. Entries with a ttl
// are evicted by go-cache once they expire.
type MemoryStore struct {
	cache *cache.Cache
}

// MemoryStoreConfig holds the configuration for the MemoryStore.
type MemoryStoreConfig struct {
	CleanupInterval time.Duration
}

// NewMemoryStore creates an empty in-memory tab store.
func NewMemoryStore(cfg MemoryStoreConfig) *MemoryStore {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	return &MemoryStore{cache: cache.New(cache.NoExpiration, cfg.CleanupInterval)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	v, found := s.cache.Get(key)
	if !found {
		return "", false, nil
	}
	str, ok := v.(string)
	if !ok {
		return "", false, nil
	}
	return str, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	s.cache.Set(key, value, ttl)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, keys ...string) error {
	for _, k := range keys {
		s.cache.Delete(k)
	}
	return nil
}
