package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"gopkg.in/square/go-jose.v2"
)

// JWKSCache keeps fetched JSON Web Key Sets keyed by URL.
type JWKSCache struct {
	mu         sync.Mutex
	cache      *cache.Cache
	httpClient *http.Client
}

// JWKSCacheConfig holds the configuration for the JWKSCache.
type JWKSCacheConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
	HTTPClient      *http.Client
}

// NewJWKSCache creates a key set cache.
func NewJWKSCache(cfg JWKSCacheConfig) *JWKSCache {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 2 * cfg.TTL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &JWKSCache{
		cache:      cache.New(cfg.TTL, cfg.CleanupInterval),
		httpClient: hc,
	}
}

// Get returns the key set at url, fetching it when absent, expired or when
// refresh is set. Concurrent misses share one fetch.
func (c *JWKSCache) Get(ctx context.Context, url string, refresh bool) (*jose.JSONWebKeySet, error) {
	if !refresh {
		if v, found := c.cache.Get(url); found {
			return v.(*jose.JSONWebKeySet), nil
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !refresh {
		if v, found := c.cache.Get(url); found {
			return v.(*jose.JSONWebKeySet), nil
		}
	}

	jwks, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(url, jwks)
	return jwks, nil
}

func (c *JWKSCache) fetch(ctx context.Context, url string) (*jose.JSONWebKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build jwks request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch public keys from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("failed to fetch public keys: status %s, body: %s", resp.Status, string(bodyBytes))
	}

	var jwks jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("failed to decode public keys JSON: %w", err)
	}
	return &jwks, nil
}
