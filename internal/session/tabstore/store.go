// Package tabstore holds the per-tab key/value storage behind a session.
//
// A Store is bound to exactly one tab scope. Nothing written to it is visible
// from another scope.
package tabstore

import (
	"context"
	"errors"
	"time"
)

// Keys written by the session manager and the lifecycle hooks.
const (
	KeyUser       = "user"
	KeyToken      = "token"
	KeyRefreshing = "isRefreshing"
)

// ErrEmptyKey is returned when a caller passes an empty key.
var ErrEmptyKey = errors.New("tabstore: key cannot be empty")

// Store is tab-scoped string storage. A ttl of zero means the entry lives
// until it is removed or the scope is cleared.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Remove(ctx context.Context, keys ...string) error
}

// Lifecycle implements the close-versus-reload heuristic for a tab.
// It is best effort; token expiry is what actually decides session validity.
type Lifecycle struct {
	store Store
}

func NewLifecycle(store Store) *Lifecycle {
	return &Lifecycle{store: store}
}

// BeforeUnload marks the tab as reloading.
func (l *Lifecycle) BeforeUnload(ctx context.Context) error {
	return l.store.Set(ctx, KeyRefreshing, "true", 0)
}

// Unload wipes the session unless the tab is only reloading.
// It reports whether the session was wiped.
func (l *Lifecycle) Unload(ctx context.Context) (bool, error) {
	_, reloading, err := l.store.Get(ctx, KeyRefreshing)
	if err != nil {
		return false, err
	}
	if reloading {
		return false, nil
	}
	if err := l.store.Remove(ctx, KeyUser, KeyToken); err != nil {
		return false, err
	}
	return true, nil
}

// Load clears the reload marker once the tab is up again.
func (l *Lifecycle) Load(ctx context.Context) error {
	return l.store.Remove(ctx, KeyRefreshing)
}
