package tabstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// storeFactories lets every backend run the same contract tests.
func storeFactories(t *testing.T) map[string]func(scope string) Store {
	t.Helper()
	dir := t.TempDir()
	factories := map[string]func(scope string) Store{
		"memory": func(string) Store {
			return NewMemoryStore(MemoryStoreConfig{CleanupInterval: time.Second})
		},
		"file": func(scope string) Store {
			s, err := NewFileStore(dir, scope, zap.NewNop())
			require.NoError(t, err)
			return s
		},
	}
	if client := setupTestRedis(t); client != nil {
		factories["redis"] = func(scope string) Store {
			s, err := NewRedisStore(client, scope+"-"+t.Name())
			require.NoError(t, err)
			return s
		}
	}
	return factories
}

// setupTestRedis returns nil when REDIS_ADDR is not set or Redis is unreachable.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Logf("Redis at %s not reachable, skipping redis store: %v", addr, err)
		client.Close()
		return nil
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestStore_SetGetRemove(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore("tab-a")
			ctx := context.Background()

			_, ok, err := s.Get(ctx, KeyToken)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, KeyToken, "tok", 0))
			require.NoError(t, s.Set(ctx, KeyUser, `{"email":"a@example.com"}`, 0))

			v, ok, err := s.Get(ctx, KeyToken)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "tok", v)

			require.NoError(t, s.Remove(ctx, KeyToken, KeyUser, KeyRefreshing))
			_, ok, _ = s.Get(ctx, KeyToken)
			assert.False(t, ok)
			_, ok, _ = s.Get(ctx, KeyUser)
			assert.False(t, ok)

			// Removing what is not there is fine.
			require.NoError(t, s.Remove(ctx, KeyToken))
		})
	}
}

func TestStore_ScopesAreIsolated(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		if name == "memory" {
			// Each MemoryStore is its own scope by construction.
			continue
		}
		t.Run(name, func(t *testing.T) {
			a := newStore("tab-a")
			b := newStore("tab-b")
			ctx := context.Background()

			require.NoError(t, a.Set(ctx, KeyToken, "a-token", 0))
			_, ok, err := b.Get(ctx, KeyToken)
			require.NoError(t, err)
			assert.False(t, ok)
			require.NoError(t, a.Remove(ctx, KeyToken))
		})
	}
}

func TestStore_EntriesExpire(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore("tab-ttl")
			ctx := context.Background()

			require.NoError(t, s.Set(ctx, KeyToken, "short-lived", 50*time.Millisecond))
			assert.Eventually(t, func() bool {
				_, ok, err := s.Get(ctx, KeyToken)
				return err == nil && !ok
			}, 2*time.Second, 20*time.Millisecond)
		})
	}
}

func TestStore_EmptyKey(t *testing.T) {
	for name, newStore := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore("tab-empty")
			assert.ErrorIs(t, s.Set(context.Background(), "", "v", 0), ErrEmptyKey)
			_, _, err := s.Get(context.Background(), "")
			assert.ErrorIs(t, err, ErrEmptyKey)
		})
	}
}

func TestFileStore_SurvivesNewInstance(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileStore(dir, "Terminal 1", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, KeyToken, "persisted", 0))
	assert.Equal(t, filepath.Join(dir, "terminal-1.json"), first.Path())

	second, err := NewFileStore(dir, "Terminal 1", zap.NewNop())
	require.NoError(t, err)
	v, ok, err := second.Get(ctx, KeyToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", v)
}

func TestFileStore_CorruptFileReadsAsEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, "corrupt", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{{{"), 0o600))

	_, ok, err := s.Get(context.Background(), KeyUser)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_RemovesFileWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s, err := NewFileStore(dir, "cleanup", zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, KeyToken, "t", 0))
	require.FileExists(t, s.Path())
	require.NoError(t, s.Remove(ctx, KeyToken))
	assert.NoFileExists(t, s.Path())
}

func TestNewFileStore_RejectsBadInput(t *testing.T) {
	_, err := NewFileStore("", "scope", zap.NewNop())
	assert.Error(t, err)
	_, err = NewFileStore(t.TempDir(), "???", zap.NewNop())
	assert.Error(t, err)
}

func TestLifecycle_CloseWipesSession(t *testing.T) {
	s := NewMemoryStore(MemoryStoreConfig{})
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, KeyToken, "t", 0))
	require.NoError(t, s.Set(ctx, KeyUser, "u", 0))

	wiped, err := NewLifecycle(s).Unload(ctx)
	require.NoError(t, err)
	assert.True(t, wiped)
	_, ok, _ := s.Get(ctx, KeyToken)
	assert.False(t, ok)
}

func TestLifecycle_ReloadKeepsSession(t *testing.T) {
	s := NewMemoryStore(MemoryStoreConfig{})
	ctx := context.Background()
	lc := NewLifecycle(s)
	require.NoError(t, s.Set(ctx, KeyToken, "t", 0))

	require.NoError(t, lc.BeforeUnload(ctx))
	wiped, err := lc.Unload(ctx)
	require.NoError(t, err)
	assert.False(t, wiped)
	require.NoError(t, lc.Load(ctx))

	v, ok, _ := s.Get(ctx, KeyToken)
	assert.True(t, ok)
	assert.Equal(t, "t", v)
	_, ok, _ = s.Get(ctx, KeyRefreshing)
	assert.False(t, ok, "marker is cleared after load")

	// The next unload without a reload marker is a close.
	wiped, err = lc.Unload(ctx)
	require.NoError(t, err)
	assert.True(t, wiped)
}
