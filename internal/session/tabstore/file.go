package tabstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

type fileEntry struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// FileStore persists one tab scope as a JSON file under a base directory.
// The CLI uses it so a terminal session keeps its login across invocations.
type FileStore struct {
	mu      sync.Mutex
	path    string
	logger  *zap.Logger
	nowFunc func() time.Time
}

// NewFileStore creates a FileStore for scope inside storagePath.
// The scope is slugified into the file name.
func NewFileStore(storagePath, scope string, logger *zap.Logger) (*FileStore, error) {
	if storagePath == "" {
		return nil, fmt.Errorf("storage path cannot be empty")
	}
	name := slug.Make(scope)
	if name == "" {
		return nil, fmt.Errorf("tab scope %q does not produce a usable file name", scope)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(storagePath, 0o700); err != nil {
		logger.Error("Failed to create tab storage directory", zap.String("path", storagePath), zap.Error(err))
		return nil, fmt.Errorf("failed to create storage path %s: %w", storagePath, err)
	}
	s := &FileStore{
		path:    filepath.Join(storagePath, name+".json"),
		logger:  logger,
		nowFunc: time.Now,
	}
	logger.Debug("FileStore initialized", zap.String("path", s.path))
	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return "", false, err
	}
	e, ok := entries[key]
	if !ok {
		return "", false, nil
	}
	if !e.ExpiresAt.IsZero() && !s.nowFunc().Before(e.ExpiresAt) {
		delete(entries, key)
		if err := s.save(entries); err != nil {
			s.logger.Warn("Failed to drop expired tab entry", zap.String("key", key), zap.Error(err))
		}
		return "", false, nil
	}
	return e.Value, true, nil
}

func (s *FileStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	e := fileEntry{Value: value}
	if ttl > 0 {
		e.ExpiresAt = s.nowFunc().Add(ttl)
	}
	entries[key] = e
	return s.save(entries)
}

func (s *FileStore) Remove(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := entries[k]; ok {
			delete(entries, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if len(entries) == 0 {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete tab file %s: %w", s.path, err)
		}
		return nil
	}
	return s.save(entries)
}

func (s *FileStore) load() (map[string]fileEntry, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]fileEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tab file %s: %w", s.path, err)
	}
	entries := map[string]fileEntry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		// A corrupt file is treated as an empty tab.
		s.logger.Warn("Tab file is unreadable, starting empty", zap.String("path", s.path), zap.Error(err))
		return map[string]fileEntry{}, nil
	}
	return entries, nil
}

// save writes through a temp file and rename so readers never see a partial file.
func (s *FileStore) save(entries map[string]fileEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode tab file: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write tab file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace tab file %s: %w", s.path, err)
	}
	return nil
}
