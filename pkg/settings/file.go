package settings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is the interface for per-key settings storage backends.
//
// When the plugin runs under a real host, the host itself persists settings
// and a Store only mirrors them. In standalone and simulator runs there is
// no host, so a Store is the only place settings survive a restart.
type Store interface {
	// Get retrieves the settings for a key context.
	// Returns nil, nil if nothing is stored.
	Get(ctx context.Context, keyContext string) (*Settings, error)

	// Set stores the settings for a key context.
	Set(ctx context.Context, keyContext string, s Settings) error

	// Delete removes the settings for a key context.
	Delete(ctx context.Context, keyContext string) error
}

// FileStore is a file-based settings store.
// Each key context is stored as one JSON file in a config directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a new file-based settings store.
// If baseDir is empty, defaults to ~/.config/ipkey/keys/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".config", "ipkey", "keys")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create settings dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// settingsPath maps a key context to a file. Context tokens are opaque host
// strings, so they are hashed rather than trusted as filenames.
func (s *FileStore) settingsPath(keyContext string) string {
	sum := sha256.Sum256([]byte(keyContext))
	return filepath.Join(s.baseDir, hex.EncodeToString(sum[:8])+".json")
}

func (s *FileStore) Get(ctx context.Context, keyContext string) (*Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.settingsPath(keyContext)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	var stored Settings
	if err := json.Unmarshal(data, &stored); err != nil {
		// A corrupt file is treated as absent rather than fatal.
		os.Remove(path)
		return nil, nil
	}
	return &stored, nil
}

func (s *FileStore) Set(ctx context.Context, keyContext string, stored Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	path := s.settingsPath(keyContext)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, keyContext string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.settingsPath(keyContext)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove settings file: %w", err)
	}
	return nil
}

// Path returns the base directory for settings files.
func (s *FileStore) Path() string {
	return s.baseDir
}

var _ Store = (*FileStore)(nil)
