package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"tools.zach/dev/nvimcord/internal/atomicfile"
)

// Store gives the presence manager uncached access to the config file.
type Store struct {
	path string
	// mu serializes read-modify-write cycles of SetEnabled.
	mu sync.Mutex
}

// NewStore returns a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the config file path.
func (s *Store) Path() string { return s.path }

// Get loads the file afresh on every call.
func (s *Store) Get() (*Config, error) {
	return Load(s.path)
}

// SetEnabled persists the enabled flag. An existing file is edited in place
// so user comments survive; a missing file is created from the defaults.
func (s *Store) SetEnabled(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		cfg.Enabled = enabled
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		return cfg.Save(s.path)
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	out, err := SetEnabledBytes(data, enabled)
	if err != nil {
		return err
	}
	return atomicfile.Write(s.path, out, 0o644)
}
