package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStoreGetReadsFreshEachCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	s := NewStore(path)

	cfg, err := s.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !cfg.Enabled {
		t.Fatal("defaults should be enabled")
	}

	writeFile(t, path, "version = 1\nenabled = false\n")
	cfg, err = s.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cfg.Enabled {
		t.Error("Get returned a stale config")
	}
}

func TestStoreSetEnabledCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	s := NewStore(path)

	if err := s.SetEnabled(false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	cfg, err := s.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cfg.Enabled {
		t.Error("Enabled = true after SetEnabled(false)")
	}
	if cfg.ID != DefaultClientID {
		t.Errorf("ID = %q, want default", cfg.ID)
	}
}

func TestStoreSetEnabledKeepsComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "# my settings\nversion = 1\nenabled = false\nid = \"123\"\n")
	s := NewStore(path)

	if err := s.SetEnabled(true); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# my settings\n") {
		t.Errorf("comment lost: %q", data)
	}
	cfg, err := s.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !cfg.Enabled || cfg.ID != "123" {
		t.Errorf("got enabled=%v id=%q, want true/123", cfg.Enabled, cfg.ID)
	}
}

func TestStorePath(t *testing.T) {
	if got := NewStore("/x/config.toml").Path(); got != "/x/config.toml" {
		t.Errorf("Path = %q", got)
	}
}
