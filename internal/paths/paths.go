// Package paths centralizes file and directory names used across the project.
// All data directory file names are defined here as the single source of truth.
package paths

import (
	"os"
	"path/filepath"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	ConfigFile = "config.toml"
	LogFile    = "nvimcord.log"
)

// Install and build constants.
const (
	BinaryName = "nvimcord"
	DataDirRel = ".nvimcord" // relative to $HOME

	// DataDirEnv overrides the data directory when set, so the Lua shim can
	// point the RPC job at a per-profile directory.
	DataDirEnv = "NVIMCORD_DATA_DIR"
)

// Remote-fetched file paths (relative to repo root).
const (
	LanguagesDataPath = "data/languages.json"
	ReleaseManifest   = ".release-manifest.json"
)

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// Config returns the full path to the config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// DefaultRoot returns the data directory used when no flag is given:
// $NVIMCORD_DATA_DIR if set, otherwise ~/.nvimcord. Falls back to
// ./.nvimcord when the home directory cannot be determined.
func DefaultRoot() string {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", DataDirRel)
	}
	return filepath.Join(home, DataDirRel)
}
