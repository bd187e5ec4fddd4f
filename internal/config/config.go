// Package config loads, validates and saves the nvimcord configuration file.
//
// The file lives at ~/.nvimcord/config.toml. It is re-read on every update
// tick, so edits take effect without reconnecting. The only value nvimcord
// writes back is the top-level enabled flag.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"tools.zach/dev/nvimcord/internal/atomicfile"
	"tools.zach/dev/nvimcord/internal/migrate"
)

// DefaultClientID is the Discord application the bundled language icons are
// uploaded to.
const DefaultClientID = "383226320970055681"

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config is the top-level configuration.
type Config struct {
	// Version is the config schema version used for migrations.
	Version int `toml:"version"`
	// Enabled controls whether nvimcord logs in at all.
	Enabled bool `toml:"enabled"`
	// ID is the Discord application (client) ID used for login.
	ID string `toml:"id"`
	// HideStartupMessage suppresses the login and connected messages.
	HideStartupMessage bool `toml:"hide_startup_message"`
	// IgnoreWorkspaces holds regular expressions tested against the
	// workspace name. Any match prevents login.
	IgnoreWorkspaces []string `toml:"ignore_workspaces"`
	// Workspace controls how the workspace root is resolved.
	Workspace WorkspaceConfig `toml:"workspace"`
	// Display holds presence card settings.
	Display DisplayConfig `toml:"display"`
	// Privacy holds name hiding and path suppression settings.
	Privacy PrivacyConfig `toml:"privacy"`
	// Behavior holds idle settings.
	Behavior BehaviorConfig `toml:"behavior"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// WorkspaceConfig controls workspace root detection.
type WorkspaceConfig struct {
	// RootMarkers are file or directory names whose presence marks a
	// workspace root when walking up from the current buffer.
	RootMarkers []string `toml:"root_markers"`
}

// DisplayConfig holds presence card settings.
type DisplayConfig struct {
	// Details is the top line while a named buffer is active.
	Details string `toml:"details"`
	// DetailsIdle is the top line while idle.
	DetailsIdle string `toml:"details_idle"`
	// DetailsNoFile is the top line when the current buffer has no name.
	DetailsNoFile string `toml:"details_no_file"`
	// State is the bottom line.
	State string `toml:"state"`
	// StateNoWorkspace is the bottom line when no workspace is resolved.
	StateNoWorkspace string `toml:"state_no_workspace"`
	// StateIdle is the bottom line while idle.
	StateIdle string `toml:"state_idle"`
	// Assets holds image keys and tooltips.
	Assets AssetsConfig `toml:"assets"`
	// Buttons holds presence card buttons.
	Buttons ButtonsConfig `toml:"buttons"`
	// Timestamps holds elapsed timer settings.
	Timestamps TimestampsConfig `toml:"timestamps"`
}

// AssetsConfig holds Discord asset keys and tooltips.
type AssetsConfig struct {
	// LargeText is the large image tooltip template.
	LargeText string `toml:"large_text"`
	// IdleImage is the large image key shown while idle.
	IdleImage string `toml:"idle_image"`
	// IdleText is the large image tooltip while idle.
	IdleText string `toml:"idle_text"`
	// SmallImage is the small image key.
	SmallImage string `toml:"small_image"`
	// SmallText is the small image tooltip.
	SmallText string `toml:"small_text"`
	// ShowLanguageIcon uses the language icon as the large image. When false
	// the small image key is used instead.
	ShowLanguageIcon bool `toml:"show_language_icon"`
}

// ButtonsConfig holds presence card buttons.
type ButtonsConfig struct {
	// ShowRepoButton adds a button linking to the workspace's git origin.
	ShowRepoButton bool `toml:"show_repo_button"`
	// RepoButtonLabel is the label of the repository button.
	RepoButtonLabel string `toml:"repo_button_label"`
	// CustomButtonLabel is the label of an optional custom button.
	CustomButtonLabel string `toml:"custom_button_label,omitempty"`
	// CustomButtonURL is the URL of the optional custom button.
	CustomButtonURL string `toml:"custom_button_url,omitempty"`
}

// Timestamp modes.
const (
	TimestampWorkspace = "workspace"
	TimestampFile      = "file"
	TimestampNone      = "none"
)

// TimestampsConfig holds elapsed timer settings.
type TimestampsConfig struct {
	// Mode is one of "workspace", "file" or "none".
	Mode string `toml:"mode"`
}

// PrivacyOverride hides the workspace name for paths matching Pattern.
type PrivacyOverride struct {
	// Pattern is a doublestar glob matched against the workspace root path.
	Pattern string `toml:"pattern"`
	// HideWorkspaceName replaces the workspace name with HiddenText.
	HideWorkspaceName bool `toml:"hide_workspace_name"`
	// HiddenText is the replacement workspace name.
	HiddenText string `toml:"hidden_text"`
}

// PrivacyConfig holds name hiding and path suppression settings.
type PrivacyConfig struct {
	HideFileName        bool              `toml:"hide_file_name"`
	HiddenFileText      string            `toml:"hidden_file_text"`
	HideWorkspaceName   bool              `toml:"hide_workspace_name"`
	HiddenWorkspaceText string            `toml:"hidden_workspace_text"`
	Ignore              []string          `toml:"ignore"`
	Overrides           []PrivacyOverride `toml:"overrides"`
}

// Idle modes.
const (
	IdleModeText = "idle_text"
	IdleModeKeep = "keep"
)

// BehaviorConfig holds idle settings.
type BehaviorConfig struct {
	// IdleMinutes is how long the editor must be untouched before the card
	// switches to idle. Zero disables idle detection.
	IdleMinutes int `toml:"idle_minutes"`
	// IdleMode is "idle_text" (show the idle card) or "keep" (stop sending
	// updates and leave the last card in place).
	IdleMode string `toml:"idle_mode"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the log file size that triggers rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:            migrate.Config.CurrentVersion,
		Enabled:            true,
		ID:                 DefaultClientID,
		HideStartupMessage: false,
		IgnoreWorkspaces:   []string{},
		Workspace: WorkspaceConfig{
			RootMarkers: []string{".git", "go.mod", "package.json", "Cargo.toml", "pyproject.toml"},
		},
		Display: DisplayConfig{
			Details:          "Editing {file}",
			DetailsIdle:      "Idling",
			DetailsNoFile:    "Browsing files",
			State:            "Workspace: {workspace}",
			StateNoWorkspace: "No workspace",
			StateIdle:        "Away from keyboard",
			Assets: AssetsConfig{
				LargeText:        "Editing a {language} file",
				IdleImage:        "idle",
				IdleText:         "Idling",
				SmallImage:       "neovim",
				SmallText:        "Neovim",
				ShowLanguageIcon: true,
			},
			Buttons: ButtonsConfig{
				ShowRepoButton:  true,
				RepoButtonLabel: "View Repository",
			},
			Timestamps: TimestampsConfig{Mode: TimestampWorkspace},
		},
		Privacy: PrivacyConfig{
			HiddenFileText:      "a file",
			HiddenWorkspaceText: "a project",
			Ignore:              []string{},
		},
		Behavior: BehaviorConfig{
			IdleMinutes: 10,
			IdleMode:    IdleModeText,
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 5,
		},
	}
}

// ExampleConfig returns the Config rendered into config.default.toml. It
// fills in optional fields so the generated file shows them.
func ExampleConfig() *Config {
	cfg := DefaultConfig()
	cfg.Privacy.Overrides = []PrivacyOverride{{
		Pattern:           "**/work/**",
		HideWorkspaceName: true,
		HiddenText:        "a work project",
	}}
	return cfg
}

// ///////////////////////////////////////////////
// PeekVersion
// ///////////////////////////////////////////////

// PeekVersion reads the version field from raw TOML. A missing, zero or
// unparsable version reads as 1.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if _, err := toml.Decode(string(data), &v); err != nil || v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads the config file at path. A missing file yields DefaultConfig.
// Files at an older schema version are backed up to path+".bak", migrated
// and saved back.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	version := PeekVersion(data)
	if migrate.Config.IsNewer(version) {
		slog.Warn("config written by a newer nvimcord, reading it without migration",
			"path", path, "file_version", version, "supported_version", migrate.Config.CurrentVersion)
	}
	migrated := migrate.Config.NeedsMigration(version)
	if migrated {
		if err := atomicfile.Write(path+".bak", data, 0o644); err != nil {
			slog.Warn("failed to write config backup", "error", err)
		}
		if data, _, err = migrate.Config.Run(data, version); err != nil {
			return nil, fmt.Errorf("migrate config: %w", err)
		}
	}

	cfg := DefaultConfig()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		slog.Warn("unknown config keys", "path", path, "keys", fmt.Sprint(undecoded))
	}
	cfg.Version = migrate.Config.CurrentVersion

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if migrated {
		if err := cfg.Save(path); err != nil {
			slog.Warn("failed to save migrated config", "error", err)
		}
	}
	return cfg, nil
}

// Save writes the config to path as TOML with an atomic replace.
func (c *Config) Save(path string) error {
	return atomicfile.WriteFunc(path, 0o644, func(w io.Writer) error {
		if err := toml.NewEncoder(w).Encode(c); err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		return nil
	})
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks enum values, ranges and the syntax of every pattern.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("id must not be empty")
	}

	for _, expr := range c.IgnoreWorkspaces {
		if _, err := regexp.Compile(expr); err != nil {
			return fmt.Errorf("invalid ignore_workspaces pattern %q: %w", expr, err)
		}
	}

	switch c.Display.Timestamps.Mode {
	case TimestampWorkspace, TimestampFile, TimestampNone:
	default:
		return fmt.Errorf("invalid timestamps.mode %q: must be workspace, file, or none", c.Display.Timestamps.Mode)
	}

	switch c.Behavior.IdleMode {
	case IdleModeText, IdleModeKeep:
	default:
		return fmt.Errorf("invalid idle_mode %q: must be idle_text or keep", c.Behavior.IdleMode)
	}
	if c.Behavior.IdleMinutes < 0 {
		return fmt.Errorf("idle_minutes must be >= 0, got %d", c.Behavior.IdleMinutes)
	}

	for _, p := range c.Privacy.Ignore {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid privacy.ignore pattern %q", p)
		}
	}
	for _, o := range c.Privacy.Overrides {
		if !doublestar.ValidatePattern(o.Pattern) {
			return fmt.Errorf("invalid privacy.overrides pattern %q", o.Pattern)
		}
	}

	b := c.Display.Buttons
	if (b.CustomButtonLabel == "") != (b.CustomButtonURL == "") {
		return errors.New("custom_button_label and custom_button_url must be set together")
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}
	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}
	return nil
}

// ///////////////////////////////////////////////
// Workspace Filters
// ///////////////////////////////////////////////

// IsWorkspaceIgnored reports whether name matches any ignore_workspaces
// pattern. Patterns are unanchored and case-sensitive; invalid patterns are
// logged and skipped. An empty list never ignores.
func (c *Config) IsWorkspaceIgnored(name string) bool {
	for _, expr := range c.IgnoreWorkspaces {
		re, err := regexp.Compile(expr)
		if err != nil {
			slog.Warn("invalid ignore_workspaces pattern", "pattern", expr, "error", err)
			continue
		}
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// IsPathIgnored reports whether the workspace root path matches any
// privacy.ignore glob.
func (c *Config) IsPathIgnored(path string) bool {
	return matchAny(c.Privacy.Ignore, path)
}

// WorkspaceName returns the name to display for a workspace, applying
// per-path overrides before the global hide setting.
func (c *Config) WorkspaceName(name, path string) string {
	for _, o := range c.Privacy.Overrides {
		if o.HideWorkspaceName && matchAny([]string{o.Pattern}, path) {
			return o.HiddenText
		}
	}
	if c.Privacy.HideWorkspaceName {
		return c.Privacy.HiddenWorkspaceText
	}
	return name
}

// FileName returns the name to display for a file.
func (c *Config) FileName(name string) string {
	if c.Privacy.HideFileName {
		return c.Privacy.HiddenFileText
	}
	return name
}

// matchAny matches path against doublestar patterns. Both are compared in
// slash form so patterns work the same on Windows.
func matchAny(patterns []string, path string) bool {
	if path == "" {
		return false
	}
	path = toSlash(path)
	for _, p := range patterns {
		ok, err := doublestar.Match(p, path)
		if err != nil {
			slog.Warn("invalid glob pattern", "pattern", p, "error", err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// ///////////////////////////////////////////////
// Enabled Flag
// ///////////////////////////////////////////////

var (
	tableHeaderRe = regexp.MustCompile(`^\s*\[`)
	enabledKeyRe  = regexp.MustCompile(`^(\s*enabled\s*=\s*)(true|false)(.*)$`)
)

// SetEnabledBytes rewrites the top-level enabled key in raw TOML, keeping
// every other line (and comment) intact. The key is prepended when absent.
func SetEnabledBytes(data []byte, enabled bool) ([]byte, error) {
	value := fmt.Sprint(enabled)
	lines := bytes.Split(data, []byte("\n"))
	found := false
	for i, line := range lines {
		if tableHeaderRe.Match(line) {
			break
		}
		if m := enabledKeyRe.FindSubmatch(line); m != nil {
			lines[i] = append(append(append([]byte{}, m[1]...), value...), m[3]...)
			found = true
			break
		}
	}

	out := bytes.Join(lines, []byte("\n"))
	if !found {
		out = append([]byte("enabled = "+value+"\n"), out...)
	}

	var check Config
	if _, err := toml.Decode(string(out), &check); err != nil {
		return nil, fmt.Errorf("rewrite enabled flag: %w", err)
	}
	if check.Enabled != enabled {
		return nil, errors.New("rewrite enabled flag: value did not take effect")
	}
	return out, nil
}
