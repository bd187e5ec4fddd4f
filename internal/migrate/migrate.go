// Package migrate applies sequential schema migrations to on-disk data,
// upgrading from one version to the next.
package migrate

import (
	"fmt"
	"log/slog"
	"sort"
)

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Migration upgrades raw file contents from the previous schema version to
// Version.
type Migration struct {
	// Version is the schema version this migration produces.
	Version int
	// Description is a short human-readable label for log output.
	Description string
	// Upgrade transforms data from the prior version to [Migration.Version].
	Upgrade func(data []byte) ([]byte, error)
}

// Registry holds the current version and the migrations for one file kind.
type Registry struct {
	// Name identifies the file kind in log output (e.g. "config").
	Name string
	// CurrentVersion is the schema version the binary reads and writes.
	CurrentVersion int
	// Migrations is the list of versioned upgrades. Exported so tests can
	// swap it out.
	Migrations []Migration
}

// Config is the migration registry for config.toml.
var Config = &Registry{Name: "config", CurrentVersion: 1}

// ///////////////////////////////////////////////
// Registry
// ///////////////////////////////////////////////

// Register adds m to the registry. It panics on a duplicate version.
func (r *Registry) Register(m Migration) {
	for _, existing := range r.Migrations {
		if existing.Version == m.Version {
			panic(fmt.Sprintf("migrate: duplicate %s migration version %d (description: %q)", r.Name, m.Version, m.Description))
		}
	}
	r.Migrations = append(r.Migrations, m)
}

// NeedsMigration reports whether a file at fileVersion is older than the
// current version or has pending migrations. Files written by a newer
// binary never need migration; see [Registry.IsNewer].
func (r *Registry) NeedsMigration(fileVersion int) bool {
	if r.IsNewer(fileVersion) {
		return false
	}
	if fileVersion < r.CurrentVersion {
		return true
	}
	for _, m := range r.Migrations {
		if fileVersion < m.Version {
			return true
		}
	}
	return false
}

// IsNewer reports whether fileVersion was written by a newer binary.
func (r *Registry) IsNewer(fileVersion int) bool {
	return fileVersion > r.CurrentVersion
}

// Run applies every migration with fromVersion < m.Version in ascending
// version order. It returns the transformed data and the version reached; on
// error the version is the last one successfully applied.
func (r *Registry) Run(data []byte, fromVersion int) ([]byte, int, error) {
	sorted := make([]Migration, len(r.Migrations))
	copy(sorted, r.Migrations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})

	version := fromVersion
	for _, m := range sorted {
		if version >= m.Version {
			continue
		}
		slog.Info("applying migration", "file", r.Name, "version", m.Version, "description", m.Description)
		out, err := m.Upgrade(data)
		if err != nil {
			return nil, version, fmt.Errorf("%s migration to v%d failed: %w", r.Name, m.Version, err)
		}
		data, version = out, m.Version
	}
	return data, version, nil
}
