// Package editor reads what the user is doing in Neovim.
package editor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/neovim/go-client/nvim"
)

// ///////////////////////////////////////////////
// Snapshot
// ///////////////////////////////////////////////

// Snapshot is the editor state at one instant.
type Snapshot struct {
	// Cwd is Neovim's working directory.
	Cwd string
	// WorkspaceRoot is the nearest ancestor of File holding a root marker,
	// or Cwd when there is none. Empty when neither is known.
	WorkspaceRoot string
	// File is the absolute path of the current buffer, empty for scratch
	// and special buffers.
	File        string
	FileType    string
	Line        int
	LineCount   int
	ChangedTick int64
}

// Workspace returns the last path segment of the workspace root.
func (s Snapshot) Workspace() string {
	return WorkspaceName(s.WorkspaceRoot)
}

// Source produces editor snapshots. markers name the files or directories
// that identify a workspace root.
type Source interface {
	Snapshot(markers []string) (Snapshot, error)
}

// ///////////////////////////////////////////////
// Neovim
// ///////////////////////////////////////////////

// stateExpr collects everything a snapshot needs in a single round trip.
const stateExpr = `{` +
	`'cwd': getcwd(),` +
	`'file': expand('%:p'),` +
	`'buftype': &buftype,` +
	`'filetype': &filetype,` +
	`'line': line('.'),` +
	`'lines': line('$'),` +
	`'tick': b:changedtick}`

type bufferState struct {
	Cwd      string `msgpack:"cwd"`
	File     string `msgpack:"file"`
	BufType  string `msgpack:"buftype"`
	FileType string `msgpack:"filetype"`
	Line     int    `msgpack:"line"`
	Lines    int    `msgpack:"lines"`
	Tick     int64  `msgpack:"tick"`
}

// NvimSource reads snapshots from a connected Neovim instance.
type NvimSource struct {
	v *nvim.Nvim
}

// NewNvimSource wraps v. The caller must already be serving v.
func NewNvimSource(v *nvim.Nvim) *NvimSource {
	return &NvimSource{v: v}
}

// Snapshot evaluates the current buffer state and resolves its workspace.
func (s *NvimSource) Snapshot(markers []string) (Snapshot, error) {
	var st bufferState
	if err := s.v.Eval(stateExpr, &st); err != nil {
		return Snapshot{}, fmt.Errorf("reading editor state: %w", err)
	}

	file := st.File
	switch st.BufType {
	case "", "help", "acwrite":
	default:
		file = ""
	}

	return Snapshot{
		Cwd:           st.Cwd,
		WorkspaceRoot: Root(file, st.Cwd, markers),
		File:          file,
		FileType:      st.FileType,
		Line:          st.Line,
		LineCount:     st.Lines,
		ChangedTick:   st.Tick,
	}, nil
}

// ///////////////////////////////////////////////
// Workspace Resolution
// ///////////////////////////////////////////////

// Root returns the workspace root for file: the nearest ancestor directory
// containing one of markers, or cwd when none is found or file is empty.
func Root(file, cwd string, markers []string) string {
	if file != "" {
		if root, ok := FindRoot(filepath.Dir(file), markers); ok {
			return root
		}
	}
	return cwd
}

// FindRoot walks up from dir and returns the first directory that contains
// any of markers.
func FindRoot(dir string, markers []string) (string, bool) {
	if dir == "" || len(markers) == 0 {
		return "", false
	}
	dir = filepath.Clean(dir)
	for {
		for _, m := range markers {
			if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
				return dir, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// WorkspaceName returns the last path segment of root, or "" when root is
// empty or a filesystem root.
func WorkspaceName(root string) string {
	if root == "" {
		return ""
	}
	name := filepath.Base(filepath.Clean(root))
	if name == string(filepath.Separator) || name == "." || filepath.VolumeName(root) == filepath.Clean(root) {
		return ""
	}
	return name
}
