// Package activity turns an editor snapshot into a Discord presence card.
package activity

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"tools.zach/dev/nvimcord/internal/config"
	"tools.zach/dev/nvimcord/internal/discord"
	"tools.zach/dev/nvimcord/internal/editor"
	"tools.zach/dev/nvimcord/internal/remote"
)

const (
	// gitCacheTTL is how long origin and branch lookups are reused.
	gitCacheTTL = 30 * time.Second
	// maxButtonLabel is Discord's button label limit.
	maxButtonLabel = 32
)

// GitInfo reads repository metadata for a directory.
type GitInfo interface {
	Origin(ctx context.Context, dir string) (string, error)
	Branch(ctx context.Context, dir string) (string, error)
}

// signature identifies user activity. A change resets the idle clock.
type signature struct {
	file string
	tick int64
	line int
}

type gitEntry struct {
	origin  string
	branch  string
	fetched time.Time
}

// ///////////////////////////////////////////////
// Builder
// ///////////////////////////////////////////////

// Builder produces presence cards. It remembers when the session started,
// when the user last did something and when the current file was opened,
// so its output depends on the sequence of snapshots it has seen.
type Builder struct {
	git   GitInfo
	langs *LanguageTable

	mu         sync.Mutex
	started    time.Time
	sig        signature
	lastChange time.Time
	file       string
	fileStart  time.Time
	gitCache   map[string]gitEntry
}

// NewBuilder returns a builder. A nil git disables branch, owner and
// repository lookups.
func NewBuilder(git GitInfo, langs *LanguageTable) *Builder {
	return &Builder{
		git:      git,
		langs:    langs,
		gitCache: map[string]gitEntry{},
	}
}

// Reset restarts the workspace timer and the idle clock.
func (b *Builder) Reset(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = now
	b.lastChange = now
	b.sig = signature{}
	b.file = ""
	b.fileStart = now
}

// Build returns the card for snap, or nil when nothing should be sent:
// the workspace matches privacy.ignore, or the user is idle and idle_mode
// is "keep".
func (b *Builder) Build(ctx context.Context, snap editor.Snapshot, cfg *config.Config, now time.Time) *discord.Activity {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cfg.IsPathIgnored(snap.WorkspaceRoot) {
		return nil
	}

	b.track(snap, now)

	if b.idle(cfg, now) {
		if cfg.Behavior.IdleMode == config.IdleModeKeep {
			return nil
		}
		return b.buildIdle(cfg)
	}

	vars, origin := b.vars(ctx, snap, cfg, now)
	d := &cfg.Display

	a := &discord.Activity{
		Details:    b.details(snap, d, vars),
		State:      b.state(vars, d),
		Timestamps: b.timestamps(d.Timestamps.Mode),
		Assets: &discord.Assets{
			LargeImage: d.Assets.SmallImage,
			LargeText:  render(d.Assets.LargeText, vars),
			SmallImage: d.Assets.SmallImage,
			SmallText:  fit(d.Assets.SmallText),
		},
		Buttons: buttons(d.Buttons, origin),
	}
	if d.Assets.ShowLanguageIcon {
		a.Assets.LargeImage = b.langs.Lookup(snap.File, snap.FileType).Key
	}
	if a.Assets.LargeImage == a.Assets.SmallImage {
		a.Assets.SmallImage, a.Assets.SmallText = "", ""
	}
	return a
}

// track updates the idle clock and the per-file timer.
func (b *Builder) track(snap editor.Snapshot, now time.Time) {
	if b.started.IsZero() {
		b.started = now
		b.lastChange = now
	}
	sig := signature{file: snap.File, tick: snap.ChangedTick, line: snap.Line}
	if sig != b.sig {
		b.sig = sig
		b.lastChange = now
	}
	if snap.File != b.file || b.fileStart.IsZero() {
		b.file = snap.File
		b.fileStart = now
	}
}

func (b *Builder) idle(cfg *config.Config, now time.Time) bool {
	mins := cfg.Behavior.IdleMinutes
	return mins > 0 && now.Sub(b.lastChange) >= time.Duration(mins)*time.Minute
}

func (b *Builder) buildIdle(cfg *config.Config) *discord.Activity {
	d := &cfg.Display
	a := &discord.Activity{
		Details:    fit(d.DetailsIdle),
		State:      fit(d.StateIdle),
		Timestamps: b.timestamps(d.Timestamps.Mode),
		Assets: &discord.Assets{
			LargeImage: d.Assets.IdleImage,
			LargeText:  fit(d.Assets.IdleText),
			SmallImage: d.Assets.SmallImage,
			SmallText:  fit(d.Assets.SmallText),
		},
	}
	if a.Assets.LargeImage == a.Assets.SmallImage {
		a.Assets.SmallImage, a.Assets.SmallText = "", ""
	}
	return a
}

func (b *Builder) timestamps(mode string) *discord.Timestamps {
	switch mode {
	case config.TimestampNone:
		return nil
	case config.TimestampFile:
		return &discord.Timestamps{Start: b.fileStart.UnixMilli()}
	default:
		return &discord.Timestamps{Start: b.started.UnixMilli()}
	}
}

func (b *Builder) details(snap editor.Snapshot, d *config.DisplayConfig, vars templateVars) string {
	if snap.File == "" {
		return render(d.DetailsNoFile, vars)
	}
	return render(d.Details, vars)
}

func (b *Builder) state(vars templateVars, d *config.DisplayConfig) string {
	if vars.Workspace == "" {
		return render(d.StateNoWorkspace, vars)
	}
	return render(d.State, vars)
}

// vars collects template values. Git details are withheld whenever the
// workspace name is hidden; the returned origin is "" in that case.
func (b *Builder) vars(ctx context.Context, snap editor.Snapshot, cfg *config.Config, now time.Time) (templateVars, string) {
	lang := b.langs.Lookup(snap.File, snap.FileType)
	name := snap.Workspace()
	shown := cfg.WorkspaceName(name, snap.WorkspaceRoot)

	v := templateVars{
		Workspace: shown,
		Language:  lang.Name,
		Line:      snap.Line,
		Lines:     snap.LineCount,
	}
	if snap.File != "" {
		v.File = cfg.FileName(filepath.Base(snap.File))
		v.Dir = filepath.Base(filepath.Dir(snap.File))
		v.FilePath = cfg.FileName(relPath(snap.WorkspaceRoot, snap.File))
	}

	if name == "" || shown != name {
		return v, ""
	}
	g := b.gitInfo(ctx, snap.WorkspaceRoot, now)
	v.Branch = g.branch
	v.GitOwner, v.GitRepo = remote.Parse(g.origin)
	return v, g.origin
}

// gitInfo returns cached origin and branch for root.
func (b *Builder) gitInfo(ctx context.Context, root string, now time.Time) gitEntry {
	if b.git == nil || root == "" {
		return gitEntry{}
	}
	if e, ok := b.gitCache[root]; ok && now.Sub(e.fetched) < gitCacheTTL {
		return e
	}
	e := gitEntry{fetched: now}
	var err error
	if e.origin, err = b.git.Origin(ctx, root); err != nil {
		slog.Debug("no git origin", "root", root, "error", err)
	}
	if e.branch, err = b.git.Branch(ctx, root); err != nil {
		slog.Debug("no git branch", "root", root, "error", err)
	}
	b.gitCache[root] = e
	return e
}

// buttons returns the repository button and the custom button, in that
// order, when configured.
func buttons(cfg config.ButtonsConfig, origin string) []discord.Button {
	var out []discord.Button
	if cfg.ShowRepoButton && origin != "" && cfg.RepoButtonLabel != "" {
		out = append(out, discord.Button{Label: clip(cfg.RepoButtonLabel, maxButtonLabel), URL: origin})
	}
	if cfg.CustomButtonLabel != "" && cfg.CustomButtonURL != "" {
		out = append(out, discord.Button{Label: clip(cfg.CustomButtonLabel, maxButtonLabel), URL: cfg.CustomButtonURL})
	}
	return out
}

func relPath(root, file string) string {
	if root == "" {
		return filepath.Base(file)
	}
	rel, err := filepath.Rel(root, file)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Base(file)
	}
	return filepath.ToSlash(rel)
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
