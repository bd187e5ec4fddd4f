// Package presence owns the Discord connection and the update loop that
// keeps the presence card in sync with the editor.
package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tools.zach/dev/nvimcord/internal/activity"
	"tools.zach/dev/nvimcord/internal/config"
	"tools.zach/dev/nvimcord/internal/discord"
	"tools.zach/dev/nvimcord/internal/editor"
	"tools.zach/dev/nvimcord/internal/update"
)

// DefaultInterval is the time between presence updates.
const DefaultInterval = time.Second

// User-visible messages.
const (
	msgLoggingIn      = "Logging into RPC..."
	msgConnected      = "Successfully connected to Discord Gateway."
	msgDisconnected   = "Successfully disconnected from Discord Gateway"
	msgReconnecting   = "Trying to reconnect to Discord Gateway"
	msgDisconnecting  = "Trying to disconnect from Discord Gateway"
	msgEnabled        = "Enabled Discord Rich Presence for this workspace."
	msgDisabled       = "Disabled Discord Rich Presence for this workspace."
	msgUpdateFormat   = "nvimcord v%s is available (running v%s)"
	msgLoginFailedFmt = "Failed to connect to Discord: %v"
)

// ///////////////////////////////////////////////
// Collaborators
// ///////////////////////////////////////////////

// Transport is a connection to the Discord desktop client.
type Transport interface {
	// OnReady registers a handler that runs once when login completes.
	OnReady(fn func())
	Login(ctx context.Context, clientID string) error
	SetActivity(a *discord.Activity) error
	Close() error
}

// ConfigSource reads the configuration and persists the enabled flag.
type ConfigSource interface {
	Get() (*config.Config, error)
	SetEnabled(enabled bool) error
}

// Notifier shows messages to the user.
type Notifier interface {
	Info(msg string)
	Error(msg string)
}

// VersionChecker looks up the latest released version.
type VersionChecker interface {
	Check(ctx context.Context, current string) (update.Result, error)
}

// ///////////////////////////////////////////////
// State
// ///////////////////////////////////////////////

// State is the connection state of a [Manager].
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ///////////////////////////////////////////////
// Manager
// ///////////////////////////////////////////////

// Options configures a [Manager]. Config, Editor, Builder, NewTransport and
// Notifier are required.
type Options struct {
	Config       ConfigSource
	Editor       editor.Source
	Builder      *activity.Builder
	NewTransport func() Transport
	Notifier     Notifier

	// Version is reported by the version command.
	Version string
	// Checker, when set, is consulted in the background by the version
	// command.
	Checker VersionChecker
	// Interval between updates. Zero means DefaultInterval.
	Interval time.Duration
	// Changes triggers an immediate update, typically from a config
	// file watcher.
	Changes <-chan struct{}
	// Now is the clock. Nil means time.Now.
	Now func() time.Time
}

// Manager owns at most one transport and at most one update loop.
type Manager struct {
	opts Options

	mu        sync.Mutex
	transport Transport
	state     State
	loop      *loop

	// bg tracks background version checks.
	bg sync.WaitGroup
}

// loop is a running update goroutine.
type loop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// stop cancels the loop and waits for it to exit or for ctx to end.
func (l *loop) stop(ctx context.Context) error {
	if l == nil {
		return nil
	}
	l.cancel()
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for update loop: %w", ctx.Err())
	}
}

// New returns a disconnected manager.
func New(opts Options) *Manager {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{opts: opts}
}

// State reports the connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect replaces any existing connection with a new transport and logs in
// unless nvimcord is disabled or the workspace is ignored. Login failures
// are reported to the user and logged; only configuration and teardown
// errors are returned.
func (m *Manager) Connect(ctx context.Context) error {
	return m.connect(ctx, true)
}

func (m *Manager) connect(ctx context.Context, announce bool) error {
	m.mu.Lock()
	had := m.transport != nil
	m.mu.Unlock()
	if had {
		if err := m.Dispose(ctx); err != nil {
			return fmt.Errorf("disposing previous connection: %w", err)
		}
	}

	cfg, err := m.opts.Config.Get()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	t := m.opts.NewTransport()
	t.OnReady(func() { m.ready(t, announce) })

	m.mu.Lock()
	m.transport = t
	m.state = Disconnected
	m.mu.Unlock()

	if !cfg.Enabled {
		slog.Debug("presence disabled, not logging in")
		return nil
	}
	name := m.workspaceName(cfg)
	if cfg.IsWorkspaceIgnored(name) {
		slog.Info("workspace ignored, not logging in", "workspace", name)
		return nil
	}

	m.mu.Lock()
	if m.transport == t {
		m.state = Connecting
	}
	m.mu.Unlock()

	if !cfg.HideStartupMessage {
		m.info(msgLoggingIn)
	}
	if err := t.Login(ctx, cfg.ID); err != nil {
		m.mu.Lock()
		if m.transport == t {
			m.state = Disconnected
		}
		m.mu.Unlock()
		slog.Error("discord login failed", "client_id", cfg.ID, "error", err)
		m.opts.Notifier.Error(fmt.Sprintf(msgLoginFailedFmt, err))
	}
	return nil
}

// ready runs when t completes its handshake. It restarts the update loop.
func (m *Manager) ready(t Transport, announce bool) {
	m.mu.Lock()
	if m.transport != t {
		m.mu.Unlock()
		slog.Debug("ignoring ready from a replaced transport")
		return
	}
	m.state = Connected
	m.mu.Unlock()

	if announce {
		cfg, err := m.opts.Config.Get()
		if err != nil || !cfg.HideStartupMessage {
			m.info(msgConnected)
		}
	}

	m.opts.Builder.Reset(m.opts.Now())
	m.startLoop()
}

// startLoop stops the current loop, if any, and starts a new one that
// updates immediately and then on every interval.
func (m *Manager) startLoop() {
	m.mu.Lock()
	old := m.loop
	m.loop = nil
	m.mu.Unlock()
	_ = old.stop(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	l := &loop{cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	if m.loop != nil {
		// Another ready won the race; keep its loop.
		m.mu.Unlock()
		cancel()
		return
	}
	m.loop = l
	m.mu.Unlock()

	go m.run(ctx, l)
}

func (m *Manager) run(ctx context.Context, l *loop) {
	defer close(l.done)

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		if err := m.update(ctx); errors.Is(err, discord.ErrNotConnected) {
			m.lost(l)
			return
		} else if err != nil {
			slog.Warn("presence update failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-m.opts.Changes:
			slog.Debug("config changed, updating presence")
		}
	}
}

// lost records that the transport dropped its connection underneath l.
func (m *Manager) lost(l *loop) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loop != l {
		return
	}
	m.loop = nil
	m.state = Disconnected
	slog.Warn("discord connection lost; run :RpcReconnect to reconnect")
}

// SetActivity builds a card from the current editor state and sends it.
// It does nothing unless connected. Failures are logged.
func (m *Manager) SetActivity(ctx context.Context) {
	if err := m.update(ctx); err != nil {
		slog.Warn("presence update failed", "error", err)
	}
}

func (m *Manager) update(ctx context.Context) error {
	m.mu.Lock()
	t, state := m.transport, m.state
	m.mu.Unlock()
	if t == nil || state != Connected {
		return nil
	}

	cfg, err := m.opts.Config.Get()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	snap, err := m.opts.Editor.Snapshot(cfg.Workspace.RootMarkers)
	if err != nil {
		return err
	}
	a := m.opts.Builder.Build(ctx, snap, cfg, m.opts.Now())
	if a == nil {
		return nil
	}
	return t.SetActivity(a)
}

// Dispose stops the update loop and closes the transport. It is safe to
// call at any time; teardown errors are returned.
//
// The transport is closed before waiting for the loop so that an update
// stuck on the socket is released.
func (m *Manager) Dispose(ctx context.Context) error {
	m.mu.Lock()
	t, l := m.transport, m.loop
	m.transport, m.loop = nil, nil
	m.state = Disconnected
	m.mu.Unlock()

	if l != nil {
		l.cancel()
	}
	var errs []error
	if t != nil {
		if err := t.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing transport: %w", err))
		}
	}
	if err := l.stop(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Disconnect disposes of the connection and tells the user.
func (m *Manager) Disconnect(ctx context.Context) error {
	if err := m.Dispose(ctx); err != nil {
		return err
	}
	m.info(msgDisconnected)
	return nil
}

// Wait blocks until background work started by commands has finished.
func (m *Manager) Wait() {
	m.bg.Wait()
}

// ///////////////////////////////////////////////
// Commands
// ///////////////////////////////////////////////

// DisconnectCommand handles :RpcDisconnect.
func (m *Manager) DisconnectCommand(ctx context.Context) error {
	m.info(msgDisconnecting)
	return m.Disconnect(ctx)
}

// Reconnect handles :RpcReconnect.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.info(msgReconnecting)
	return m.Connect(ctx)
}

// Version handles :RpcVersion. When a checker is configured it looks for a
// newer release in the background and reports one if found.
func (m *Manager) Version(ctx context.Context) {
	m.info("v" + m.opts.Version)
	if m.opts.Checker == nil {
		return
	}
	m.bg.Add(1)
	go func() {
		defer m.bg.Done()
		res, err := m.opts.Checker.Check(context.WithoutCancel(ctx), m.opts.Version)
		if err != nil {
			slog.Debug("version check failed", "error", err)
			return
		}
		if res.Newer {
			m.info(fmt.Sprintf(msgUpdateFormat, res.Latest, res.Current))
		}
	}()
}

// Enable handles :RpcEnable. It persists enabled = true and connects
// without the startup message.
func (m *Manager) Enable(ctx context.Context) error {
	if err := m.Dispose(ctx); err != nil {
		slog.Warn("dispose before enable failed", "error", err)
	}
	if err := m.opts.Config.SetEnabled(true); err != nil {
		return fmt.Errorf("enabling: %w", err)
	}
	if err := m.connect(ctx, false); err != nil {
		return err
	}
	m.info(msgEnabled)
	return nil
}

// Disable handles :RpcDisable. It persists enabled = false and disposes of
// the connection.
func (m *Manager) Disable(ctx context.Context) error {
	if err := m.opts.Config.SetEnabled(false); err != nil {
		return fmt.Errorf("disabling: %w", err)
	}
	if err := m.Dispose(ctx); err != nil {
		return err
	}
	m.info(msgDisabled)
	return nil
}

// ///////////////////////////////////////////////
// Helpers
// ///////////////////////////////////////////////

func (m *Manager) workspaceName(cfg *config.Config) string {
	snap, err := m.opts.Editor.Snapshot(cfg.Workspace.RootMarkers)
	if err != nil {
		slog.Warn("reading workspace failed", "error", err)
		return ""
	}
	return snap.Workspace()
}

// info shows msg to the user and mirrors it into the log.
func (m *Manager) info(msg string) {
	slog.Info(msg)
	m.opts.Notifier.Info(msg)
}
