package presence

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tools.zach/dev/nvimcord/internal/activity"
	"tools.zach/dev/nvimcord/internal/config"
	"tools.zach/dev/nvimcord/internal/discord"
	"tools.zach/dev/nvimcord/internal/editor"
	"tools.zach/dev/nvimcord/internal/update"
)

// ///////////////////////////////////////////////
// Transport
// ///////////////////////////////////////////////

// events is an ordered log shared by all fake transports of one test.
type events struct {
	mu  sync.Mutex
	log []string
}

func (e *events) add(format string, args ...any) {
	e.mu.Lock()
	e.log = append(e.log, fmt.Sprintf(format, args...))
	e.mu.Unlock()
}

func (e *events) snapshot() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.log...)
}

type fakeTransport struct {
	n      int
	events *events

	loginErr error
	closeErr error

	mu         sync.Mutex
	readyFn    func()
	logins     []string
	activities []*discord.Activity
	setErr     error
	closed     int

	// stalled, when set, makes SetActivity block until Close, like a write
	// to a socket nobody reads.
	stalled chan struct{}
	release chan struct{}
}

func (f *fakeTransport) OnReady(fn func()) {
	f.mu.Lock()
	f.readyFn = fn
	f.mu.Unlock()
}

func (f *fakeTransport) Login(_ context.Context, clientID string) error {
	f.mu.Lock()
	f.logins = append(f.logins, clientID)
	ready := f.readyFn
	f.readyFn = nil
	f.mu.Unlock()
	f.events.add("login#%d", f.n)

	if f.loginErr != nil {
		return f.loginErr
	}
	if ready != nil {
		ready()
	}
	return nil
}

func (f *fakeTransport) SetActivity(a *discord.Activity) error {
	if f.release != nil {
		select {
		case f.stalled <- struct{}{}:
		default:
		}
		<-f.release
		return discord.ErrNotConnected
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.activities = append(f.activities, a)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closed++
	if f.release != nil && f.closed == 1 {
		close(f.release)
	}
	f.mu.Unlock()
	f.events.add("close#%d", f.n)
	return f.closeErr
}

func (f *fakeTransport) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.logins)
}

func (f *fakeTransport) activityCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.activities)
}

func (f *fakeTransport) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) failUpdates(err error) {
	f.mu.Lock()
	f.setErr = err
	f.mu.Unlock()
}

// ///////////////////////////////////////////////
// Config, Editor and Notifier
// ///////////////////////////////////////////////

type fakeConfig struct {
	mu     sync.Mutex
	cfg    *config.Config
	getErr error
	setErr error
}

func (c *fakeConfig) Get() (*config.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	cp := *c.cfg
	return &cp, nil
}

func (c *fakeConfig) SetEnabled(enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.cfg.Enabled = enabled
	return nil
}

func (c *fakeConfig) enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Enabled
}

type fakeEditor struct {
	root string
}

func (e fakeEditor) Snapshot([]string) (editor.Snapshot, error) {
	return editor.Snapshot{
		Cwd:           e.root,
		WorkspaceRoot: e.root,
		File:          filepath.Join(e.root, "main.go"),
		FileType:      "go",
		Line:          1,
		LineCount:     10,
	}, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (n *fakeNotifier) Info(msg string) {
	n.mu.Lock()
	n.infos = append(n.infos, msg)
	n.mu.Unlock()
}

func (n *fakeNotifier) Error(msg string) {
	n.mu.Lock()
	n.errors = append(n.errors, msg)
	n.mu.Unlock()
}

func (n *fakeNotifier) messages() (infos, errs []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.infos...), append([]string(nil), n.errors...)
}

type fakeChecker struct {
	res update.Result
	err error
}

func (c fakeChecker) Check(_ context.Context, current string) (update.Result, error) {
	r := c.res
	r.Current = current
	return r, c.err
}

// ///////////////////////////////////////////////
// Harness
// ///////////////////////////////////////////////

type harness struct {
	m          *Manager
	cfg        *fakeConfig
	notifier   *fakeNotifier
	events     *events
	changes    chan struct{}
	loginErr   error
	closeErr   error
	stall      bool
	mu         sync.Mutex
	transports []*fakeTransport
}

type harnessOption func(*Options)

func newHarness(t *testing.T, cfg *config.Config, workspace string, opts ...harnessOption) *harness {
	t.Helper()
	h := &harness{
		cfg:      &fakeConfig{cfg: cfg},
		notifier: &fakeNotifier{},
		events:   &events{},
		changes:  make(chan struct{}),
	}
	o := Options{
		Config:   h.cfg,
		Editor:   fakeEditor{root: filepath.Join(string(filepath.Separator), "src", workspace)},
		Builder:  activity.NewBuilder(nil, activity.MustLanguages()),
		Notifier: h.notifier,
		Version:  "1.2.3",
		Interval: time.Hour,
		Changes:  h.changes,
		NewTransport: func() Transport {
			h.mu.Lock()
			defer h.mu.Unlock()
			ft := &fakeTransport{
				n:        len(h.transports) + 1,
				events:   h.events,
				loginErr: h.loginErr,
				closeErr: h.closeErr,
			}
			if h.stall {
				ft.stalled = make(chan struct{}, 1)
				ft.release = make(chan struct{})
			}
			h.transports = append(h.transports, ft)
			return ft
		},
	}
	for _, fn := range opts {
		fn(&o)
	}
	h.m = New(o)
	t.Cleanup(func() {
		_ = h.m.Dispose(context.Background())
		h.m.Wait()
	})
	return h
}

func (h *harness) transport(i int) *fakeTransport {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i >= len(h.transports) {
		return nil
	}
	return h.transports[i]
}

func (h *harness) transportCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.transports)
}

func (h *harness) totalLogins() int {
	h.mu.Lock()
	ts := append([]*fakeTransport(nil), h.transports...)
	h.mu.Unlock()
	n := 0
	for _, ft := range ts {
		n += ft.loginCount()
	}
	return n
}

func enabledConfig(id string, ignore ...string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.ID = id
	cfg.IgnoreWorkspaces = ignore
	return cfg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func containsPrefix(list []string, prefix string) bool {
	for _, s := range list {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

var errBoom = errors.New("boom")
