package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	nvimcord "tools.zach/dev/nvimcord"
	"tools.zach/dev/nvimcord/internal/discord"
	"tools.zach/dev/nvimcord/internal/paths"
	"tools.zach/dev/nvimcord/internal/presence"
	"tools.zach/dev/nvimcord/internal/update"
)

// execute runs the root command against a temp data dir and returns stdout.
func execute(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--data-dir", dataDir}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, paths.ConfigFile), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

// ///////////////////////////////////////////////
// resolveVersion Tests
// ///////////////////////////////////////////////

func TestResolveVersionWithLdflags(t *testing.T) {
	original := version
	defer func() { version = original }()

	version = "1.2.3"
	if got := resolveVersion(); got != "1.2.3" {
		t.Errorf("resolveVersion() = %q, want %q", got, "1.2.3")
	}
}

func TestResolveVersionDev(t *testing.T) {
	original := version
	defer func() { version = original }()

	version = "dev"
	got := resolveVersion()
	// "dev" without VCS info, otherwise "dev+<hash>" or "dev+<hash>.dirty".
	if !strings.HasPrefix(got, "dev") {
		t.Errorf("resolveVersion() = %q, expected to start with 'dev'", got)
	}
}

// ///////////////////////////////////////////////
// version Tests
// ///////////////////////////////////////////////

type stubChecker struct {
	res update.Result
	err error
}

func (s stubChecker) Check(context.Context, string) (update.Result, error) { return s.res, s.err }

func TestVersionCommand(t *testing.T) {
	original := version
	defer func() { version = original }()
	version = "0.3.0"

	tests := []struct {
		name    string
		args    []string
		checker stubChecker
		want    string
		wantErr bool
	}{
		{"plain", []string{"version"}, stubChecker{}, "nvimcord 0.3.0\n", false},
		{"newer", []string{"version", "--check"}, stubChecker{res: update.Result{Current: "0.3.0", Latest: "0.4.0", Newer: true}}, "nvimcord 0.3.0\nv0.4.0 is available\n", false},
		{"current", []string{"version", "--check"}, stubChecker{res: update.Result{Current: "0.3.0", Latest: "0.3.0"}}, "nvimcord 0.3.0\nup to date\n", false},
		{"check fails", []string{"version", "--check"}, stubChecker{err: update.ErrNoManifest}, "nvimcord 0.3.0\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := versionChecker
			defer func() { versionChecker = orig }()
			versionChecker = func() presence.VersionChecker { return tt.checker }

			out, err := execute(t, t.TempDir(), tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if out != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

// ///////////////////////////////////////////////
// check Tests
// ///////////////////////////////////////////////

type stubClient struct {
	loginErr error
	clientID string
	user     *discord.User
	closed   bool
}

func (p *stubClient) Login(_ context.Context, id string) error {
	p.clientID = id
	return p.loginErr
}
func (p *stubClient) User() *discord.User { return p.user }
func (p *stubClient) Close() error        { p.closed = true; return nil }

func TestCheckCommand(t *testing.T) {
	tests := []struct {
		name     string
		client   *stubClient
		wantOut  string
		wantErr  string
		wantShut bool
	}{
		{
			name:     "connected",
			client:   &stubClient{user: &discord.User{Username: "ferris"}},
			wantOut:  "connected to Discord as ferris (application 42)\n",
			wantShut: true,
		},
		{
			name:     "no user",
			client:   &stubClient{},
			wantOut:  "connected to Discord as unknown user (application 42)\n",
			wantShut: true,
		},
		{
			name:    "discord not running",
			client:  &stubClient{loginErr: discord.ErrIPCNotAvailable},
			wantErr: "discord is not running",
		},
		{
			name:    "rejected",
			client:  &stubClient{loginErr: &discord.Error{Code: 4000, Message: "Invalid Client ID"}},
			wantErr: "login with application 42",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := newCheckClient
			defer func() { newCheckClient = orig }()
			newCheckClient = func() checkClient { return tt.client }

			dir := t.TempDir()
			writeConfig(t, dir, "id = \"42\"\n")

			out, err := execute(t, dir, "check")
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want it to contain %q", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("check: %v", err)
			}
			if out != tt.wantOut {
				t.Errorf("output = %q, want %q", out, tt.wantOut)
			}
			if tt.client.clientID != "42" {
				t.Errorf("login id = %q, want 42", tt.client.clientID)
			}
			if tt.client.closed != tt.wantShut {
				t.Errorf("closed = %v, want %v", tt.client.closed, tt.wantShut)
			}
		})
	}
}

// ///////////////////////////////////////////////
// config Tests
// ///////////////////////////////////////////////

func TestConfigInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	if _, err := execute(t, dir, "config", "init"); err != nil {
		t.Fatalf("config init: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, paths.ConfigFile))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, nvimcord.DefaultConfigTOML) {
		t.Error("config init did not write the embedded default config")
	}

	if _, err := execute(t, dir, "config", "init"); err == nil || !strings.Contains(err.Error(), "--force") {
		t.Errorf("second init err = %v, want refusal mentioning --force", err)
	}
	writeConfig(t, dir, "enabled = false\n")
	if _, err := execute(t, dir, "config", "init", "--force"); err != nil {
		t.Fatalf("config init --force: %v", err)
	}
	got, _ = os.ReadFile(filepath.Join(dir, paths.ConfigFile))
	if !bytes.Equal(got, nvimcord.DefaultConfigTOML) {
		t.Error("--force did not overwrite the config")
	}
}

func TestDefaultConfigLoads(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, string(nvimcord.DefaultConfigTOML))
	out, err := execute(t, dir, "config", "validate")
	if err != nil {
		t.Fatalf("embedded default config is invalid: %v", err)
	}
	if !strings.HasSuffix(out, "is valid\n") {
		t.Errorf("output = %q", out)
	}
}

func TestConfigPath(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, dir, "config", "path")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, paths.ConfigFile) + "\n"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestConfigShowIncludesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "hide_startup_message = true\n")
	out, err := execute(t, dir, "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"hide_startup_message = true", `details = "Editing {file}"`} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string // empty means no file
		want    string
		wantErr bool
	}{
		{"missing", "", "defaults apply", false},
		{"valid", "enabled = true\n", "is valid", false},
		{"bad toml", "enabled = \n", "", true},
		{"bad regexp", "ignore_workspaces = [\"(\"]\n", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.body != "" {
				writeConfig(t, dir, tt.body)
			}
			out, err := execute(t, dir, "config", "validate")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("output = %q, want it to contain %q", out, tt.want)
			}
		})
	}
}

// ///////////////////////////////////////////////
// logs Tests
// ///////////////////////////////////////////////

func TestLogsCommand(t *testing.T) {
	dir := t.TempDir()
	if _, err := execute(t, dir, "logs"); err == nil || !strings.Contains(err.Error(), "no log yet") {
		t.Fatalf("missing log err = %v", err)
	}

	body := "one\ntwo\nthree\nfour\n"
	if err := os.WriteFile(filepath.Join(dir, paths.LogFile), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, dir, "logs", "-n", "2")
	if err != nil {
		t.Fatal(err)
	}
	if out != "three\nfour\n" {
		t.Errorf("output = %q", out)
	}
}

// ///////////////////////////////////////////////
// serve Tests
// ///////////////////////////////////////////////

func TestServeRefusesTerminal(t *testing.T) {
	orig := isTerminal
	defer func() { isTerminal = orig }()
	isTerminal = func(*os.File) bool { return true }

	if _, err := execute(t, t.TempDir(), "serve"); !errors.Is(err, errInteractive) {
		t.Fatalf("err = %v, want errInteractive", err)
	}
}

type discardCloser struct{ io.Writer }

func (discardCloser) Close() error { return nil }

func TestServeExitsWhenChannelCloses(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	// Disabled, so the first connect needs no round trip to Neovim.
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, dir, "enabled = false\n")
	defer slog.SetDefault(slog.Default())

	err := serve(context.Background(), paths.DataDir{Root: dir}, strings.NewReader(""), discardCloser{io.Discard})
	if err != nil {
		t.Fatalf("serve: %v", err)
	}
	log, err := os.ReadFile(filepath.Join(dir, paths.LogFile))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(log), "nvimcord starting") {
		t.Errorf("log does not record startup:\n%s", log)
	}
}
