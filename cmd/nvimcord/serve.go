package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/neovim/go-client/nvim"
	"github.com/spf13/cobra"

	"tools.zach/dev/nvimcord/internal/activity"
	"tools.zach/dev/nvimcord/internal/config"
	"tools.zach/dev/nvimcord/internal/discord"
	"tools.zach/dev/nvimcord/internal/editor"
	"tools.zach/dev/nvimcord/internal/logger"
	"tools.zach/dev/nvimcord/internal/paths"
	"tools.zach/dev/nvimcord/internal/plugin"
	"tools.zach/dev/nvimcord/internal/presence"
	"tools.zach/dev/nvimcord/internal/remote"
	"tools.zach/dev/nvimcord/internal/update"
)

// shutdownTimeout bounds the final clear-and-close on exit.
const shutdownTimeout = 2 * time.Second

var errInteractive = errors.New("serve speaks msgpack-rpc on stdin/stdout; start it from Neovim (see plugin/nvimcord.lua)")

// isTerminal reports whether f is attached to a terminal.
var isTerminal = func(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newServeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run as a Neovim RPC job (started by the plugin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if isTerminal(os.Stdin) {
				return errInteractive
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals()...)
			defer stop()
			return serve(ctx, g.paths(), os.Stdin, os.Stdout)
		},
	}
}

// serve runs until Neovim closes the channel or ctx is cancelled.
func serve(ctx context.Context, dd paths.DataDir, in io.Reader, out io.WriteCloser) error {
	if err := os.MkdirAll(dd.Root, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	store := config.NewStore(dd.Config())
	cfg, cfgErr := store.Get()
	if cfgErr != nil {
		cfg = config.DefaultConfig()
	}

	log, logCloser := logger.New(logger.Options{
		Path:      dd.Log(),
		Level:     logger.ParseLevel(cfg.Log.Level),
		MaxSizeMB: cfg.Log.MaxSizeMB,
	})
	defer logCloser.Close()
	slog.SetDefault(log)

	ver := resolveVersion()
	slog.Info("nvimcord starting", "version", ver, "data_dir", dd.Root, "pid", os.Getpid())

	v, err := nvim.New(in, out, out, func(format string, args ...any) {
		logger.Trace(log, fmt.Sprintf(format, args...))
	})
	if err != nil {
		return fmt.Errorf("opening rpc channel: %w", err)
	}
	defer v.Close()

	watcher := config.NewWatcher(dd.Config())
	defer watcher.Close()
	if watcher.Polling() {
		slog.Info("using polling mode for config watching")
	}

	notifier := plugin.NewNotifier(v)
	m := presence.New(presence.Options{
		Config:       store,
		Editor:       editor.NewNvimSource(v),
		Builder:      activity.NewBuilder(remote.Git{}, activity.MustLanguages()),
		NewTransport: func() presence.Transport { return discord.NewClient() },
		Notifier:     notifier,
		Version:      ver,
		Checker:      update.NewChecker(),
		Changes:      watcher.Events(),
	})

	if err := plugin.Register(ctx, v, m); err != nil {
		return err
	}

	served := make(chan error, 1)
	go func() { served <- v.Serve() }()

	if cfgErr != nil {
		slog.Error("config load failed", "path", dd.Config(), "error", cfgErr)
		notifier.Error(fmt.Sprintf("Invalid config %s: %v", dd.Config(), cfgErr))
	} else {
		connectCtx, cancel := context.WithTimeout(ctx, plugin.LoginTimeout)
		if err := m.Connect(connectCtx); err != nil {
			slog.Error("connect failed", "error", err)
		}
		cancel()
	}

	var serveErr error
	select {
	case serveErr = <-served:
		slog.Info("neovim closed the rpc channel")
	case <-ctx.Done():
		slog.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := m.Dispose(shutdownCtx); err != nil {
		slog.Warn("dispose on exit failed", "error", err)
	}
	m.Wait()

	if serveErr != nil && !errors.Is(serveErr, io.EOF) {
		logger.Fail(log, "rpc channel failed", "error", serveErr)
		return fmt.Errorf("serving rpc: %w", serveErr)
	}
	return nil
}
