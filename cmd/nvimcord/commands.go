package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	nvimcord "tools.zach/dev/nvimcord"
	"tools.zach/dev/nvimcord/internal/atomicfile"
	"tools.zach/dev/nvimcord/internal/config"
	"tools.zach/dev/nvimcord/internal/discord"
	"tools.zach/dev/nvimcord/internal/logger"
	"tools.zach/dev/nvimcord/internal/presence"
	"tools.zach/dev/nvimcord/internal/update"
)

// ///////////////////////////////////////////////
// version
// ///////////////////////////////////////////////

// versionChecker is replaced in tests.
var versionChecker = func() presence.VersionChecker { return update.NewChecker() }

func newVersionCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the nvimcord version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ver := resolveVersion()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "nvimcord %s\n", ver)
			if !check {
				return nil
			}
			res, err := versionChecker().Check(cmd.Context(), ver)
			if err != nil {
				return fmt.Errorf("checking for updates: %w", err)
			}
			if res.Newer {
				fmt.Fprintf(out, "v%s is available\n", res.Latest)
			} else {
				fmt.Fprintln(out, "up to date")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "also check for a newer release")
	return cmd
}

// ///////////////////////////////////////////////
// check
// ///////////////////////////////////////////////

// checkClient is the part of [discord.Client] used by check.
type checkClient interface {
	Login(ctx context.Context, clientID string) error
	User() *discord.User
	Close() error
}

// newCheckClient is replaced in tests.
var newCheckClient = func() checkClient { return discord.NewClient() }

func newCheckCmd(g *globals) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Log in to Discord once and report the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(g.paths().Config())
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			p := newCheckClient()
			if err := p.Login(ctx, cfg.ID); err != nil {
				if errors.Is(err, discord.ErrIPCNotAvailable) {
					return fmt.Errorf("discord is not running: %w", err)
				}
				return fmt.Errorf("login with application %s: %w", cfg.ID, err)
			}
			defer p.Close()

			name := "unknown user"
			if u := p.User(); u != nil && u.Username != "" {
				name = u.Username
			}
			fmt.Fprintf(cmd.OutOrStdout(), "connected to Discord as %s (application %s)\n", name, cfg.ID)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "give up after this long")
	return cmd
}

// ///////////////////////////////////////////////
// config
// ///////////////////////////////////////////////

func newConfigCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the documented default config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dd := g.paths()
			path := dd.Config()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.MkdirAll(dd.Root, 0o755); err != nil {
				return fmt.Errorf("creating data dir: %w", err)
			}
			if err := atomicfile.Write(path, nvimcord.DefaultConfigTOML, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), g.paths().Config())
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective config, defaults included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(g.paths().Config())
			if err != nil {
				return err
			}
			return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the config file for errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := g.paths().Config()
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s does not exist; defaults apply\n", path)
				return nil
			}
			if _, err := config.Load(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path)
			return nil
		},
	}

	cmd.AddCommand(initCmd, pathCmd, showCmd, validateCmd)
	return cmd
}

// ///////////////////////////////////////////////
// logs
// ///////////////////////////////////////////////

func newLogsCmd(g *globals) *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the end of nvimcord.log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tail, err := logger.ReadTail(g.paths().Log(), lines)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("no log yet at %s", g.paths().Log())
				}
				return err
			}
			if tail == "" {
				return nil
			}
			_, err = io.WriteString(cmd.OutOrStdout(), tail+"\n")
			return err
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of lines to print")
	return cmd
}
