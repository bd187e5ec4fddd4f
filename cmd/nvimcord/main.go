// Package main implements the nvimcord command: the Neovim RPC job that
// publishes Discord Rich Presence, plus a few maintenance subcommands.
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"tools.zach/dev/nvimcord/internal/paths"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via ldflags, see cmd/buildver:
//
//	go build -ldflags "$(go run ./cmd/buildver -ldflags)" ./cmd/nvimcord
//
// Bare go builds fall back to the VCS info embedded by the toolchain.
var version = "dev"

// resolveVersion returns the ldflags version, or "dev+<hash>" built from the
// embedded VCS revision.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// Root Command
// ///////////////////////////////////////////////

// globals are the persistent flags shared by every subcommand.
type globals struct {
	dataDir string
}

func (g *globals) paths() paths.DataDir {
	return paths.DataDir{Root: g.dataDir}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   paths.BinaryName,
		Short: "Discord Rich Presence for Neovim",
		Long: `nvimcord shows what you are editing in Neovim on your Discord profile.

Neovim starts "nvimcord serve" as an RPC job from plugin/nvimcord.lua; the
other subcommands help with setup and troubleshooting.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.dataDir, "data-dir", paths.DefaultRoot(), "directory holding config.toml and nvimcord.log")

	root.AddCommand(
		newCheckCmd(g),
		newConfigCmd(g),
		newLogsCmd(g),
		newServeCmd(g),
		newVersionCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
