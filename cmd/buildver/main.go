// Package main prints the nvimcord build version, or the complete -ldflags
// value, for release and local builds.
//
// Version format depends on git state:
//
//	No tags, clean:     0.0.0-dev+05ffee5
//	No tags, dirty:     0.0.0-dev+05ffee5.dirty
//	On tag v0.1.0:      0.1.0
//	Dirty tag:          0.1.0-dirty
//	3 past v0.1.0:      0.1.0-dev.3+g1234567
//	Same but dirty:     0.1.0-dev.3+g1234567.dirty
//
// Usage:
//
//	go build -ldflags "$(go run ./cmd/buildver -ldflags)" ./cmd/nvimcord
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"tools.zach/dev/nvimcord/internal/paths"
	"tools.zach/dev/nvimcord/internal/remote"
)

// remotePkg is the import path carrying the release repository ldflags.
const remotePkg = "tools.zach/dev/nvimcord/internal/remote"

func main() {
	withFlags := flag.Bool("ldflags", false, "print the full -ldflags value instead of the version")
	manifest := flag.String("manifest", paths.ReleaseManifest, "release manifest holding the base version")
	flag.Parse()

	version := buildVersion(gitCommand, *manifest)
	if !*withFlags {
		fmt.Print(version)
		return
	}

	var owner, repo string
	if origin, err := (remote.Git{}).Origin(context.Background(), "."); err == nil {
		owner, repo = remote.Parse(origin)
	} else {
		fmt.Fprintf(os.Stderr, "buildver: no origin, update checks disabled: %v\n", err)
	}
	fmt.Print(ldflags(version, owner, repo))
}

// git runs a git subcommand in the working directory.
type git func(args ...string) (string, error)

func gitCommand(args ...string) (string, error) {
	out, err := exec.Command("git", args...).Output()
	return strings.TrimSpace(string(out)), err
}

// buildVersion assembles the version from git describe against v-prefixed
// tags, falling back to <base>-dev+<hash> when there are none.
func buildVersion(run git, manifest string) string {
	if desc, err := run("describe", "--tags", "--match", "v*", "--dirty"); err == nil {
		return formatTaggedVersion(desc)
	}

	base := baseVersion(manifest)
	hash, err := run("rev-parse", "--short=7", "HEAD")
	if err != nil || hash == "" {
		return base + "-dev"
	}
	if isDirty(run) {
		return base + "-dev+" + hash + ".dirty"
	}
	return base + "-dev+" + hash
}

// formatTaggedVersion converts git describe output such as
// "v0.1.0-3-g1234567-dirty" into SemVer: the v prefix is stripped and
// <N>-g<hash> becomes -dev.<N>+g<hash>.
func formatTaggedVersion(desc string) string {
	dirty := strings.HasSuffix(desc, "-dirty")
	clean := strings.TrimPrefix(strings.TrimSuffix(desc, "-dirty"), "v")

	if rest, hash, ok := cutLast(clean, "-"); ok && strings.HasPrefix(hash, "g") {
		if tag, n, ok := cutLast(rest, "-"); ok && isDigits(n) {
			meta := hash
			if dirty {
				meta += ".dirty"
			}
			return tag + "-dev." + n + "+" + meta
		}
	}

	if dirty {
		return clean + "-dirty"
	}
	return clean
}

func cutLast(s, sep string) (before, after string, ok bool) {
	i := strings.LastIndex(s, sep)
	if i <= 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isDirty reports whether git status --porcelain lists any change.
func isDirty(run git) bool {
	out, err := run("status", "--porcelain")
	return err == nil && out != ""
}

// baseVersion reads the "." entry of the release manifest, or "0.0.0" when
// the file is missing, malformed or has no root entry.
func baseVersion(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "0.0.0"
	}
	var manifest map[string]string
	if err := json.Unmarshal(data, &manifest); err != nil {
		return "0.0.0"
	}
	if v := manifest["."]; v != "" {
		return v
	}
	return "0.0.0"
}

// ldflags is the -ldflags value stamping version and, when known, the
// release repository used for update checks.
func ldflags(version, owner, repo string) string {
	flags := []string{"-X main.version=" + version}
	if owner != "" && repo != "" {
		flags = append(flags,
			"-X "+remotePkg+".ldOwner="+owner,
			"-X "+remotePkg+".ldRepo="+repo,
		)
	}
	return strings.Join(flags, " ")
}
