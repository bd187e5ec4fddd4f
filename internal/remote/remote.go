// Package remote knows where nvimcord's own release files live and how to
// read a workspace's git origin and branch.
package remote

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// ///////////////////////////////////////////////
// Release Repository
// ///////////////////////////////////////////////

// Set at build time via:
//
//	-X tools.zach/dev/nvimcord/internal/remote.ldOwner=...
//	-X tools.zach/dev/nvimcord/internal/remote.ldRepo=...
var (
	ldOwner string
	ldRepo  string
)

// Owner returns the GitHub owner of the nvimcord repository.
func Owner() string { return ldOwner }

// Repo returns the GitHub name of the nvimcord repository.
func Repo() string { return ldRepo }

// RawURL returns the raw GitHub URL for a file on the main branch, or "" for
// builds without release metadata.
func RawURL(path string) string {
	if ldOwner == "" || ldRepo == "" {
		return ""
	}
	return "https://raw.githubusercontent.com/" + ldOwner + "/" + ldRepo + "/main/" + path
}

// ///////////////////////////////////////////////
// Workspace Git
// ///////////////////////////////////////////////

// Git reads repository metadata by running the git binary.
type Git struct {
	// Timeout bounds each git invocation. Zero means two seconds.
	Timeout time.Duration
}

// Origin returns the origin URL of the repository containing dir,
// normalized to https.
func (g Git) Origin(ctx context.Context, dir string) (string, error) {
	out, err := g.run(ctx, dir, "remote", "get-url", "origin")
	if err != nil {
		return "", err
	}
	return NormalizeURL(out), nil
}

// Branch returns the checked out branch of the repository containing dir,
// or "" on a detached HEAD.
func (g Git) Branch(ctx context.Context, dir string) (string, error) {
	out, err := g.run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	if out == "HEAD" {
		return "", nil
	}
	return out, nil
}

func (g Git) run(ctx context.Context, dir string, args ...string) (string, error) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// ///////////////////////////////////////////////
// URL Helpers
// ///////////////////////////////////////////////

// scpLikeRe matches scp-style remotes such as git@github.com:owner/repo.git.
var scpLikeRe = regexp.MustCompile(`^(?:[\w.-]+@)?([\w.-]+):([^/].*)$`)

// NormalizeURL converts a git remote into a browsable https URL. SSH and
// scp-style remotes are rewritten, credentials and the .git suffix are
// dropped. Unrecognized input yields "".
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	var host, path string
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
		switch u.Scheme {
		case "http", "https", "ssh", "git", "git+ssh":
		default:
			return ""
		}
		host, path = u.Hostname(), u.Path
	} else if m := scpLikeRe.FindStringSubmatch(raw); m != nil {
		host, path = m[1], m[2]
	} else {
		return ""
	}

	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	if host == "" || path == "" || !strings.Contains(path, "/") {
		return ""
	}
	return "https://" + host + "/" + path
}

// Parse returns the owner and repository name of a remote URL in any form
// NormalizeURL accepts. Nested groups (gitlab.com/group/sub/repo) report the
// full group path as owner.
func Parse(raw string) (owner, repo string) {
	norm := NormalizeURL(raw)
	if norm == "" {
		return "", ""
	}
	path := strings.SplitN(strings.TrimPrefix(norm, "https://"), "/", 2)[1]
	i := strings.LastIndex(path, "/")
	return path[:i], path[i+1:]
}
