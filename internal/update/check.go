// Package update checks for newer versions of nvimcord via the release manifest.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"tools.zach/dev/nvimcord/internal/paths"
	"tools.zach/dev/nvimcord/internal/remote"
)

// ErrNoManifest is returned when the binary was built without release
// metadata and has nowhere to look for updates.
var ErrNoManifest = errors.New("no release manifest configured")

// maxManifestSize caps the manifest body read from the network.
const maxManifestSize = 64 << 10

// ///////////////////////////////////////////////
// Public API
// ///////////////////////////////////////////////

// Result is the outcome of a version check.
type Result struct {
	Current string
	Latest  string
	// Newer is true when Latest is a higher semantic version than Current.
	Newer bool
}

// Checker fetches the release manifest. A request is attempted once; failed
// checks are reported to the caller and never retried.
type Checker struct {
	URL    string
	client *retryablehttp.Client
}

// NewChecker returns a checker for the manifest published alongside this
// build's source repository.
func NewChecker() *Checker {
	return NewCheckerURL(remote.RawURL(paths.ReleaseManifest))
}

// NewCheckerURL returns a checker for an explicit manifest URL.
func NewCheckerURL(url string) *Checker {
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = slog.Default()
	return &Checker{URL: url, client: client}
}

// Check compares current against the latest published version.
func (c *Checker) Check(ctx context.Context, current string) (Result, error) {
	latest, err := c.Latest(ctx)
	if err != nil {
		return Result{Current: current}, err
	}
	return Result{
		Current: current,
		Latest:  latest,
		Newer:   latest != "" && latest != current && semverLess(current, latest),
	}, nil
}

// Latest downloads the release manifest and returns the version stored
// under the "." key, which represents the latest stable release.
func (c *Checker) Latest(ctx context.Context) (string, error) {
	if c.URL == "" {
		return "", ErrNoManifest
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", c.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: status %d", c.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestSize))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var manifest map[string]string
	if err := json.Unmarshal(body, &manifest); err != nil {
		return "", fmt.Errorf("parsing manifest: %w", err)
	}
	return manifest["."], nil
}

// ///////////////////////////////////////////////
// Version Comparison
// ///////////////////////////////////////////////

// semverLess reports whether a < b. Strings that are not semver never
// compare less. A pre-release sorts before the same release
// ("0.1.0-dev" < "0.1.0"); two pre-releases of one version are unordered.
func semverLess(a, b string) bool {
	pa := parseSemver(a)
	pb := parseSemver(b)
	if pa == nil || pb == nil {
		return false
	}
	for i := 0; i < 3; i++ {
		if pa[i] != pb[i] {
			return pa[i] < pb[i]
		}
	}
	return hasPreRelease(a) && !hasPreRelease(b)
}

func hasPreRelease(s string) bool {
	return strings.Contains(strings.TrimPrefix(s, "v"), "-")
}

// parseSemver splits "v1.2.3" or "0.1.0-dev+abc" into [major, minor, patch].
// It returns nil for anything else.
func parseSemver(s string) []int {
	parts := strings.SplitN(strings.TrimPrefix(s, "v"), ".", 3)
	if len(parts) != 3 {
		return nil
	}
	result := make([]int, 3)
	for i, p := range parts {
		if idx := strings.IndexAny(p, "-+"); idx >= 0 {
			p = p[:idx]
		}
		if p == "" {
			return nil
		}
		n := 0
		for _, c := range p {
			if c < '0' || c > '9' {
				return nil
			}
			n = n*10 + int(c-'0')
		}
		result[i] = n
	}
	return result
}
