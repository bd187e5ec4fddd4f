// google_fonts.go downloads font files from the Google Fonts CSS API.
//
// Font specs use the format "google:FAMILY:WEIGHT" (e.g. "google:JetBrains
// Mono:800"). Downloads are cached so they aren't re-fetched on every run.

package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// fontURLRe extracts the font file URL from the CSS response, e.g.
// url(https://fonts.gstatic.com/s/inter/v18/xxx.woff2).
var fontURLRe = regexp.MustCompile(`url\((https://fonts\.gstatic\.com/[^)]+)\)`)

// userAgent makes Google serve WOFF2, which maybeConvertWOFF2 handles.
const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"

// ParseGoogleFontSpec parses a "google:Family:Weight" spec into its parts.
func ParseGoogleFontSpec(spec string) (family, weight string, ok bool) {
	parts := strings.SplitN(spec, ":", 3)
	if len(parts) != 3 || parts[0] != "google" || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// cacheFileName is the cache entry for a family and weight. Spaces become
// underscores.
func cacheFileName(family, weight string) string {
	return strings.ReplaceAll(family, " ", "_") + "-" + weight + ".ttf"
}

// cssURL is the CSS API request for a family and weight.
func cssURL(family, weight string) string {
	return fmt.Sprintf("https://fonts.googleapis.com/css2?family=%s:wght@%s", url.QueryEscape(family), weight)
}

// fontURLFromCSS returns the first font file URL in a CSS API response.
func fontURLFromCSS(css []byte) (string, bool) {
	m := fontURLRe.FindSubmatch(css)
	if m == nil {
		return "", false
	}
	return string(m[1]), true
}

// FetchGoogleFont downloads a font from Google Fonts, caching the result in
// cacheDir. It returns SFNT (TTF/OTF) bytes.
func FetchGoogleFont(spec, cacheDir string) ([]byte, error) {
	family, weight, ok := ParseGoogleFontSpec(spec)
	if !ok {
		return nil, fmt.Errorf("invalid google font spec %q: expected google:FAMILY:WEIGHT", spec)
	}

	cacheFile := filepath.Join(cacheDir, cacheFileName(family, weight))
	if data, err := os.ReadFile(cacheFile); err == nil {
		return data, nil
	}

	client := &http.Client{Timeout: 15 * time.Second}
	css, err := get(client, cssURL(family, weight), 1<<20)
	if err != nil {
		return nil, fmt.Errorf("fetching CSS for %s wght@%s: %w", family, weight, err)
	}
	fontURL, ok := fontURLFromCSS(css)
	if !ok {
		return nil, fmt.Errorf("no font URL found in Google Fonts CSS response for %s wght@%s", family, weight)
	}

	fontData, err := get(client, fontURL, 10<<20)
	if err != nil {
		return nil, fmt.Errorf("downloading font file: %w", err)
	}
	if fontData, err = maybeConvertWOFF2(fontURL, fontData); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating font cache dir: %w", err)
	}
	if err := os.WriteFile(cacheFile, fontData, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to cache font: %v\n", err)
	}
	return fontData, nil
}

// get fetches rawURL and returns at most limit bytes of a 200 response.
func get(client *http.Client, rawURL string, limit int64) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d from %s", resp.StatusCode, rawURL)
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}
