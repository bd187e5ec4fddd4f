// gen-assets generates the language icons nvimcord shows as the large
// Rich Presence image.
//
// Reads the language table and styling from data/languages.json, resolves a
// font and renders each language's label centered on its background color.
// Output goes to assets/discord/languages/{key}.png; upload the files to the
// Discord application under the same keys.
//
// Font resolution:
//  1. Local file path from the "font" field
//  2. Google Fonts download from "font_fallback" (e.g. "google:Inter:800")
//
// Usage:
//
//	cd tools/generate-assets && go run .
//	cd tools/generate-assets && go run . -languages ../../data/languages.json -out ../../assets/discord/languages
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdewolff/font"
	"golang.org/x/image/font/opentype"
)

func main() {
	// Default paths assume running from tools/generate-assets/
	langFile := flag.String("languages", "../../data/languages.json", "Path to languages.json")
	outDir := flag.String("out", "../../assets/discord/languages", "Output directory")
	flag.Parse()

	// Font paths in languages.json are relative to the repo root.
	repoRoot, err := filepath.Abs(filepath.Join(filepath.Dir(*langFile), ".."))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: resolve repo root: %v\n", err)
		os.Exit(1)
	}
	fontCacheDir := filepath.Join(repoRoot, "assets", "fonts", ".cache")

	data, err := LoadLanguageData(*langFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load languages: %v\n", err)
		os.Exit(1)
	}
	icons := data.Icons()
	if len(icons) == 0 {
		fmt.Fprintln(os.Stderr, "error: no languages defined in languages.json")
		os.Exit(1)
	}

	fontBytes, err := resolveFont(data, repoRoot, fontCacheDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	otFont, err := opentype.Parse(fontBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: parse font: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error: create output dir: %v\n", err)
		os.Exit(1)
	}

	for _, l := range icons {
		text := label(l)
		pngData, err := RenderAsset(data.ResolvedStyle(l), text, otFont)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: render %s: %v\n", l.Key, err)
			os.Exit(1)
		}
		outPath := filepath.Join(*outDir, l.Key+".png")
		if err := os.WriteFile(outPath, pngData, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "error: write %s: %v\n", outPath, err)
			os.Exit(1)
		}
		fmt.Printf("  %s.png (%s)\n", l.Key, text)
	}

	fmt.Printf("Done. Generated %d icons.\n", len(icons))
}

// resolveFont loads the icon font: the local file first, then the Google
// Fonts fallback.
func resolveFont(data *LanguageData, repoRoot, fontCacheDir string) ([]byte, error) {
	if data.Font != "" {
		localPath := filepath.Join(repoRoot, data.Font)
		if b, err := os.ReadFile(localPath); err == nil {
			fmt.Printf("font: %s (local)\n", data.Font)
			return maybeConvertWOFF2(localPath, b)
		}
	}

	if data.FontFallback != "" {
		if family, weight, ok := ParseGoogleFontSpec(data.FontFallback); ok {
			fmt.Printf("font: %s wght@%s (Google Fonts)\n", family, weight)
			b, err := FetchGoogleFont(data.FontFallback, fontCacheDir)
			if err != nil {
				return nil, fmt.Errorf("google fonts fallback failed: %w", err)
			}
			return b, nil
		}
	}

	return nil, fmt.Errorf("no font configured (set \"font\" or \"font_fallback\" in languages.json)")
}

// maybeConvertWOFF2 converts WOFF2 font data to SFNT format if needed.
func maybeConvertWOFF2(path string, data []byte) ([]byte, error) {
	if !isWOFF2Data(path, data) {
		return data, nil
	}
	sfnt, err := font.ToSFNT(data)
	if err != nil {
		return nil, fmt.Errorf("convert woff2 to sfnt: %w", err)
	}
	return sfnt, nil
}

// isWOFF2Data reports whether font data is WOFF2 by extension or the
// "wOF2" magic.
func isWOFF2Data(name string, data []byte) bool {
	if strings.HasSuffix(strings.ToLower(name), ".woff2") {
		return true
	}
	return len(data) >= 4 && string(data[:4]) == "wOF2"
}
