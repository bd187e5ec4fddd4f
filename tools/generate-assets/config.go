// config.go defines the icon table types read from data/languages.json.
// [LanguageData] mirrors the file; [IconStyle] holds per-icon styling.

package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// IconStyle holds the visual styling of one language icon.
type IconStyle struct {
	// BgColor is the background hex color (e.g. "#00ADD8").
	BgColor string `json:"bg_color,omitempty"`
	// FgColor is the label hex color (e.g. "#FFFFFF").
	FgColor string `json:"fg_color,omitempty"`
	// Size is the square image dimension in pixels.
	Size int `json:"size,omitempty"`
	// FontSize is the font size in points at 72 DPI. Labels that would not
	// fit are scaled down.
	FontSize int `json:"font_size,omitempty"`
}

// Language is the part of a language entry the tool needs.
type Language struct {
	// Key is the Discord asset key and the output file name.
	Key string `json:"key"`
	// Label is the text drawn on the icon.
	Label   string `json:"label,omitempty"`
	BgColor string `json:"bg_color,omitempty"`
	FgColor string `json:"fg_color,omitempty"`
}

// LanguageData holds data/languages.json.
type LanguageData struct {
	// Default is the icon used for unknown buffers.
	Default Language `json:"default"`
	// Style provides base styling inherited by every icon.
	Style IconStyle `json:"style"`
	// Font is a local font file path relative to the repo root.
	Font string `json:"font,omitempty"`
	// FontFallback is a Google Fonts spec (e.g. "google:Inter:800") used
	// when the local font file is not found.
	FontFallback string     `json:"font_fallback,omitempty"`
	Languages    []Language `json:"languages"`
}

// Icons returns every language followed by the default, skipping entries
// without a key.
func (d *LanguageData) Icons() []Language {
	icons := make([]Language, 0, len(d.Languages)+1)
	for _, l := range d.Languages {
		if l.Key != "" {
			icons = append(icons, l)
		}
	}
	if d.Default.Key != "" {
		icons = append(icons, d.Default)
	}
	return icons
}

// ResolvedStyle returns the effective style of l: table style, then the
// language's own colors.
func (d *LanguageData) ResolvedStyle(l Language) IconStyle {
	style := d.Style
	mergeIconStyle(&style, IconStyle{BgColor: l.BgColor, FgColor: l.FgColor})
	return style
}

// mergeIconStyle applies non-zero fields from src onto dst.
func mergeIconStyle(dst *IconStyle, src IconStyle) {
	if src.BgColor != "" {
		dst.BgColor = src.BgColor
	}
	if src.FgColor != "" {
		dst.FgColor = src.FgColor
	}
	if src.Size != 0 {
		dst.Size = src.Size
	}
	if src.FontSize != 0 {
		dst.FontSize = src.FontSize
	}
}

// label is the text drawn for l, falling back to the key's first letter.
func label(l Language) string {
	if l.Label != "" {
		return l.Label
	}
	if l.Key == "" {
		return ""
	}
	return string([]rune(l.Key)[:1])
}

// LoadLanguageData reads and parses a languages.json file.
func LoadLanguageData(path string) (*LanguageData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ld LanguageData
	if err := json.Unmarshal(data, &ld); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &ld, nil
}
