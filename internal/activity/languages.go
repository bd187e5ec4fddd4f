package activity

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	rootpkg "tools.zach/dev/nvimcord"
)

// Language is one entry of the language table.
type Language struct {
	// Key is the Discord asset key of the language icon.
	Key string `json:"key"`
	// Name is shown in templates as {language}.
	Name string `json:"name"`
	// Label is the text drawn on the generated icon.
	Label      string   `json:"label,omitempty"`
	FileTypes  []string `json:"filetypes,omitempty"`
	Extensions []string `json:"extensions,omitempty"`
	Files      []string `json:"files,omitempty"`
	BgColor    string   `json:"bg_color,omitempty"`
	FgColor    string   `json:"fg_color,omitempty"`
}

// IconStyle is the rendering style shared by all generated icons.
type IconStyle struct {
	BgColor  string `json:"bg_color"`
	FgColor  string `json:"fg_color"`
	Size     int    `json:"size"`
	FontSize int    `json:"font_size"`
}

// LanguageTable is the decoded form of data/languages.json.
type LanguageTable struct {
	Default      Language   `json:"default"`
	Style        IconStyle  `json:"style"`
	Font         string     `json:"font,omitempty"`
	FontFallback string     `json:"font_fallback,omitempty"`
	Languages    []Language `json:"languages"`

	byFile     map[string]*Language
	byFileType map[string]*Language
	byExt      map[string]*Language
}

// ParseLanguages decodes and indexes a language table.
func ParseLanguages(data []byte) (*LanguageTable, error) {
	var t LanguageTable
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing language table: %w", err)
	}
	if t.Default.Key == "" {
		return nil, fmt.Errorf("language table has no default key")
	}
	t.byFile = map[string]*Language{}
	t.byFileType = map[string]*Language{}
	t.byExt = map[string]*Language{}
	for i := range t.Languages {
		l := &t.Languages[i]
		if l.Key == "" {
			return nil, fmt.Errorf("language %d has no key", i)
		}
		for _, f := range l.Files {
			t.byFile[f] = l
		}
		for _, ft := range l.FileTypes {
			t.byFileType[ft] = l
		}
		for _, e := range l.Extensions {
			t.byExt[strings.ToLower(e)] = l
		}
	}
	return &t, nil
}

// MustLanguages returns the embedded language table.
func MustLanguages() *LanguageTable {
	t, err := ParseLanguages(rootpkg.LanguagesJSON)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup resolves a buffer to a language. Exact file names win over the
// Neovim filetype, which wins over the extension. Unknown buffers get the
// default entry.
func (t *LanguageTable) Lookup(file, fileType string) Language {
	if file != "" {
		if l, ok := t.byFile[filepath.Base(file)]; ok {
			return *l
		}
	}
	if l, ok := t.byFileType[fileType]; ok {
		return *l
	}
	if ext := strings.ToLower(filepath.Ext(file)); ext != "" {
		if l, ok := t.byExt[ext]; ok {
			return *l
		}
	}
	return t.Default
}
