package main

import (
	"reflect"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/nvimcord/internal/config"
)

// ///////////////////////////////////////////////
// parseSectionPath Tests
// ///////////////////////////////////////////////

func TestParseSectionPath(t *testing.T) {
	tests := []struct {
		name    string
		section string
		want    []string
	}{
		{"single segment", "display", []string{"display"}},
		{"two segments", "display.assets", []string{"display", "assets"}},
		{"array table", "privacy.overrides", []string{"privacy", "overrides"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseSectionPath(tt.section); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseSectionPath(%q) = %q, want %q", tt.section, got, tt.want)
			}
		})
	}
}

// ///////////////////////////////////////////////
// sectionName Tests
// ///////////////////////////////////////////////

func TestSectionName(t *testing.T) {
	tests := []struct {
		name    string
		section string
		want    string
	}{
		{"single segment", "display", "Display"},
		{"last of two", "display.timestamps", "Timestamps"},
		{"already capitalized", "Display", "Display"},
		{"single char", "a", "A"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sectionName(tt.section); got != tt.want {
				t.Errorf("sectionName(%q) = %q, want %q", tt.section, got, tt.want)
			}
		})
	}
}

// ///////////////////////////////////////////////
// injectOmitted Tests
// ///////////////////////////////////////////////

func TestInjectOmittedNoSection(t *testing.T) {
	var out []string
	injectOmitted(&out, nil, map[string]bool{}, config.ConfigDocs)
	if len(out) != 0 {
		t.Errorf("injectOmitted with nil sectionStack produced %d lines, want 0", len(out))
	}
}

func TestInjectOmittedSortedAndScoped(t *testing.T) {
	docs := map[string]config.FieldDoc{
		"display.buttons.b":      {Alternatives: []string{`b = 2`}},
		"display.buttons.a":      {Comment: "first", Alternatives: []string{`a = 1`}},
		"display.buttons.shown":  {Comment: "already written"},
		"display.buttons.deep.x": {Comment: "nested"},
		"display.details":        {Comment: "other section"},
	}
	emitted := map[string]bool{"display.buttons.shown": true}

	var out []string
	injectOmitted(&out, []string{"display", "buttons"}, emitted, docs)

	want := []string{"", "# first", "# a = 1", "", "# b = 2"}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("out = %q, want %q", out, want)
	}
	if !emitted["display.buttons.a"] || !emitted["display.buttons.b"] {
		t.Error("injected keys not marked emitted")
	}
}

// ///////////////////////////////////////////////
// render Tests
// ///////////////////////////////////////////////

func TestRenderDecodesToExampleConfig(t *testing.T) {
	out, err := render(config.ExampleConfig(), config.ConfigDocs)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	got := &config.Config{}
	if _, err := toml.Decode(out, got); err != nil {
		t.Fatalf("rendered config does not parse: %v\n%s", err, out)
	}
	want := config.ExampleConfig()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("decoded config = %+v\nwant %+v", got, want)
	}
}

func TestRenderDocumentsEveryField(t *testing.T) {
	out, err := render(config.ExampleConfig(), config.ConfigDocs)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for path, doc := range config.ConfigDocs {
		for _, cl := range strings.Split(doc.Comment, "\n") {
			if cl != "" && !strings.Contains(out, "# "+cl) {
				t.Errorf("comment for %s missing: %q", path, cl)
			}
		}
		for _, alt := range doc.Alternatives {
			if !strings.Contains(out, "# "+alt) {
				t.Errorf("alternative for %s missing: %q", path, alt)
			}
		}
	}
}

func TestRenderLayout(t *testing.T) {
	out, err := render(config.ExampleConfig(), config.ConfigDocs)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(out, "# ///////////////////////////////////////////////\n# nvimcord Configuration\n") {
		t.Errorf("missing header:\n%s", out[:min(len(out), 200)])
	}
	for _, want := range []string{"# ///// Assets /////", "[display.assets]", "[[privacy.overrides]]"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			t.Errorf("indented line %q", line)
		}
	}
	if idx := strings.Index(out, "# Per-path overrides"); idx < 0 || idx > strings.Index(out, "[[privacy.overrides]]") {
		t.Error("overrides comment should precede the [[privacy.overrides]] header")
	}
}
