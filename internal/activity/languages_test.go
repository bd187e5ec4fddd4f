package activity

import "testing"

func TestEmbeddedLanguages(t *testing.T) {
	langs := MustLanguages()
	if langs.Default.Key == "" || langs.Style.Size == 0 {
		t.Fatalf("embedded table incomplete: %+v", langs.Default)
	}
	seen := map[string]bool{}
	for _, l := range langs.Languages {
		if seen[l.Key] {
			t.Errorf("duplicate language key %q", l.Key)
		}
		seen[l.Key] = true
		if l.Name == "" || l.Label == "" || l.BgColor == "" {
			t.Errorf("language %q is missing name, label or color", l.Key)
		}
	}
}

func TestLookup(t *testing.T) {
	langs := MustLanguages()
	tests := []struct {
		name     string
		file     string
		fileType string
		want     string
	}{
		{"filetype", "/src/main.go", "go", "go"},
		{"extension without filetype", "/src/app.TSX", "", "typescript"},
		{"exact file name beats filetype", "/src/go.mod", "gomod", "go"},
		{"exact file name beats extension", "/repo/CMakeLists.txt", "", "make"},
		{"dockerfile", "/repo/Dockerfile", "", "docker"},
		{"filetype without file", "", "lua", "lua"},
		{"unknown", "/tmp/notes.xyz", "xyz", "text"},
		{"nothing", "", "", "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := langs.Lookup(tt.file, tt.fileType).Key; got != tt.want {
				t.Errorf("Lookup(%q, %q) = %q, want %q", tt.file, tt.fileType, got, tt.want)
			}
		})
	}
}

func TestParseLanguagesErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{`},
		{"no default", `{"languages": []}`},
		{"language without key", `{"default": {"key": "text"}, "languages": [{"name": "Go"}]}`},
	}
	for _, tt := range tests {
		if _, err := ParseLanguages([]byte(tt.data)); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}
