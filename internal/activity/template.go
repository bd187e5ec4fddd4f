package activity

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ///////////////////////////////////////////////
// Template Engine
// ///////////////////////////////////////////////

// Discord rejects text fields outside these rune counts.
const (
	discordMaxLen = 128
	discordMinLen = 2
)

// padRune fills short fields. Discord trims regular whitespace before
// checking the minimum length.
const padRune = "\u200b"

var templateVarRe = regexp.MustCompile(`\{(\w+)\}`)

// templateVars are the values available to display templates.
type templateVars struct {
	File      string
	FilePath  string
	Dir       string
	Workspace string
	Language  string
	Line      int
	Lines     int
	Branch    string
	GitOwner  string
	GitRepo   string
}

// lookup returns the value of a template variable. Unknown names are
// reported as not found so the placeholder is left in place.
func (v templateVars) lookup(name string) (string, bool) {
	switch name {
	case "file":
		return v.File, true
	case "file_path":
		return v.FilePath, true
	case "dir":
		return v.Dir, true
	case "workspace":
		return v.Workspace, true
	case "language":
		return v.Language, true
	case "line":
		return strconv.Itoa(v.Line), true
	case "lines":
		return strconv.Itoa(v.Lines), true
	case "branch":
		return v.Branch, true
	case "git_owner":
		return v.GitOwner, true
	case "git_repo":
		return v.GitRepo, true
	}
	return "", false
}

// render substitutes {name} placeholders and fits the result to Discord's
// length limits.
func render(tmpl string, vars templateVars) string {
	s := templateVarRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		if val, ok := vars.lookup(match[1 : len(match)-1]); ok {
			return val
		}
		return match
	})
	return fit(s)
}

// fit trims s and forces it into [discordMinLen, discordMaxLen] runes. An
// empty result stays empty so the field is omitted from the payload.
func fit(s string) string {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	switch {
	case n == 0:
		return ""
	case n < discordMinLen:
		return s + strings.Repeat(padRune, discordMinLen-n)
	case n > discordMaxLen:
		r := []rune(s)
		return string(r[:discordMaxLen-1]) + "…"
	}
	return s
}
