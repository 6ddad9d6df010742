package text

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var spaceRun = regexp.MustCompile(`\s+`)

// Normalize converts s to NFC, replaces non-breaking spaces and collapses all
// whitespace runs to a single space.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u00a0', '\u2007', '\u202f':
			return ' '
		}
		return r
	}, s)
	return CollapseSpace(s)
}

// CollapseSpace trims s and collapses internal whitespace.
func CollapseSpace(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// Lines splits raw element text into trimmed, non-empty lines.
func Lines(raw string) []string {
	parts := strings.Split(norm.NFC.String(raw), "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = CollapseSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// HasLetter reports whether s contains at least one letter.
func HasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
