package text

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UnspecifiedLocation is the sentinel used when no venue is found.
const UnspecifiedLocation = "Ikke oppgitt"

var locationLabels = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:Sted|Stad|Møtested|Møtestad)\s*:\s*([^,\n\r]+)`),
	regexp.MustCompile(`(?i)(?:Lokale|Sal|Rom)\s*:\s*([^,\n\r]+)`),
	regexp.MustCompile(`(?i)(?:Adresse)\s*:\s*([^,\n\r]+)`),
}

// DefaultVenues is the venue vocabulary searched when no label is present.
var DefaultVenues = []string{
	"kommunestyresalen",
	"formannskapssalen",
	"fylkeshuset",
	"rådhuset",
	"møterom",
	"kommunehuset",
}

// InferLocation looks for an explicit "Sted: X" style label first and then for
// a known venue noun, which is returned title-cased. It returns
// UnspecifiedLocation and false when neither is present.
func InferLocation(s string) (string, bool) {
	return InferLocationWith(s, DefaultVenues)
}

// InferLocationWith is InferLocation with a caller-provided venue vocabulary.
func InferLocationWith(s string, venues []string) (string, bool) {
	if loc, ok := LabeledLocation(s); ok {
		return loc, true
	}
	lower := strings.ToLower(s)
	for _, v := range venues {
		if strings.Contains(lower, strings.ToLower(v)) {
			return TitleCase(v), true
		}
	}
	return UnspecifiedLocation, false
}

// LabeledLocation extracts the value of a Sted/Stad/Møtested/Lokale/Sal/Rom/
// Adresse label.
func LabeledLocation(s string) (string, bool) {
	for _, re := range locationLabels {
		if m := re.FindStringSubmatch(s); m != nil {
			if v := cutAtNextLabel(CollapseSpace(m[1])); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// cutAtNextLabel drops a following "Tid:"-style label that ends up in the same
// flattened text line.
func cutAtNextLabel(v string) string {
	lower := strings.ToLower(v)
	for _, stop := range []string{" tid:", " tidspunkt:", " dato:", " kl.", " kl "} {
		if i := strings.Index(lower, stop); i > 0 {
			v = v[:i]
			lower = lower[:i]
		}
	}
	return strings.TrimSpace(v)
}

// TitleCase capitalizes each word using Norwegian casing rules. A Caser keeps
// state, so one is built per call.
func TitleCase(s string) string {
	return cases.Title(language.Norwegian).String(s)
}
