package text

import (
	"regexp"
	"strings"
)

// PlaceholderTitle replaces titles that are empty or meaningless after cleanup.
const PlaceholderTitle = "Politisk møte"

var (
	clockTail      = regexp.MustCompile(`(?i)\s*(?:\bkl\.?\s*)?\d{1,2}[:.]\d{2}\b.*$`)
	klTail         = regexp.MustCompile(`(?i)\s*\bkl\.?\s*\d{1,2}\b.*$`)
	meetingPrefix  = regexp.MustCompile(`(?i)^(?:møte i |møte |meeting )`)
	calendarNoise  = regexp.MustCompile(`(?i)(?:mandagtirsdagonsdagtorsdagfredaglørdagsøndag|møtekalenderfor|i dagforrigeneste)`)
	trackingDigits = regexp.MustCompile(`\d{8,}`)
	overflowCount  = regexp.MustCompile(`(?i)\+\d+\s*møter`)
	repeatedUtvalg = regexp.MustCompile(`(?i)(?:utvalg){2,}`)
	numericOnly    = regexp.MustCompile(`^[0-9\s+\-.,:/()]+$`)
	trailingPunct  = regexp.MustCompile(`[\s,;:\-–|]+$`)
)

// blacklist holds UI strings that are never meetings: search boxes, result
// pages, "show more" links and pagination.
var blacklist = []*regexp.Regexp{
	regexp.MustCompile(`søk etter møte`),
	regexp.MustCompile(`resultatside`),
	regexp.MustCompile(`møtekalender`),
	regexp.MustCompile(`vis flere`),
	regexp.MustCompile(`vis forrige`),
	regexp.MustCompile(`vis neste`),
	regexp.MustCompile(`^(?:neste|forrige)(?: side)?$`),
	regexp.MustCompile(`side \d+ av \d+`),
	regexp.MustCompile(`search results`),
	regexp.MustCompile(`show more`),
	regexp.MustCompile(`^(?:next|previous) page$`),
}

// IsBlacklisted reports whether a cleaned title is a known non-meeting UI
// string. Such candidates are discarded entirely.
func IsBlacklisted(title string) bool {
	lower := strings.ToLower(title)
	for _, re := range blacklist {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// CleanTitle strips trailing dates and times, known prefixes, calendar
// navigation noise, tracking ids and "+N møter" overflow markers from raw.
// A result shorter than three characters, or made of digits and punctuation
// only, becomes PlaceholderTitle.
func CleanTitle(raw string) string {
	t := Normalize(raw)

	if idx := FirstDateIndex(t); idx > 0 {
		t = t[:idx]
	} else if idx == 0 {
		t = stripLeadingDate(t)
	}
	t = clockTail.ReplaceAllString(t, "")
	t = klTail.ReplaceAllString(t, "")
	t = CollapseSpace(t)

	t = meetingPrefix.ReplaceAllString(t, "")
	t = calendarNoise.ReplaceAllString(t, "")
	t = trackingDigits.ReplaceAllString(t, "")
	t = overflowCount.ReplaceAllString(t, "")
	t = repeatedUtvalg.ReplaceAllStringFunc(t, func(m string) string {
		return m[:len("utvalg")]
	})
	t = trailingPunct.ReplaceAllString(CollapseSpace(t), "")
	t = strings.TrimLeft(t, " ,;:-–|")

	if CountRunes(t) < 3 || numericOnly.MatchString(t) {
		return PlaceholderTitle
	}
	return t
}

// stripLeadingDate removes a date at the very start of s, keeping the rest.
func stripLeadingDate(s string) string {
	for _, re := range []*regexp.Regexp{numericDate, monthNameDate, isoDate} {
		if loc := re.FindStringIndex(s); loc != nil && loc[0] == 0 {
			return strings.TrimSpace(s[loc[1]:])
		}
	}
	return s
}

// IsPlaceholder reports whether title is the generic fallback.
func IsPlaceholder(title string) bool {
	return title == PlaceholderTitle
}
