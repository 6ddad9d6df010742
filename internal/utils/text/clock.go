package text

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	colonClock  = regexp.MustCompile(`(?:^|[^\d:])(\d{1,2}):(\d{2})(?:\D|$)`)
	dottedClock = regexp.MustCompile(`(?i)\bkl\.?\s*(\d{1,2})\.(\d{2})\b`)
	bareHour    = regexp.MustCompile(`(?i)\bkl\.?\s*(\d{1,2})(?:[^\d.:]|$)`)
	isoClock    = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// ParseTime finds the first plausible clock time in s and returns it as HH:MM.
// It accepts "HH:MM" (optionally after "kl."), "kl. H.MM" and a bare "kl. H".
// Hours outside [0,24) and minutes outside [0,60) never match, which keeps a
// date fragment like "20.08" from being read as a time.
func ParseTime(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	for _, m := range colonClock.FindAllStringSubmatch(s, -1) {
		if hhmm, ok := Clock(m[1], m[2]); ok {
			return hhmm, true
		}
	}
	for _, m := range dottedClock.FindAllStringSubmatch(s, -1) {
		if hhmm, ok := Clock(m[1], m[2]); ok {
			return hhmm, true
		}
	}
	for _, m := range bareHour.FindAllStringSubmatch(s, -1) {
		if hhmm, ok := Clock(m[1], "0"); ok {
			return hhmm, true
		}
	}
	return "", false
}

// Clock validates and zero-pads an hour/minute pair.
func Clock(hour, minute string) (string, bool) {
	h, err := strconv.Atoi(hour)
	if err != nil {
		return "", false
	}
	m, err := strconv.Atoi(minute)
	if err != nil {
		return "", false
	}
	if h < 0 || h >= 24 || m < 0 || m >= 60 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", h, m), true
}

// IsClock reports whether s is a valid HH:MM value.
func IsClock(s string) bool {
	if !isoClock.MatchString(s) {
		return false
	}
	_, ok := Clock(s[:2], s[3:])
	return ok
}
