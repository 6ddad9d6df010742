package text

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Europe/Oslo on hosts without a zoneinfo database
)

// ISODate is the canonical calendar date layout.
const ISODate = "2006-01-02"

var (
	numericDate   = regexp.MustCompile(`\b(\d{1,2})[./-](\d{1,2})[./-](\d{4}|\d{2})(?:\D|$)`)
	monthNameDate = regexp.MustCompile(`(?i)\b(\d{1,2})\.?\s+([\pL.]{3,})\s+(\d{4})\b`)
	isoDate       = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})(?:[T ](\d{2}):(\d{2}))?`)
	epochStamp    = regexp.MustCompile(`\b(\d{10,13})\b`)
)

// months maps Norwegian (bokmål and nynorsk) and English month spellings to
// their month number. Lookup falls back to the first three letters.
var months = map[string]time.Month{
	"jan": time.January, "januar": time.January, "january": time.January,
	"feb": time.February, "februar": time.February, "february": time.February,
	"mar": time.March, "mars": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"mai": time.May, "may": time.May,
	"jun": time.June, "juni": time.June, "june": time.June,
	"jul": time.July, "juli": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"okt": time.October, "oktober": time.October, "oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"des": time.December, "desember": time.December, "dec": time.December, "december": time.December,
}

// stampZone is used to turn epoch timestamps into calendar dates.
var stampZone = loadZone("Europe/Oslo")

func loadZone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MonthFromName resolves a month word such as "okt.", "oktober" or "Des".
func MonthFromName(name string) (time.Month, bool) {
	key := strings.ToLower(strings.Trim(strings.TrimSpace(name), "."))
	if m, ok := months[key]; ok {
		return m, true
	}
	r := []rune(key)
	if len(r) >= 3 {
		if m, ok := months[string(r[:3])]; ok {
			return m, true
		}
	}
	return 0, false
}

// CivilDate builds a date from its parts. It rejects combinations that do not
// exist on the calendar, such as 30 February.
func CivilDate(year, month, day int) (time.Time, bool) {
	if year < 1970 || year > 2100 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// ParseDate finds the first valid calendar date in s. Formats are tried in
// order: numeric d.m.y, day plus month name plus year, ISO 8601 and finally an
// epoch timestamp. Two-digit years are in the 2000s.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, try := range []func(string) (time.Time, bool){
		parseNumericDate,
		parseMonthNameDate,
		parseISODate,
		parseEpochDate,
	} {
		if t, ok := try(s); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDateISO is ParseDate formatted as YYYY-MM-DD.
func ParseDateISO(s string) (string, bool) {
	t, ok := ParseDate(s)
	if !ok {
		return "", false
	}
	return t.Format(ISODate), true
}

// IsISODate reports whether s is a valid YYYY-MM-DD calendar date.
func IsISODate(s string) bool {
	t, err := time.Parse(ISODate, s)
	return err == nil && t.Format(ISODate) == s
}

func parseNumericDate(s string) (time.Time, bool) {
	for _, m := range numericDate.FindAllStringSubmatch(s, -1) {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		if t, ok := CivilDate(year, month, day); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseMonthNameDate(s string) (time.Time, bool) {
	for _, m := range monthNameDate.FindAllStringSubmatch(s, -1) {
		month, ok := MonthFromName(m[2])
		if !ok {
			continue
		}
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		if t, ok := CivilDate(year, int(month), day); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseISODate(s string) (time.Time, bool) {
	for _, m := range isoDate.FindAllStringSubmatch(s, -1) {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if t, ok := CivilDate(year, month, day); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseEpochDate(s string) (time.Time, bool) {
	for _, m := range epochStamp.FindAllStringSubmatch(s, -1) {
		t, ok := EpochTime(m[1])
		if !ok {
			continue
		}
		if d, ok := CivilDate(t.Year(), int(t.Month()), t.Day()); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

// EpochTime interprets a 10 to 13 digit string as a Unix timestamp in the
// Norwegian time zone. Thirteen or more digits are milliseconds.
func EpochTime(digits string) (time.Time, bool) {
	if len(digits) < 10 {
		return time.Time{}, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	if len(digits) >= 13 {
		return time.UnixMilli(n).In(stampZone), true
	}
	return time.Unix(n, 0).In(stampZone), true
}

// FirstDateIndex returns the byte offset of the first date-looking substring
// in s, or -1.
func FirstDateIndex(s string) int {
	best := -1
	for _, re := range []*regexp.Regexp{numericDate, monthNameDate, isoDate} {
		if loc := re.FindStringIndex(s); loc != nil && (best < 0 || loc[0] < best) {
			best = loc[0]
		}
	}
	return best
}
