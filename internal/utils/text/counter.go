// Package text turns loosely formatted municipal page text into structured
// values: calendar dates, clock times, cleaned titles and venue names.
//
// Every parser in this package is a pure function with an ok result. A miss is
// a normal outcome and never an error.
package text

// CountRunes counts the number of Unicode characters (runes) in the given text.
// Norwegian titles contain multi-byte letters (æ, ø, å), so byte length is
// never used for limits.
func CountRunes(text string) int {
	return len([]rune(text))
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
