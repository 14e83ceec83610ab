package synthesis

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var months = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

type datePattern struct {
	re *regexp.Regexp
	// ymd maps submatches to year, month, day strings
	ymd func(m []string) (y, mo, d string)
}

// Tried in order; a match that is not a real calendar date falls through to the next.
var datePatterns = []datePattern{
	{
		re:  regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`),
		ymd: func(m []string) (string, string, string) { return m[1], m[2], m[3] },
	},
	{
		re:  regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})`),
		ymd: func(m []string) (string, string, string) { return m[3], m[1], m[2] },
	},
	{
		re:  regexp.MustCompile(`(\d{2})-(\d{2})-(\d{4})`),
		ymd: func(m []string) (string, string, string) { return m[3], m[1], m[2] },
	},
	{
		re: regexp.MustCompile(`(?i)(\d{1,2})\s+(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{4})`),
		ymd: func(m []string) (string, string, string) {
			return m[3], strconv.Itoa(int(months[strings.ToLower(m[2])])), m[1]
		},
	},
}

// DeriveDueDate looks for a date in deadline first, then in text, and returns it as
// YYYY-MM-DD. ok is false when nothing valid is found.
func DeriveDueDate(deadline, text string) (string, bool) {
	for _, src := range []string{deadline, text} {
		if strings.TrimSpace(src) == "" {
			continue
		}
		if d, ok := findDate(src); ok {
			return d, true
		}
	}
	return "", false
}

func findDate(s string) (string, bool) {
	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		if d, ok := calendarDate(p.ymd(m)); ok {
			return d, true
		}
	}
	return "", false
}

func calendarDate(ys, ms, ds string) (string, bool) {
	y, err1 := strconv.Atoi(ys)
	m, err2 := strconv.Atoi(ms)
	d, err3 := strconv.Atoi(ds)
	if err1 != nil || err2 != nil || err3 != nil || y < 1 || m < 1 || m > 12 || d < 1 {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (April 31 -> May 1); reject those
	if t.Year() != y || t.Month() != time.Month(m) || t.Day() != d {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d), true
}
