package eligibility

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

var (
	isoRe      = regexp.MustCompile(`\b(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})\b`)
	numericRe  = regexp.MustCompile(`\b(\d{1,2})[-/.](\d{1,2})[-/.](\d{4})\b`)
	dayFirstRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?([a-z]+)\.?,?\s+(\d{4})\b`)
	monthRe    = regexp.MustCompile(`(?i)\b([a-z]+)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
)

// ParseDeadline extracts a calendar date from free-form deadline text.
// Numeric dates are read year-first when they start with a four digit year,
// otherwise day-first with a month-first fallback. Month names may be full
// or abbreviated. A year is always required.
func ParseDeadline(text string) (time.Time, bool) {
	if m := isoRe.FindStringSubmatch(text); m != nil {
		if d, ok := makeDate(m[1], m[2], m[3]); ok {
			return d, true
		}
	}
	if m := numericRe.FindStringSubmatch(text); m != nil {
		if d, ok := makeDate(m[3], m[2], m[1]); ok {
			return d, true
		}
		if d, ok := makeDate(m[3], m[1], m[2]); ok {
			return d, true
		}
	}
	for _, m := range dayFirstRe.FindAllStringSubmatch(text, -1) {
		if mon, ok := months[strings.ToLower(m[2])]; ok {
			if d, ok := makeDate(m[3], strconv.Itoa(int(mon)), m[1]); ok {
				return d, true
			}
		}
	}
	for _, m := range monthRe.FindAllStringSubmatch(text, -1) {
		if mon, ok := months[strings.ToLower(m[1])]; ok {
			if d, ok := makeDate(m[3], strconv.Itoa(int(mon)), m[2]); ok {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

// makeDate builds a UTC midnight date, rejecting values time.Date would
// silently normalize, such as 31 February.
func makeDate(year, month, day string) (time.Time, bool) {
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, false
	}
	return t, true
}

// daysUntil counts whole calendar days from now's date to deadline. Today
// is the date in now's own location; deadline is a date-only UTC value.
func daysUntil(deadline, now time.Time) int {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(deadline.Sub(today) / (24 * time.Hour))
}
