// Package normalizer converts loosely formatted statement tokens into
// canonical transaction field values.
package normalizer

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateOnly is the canonical wire format for dates.
const DateOnly = "2006-01-02"

// dateLayouts is tried in order; the first layout that consumes the whole
// string wins. Day-first numeric forms come before year-first where the
// separators differ, matching how most bank exports are written.
var dateLayouts = []string{
	"2006-01-02", // ISO 8601
	"02-01-2006", // DD-MM-YYYY
	"02/01/2006", // DD/MM/YYYY
	"2006/01/02", // YYYY/MM/DD
	"2006.01.02", // YYYY.MM.DD
	"02.01.2006", // DD.MM.YYYY
	"January 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"Jan 2 2006",
	"Jan 2, 2006",
	"02-01-06", // DD-MM-YY
	"02/01/06", // DD/MM/YY
	"02.01.06", // DD.MM.YY
}

// ordinalDayRe matches a leading day number with an English ordinal suffix,
// as in "25th December 2024" or "3rd Dec 2024".
var ordinalDayRe = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)\b`)

// ParseFlexibleDate parses a date written in any of the supported statement
// formats. Matching is strict: the whole string must be consumed by one
// layout, partial prefixes are rejected.
func ParseFlexibleDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	// Ordinal day forms ("25th December 2024") are normalized to plain day
	// numbers first, then matched against the month-name layouts.
	if m := ordinalDayRe.FindStringSubmatch(s); m != nil {
		s = m[1] + s[len(m[0]):]
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}

// FormatDate renders a date in the canonical YYYY-MM-DD form, or "" for the
// zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateOnly)
}

// IsDate reports whether the token parses as a date in any supported format.
func IsDate(s string) bool {
	_, err := ParseFlexibleDate(s)
	return err == nil
}
