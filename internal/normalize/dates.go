package normalize

import (
	"regexp"
	"strings"
	"time"
)

// Output layouts. Both sort lexicographically in time order.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04:05"
)

// Date formats seen in EHI exports, most specific first.
var dateFormats = []string{
	"1/2/2006 3:04:05 PM",
	"01/02/2006 03:04:05 PM",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
}

var isoPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(T\d{2}:\d{2}:\d{2}Z?)?$`)

// ParseDate attempts to parse a date string in the known export formats.
// Returns nil if the input is empty or unparseable. Zone information is
// dropped: export times are wall-clock local.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
			return &wall
		}
	}
	return nil
}

// FormatDate renders t as YYYY-MM-DD, or nil.
func FormatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}

// FormatDateTime renders t as YYYY-MM-DDTHH:MM:SS, or nil.
func FormatDateTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateTimeLayout)
	return &s
}

// IsISODate reports whether s is in one of the two output layouts. A UTC
// "Z" suffix is accepted on datetimes.
func IsISODate(s string) bool {
	return isoPattern.MatchString(s)
}
