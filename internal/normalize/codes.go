package normalize

import (
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]`)

// NormalizeCode trims whitespace, uppercases, and strips non-alphanumeric characters.
// Returns nil if the input is nil or the result is empty.
func NormalizeCode(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	s = strings.ToUpper(s)
	s = nonAlphanumeric.ReplaceAllString(s, "")
	if s == "" {
		return nil
	}
	return &s
}

// Modifiers normalizes procedure modifiers gathered from several columns,
// dropping empties and duplicates while keeping column order.
func Modifiers(vals ...*string) []string {
	out := make([]string, 0, len(vals))
	seen := make(map[string]bool, len(vals))
	for _, v := range vals {
		m := NormalizeCode(v)
		if m == nil || seen[*m] {
			continue
		}
		seen[*m] = true
		out = append(out, *m)
	}
	return out
}
