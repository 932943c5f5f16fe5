package normalize

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// DollarsToCents converts a nullable float64 dollar amount to nullable int64 cents.
// Uses math.Round to avoid truncation bias.
func DollarsToCents(v *float64) *int64 {
	if v == nil {
		return nil
	}
	c := int64(math.Round(*v * 100))
	return &c
}

// ParseCents converts an exported amount to cents. Text and json.Number
// values are parsed exactly; "$1,234.50" and accounting negatives "(12.00)"
// are accepted. Returns nil for null, empty or unparseable input.
func ParseCents(v any) *int64 {
	switch x := v.(type) {
	case nil:
		return nil
	case json.Number:
		return decimalCents(string(x))
	case string:
		return decimalCents(x)
	case float64:
		return DollarsToCents(&x)
	case float32:
		f := float64(x)
		return DollarsToCents(&f)
	case int:
		c := int64(x) * 100
		return &c
	case int64:
		c := x * 100
		return &c
	}
	return nil
}

func decimalCents(s string) *int64 {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.Replace(s, "$", "", 1)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	if neg {
		d = d.Neg()
	}
	c := d.Shift(2).Round(0).IntPart()
	return &c
}
