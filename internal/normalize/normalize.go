package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Text renders a scalar export value as trimmed text. Returns nil for null,
// empty strings and non-scalar values.
func Text(v any) *string {
	var s string
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		s = strings.TrimSpace(x)
	case json.Number:
		s = x.String()
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	case bool:
		s = strconv.FormatBool(x)
	default:
		return nil
	}
	if s == "" {
		return nil
	}
	return &s
}

// ID renders an identifier. Numeric ids exported as "123.0" collapse to "123".
func ID(v any) *string {
	if _, isBool := v.(bool); isBool {
		return nil
	}
	s := Text(v)
	if s == nil {
		return nil
	}
	if strings.HasSuffix(*s, ".0") {
		if _, err := strconv.ParseFloat(*s, 64); err == nil {
			trimmed := strings.TrimSuffix(*s, ".0")
			return &trimmed
		}
	}
	return s
}

// Float parses a numeric export value. Returns nil when absent or not numeric.
func Float(v any) *float64 {
	var f float64
	var err error
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		f = x
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		f, err = x.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		return nil
	}
	if err != nil {
		return nil
	}
	return &f
}

// Flag interprets Y/N, yes/no, true/false and 1/0 values.
func Flag(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case nil:
		return false
	}
	s := Text(v)
	if s == nil {
		return false
	}
	switch strings.ToUpper(*s) {
	case "Y", "YES", "TRUE", "1", "T":
		return true
	}
	return false
}
