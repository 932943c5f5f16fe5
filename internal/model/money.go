package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an amount in integer cents.
type Money int64

// Decimal returns the amount in dollars.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// String renders the amount with two decimals, e.g. "-106.58".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// USD renders the amount for display text, e.g. "$106.58" or "-$106.58".
func (m Money) USD() string {
	if m < 0 {
		return "-$" + (-m).String()
	}
	return "$" + m.String()
}

// Abs returns the absolute amount.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// MarshalJSON writes the amount as a fixed two-decimal JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON reads a JSON number (or numeric string) in dollars.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("parse money %q: %w", s, err)
	}
	*m = Money(d.Shift(2).Round(0).IntPart())
	return nil
}

// Sum adds amounts, treating nil as zero.
func Sum(vals ...*Money) Money {
	var total Money
	for _, v := range vals {
		if v != nil {
			total += *v
		}
	}
	return total
}

// Within reports whether a and b differ by at most tol cents.
func Within(a, b Money, tol Money) bool {
	return (a - b).Abs() <= tol
}
