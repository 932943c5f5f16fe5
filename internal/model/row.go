package model

import (
	"sort"
	"time"

	"github.com/gyeh/ehiledger/internal/normalize"
)

// Row is one exported record: column name to scalar (string, json.Number,
// bool, nil) or to a nested array of child rows. Columns are not known
// statically; absent and null columns read the same.
type Row map[string]any

// Rows returns the child rows stored under key. Non-array values and array
// elements that are not objects are skipped.
func (r Row) Rows(key string) []Row {
	raw, ok := r[key].([]any)
	if !ok {
		if typed, ok := r[key].([]Row); ok {
			return typed
		}
		return nil
	}
	out := make([]Row, 0, len(raw))
	for _, v := range raw {
		switch child := v.(type) {
		case map[string]any:
			out = append(out, Row(child))
		case Row:
			out = append(out, child)
		}
	}
	return out
}

// Object returns the nested object stored under key.
func (r Row) Object(key string) (Row, bool) {
	switch v := r[key].(type) {
	case map[string]any:
		return Row(v), true
	case Row:
		return v, true
	}
	return nil, false
}

// Has reports whether key is present, even if its value is null.
func (r Row) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Scalars returns the scalar columns of the row rendered as text, skipping
// nulls and nested values. Used for stable row hashing.
func (r Row) Scalars() map[string]string {
	out := make(map[string]string, len(r))
	for k, v := range r {
		if s := normalize.Text(v); s != nil {
			out[k] = *s
		}
	}
	return out
}

// Reader promotes columns of a Row into typed values and remembers which
// columns it consumed, so the remainder can travel as an opaque payload.
type Reader struct {
	row  Row
	pos  int
	used map[string]bool
}

// NewReader wraps a row. A nil row reads as empty.
func NewReader(r Row) *Reader {
	if r == nil {
		r = Row{}
	}
	return &Reader{row: r, used: make(map[string]bool)}
}

// NewReaderAt wraps the row found at index pos of its collection.
func NewReaderAt(r Row, pos int) *Reader {
	rd := NewReader(r)
	rd.pos = pos
	return rd
}

// Row returns the underlying row.
func (r *Reader) Row() Row { return r.row }

// Position returns the row's index within its collection.
func (r *Reader) Position() int { return r.pos }

// first returns the first non-blank value among the candidate columns and
// consumes it. Blank candidates are consumed too; a synonym that holds a
// value but was not read stays in Rest.
func (r *Reader) first(cols []string) any {
	for _, c := range cols {
		v, ok := r.row[c]
		if !ok {
			continue
		}
		if v == nil {
			r.used[c] = true
			continue
		}
		if s, isStr := v.(string); isStr && s == "" {
			r.used[c] = true
			continue
		}
		r.used[c] = true
		return v
	}
	return nil
}

// Str reads the first non-empty text column.
func (r *Reader) Str(cols ...string) *string {
	return normalize.Text(r.first(cols))
}

// ID reads the first non-empty identifier column, normalizing numeric ids
// ("123.0" and 123 both become "123").
func (r *Reader) ID(cols ...string) *string {
	return normalize.ID(r.first(cols))
}

// Money reads an amount in dollars as cents.
func (r *Reader) Money(cols ...string) *Money {
	c := normalize.ParseCents(r.first(cols))
	if c == nil {
		return nil
	}
	m := Money(*c)
	return &m
}

// Float reads a plain number.
func (r *Reader) Float(cols ...string) *float64 {
	return normalize.Float(r.first(cols))
}

// Int reads an integer column; fractional values are truncated.
func (r *Reader) Int(cols ...string) *int64 {
	f := normalize.Float(r.first(cols))
	if f == nil {
		return nil
	}
	i := int64(*f)
	return &i
}

// Time reads a date or datetime column.
func (r *Reader) Time(cols ...string) *time.Time {
	s := normalize.Text(r.first(cols))
	if s == nil {
		return nil
	}
	return normalize.ParseDate(*s)
}

// Flag reads a Y/N style column. Absent reads as false.
func (r *Reader) Flag(cols ...string) bool {
	return normalize.Flag(r.first(cols))
}

// Children consumes a nested child-row collection.
func (r *Reader) Children(key string) []Row {
	r.used[key] = true
	return r.row.Rows(key)
}

// Object consumes a nested object.
func (r *Reader) Object(key string) (Row, bool) {
	r.used[key] = true
	return r.row.Object(key)
}

// Strings consumes a scalar array column, normalizing each element as an id.
func (r *Reader) Strings(key string) []string {
	r.used[key] = true
	raw, ok := r.row[key].([]any)
	if !ok {
		if typed, ok := r.row[key].([]string); ok {
			return append([]string(nil), typed...)
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if id := normalize.ID(v); id != nil {
			out = append(out, *id)
		}
	}
	return out
}

// Rest returns the columns nothing has consumed yet, as a new row.
func (r *Reader) Rest() Row {
	rest := make(Row)
	for k, v := range r.row {
		if !r.used[k] {
			rest[k] = v
		}
	}
	return rest
}

// Keys returns the row's column names in sorted order.
func (r Row) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
