package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Storage classes a column is coerced to.
const (
	TypeText    = "TEXT"
	TypeInteger = "INTEGER"
	TypeNumeric = "NUMERIC"
	TypeReal    = "REAL"
)

// epicTypes maps Epic EHI column types to storage classes. Anything not
// listed, including every DATETIME flavor, is stored as text.
var epicTypes = map[string]string{
	"VARCHAR": TypeText,
	"NUMERIC": TypeNumeric,
	"INTEGER": TypeInteger,
	"FLOAT":   TypeReal,
}

// TableSchema is the published JSON description of one Epic table.
type TableSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Columns     []ColumnSchema `json:"columns"`
	PrimaryKey  []struct {
		ColumnName string `json:"columnName"`
	} `json:"primaryKey"`
}

// ColumnSchema describes one column of a TableSchema.
type ColumnSchema struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// StorageType maps an Epic column type to a storage class.
func StorageType(epicType string) string {
	if t, ok := epicTypes[strings.TrimSpace(epicType)]; ok {
		return t
	}
	return TypeText
}

// LoadSchema reads dir/<table>.json. A missing or empty file yields nil.
func LoadSchema(dir, table string) (*TableSchema, error) {
	if dir == "" {
		return nil, nil
	}
	data, err := os.ReadFile(filepath.Join(dir, table+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", table, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var s TableSchema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", table, err)
	}
	if len(s.Columns) == 0 {
		return nil, nil
	}
	return &s, nil
}

// Coerce converts a raw TSV field to the value stored for a column of the
// given storage class. Blank fields become nil. When a numeric field does
// not parse, the trimmed text is returned with ok=false.
func Coerce(value, storage string) (v any, ok bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, true
	}
	switch storage {
	case TypeInteger:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(value, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return int64(f), true
		}
		return value, false
	case TypeNumeric, TypeReal:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return value, false
		}
		if f == math.Trunc(f) && !strings.Contains(value, ".") && math.Abs(f) < 1<<53 {
			return int64(f), true
		}
		return f, true
	default:
		return value, true
	}
}
