// Package rowstore reads flat rows back out of a loaded EHI export.
package rowstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/gyeh/ehiledger/internal/model"
	"github.com/gyeh/ehiledger/internal/normalize"
)

// ErrTableNotFound is returned by Fetch when the export lacks the table.
var ErrTableNotFound = errors.New("table not found")

// Store is a read-only view of the relational export.
type Store interface {
	TableExists(ctx context.Context, name string) (bool, error)
	Fetch(ctx context.Context, table string, columns ...string) ([]model.Row, error)
	Tables(ctx context.Context) ([]string, error)
	Close() error
}

// Billing visit mapping columns.
const (
	VisitTable     = "ARPB_VISITS"
	VisitNumberCol = "PB_VISIT_NUM"
	VisitCSNCol    = "PRIM_ENC_CSN_ID"
)

// VisitMap reads the billing visit number to CSN mapping. An export without
// ARPB_VISITS yields an empty map, not an error.
func VisitMap(ctx context.Context, s Store) (map[string]string, error) {
	ok, err := s.TableExists(ctx, VisitTable)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", VisitTable, err)
	}
	out := make(map[string]string)
	if !ok {
		return out, nil
	}
	rows, err := s.Fetch(ctx, VisitTable, VisitNumberCol, VisitCSNCol)
	if err != nil {
		return nil, fmt.Errorf("fetch visit map: %w", err)
	}
	for _, r := range rows {
		num := normalize.ID(r[VisitNumberCol])
		csn := normalize.ID(r[VisitCSNCol])
		if num == nil || csn == nil {
			continue
		}
		out[*num] = *csn
	}
	return out, nil
}

// Coverage reports, for every known collection, whether its source table
// exists in the store.
func Coverage(ctx context.Context, s Store) (map[string]bool, error) {
	out := make(map[string]bool, len(model.AllCollections))
	for _, c := range model.AllCollections {
		ok, err := s.TableExists(ctx, c.Table)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", c.Table, err)
		}
		out[c.Key] = ok
	}
	return out, nil
}

// scanValue converts a driver value into a Row scalar.
func scanValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	default:
		return x
	}
}
