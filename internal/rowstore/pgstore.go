package rowstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyeh/ehiledger/internal/model"
)

// PGSchema is the Postgres schema export tables are loaded into.
const PGSchema = "ehi"

// PGStore is a Store over a Postgres pool.
type PGStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewPGStore wraps a pool. The pool is closed by Close.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool, schema: PGSchema}
}

func (s *PGStore) TableExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2)",
		s.schema, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("table exists %s: %w", name, err)
	}
	return exists, nil
}

func (s *PGStore) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = $1 ORDER BY table_name",
		s.schema,
	)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return names, nil
}

func (s *PGStore) Fetch(ctx context.Context, table string, columns ...string) ([]model.Row, error) {
	ok, err := s.TableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	list := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = pgx.Identifier{c}.Sanitize()
		}
		list = strings.Join(quoted, ", ")
	}
	query := "SELECT " + list + " FROM " + pgx.Identifier{s.schema, table}.Sanitize()

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}
	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (model.Row, error) {
		vals, err := r.Values()
		if err != nil {
			return nil, err
		}
		row := make(model.Row, len(vals))
		for i, fd := range r.FieldDescriptions() {
			row[fd.Name] = pgValue(vals[i])
		}
		return row, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}
	return out, nil
}

// pgValue converts NUMERIC values, which pgx decodes as pgtype.Numeric,
// into float64 so they read like SQLite values.
func pgValue(v any) any {
	n, ok := v.(pgtype.Numeric)
	if !ok {
		return scanValue(v)
	}
	if !n.Valid || n.NaN {
		return nil
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return nil
	}
	return f.Float64
}

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

var _ Store = (*PGStore)(nil)
