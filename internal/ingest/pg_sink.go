package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyeh/ehiledger/internal/db"
	"github.com/gyeh/ehiledger/internal/model"
	"github.com/gyeh/ehiledger/internal/rowstore"
	embedsql "github.com/gyeh/ehiledger/internal/sql"
)

var pgTypes = map[string]string{
	TypeText:    "TEXT",
	TypeInteger: "BIGINT",
	TypeNumeric: "NUMERIC",
	TypeReal:    "DOUBLE PRECISION",
}

// PGSink loads tables into the ehi schema with COPY. Postgres rejects text
// in numeric columns, so the sink is strict. Primary keys are not declared:
// COPY has no replace semantics and Epic exports repeat keys.
type PGSink struct {
	pool *pgxpool.Pool
}

// NewPGSink wraps a pool. Migrations must already be applied.
func NewPGSink(pool *pgxpool.Pool) *PGSink {
	return &PGSink{pool: pool}
}

func (s *PGSink) Name() string { return "postgres" }
func (s *PGSink) Strict() bool { return true }

func (s *PGSink) ident(table string) string {
	return pgx.Identifier{rowstore.PGSchema, table}.Sanitize()
}

func (s *PGSink) CreateTable(ctx context.Context, t *Table) error {
	defs := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		defs[i] = pgx.Identifier{c.Name}.Sanitize() + " " + pgTypes[c.Type]
	}
	ddl := fmt.Sprintf("DROP TABLE IF EXISTS %s; CREATE TABLE %s (%s)",
		s.ident(t.Name), s.ident(t.Name), strings.Join(defs, ", "))
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create %s: %w", t.Name, err)
	}
	if d := comment(t.Description); d != "" {
		// COMMENT does not take bind parameters.
		lit := "'" + strings.ReplaceAll(d, "'", "''") + "'"
		if _, err := s.pool.Exec(ctx, "COMMENT ON TABLE "+s.ident(t.Name)+" IS "+lit); err != nil {
			return fmt.Errorf("comment %s: %w", t.Name, err)
		}
	}
	return nil
}

// Insert streams the rows through COPY. COPY is all or nothing, so a
// failure fails the table.
func (s *PGSink) Insert(ctx context.Context, t *Table, rows <-chan []any) (InsertResult, error) {
	converted := make(chan []any)
	go func() {
		defer close(converted)
		for values := range rows {
			for i, c := range t.Columns {
				if n, ok := values[i].(int64); ok && c.Type == TypeReal {
					values[i] = float64(n)
				}
			}
			select {
			case converted <- values:
			case <-ctx.Done():
				return
			}
		}
	}()

	n, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{rowstore.PGSchema, t.Name},
		t.ColumnNames(),
		db.NewChannelSource(converted),
	)
	if err != nil {
		return InsertResult{}, fmt.Errorf("copy %s: %w", t.Name, err)
	}
	return InsertResult{Inserted: n}, nil
}

func (s *PGSink) RecordRun(ctx context.Context, run *LoadRun) error {
	rejected := run.Rejected
	if rejected == nil {
		rejected = []string{}
	}
	_, err := s.pool.Exec(ctx, embedsql.RecordLoadRunPG,
		run.RunID, run.Dir, run.StartedAt, run.FinishedAt,
		run.TablesFound, run.TablesLoaded, run.RowsLoaded, rejected,
	)
	if err != nil {
		return fmt.Errorf("record load run: %w", err)
	}
	return nil
}

func (s *PGSink) SpotCheck(ctx context.Context, table, column string) (model.SpotCheck, error) {
	sc := model.SpotCheck{Table: table, Column: column}
	query := spotCheckQuery(embedsql.SpotCheck, s.ident(table), pgx.Identifier{column}.Sanitize())
	if err := s.pool.QueryRow(ctx, query).Scan(&sc.Total, &sc.NonNull); err != nil {
		return sc, fmt.Errorf("spot check %s.%s: %w", table, column, err)
	}
	return sc, nil
}

// Close is a no-op; the pool belongs to the caller.
func (s *PGSink) Close() error { return nil }

var _ Sink = (*PGSink)(nil)
