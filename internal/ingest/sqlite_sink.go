package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/gyeh/ehiledger/internal/db"
	"github.com/gyeh/ehiledger/internal/model"
	"github.com/gyeh/ehiledger/internal/rowstore"
	embedsql "github.com/gyeh/ehiledger/internal/sql"
)

// SQLiteSink loads tables into a SQLite file. SQLite keeps unparsable
// numeric fields as text, so it is lenient.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLiteSink opens (or creates) the database at path and applies the
// bookkeeping migrations.
func OpenSQLiteSink(ctx context.Context, path string, log zerolog.Logger) (*SQLiteSink, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer; the pragmas below are per connection.
	handle.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA synchronous=OFF"} {
		if _, err := handle.ExecContext(ctx, pragma); err != nil {
			handle.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := db.ApplySQLiteMigrations(ctx, handle, log); err != nil {
		handle.Close()
		return nil, err
	}
	return &SQLiteSink{db: handle}, nil
}

func (s *SQLiteSink) Name() string { return "sqlite" }
func (s *SQLiteSink) Strict() bool { return false }

// CreateTable embeds the table and column descriptions as SQL comments so
// they survive in sqlite_master.
func (s *SQLiteSink) CreateTable(ctx context.Context, t *Table) error {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s ( -- %s\n", rowstore.QuoteIdent(t.Name), comment(t.Description))
	for i, c := range t.Columns {
		sep := ","
		if i == len(t.Columns)-1 && len(t.PrimaryKey) == 0 {
			sep = ""
		}
		fmt.Fprintf(&b, "  %s %s%s", rowstore.QuoteIdent(c.Name), c.Type, sep)
		if d := comment(c.Description); d != "" {
			b.WriteString(" -- " + d)
		}
		b.WriteByte('\n')
	}
	if len(t.PrimaryKey) > 0 {
		quoted := make([]string, len(t.PrimaryKey))
		for i, k := range t.PrimaryKey {
			quoted[i] = rowstore.QuoteIdent(k)
		}
		fmt.Fprintf(&b, "  PRIMARY KEY (%s)\n", strings.Join(quoted, ", "))
	}
	b.WriteString(")")

	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+rowstore.QuoteIdent(t.Name)); err != nil {
		return fmt.Errorf("drop %s: %w", t.Name, err)
	}
	if _, err := s.db.ExecContext(ctx, b.String()); err != nil {
		return fmt.Errorf("create %s: %w", t.Name, err)
	}
	return nil
}

// Insert writes all rows in one transaction. A row that fails is counted
// and skipped; later rows still load.
func (s *SQLiteSink) Insert(ctx context.Context, t *Table, rows <-chan []any) (InsertResult, error) {
	var res InsertResult
	cols := t.ColumnNames()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = rowstore.QuoteIdent(c)
	}
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		rowstore.QuoteIdent(t.Name),
		strings.Join(quoted, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin %s: %w", t.Name, err)
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return res, fmt.Errorf("prepare insert %s: %w", t.Name, err)
	}
	defer stmt.Close()

	for values := range rows {
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			if ctx.Err() != nil {
				tx.Rollback()
				return res, ctx.Err()
			}
			res.Failed++
			continue
		}
		res.Inserted++
	}
	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit %s: %w", t.Name, err)
	}
	return res, nil
}

func (s *SQLiteSink) RecordRun(ctx context.Context, run *LoadRun) error {
	_, err := s.db.ExecContext(ctx, embedsql.RecordLoadRunSQLite,
		run.RunID.String(),
		run.Dir,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.TablesFound,
		run.TablesLoaded,
		run.RowsLoaded,
		strings.Join(run.Rejected, ","),
	)
	if err != nil {
		return fmt.Errorf("record load run: %w", err)
	}
	return nil
}

func (s *SQLiteSink) SpotCheck(ctx context.Context, table, column string) (model.SpotCheck, error) {
	sc := model.SpotCheck{Table: table, Column: column}
	query := spotCheckQuery(embedsql.SpotCheck, rowstore.QuoteIdent(table), rowstore.QuoteIdent(column))
	if err := s.db.QueryRowContext(ctx, query).Scan(&sc.Total, &sc.NonNull); err != nil {
		return sc, fmt.Errorf("spot check %s.%s: %w", table, column, err)
	}
	return sc, nil
}

func (s *SQLiteSink) Close() error { return s.db.Close() }

var _ Sink = (*SQLiteSink)(nil)
