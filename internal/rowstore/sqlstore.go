package rowstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/gyeh/ehiledger/internal/model"
)

// Dialect holds the catalog queries of one SQL engine.
type Dialect struct {
	Name        string
	TableExists string // takes the table name as its only argument
	ListTables  string
}

// SQLite is the dialect of the modernc.org/sqlite driver.
var SQLite = Dialect{
	Name:        "sqlite",
	TableExists: "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
	ListTables:  "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name",
}

// SQLStore is a Store over database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sql.DB, d Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: d}
}

// OpenSQLite opens a loaded export database read-only.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return NewSQLStore(db, SQLite), nil
}

func (s *SQLStore) TableExists(ctx context.Context, name string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.dialect.TableExists, name).Scan(&n); err != nil {
		return false, fmt.Errorf("table exists %s: %w", name, err)
	}
	return n > 0, nil
}

func (s *SQLStore) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.ListTables)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Fetch returns every row of table. With no columns, all columns are read.
func (s *SQLStore) Fetch(ctx context.Context, table string, columns ...string) ([]model.Row, error) {
	ok, err := s.TableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	rows, err := s.db.QueryContext(ctx, selectQuery(table, columns))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("fetch %s columns: %w", table, err)
	}
	var out []model.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		row := make(model.Row, len(cols))
		for i, c := range cols {
			row[c] = scanValue(vals[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

// QuoteIdent quotes a SQL identifier with double quotes.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func selectQuery(table string, columns []string) string {
	list := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = QuoteIdent(c)
		}
		list = strings.Join(quoted, ", ")
	}
	return "SELECT " + list + " FROM " + QuoteIdent(table)
}

var _ Store = (*SQLStore)(nil)
