package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	embedsql "github.com/gyeh/ehiledger/internal/sql"
)

type migration struct {
	name string
	sql  string
}

// readMigrations returns the embedded migrations for one engine in filename
// order.
func readMigrations(engine string) ([]migration, error) {
	dir := path.Join("migrations", engine)
	entries, err := fs.ReadDir(embedsql.Migrations, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	var out []migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := fs.ReadFile(embedsql.Migrations, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		out = append(out, migration{name: entry.Name(), sql: string(data)})
	}
	return out, nil
}

// ApplyMigrations runs the Postgres migrations. All DDL uses IF NOT EXISTS
// so migrations are idempotent.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger) error {
	migs, err := readMigrations("postgres")
	if err != nil {
		return err
	}
	for _, m := range migs {
		log.Info().Str("migration", m.name).Msg("applying migration")
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("execute migration %s: %w", m.name, err)
		}
	}
	log.Info().Int("count", len(migs)).Msg("all migrations applied")
	return nil
}

// ApplySQLiteMigrations runs the SQLite migrations against an open handle.
func ApplySQLiteMigrations(ctx context.Context, db *sql.DB, log zerolog.Logger) error {
	migs, err := readMigrations("sqlite")
	if err != nil {
		return err
	}
	for _, m := range migs {
		log.Debug().Str("migration", m.name).Msg("applying migration")
		if _, err := db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("execute migration %s: %w", m.name, err)
		}
	}
	return nil
}
