package main

import (
	"context"
	"database/sql"
	"os"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/gyeh/ehiledger/internal/db"
	"github.com/gyeh/ehiledger/internal/exitcode"
	"github.com/gyeh/ehiledger/internal/logging"
)

var migrateSQLite string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the loader's bookkeeping migrations",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateSQLite, "sqlite", "", "Migrate a SQLite database instead of Postgres")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	if migrateSQLite != "" {
		handle, err := sql.Open("sqlite", migrateSQLite)
		if err != nil {
			log.Error().Err(err).Msg("database connection failed")
			os.Exit(exitcode.DBConnError)
		}
		defer handle.Close()
		if err := db.ApplySQLiteMigrations(ctx, handle, log); err != nil {
			log.Error().Err(err).Msg("migration failed")
			handle.Close()
			os.Exit(exitcode.LoadError)
		}
		log.Info().Str("sqlite", migrateSQLite).Msg("all migrations applied successfully")
		return nil
	}

	if cfg.DSN == "" {
		log.Error().Msg("--dsn or DATABASE_URL is required")
		os.Exit(exitcode.UsageError)
	}

	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool, log); err != nil {
		log.Error().Err(err).Msg("migration failed")
		pool.Close()
		os.Exit(exitcode.LoadError)
	}

	log.Info().Msg("all migrations applied successfully")
	return nil
}
