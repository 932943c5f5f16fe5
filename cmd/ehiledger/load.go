package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/ehiledger/internal/db"
	"github.com/gyeh/ehiledger/internal/exitcode"
	"github.com/gyeh/ehiledger/internal/ingest"
	"github.com/gyeh/ehiledger/internal/logging"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a TSV export (one file per table) into SQLite or Postgres",
	RunE:  runLoad,
}

func init() {
	f := loadCmd.Flags()
	f.StringVar(&cfg.TSVDir, "dir", "", "Directory of <TABLE>.tsv files (required)")
	f.StringVar(&cfg.SchemaDir, "schemas", "", "Directory of <TABLE>.json column schemas")
	f.StringVar(&cfg.DBPath, "sqlite", "", "SQLite database to load into")
	f.BoolVar(&cfg.DryRun, "dry-run", false, "List and hash tables without loading")
	_ = loadCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	if err := cfg.ValidateLoad(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	var sink ingest.Sink
	if !cfg.DryRun {
		var err error
		sink, err = openSink(ctx)
		if err != nil {
			log.Error().Err(err).Msg("database connection failed")
			os.Exit(exitcode.DBConnError)
		}
		defer sink.Close()
	}

	summary, err := ingest.Run(ctx, sink, log, &cfg)
	if err != nil {
		var pe *ingest.PipelineError
		if errors.As(err, &pe) {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Msg("load failed")
			if sink != nil {
				sink.Close()
			}
			switch pe.Phase {
			case "preflight":
				os.Exit(exitcode.ValidationError)
			default:
				os.Exit(exitcode.LoadError)
			}
		}
		log.Error().Err(err).Msg("load failed")
		os.Exit(exitcode.LoadError)
	}

	if cfg.DryRun {
		fmt.Printf("Dry run: %d tables found in %s\n", summary.TablesFound, summary.Dir)
		return nil
	}

	fmt.Printf("Load complete: %d/%d tables, %d rows loaded, %d rows rejected (%.1fs)\n",
		summary.TablesLoaded, summary.TablesFound, summary.RowsLoaded, summary.RowsRejected,
		summary.DurationTotal.Seconds())
	for _, sc := range summary.SpotChecks {
		if sc.Err != nil {
			fmt.Printf("  %s.%s: ERROR - %v\n", sc.Table, sc.Column, sc.Err)
			continue
		}
		fmt.Printf("  %s.%s: %d/%d non-null\n", sc.Table, sc.Column, sc.NonNull, sc.Total)
	}
	if len(summary.TablesRejected) > 0 {
		fmt.Printf("Rejected tables (%d): %v\n", len(summary.TablesRejected), summary.TablesRejected)
		sink.Close()
		os.Exit(exitcode.PartialSuccess)
	}
	return nil
}

func openSink(ctx context.Context) (ingest.Sink, error) {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	if cfg.DBPath != "" {
		return ingest.OpenSQLiteSink(ctx, cfg.DBPath, log)
	}
	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.ApplyMigrations(ctx, pool, log); err != nil {
		pool.Close()
		return nil, err
	}
	return &pooledSink{PGSink: ingest.NewPGSink(pool), close: pool.Close}, nil
}

// pooledSink closes the pool it was opened with.
type pooledSink struct {
	*ingest.PGSink
	close func()
}

func (s *pooledSink) Close() error {
	s.close()
	return nil
}
