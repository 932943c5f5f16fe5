package main

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gyeh/ehiledger/internal/config"
	"github.com/gyeh/ehiledger/internal/db"
	"github.com/gyeh/ehiledger/internal/exitcode"
	"github.com/gyeh/ehiledger/internal/graph"
	"github.com/gyeh/ehiledger/internal/pipeline"
	"github.com/gyeh/ehiledger/internal/rowstore"
)

var (
	cfg        = config.Default()
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "ehiledger",
	Short: "EHI export → Clean Projection and billing reconciliation",
	Long: "Hydrates an Epic EHI export into a typed patient record, emits a schema-checked Clean Projection, " +
		"and reconciles every encounter's billing into an auditable timeline.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			return nil
		}
		return cfg.LoadFromFile(configPath)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", os.Getenv("DATABASE_URL"), "Postgres connection string (or set DATABASE_URL)")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn or error")
	pf.StringVar(&configPath, "config", "", "YAML file with the action policy, workers and source tag")
}

// addInputFlags registers the flags shared by commands that read an export
// document.
func addInputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&cfg.InputPath, "in", "", "Path to the nested export JSON document (required)")
	f.StringVar(&cfg.VisitMapPath, "visit-map", "", "JSON object mapping billing visit number to encounter CSN")
	f.StringVar(&cfg.DBPath, "db", "", "Loaded export (SQLite path or postgres:// DSN) to read the visit map from")
	f.StringVar(&cfg.Source, "source", "", "Source tag recorded in the Clean Projection")
	_ = cmd.MarkFlagRequired("in")
}

// openStore opens the row store named by --db, if any.
func openStore(ctx context.Context, target string) (rowstore.Store, error) {
	if target == "" {
		return nil, nil
	}
	if strings.HasPrefix(target, "postgres://") || strings.HasPrefix(target, "postgresql://") {
		pool, err := db.NewPool(ctx, target)
		if err != nil {
			return nil, err
		}
		return rowstore.NewPGStore(pool), nil
	}
	return rowstore.OpenSQLite(ctx, target)
}

// runPipeline validates input flags, opens the optional store, runs the
// pipeline and exits with the code for the failing phase.
func runPipeline(log zerolog.Logger) *pipeline.Result {
	ctx := context.Background()

	if err := cfg.ValidateInput(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	store, err := openStore(ctx, cfg.DBPath)
	if err != nil {
		log.Error().Err(err).Msg("row store connection failed")
		os.Exit(exitcode.DBConnError)
	}
	if store != nil {
		defer store.Close()
	}

	res, err := pipeline.Run(ctx, log, &cfg, store)
	if err != nil {
		log.Error().Err(err).Str("phase", pipeline.PhaseOf(err)).Msg("pipeline failed")
		if store != nil {
			store.Close()
		}
		os.Exit(exitFor(err))
	}
	return res
}

func exitFor(err error) int {
	switch pipeline.PhaseOf(err) {
	case pipeline.PhaseInput, pipeline.PhaseValidate:
		return exitcode.ValidationError
	case pipeline.PhaseHydrate:
		if errors.Is(err, graph.ErrMalformedDocument) {
			return exitcode.ValidationError
		}
		return exitcode.TransformError
	case pipeline.PhaseEmit:
		return exitcode.EmitError
	default:
		return exitcode.TransformError
	}
}
