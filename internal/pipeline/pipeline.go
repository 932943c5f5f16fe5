// Package pipeline runs an export document through hydration, projection,
// validation, reconciliation and emission.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gyeh/ehiledger/internal/config"
	"github.com/gyeh/ehiledger/internal/emit"
	"github.com/gyeh/ehiledger/internal/graph"
	"github.com/gyeh/ehiledger/internal/ledger"
	"github.com/gyeh/ehiledger/internal/model"
	"github.com/gyeh/ehiledger/internal/normalize"
	"github.com/gyeh/ehiledger/internal/projection"
	"github.com/gyeh/ehiledger/internal/rowstore"
)

// Phases, in run order.
const (
	PhaseInput     = "input"
	PhaseHydrate   = "hydrate"
	PhaseProject   = "project"
	PhaseValidate  = "validate"
	PhaseReconcile = "reconcile"
	PhaseEmit      = "emit"
)

// Error wraps an error with the phase where it occurred.
type Error struct {
	Phase string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ViolationsError reports a Clean Projection that failed its schema check.
type ViolationsError struct {
	Violations []projection.Violation
}

func (e *ViolationsError) Error() string {
	if len(e.Violations) == 1 {
		return "1 schema violation: " + e.Violations[0].String()
	}
	return fmt.Sprintf("%d schema violations, first: %s", len(e.Violations), e.Violations[0])
}

// Result holds everything a run produced.
type Result struct {
	Graph     *graph.Graph
	Clean     *projection.Document
	CleanJSON []byte
	Report    *ledger.Report
	Summary   *model.RunSummary
}

// Run executes input → hydrate → project → validate → reconcile → emit.
// When store is non-nil and no visit map file is configured, the visit map
// is read from the store. Nothing is written when cfg.DryRun is set.
func Run(ctx context.Context, log zerolog.Logger, cfg *config.Config, store rowstore.Store) (*Result, error) {
	totalStart := time.Now()
	now := func() time.Time { return totalStart }

	sum := &model.RunSummary{
		InputPath: cfg.InputPath,
		RunID:     uuid.New().String(),
	}
	log = log.With().Str("run_id", sum.RunID).Logger()

	// Phase 1: input
	sha, err := normalize.FileHash(cfg.InputPath)
	if err != nil {
		return nil, &Error{Phase: PhaseInput, Err: err}
	}
	sum.InputSHA256 = sha
	visitMap, err := resolveVisitMap(ctx, log, cfg, store)
	if err != nil {
		return nil, &Error{Phase: PhaseInput, Err: err}
	}
	if store != nil {
		cov, err := rowstore.Coverage(ctx, store)
		if err != nil {
			return nil, &Error{Phase: PhaseInput, Err: err}
		}
		sum.TableCoverage = cov
	}

	// Phase 2: hydrate
	start := time.Now()
	g, err := hydrate(log, cfg, visitMap)
	if err != nil {
		return nil, &Error{Phase: PhaseHydrate, Err: err}
	}
	sum.DurationHydrate = time.Since(start)
	sum.Source = g.Source
	sum.MissingCollections = g.Capabilities.Missing()
	sum.HasBilling = g.Capabilities.Billing()
	sum.Charges = len(g.Billing.Charges)
	for _, key := range sum.MissingCollections {
		log.Debug().Str("collection", key).Msg("collection missing from export")
	}
	if !sum.HasBilling {
		log.Warn().Msg("export has no charge ledger; every visit reports billing null")
	}
	log.Info().
		Int("encounters", len(g.Encounters)).
		Int("charges", sum.Charges).
		Int("missing_collections", len(sum.MissingCollections)).
		Dur("duration", sum.DurationHydrate).
		Msg("hydrate complete")

	// Phase 3: project
	start = time.Now()
	clean := projection.Project(g, projection.Options{Now: totalStart})
	cleanJSON, err := projection.Marshal(clean)
	if err != nil {
		return nil, &Error{Phase: PhaseProject, Err: err}
	}
	sum.DurationProject = time.Since(start)

	// Phase 4: validate
	if v := projection.Validate(cleanJSON); len(v) > 0 {
		for _, violation := range v {
			log.Warn().Str("path", violation.Path).Str("rule", violation.Rule).Msg(violation.Message)
		}
		return nil, &Error{Phase: PhaseValidate, Err: &ViolationsError{Violations: v}}
	}

	// Phase 5: reconcile
	start = time.Now()
	b := ledger.NewBuilder(g, cfg.Policy, log)
	b.Clock = now
	report, err := b.Build(ctx, cfg.Workers)
	if err != nil {
		return nil, &Error{Phase: PhaseReconcile, Err: err}
	}
	sum.DurationReconcile = time.Since(start)
	sum.Encounters = report.Totals.Encounters
	sum.EncountersWithBilling = report.Totals.EncountersWithBilling
	for _, v := range report.Visits {
		if v.Billing != nil {
			sum.TimelineEvents += v.Billing.Summary.EventCount
			sum.UnbalancedCharges += v.Billing.Summary.UnbalancedCharges
		}
	}

	res := &Result{Graph: g, Clean: clean, CleanJSON: cleanJSON, Report: report, Summary: sum}

	// Phase 6: emit
	if !cfg.DryRun {
		start = time.Now()
		if err := emitOutputs(log, cfg, res); err != nil {
			return nil, &Error{Phase: PhaseEmit, Err: err}
		}
		sum.DurationEmit = time.Since(start)
	}

	sum.DurationTotal = time.Since(totalStart)
	log.Info().
		Int("encounters", sum.Encounters).
		Int("with_billing", sum.EncountersWithBilling).
		Int("events", sum.TimelineEvents).
		Int("unbalanced_charges", sum.UnbalancedCharges).
		Str("total_duration", sum.DurationTotal.String()).
		Msg("pipeline complete")
	return res, nil
}

func resolveVisitMap(ctx context.Context, log zerolog.Logger, cfg *config.Config, store rowstore.Store) (map[string]string, error) {
	switch {
	case cfg.VisitMapPath != "":
		f, err := os.Open(cfg.VisitMapPath)
		if err != nil {
			return nil, fmt.Errorf("open visit map: %w", err)
		}
		defer f.Close()
		m, err := graph.ReadVisitMap(f)
		if err != nil {
			return nil, err
		}
		log.Debug().Int("entries", len(m)).Str("path", cfg.VisitMapPath).Msg("visit map loaded")
		return m, nil
	case store != nil:
		m, err := rowstore.VisitMap(ctx, store)
		if err != nil {
			return nil, err
		}
		log.Debug().Int("entries", len(m)).Msg("visit map read from row store")
		return m, nil
	default:
		return nil, nil
	}
}

func hydrate(log zerolog.Logger, cfg *config.Config, visitMap map[string]string) (*graph.Graph, error) {
	f, err := os.Open(cfg.InputPath)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	opts := []graph.Option{graph.WithLogger(log)}
	if cfg.Source != "" {
		opts = append(opts, graph.WithSource(cfg.Source))
	}
	return graph.HydrateJSON(f, visitMap, opts...)
}

func emitOutputs(log zerolog.Logger, cfg *config.Config, res *Result) error {
	if cfg.CleanPath != "" {
		if err := writeBytes(cfg.CleanPath, res.CleanJSON); err != nil {
			return fmt.Errorf("write clean projection: %w", err)
		}
		log.Info().Str("path", cfg.CleanPath).Msg("clean projection written")
	}
	if cfg.OutPath != "" {
		if err := emit.WriteJSONFile(cfg.OutPath, os.Stdout, res.Report); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		log.Info().Str("path", cfg.OutPath).Msg("report written")
	}
	if cfg.ParquetPath != "" {
		n, err := emit.WriteTimelineParquet(cfg.ParquetPath, res.Report)
		if err != nil {
			return err
		}
		res.Summary.ParquetRows = n
		log.Info().Str("path", cfg.ParquetPath).Int("rows", n).Msg("timeline parquet written")
	}
	return nil
}

func writeBytes(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// PhaseOf returns the phase of a pipeline error, or "" for other errors.
func PhaseOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Phase
	}
	return ""
}
