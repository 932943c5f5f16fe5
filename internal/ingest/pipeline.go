package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/ehiledger/internal/config"
	"github.com/gyeh/ehiledger/internal/model"
)

// PipelineError wraps an error with the phase where it occurred.
type PipelineError struct {
	Phase string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Run loads a TSV export into sink: preflight → stage → finalize.
func Run(ctx context.Context, sink Sink, log zerolog.Logger, cfg *config.Config) (*model.LoadSummary, error) {
	totalStart := time.Now()

	log.Info().Str("dir", cfg.TSVDir).Msg("starting preflight")
	pf, err := Preflight(log, cfg.TSVDir, cfg.SchemaDir)
	if err != nil {
		return nil, &PipelineError{Phase: "preflight", Err: err}
	}

	if cfg.DryRun {
		return &model.LoadSummary{
			Dir:           pf.Dir,
			RunID:         pf.RunID.String(),
			TablesFound:   len(pf.Tables),
			DurationTotal: time.Since(totalStart),
		}, nil
	}

	log = log.With().Str("sink", sink.Name()).Logger()
	log.Info().Msg("starting staging")
	sr, err := Stage(ctx, sink, log, pf)
	if err != nil {
		return nil, &PipelineError{Phase: "stage", Err: err}
	}

	log.Info().Msg("finalizing")
	checks, err := Finalize(ctx, sink, log, pf, sr)
	if err != nil {
		return nil, &PipelineError{Phase: "finalize", Err: err}
	}

	summary := &model.LoadSummary{
		Dir:            pf.Dir,
		RunID:          pf.RunID.String(),
		TablesFound:    len(pf.Tables),
		TablesLoaded:   sr.TablesLoaded,
		RowsRead:       sr.RowsRead,
		RowsLoaded:     sr.RowsLoaded,
		RowsRejected:   sr.RowsRejected,
		TablesRejected: sr.Rejected,
		SpotChecks:     checks,
		DurationStage:  sr.Duration,
		DurationTotal:  time.Since(totalStart),
	}

	log.Info().
		Int("tables_found", summary.TablesFound).
		Int("tables_loaded", summary.TablesLoaded).
		Int64("rows_loaded", summary.RowsLoaded).
		Int64("rows_rejected", summary.RowsRejected).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("load pipeline complete")

	return summary, nil
}
