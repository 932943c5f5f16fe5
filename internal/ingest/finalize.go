package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/ehiledger/internal/model"
)

// Finalize records the load run and reports the spot checks. A failed spot
// check is reported, not returned.
func Finalize(ctx context.Context, sink Sink, log zerolog.Logger, pf *PreflightResult, sr *StageResult) ([]model.SpotCheck, error) {
	run := &LoadRun{
		RunID:        pf.RunID,
		Dir:          pf.Dir,
		StartedAt:    pf.Started,
		FinishedAt:   time.Now(),
		TablesFound:  len(pf.Tables),
		TablesLoaded: sr.TablesLoaded,
		RowsLoaded:   sr.RowsLoaded,
		Rejected:     sr.Rejected,
	}
	if err := sink.RecordRun(ctx, run); err != nil {
		return nil, fmt.Errorf("finalize: %w", err)
	}

	loaded := make(map[string]bool, len(pf.Tables))
	for _, t := range pf.Tables {
		loaded[t.Name] = true
	}
	for _, r := range sr.Rejected {
		delete(loaded, r)
	}

	var checks []model.SpotCheck
	for _, c := range spotChecks {
		if !loaded[c.Table] {
			continue
		}
		sc, err := sink.SpotCheck(ctx, c.Table, c.Column)
		if err != nil {
			sc.Err = err
			log.Warn().Err(err).Str("table", c.Table).Str("column", c.Column).Msg("spot check failed")
		} else {
			log.Info().
				Str("table", c.Table).
				Str("column", c.Column).
				Int64("non_null", sc.NonNull).
				Int64("total", sc.Total).
				Msg("spot check")
		}
		checks = append(checks, sc)
	}
	return checks, nil
}
