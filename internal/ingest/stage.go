package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const rowBuffer = 1024

// StageResult holds metrics from the staging phase.
type StageResult struct {
	TablesLoaded int
	RowsRead     int64
	RowsLoaded   int64
	RowsRejected int64
	// Rejected lists tables that could not be created or loaded.
	Rejected []string
	Duration time.Duration
}

// Stage loads every table found by preflight. A table that fails is
// recorded and skipped; only context cancellation stops the phase.
func Stage(ctx context.Context, sink Sink, log zerolog.Logger, pf *PreflightResult) (*StageResult, error) {
	start := time.Now()
	res := &StageResult{}

	for i := range pf.Tables {
		ts := &pf.Tables[i]
		tr, err := stageTable(ctx, sink, log, ts)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		res.RowsRead += tr.read
		res.RowsLoaded += tr.loaded
		res.RowsRejected += tr.rejected
		if err != nil {
			res.Rejected = append(res.Rejected, ts.Name)
			log.Warn().Err(err).Str("table", ts.Name).Msg("table rejected")
			continue
		}
		res.TablesLoaded++
	}

	res.Duration = time.Since(start)
	log.Info().
		Int("tables_loaded", res.TablesLoaded).
		Int("tables_rejected", len(res.Rejected)).
		Int64("rows_read", res.RowsRead).
		Int64("rows_loaded", res.RowsLoaded).
		Int64("rows_rejected", res.RowsRejected).
		Str("duration", res.Duration.String()).
		Msg("staging complete")
	return res, nil
}

type tableResult struct {
	read, loaded, rejected int64
}

func stageTable(ctx context.Context, sink Sink, log zerolog.Logger, ts *TableSource) (tableResult, error) {
	var tr tableResult

	f, err := os.Open(ts.Path)
	if err != nil {
		return tr, fmt.Errorf("open %s: %w", ts.Path, err)
	}
	defer f.Close()

	r := newTSVReader(f)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return tr, fmt.Errorf("%s: empty TSV", ts.Name)
	}
	if err != nil {
		return tr, fmt.Errorf("%s: read header: %w", ts.Name, err)
	}
	header = cleanRecord(header)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	table := ts.resolveTable(header)
	if err := sink.CreateTable(ctx, table); err != nil {
		return tr, err
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[h] = i
	}

	tctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan []any, rowBuffer)
	errCh := make(chan error, 1)
	strict := sink.Strict()

	// Producer: read TSV, coerce, push to channel.
	go func() {
		defer close(ch)
		var line int64 = 1
		for {
			rec, readErr := r.Read()
			if errors.Is(readErr, io.EOF) {
				break
			}
			line++
			if readErr != nil {
				errCh <- fmt.Errorf("%s line %d: %w", ts.Name, line, readErr)
				return
			}
			tr.read++
			rec = cleanRecord(rec)

			values := make([]any, len(table.Columns))
			bad := false
			for i, c := range table.Columns {
				raw := ""
				if p, ok := pos[c.Name]; ok && p < len(rec) {
					raw = rec[p]
				}
				v, ok := Coerce(raw, c.Type)
				if !ok && strict {
					bad = true
					log.Debug().Str("table", ts.Name).Int64("line", line).Str("column", c.Name).Msg("unparsable value")
					break
				}
				values[i] = v
			}
			if bad {
				tr.rejected++
				continue
			}

			select {
			case ch <- values:
			case <-tctx.Done():
				errCh <- tctx.Err()
				return
			}
		}
		errCh <- nil
	}()

	ins, err := sink.Insert(tctx, table, ch)
	cancel()
	prodErr := <-errCh

	tr.loaded = ins.Inserted
	tr.rejected += ins.Failed
	if err != nil {
		return tr, err
	}
	if prodErr != nil && !errors.Is(prodErr, context.Canceled) {
		return tr, prodErr
	}

	log.Debug().
		Str("table", ts.Name).
		Int("columns", len(table.Columns)).
		Int64("rows", tr.loaded).
		Int64("rejected", tr.rejected).
		Msg("table loaded")
	return tr, nil
}

// newTSVReader reads Epic TSV: tab separated, ragged rows allowed.
func newTSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false
	return cr
}

func cleanRecord(rec []string) []string {
	for i, v := range rec {
		rec[i] = strings.TrimRight(v, "\r")
	}
	return rec
}
