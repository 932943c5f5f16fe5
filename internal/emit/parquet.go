package emit

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/ehiledger/internal/ledger"
	"github.com/gyeh/ehiledger/internal/model"
)

// TimelineRows flattens every visit timeline of a report, in report order.
// Visits without billing contribute no rows.
func TimelineRows(r *ledger.Report) []model.TimelineRow {
	var rows []model.TimelineRow
	for _, v := range r.Visits {
		if v.Billing == nil {
			continue
		}
		for i, e := range v.Billing.Timeline {
			row := model.TimelineRow{
				EncounterID:   v.Encounter.ID,
				EncounterDate: v.Encounter.Date,
				Seq:           int32(i),
				EventID:       e.ID,
				Date:          e.Date,
				OrderKey:      e.OrderKey,
				Family:        e.Family,
				Label:         e.Label,
				Detail:        e.Detail,
				AmountLabel:   e.AmountLabel,
				Dim:           e.Dim,
				SourceID:      e.SourceID,
			}
			if e.Amount != nil {
				cents := int64(*e.Amount)
				row.AmountCents = &cents
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// WriteTimelineParquet writes the report's timelines to path and returns
// the number of rows written.
func WriteTimelineParquet(path string, r *ledger.Report) (int, error) {
	rows := TimelineRows(r)

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := parquet.NewGenericWriter[model.TimelineRow](f, parquet.Compression(&parquet.Zstd))
	if _, err := w.Write(rows); err != nil {
		return 0, fmt.Errorf("write timeline rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("close parquet writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", path, err)
	}
	return len(rows), nil
}
