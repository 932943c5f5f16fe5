package emit

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/ehiledger/internal/graph"
	"github.com/gyeh/ehiledger/internal/ledger"
	"github.com/gyeh/ehiledger/internal/parquetread"
)

func buildReport(t *testing.T) *ledger.Report {
	t.Helper()
	f, err := os.Open("../../testdata/patient_export.json")
	require.NoError(t, err)
	defer f.Close()
	g, err := graph.HydrateJSON(f, map[string]string{"V1": "1001"})
	require.NoError(t, err)
	b := ledger.NewBuilder(g, ledger.DefaultPolicy(), zerolog.Nop())
	b.Clock = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	r, err := b.Build(context.Background(), 1)
	require.NoError(t, err)
	return r
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, map[string]string{"label": "<b>"}))
	out := buf.String()
	assert.True(t, strings.HasSuffix(out, "}\n"), "trailing newline")
	assert.Contains(t, out, "\n  \"label\"", "two-space indent")
	assert.Contains(t, out, "<b>", "no HTML escaping")
}

func TestWriteJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteJSONFile(path, nil, []int{1, 2}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []int
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, []int{1, 2}, got)

	var buf bytes.Buffer
	require.NoError(t, WriteJSONFile("-", &buf, true))
	assert.Equal(t, "true\n", buf.String())
}

func TestTimelineRows(t *testing.T) {
	r := buildReport(t)
	rows := TimelineRows(r)

	want := 0
	for _, v := range r.Visits {
		if v.Billing != nil {
			want += len(v.Billing.Timeline)
		}
	}
	require.Len(t, rows, want)

	// Rows follow report order and restart seq per encounter.
	assert.Equal(t, "1001", rows[0].EncounterID)
	assert.Equal(t, int32(0), rows[0].Seq)
	for i := 1; i < len(rows); i++ {
		if rows[i].EncounterID == rows[i-1].EncounterID {
			assert.Equal(t, rows[i-1].Seq+1, rows[i].Seq)
		} else {
			assert.Equal(t, int32(0), rows[i].Seq)
		}
	}

	var sawAmount bool
	for _, row := range rows {
		if row.Family == ledger.FamilyCharge && row.SourceID != nil && *row.SourceID == "9001" {
			require.NotNil(t, row.AmountCents)
			assert.Equal(t, int64(33000), *row.AmountCents)
			sawAmount = true
		}
	}
	assert.True(t, sawAmount, "charge 9001 row")
}

func TestWriteTimelineParquet(t *testing.T) {
	r := buildReport(t)
	path := filepath.Join(t.TempDir(), "timeline.parquet")

	n, err := WriteTimelineParquet(path, r)
	require.NoError(t, err)
	require.Positive(t, n)

	reader, err := parquetread.Open(path)
	require.NoError(t, err)
	defer reader.Close()

	require.NoError(t, parquetread.ValidateSchema(reader.Schema()))
	assert.Equal(t, int64(n), reader.NumRows())

	got, err := reader.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, TimelineRows(r), got)
}

func TestWriteTimelineParquet_BadPath(t *testing.T) {
	_, err := WriteTimelineParquet(filepath.Join(t.TempDir(), "missing", "t.parquet"), &ledger.Report{})
	assert.Error(t, err)
}
