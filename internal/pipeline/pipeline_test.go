package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/ehiledger/internal/config"
	"github.com/gyeh/ehiledger/internal/graph"
	"github.com/gyeh/ehiledger/internal/ledger"
	"github.com/gyeh/ehiledger/internal/model"
	"github.com/gyeh/ehiledger/internal/parquetread"
	"github.com/gyeh/ehiledger/internal/projection"
	"github.com/gyeh/ehiledger/internal/rowstore"
)

// memStore is an in-memory row store keyed by table name.
type memStore map[string][]model.Row

func (m memStore) TableExists(ctx context.Context, name string) (bool, error) {
	_, ok := m[name]
	return ok, nil
}

func (m memStore) Fetch(ctx context.Context, table string, columns ...string) ([]model.Row, error) {
	rows, ok := m[table]
	if !ok {
		return nil, rowstore.ErrTableNotFound
	}
	return rows, nil
}

func (m memStore) Tables(ctx context.Context) ([]string, error) {
	var out []string
	for name := range m {
		out = append(out, name)
	}
	return out, nil
}

func (m memStore) Close() error { return nil }

const (
	fixture     = "../../testdata/patient_export.json"
	visitMapFix = "../../testdata/visit_map.json"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.InputPath = fixture
	cfg.VisitMapPath = visitMapFix
	return &cfg
}

func TestRun_WritesOutputs(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.OutPath = filepath.Join(dir, "report.json")
	cfg.CleanPath = filepath.Join(dir, "clean.json")
	cfg.ParquetPath = filepath.Join(dir, "timeline.parquet")

	res, err := Run(context.Background(), zerolog.Nop(), cfg, nil)
	require.NoError(t, err)

	sum := res.Summary
	assert.Equal(t, 4, sum.Encounters)
	assert.Equal(t, 4, sum.Charges)
	assert.NotEmpty(t, sum.InputSHA256)
	assert.Equal(t, "epic-ehi-export", sum.Source)
	assert.Positive(t, sum.TimelineEvents)
	assert.Equal(t, sum.TimelineEvents, sum.ParquetRows)

	data, err := os.ReadFile(cfg.OutPath)
	require.NoError(t, err)
	var report ledger.Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Len(t, report.Visits, 4)
	assert.Equal(t, res.Report.Totals, report.Totals)

	clean, err := os.ReadFile(cfg.CleanPath)
	require.NoError(t, err)
	assert.Empty(t, projection.Validate(clean))
	assert.Equal(t, res.CleanJSON, clean)

	r, err := parquetread.Open(cfg.ParquetPath)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, int64(sum.ParquetRows), r.NumRows())
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.DryRun = true
	cfg.OutPath = filepath.Join(dir, "report.json")

	res, err := Run(context.Background(), zerolog.Nop(), cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Report)
	_, statErr := os.Stat(cfg.OutPath)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	seq, err := Run(context.Background(), zerolog.Nop(), testConfig(t), nil)
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.Workers = 4
	par, err := Run(context.Background(), zerolog.Nop(), cfg, nil)
	require.NoError(t, err)

	par.Report.GeneratedAt = seq.Report.GeneratedAt
	assert.Equal(t, seq.Report, par.Report)
}

func TestRun_SourceOverride(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source = "epic-test"
	res, err := Run(context.Background(), zerolog.Nop(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "epic-test", res.Clean.Source)
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	malformed := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(malformed, []byte(`["not", "an", "object"]`), 0o644))

	tests := []struct {
		name  string
		setup func(*config.Config)
		phase string
	}{
		{"missing input", func(c *config.Config) { c.InputPath = filepath.Join(dir, "nope.json") }, PhaseInput},
		{"missing visit map", func(c *config.Config) { c.VisitMapPath = filepath.Join(dir, "nope.json") }, PhaseInput},
		{"malformed document", func(c *config.Config) { c.InputPath = malformed }, PhaseHydrate},
		{"unwritable output", func(c *config.Config) { c.OutPath = filepath.Join(dir, "missing", "r.json") }, PhaseEmit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.setup(cfg)
			_, err := Run(context.Background(), zerolog.Nop(), cfg, nil)
			require.Error(t, err)
			assert.Equal(t, tt.phase, PhaseOf(err))
		})
	}
}

func TestRun_MalformedIsSentinel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`42`), 0o644))
	cfg := testConfig(t)
	cfg.InputPath = path
	_, err := Run(context.Background(), zerolog.Nop(), cfg, nil)
	assert.True(t, errors.Is(err, graph.ErrMalformedDocument))
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, zerolog.Nop(), testConfig(t), nil)
	require.Error(t, err)
	assert.Equal(t, PhaseReconcile, PhaseOf(err))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestViolationsError(t *testing.T) {
	one := &ViolationsError{Violations: []projection.Violation{{Path: "$.patient", Rule: projection.RuleMissing, Message: "missing"}}}
	assert.Contains(t, one.Error(), "1 schema violation")
	two := &ViolationsError{Violations: append(one.Violations, one.Violations[0])}
	assert.Contains(t, two.Error(), "2 schema violations")
	assert.Equal(t, "", PhaseOf(errors.New("plain")))
}

func TestRun_StoreCoverageAndVisitMap(t *testing.T) {
	store := memStore{
		rowstore.VisitTable: {
			{rowstore.VisitNumberCol: "V1", rowstore.VisitCSNCol: "1001"},
		},
		"PAT_ENC": {},
	}
	cfg := testConfig(t)
	cfg.VisitMapPath = ""
	cfg.DryRun = true

	res, err := Run(context.Background(), zerolog.Nop(), cfg, store)
	require.NoError(t, err)
	assert.Equal(t, "1001", res.Graph.VisitMap()["V1"])

	cov := res.Summary.TableCoverage
	require.NotNil(t, cov)
	assert.True(t, cov["encounters"])
	assert.False(t, cov["allergies"])
	assert.True(t, res.Summary.HasBilling)
}

func TestRun_NoChargeLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clinical.json")
	doc := `{"encounters": [{"PAT_ENC_CSN_ID": 1001, "CONTACT_DATE": "1/10/2023"}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	cfg := testConfig(t)
	cfg.InputPath = path
	cfg.VisitMapPath = ""
	cfg.DryRun = true

	res, err := Run(context.Background(), zerolog.Nop(), cfg, nil)
	require.NoError(t, err)
	assert.False(t, res.Summary.HasBilling)
	assert.Nil(t, res.Summary.TableCoverage)
	require.Len(t, res.Report.Visits, 1)
	assert.Nil(t, res.Report.Visits[0].Billing)
}
