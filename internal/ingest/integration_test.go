package ingest_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/ehiledger/internal/config"
	"github.com/gyeh/ehiledger/internal/db"
	"github.com/gyeh/ehiledger/internal/ingest"
	"github.com/gyeh/ehiledger/internal/rowstore"
)

const (
	testPort     = 15433
	testDB       = "ehitest"
	testUser     = "postgres"
	testPassword = "postgres"
)

var testDSN string

// The Postgres tests download and start a server, so they only run when
// EHILEDGER_PG_TEST=1.
func TestMain(m *testing.M) {
	if os.Getenv("EHILEDGER_PG_TEST") != "1" {
		os.Exit(m.Run())
	}

	testDSN = fmt.Sprintf("postgresql://%s:%s@localhost:%d/%s?sslmode=disable",
		testUser, testPassword, testPort, testDB)

	pg := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(uint32(testPort)).
			Database(testDB).
			Username(testUser).
			Password(testPassword).
			Version(embeddedpostgres.V16).
			StartTimeout(30 * time.Second),
	)
	if err := pg.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start embedded postgres: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	if err := pg.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to stop embedded postgres: %v\n", err)
	}
	os.Exit(code)
}

// writeExport lays out a small TSV export with schemas.
func writeExport(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	tsv := filepath.Join(root, "tsv")
	schemas := filepath.Join(root, "schemas")
	for _, d := range []string{tsv, schemas} {
		if err := os.Mkdir(d, 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	files := map[string]string{
		"tsv/ARPB_VISITS.tsv":       "PB_VISIT_NUM\tPRIM_ENC_CSN_ID\nV1\t1001\nV2\t1002\n",
		"tsv/ARPB_TRANSACTIONS.tsv": "TX_ID\tAMOUNT\tPOST_DATE\n9001\t330.00\t1/5/2023 12:00:00 AM\n9002\tabc\t\n",
		"tsv/NOTES.tsv":             "NOTE_ID\tNOTE_TEXT\r\n1\thello\r\n",
		"tsv/EMPTY.tsv":             "",
		"tsv/README.txt":            "not a table",
		"schemas/ARPB_VISITS.json": `{"name":"ARPB_VISITS","description":"Billing visits",
			"primaryKey":[{"columnName":"PB_VISIT_NUM"}],
			"columns":[{"name":"PB_VISIT_NUM","type":"VARCHAR","description":"Visit number"},
			           {"name":"PRIM_ENC_CSN_ID","type":"NUMERIC","description":"Primary CSN"}]}`,
		"schemas/ARPB_TRANSACTIONS.json": `{"name":"ARPB_TRANSACTIONS","description":"Transactions",
			"columns":[{"name":"TX_ID","type":"NUMERIC"},{"name":"AMOUNT","type":"NUMERIC"},
			           {"name":"POST_DATE","type":"DATETIME"}]}`,
		"schemas/NOTES.json": "",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(body), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	cfg := config.Default()
	cfg.TSVDir = tsv
	cfg.SchemaDir = schemas
	return &cfg
}

func TestRun_SQLite(t *testing.T) {
	ctx := context.Background()
	cfg := writeExport(t)
	cfg.DBPath = filepath.Join(t.TempDir(), "ehi.db")
	log := zerolog.Nop()

	sink, err := ingest.OpenSQLiteSink(ctx, cfg.DBPath, log)
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}
	summary, err := ingest.Run(ctx, sink, log, cfg)
	sink.Close()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.TablesFound != 4 {
		t.Errorf("expected 4 tables found, got %d", summary.TablesFound)
	}
	if summary.TablesLoaded != 3 {
		t.Errorf("expected 3 tables loaded, got %d", summary.TablesLoaded)
	}
	if len(summary.TablesRejected) != 1 || summary.TablesRejected[0] != "EMPTY" {
		t.Errorf("expected EMPTY rejected, got %v", summary.TablesRejected)
	}
	if summary.RowsLoaded != 5 {
		t.Errorf("expected 5 rows loaded, got %d", summary.RowsLoaded)
	}
	if len(summary.SpotChecks) != 2 {
		t.Fatalf("expected 2 spot checks, got %d", len(summary.SpotChecks))
	}
	for _, sc := range summary.SpotChecks {
		if sc.Err != nil || sc.Total != 2 {
			t.Errorf("spot check %s.%s: %+v", sc.Table, sc.Column, sc)
		}
	}

	store, err := rowstore.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	vm, err := rowstore.VisitMap(ctx, store)
	if err != nil {
		t.Fatalf("VisitMap: %v", err)
	}
	if vm["V1"] != "1001" || vm["V2"] != "1002" {
		t.Errorf("unexpected visit map: %v", vm)
	}

	rows, err := store.Fetch(ctx, "ARPB_TRANSACTIONS")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(rows))
	}
	// NUMERIC affinity stores a whole REAL as an integer.
	if rows[0]["AMOUNT"] != int64(330) {
		t.Errorf("expected numeric amount, got %#v", rows[0]["AMOUNT"])
	}
	if rows[1]["AMOUNT"] != "abc" {
		t.Errorf("unparsable numeric should stay text, got %#v", rows[1]["AMOUNT"])
	}
	if rows[1]["POST_DATE"] != nil {
		t.Errorf("blank field should be NULL, got %#v", rows[1]["POST_DATE"])
	}

	notes, err := store.Fetch(ctx, "NOTES", "NOTE_TEXT")
	if err != nil {
		t.Fatalf("Fetch NOTES: %v", err)
	}
	if len(notes) != 1 || notes[0]["NOTE_TEXT"] != "hello" {
		t.Errorf("unexpected notes: %v", notes)
	}

	raw, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	defer raw.Close()
	var runs int
	if err := raw.QueryRow("SELECT COUNT(*) FROM ehi_load_runs WHERE run_id = ?", summary.RunID).Scan(&runs); err != nil {
		t.Fatalf("count runs: %v", err)
	}
	if runs != 1 {
		t.Errorf("expected 1 load run, got %d", runs)
	}
}

func TestRun_SQLiteReload(t *testing.T) {
	ctx := context.Background()
	cfg := writeExport(t)
	path := filepath.Join(t.TempDir(), "ehi.db")
	log := zerolog.Nop()

	for i := 0; i < 2; i++ {
		sink, err := ingest.OpenSQLiteSink(ctx, path, log)
		if err != nil {
			t.Fatalf("open sink: %v", err)
		}
		if _, err := ingest.Run(ctx, sink, log, cfg); err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
		sink.Close()
	}

	store, err := rowstore.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	rows, err := store.Fetch(ctx, "ARPB_VISITS")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("reload should replace tables, got %d rows", len(rows))
	}
}

func TestRun_DryRun(t *testing.T) {
	cfg := writeExport(t)
	cfg.DryRun = true
	summary, err := ingest.Run(context.Background(), nil, zerolog.Nop(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.TablesFound != 4 || summary.TablesLoaded != 0 {
		t.Errorf("unexpected dry run summary: %+v", summary)
	}
}

func TestRun_NoTSV(t *testing.T) {
	cfg := config.Default()
	cfg.TSVDir = t.TempDir()
	cfg.DryRun = true
	_, err := ingest.Run(context.Background(), nil, zerolog.Nop(), &cfg)
	if err == nil {
		t.Fatal("expected error for empty dir")
	}
	var pe *ingest.PipelineError
	if !errors.As(err, &pe) || pe.Phase != "preflight" {
		t.Errorf("expected preflight error, got %v", err)
	}
}

func setupPG(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testDSN == "" {
		t.Skip("set EHILEDGER_PG_TEST=1 to run Postgres tests")
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, testDSN)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := pool.Exec(ctx, "DROP SCHEMA IF EXISTS ehi CASCADE; DROP TABLE IF EXISTS public.ehi_load_runs"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := db.ApplyMigrations(ctx, pool, zerolog.Nop()); err != nil {
		pool.Close()
		t.Fatalf("migrations: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

func TestMigrations_Idempotent(t *testing.T) {
	pool := setupPG(t)
	if err := db.ApplyMigrations(context.Background(), pool, zerolog.Nop()); err != nil {
		t.Fatalf("second apply: %v", err)
	}
}

func TestRun_Postgres(t *testing.T) {
	pool := setupPG(t)
	ctx := context.Background()
	cfg := writeExport(t)
	log := zerolog.Nop()

	summary, err := ingest.Run(ctx, ingest.NewPGSink(pool), log, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.TablesLoaded != 3 {
		t.Errorf("expected 3 tables loaded, got %d", summary.TablesLoaded)
	}
	// The "abc" amount cannot be stored in a NUMERIC column.
	if summary.RowsLoaded != 4 || summary.RowsRejected != 1 {
		t.Errorf("expected 4 loaded and 1 rejected, got %d and %d", summary.RowsLoaded, summary.RowsRejected)
	}

	store := rowstore.NewPGStore(pool)
	vm, err := rowstore.VisitMap(ctx, store)
	if err != nil {
		t.Fatalf("VisitMap: %v", err)
	}
	if vm["V1"] != "1001" {
		t.Errorf("unexpected visit map: %v", vm)
	}

	tables, err := store.Tables(ctx)
	if err != nil {
		t.Fatalf("Tables: %v", err)
	}
	if len(tables) != 3 {
		t.Errorf("expected 3 tables, got %v", tables)
	}

	var runs int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM public.ehi_load_runs").Scan(&runs); err != nil {
		t.Fatalf("count runs: %v", err)
	}
	if runs != 1 {
		t.Errorf("expected 1 load run, got %d", runs)
	}
}
