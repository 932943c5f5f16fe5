package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gyeh/ehiledger/internal/model"
)

// Column is one column of a table being loaded.
type Column struct {
	Name        string
	Type        string // storage class
	Description string
}

// Table is the resolved shape of one TSV file.
type Table struct {
	Name        string
	Description string
	Columns     []Column
	PrimaryKey  []string
}

// ColumnNames returns the column names in load order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// LoadRun is the bookkeeping record written after a load.
type LoadRun struct {
	RunID        uuid.UUID
	Dir          string
	StartedAt    time.Time
	FinishedAt   time.Time
	TablesFound  int
	TablesLoaded int
	RowsLoaded   int64
	Rejected     []string
}

// InsertResult counts the outcome of loading one table.
type InsertResult struct {
	Inserted int64
	Failed   int64
}

// Sink is a relational target for a TSV export.
type Sink interface {
	Name() string
	// Strict sinks reject rows whose numeric fields do not parse.
	Strict() bool
	// CreateTable drops and recreates the table.
	CreateTable(ctx context.Context, t *Table) error
	// Insert consumes rows until the channel closes.
	Insert(ctx context.Context, t *Table, rows <-chan []any) (InsertResult, error)
	RecordRun(ctx context.Context, run *LoadRun) error
	SpotCheck(ctx context.Context, table, column string) (model.SpotCheck, error)
	Close() error
}

// spotChecks are well-known columns reported after every load.
var spotChecks = []struct{ Table, Column string }{
	{"HNO_INFO", "PAT_ENC_CSN_ID"},
	{"ARPB_VISITS", "PRIM_ENC_CSN_ID"},
	{"ARPB_TRANSACTIONS", "AMOUNT"},
	{"PATIENT", "PAT_NAME"},
	{"ALLERGY", "ALLERGEN_ID"},
	{"ORDER_RESULTS", "ORD_VALUE"},
	{"PATIENT_2", "PAT_ID"},
}

// comment flattens schema text for use inside a SQL comment or literal.
func comment(s string) string {
	s = strings.NewReplacer("\r", "", "\n", " ").Replace(s)
	return strings.TrimSpace(s)
}

// spotCheckQuery fills the embedded spot check template.
func spotCheckQuery(tmpl, table, column string) string {
	return strings.NewReplacer("{{table}}", table, "{{col}}", column).Replace(tmpl)
}
