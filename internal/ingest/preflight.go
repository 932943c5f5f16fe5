package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gyeh/ehiledger/internal/normalize"
)

// TableSource is one TSV file found during preflight.
type TableSource struct {
	// Name is the table name, the file name without ".tsv".
	Name string
	Path string
	// SHA256 is the hex digest of the file.
	SHA256 string
	Size   int64
	// Schema is nil when no published schema exists; columns then come from
	// the TSV header and are all text.
	Schema *TableSchema
}

// PreflightResult holds everything resolved before any table is written.
type PreflightResult struct {
	Dir       string
	SchemaDir string
	// RunID tags the load run record.
	RunID   uuid.UUID
	Tables  []TableSource
	Started time.Time
}

// Preflight lists the TSV files in dir, hashes them, and reads their
// schemas.
func Preflight(log zerolog.Logger, dir, schemaDir string) (*PreflightResult, error) {
	start := time.Now()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("preflight read dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".tsv") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("preflight: no .tsv files in %s", dir)
	}
	sort.Strings(names)

	pf := &PreflightResult{
		Dir:       dir,
		SchemaDir: schemaDir,
		RunID:     uuid.New(),
		Started:   start,
	}
	withSchema := 0
	for _, name := range names {
		path := filepath.Join(dir, name)
		sha, err := normalize.FileHash(path)
		if err != nil {
			return nil, fmt.Errorf("preflight hash: %w", err)
		}
		stat, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("preflight stat: %w", err)
		}
		table := strings.TrimSuffix(name, ".tsv")
		schema, err := LoadSchema(schemaDir, table)
		if err != nil {
			return nil, fmt.Errorf("preflight: %w", err)
		}
		if schema != nil {
			withSchema++
		}
		pf.Tables = append(pf.Tables, TableSource{
			Name:   table,
			Path:   path,
			SHA256: sha,
			Size:   stat.Size(),
			Schema: schema,
		})
	}

	log.Info().
		Str("dir", dir).
		Int("tables", len(pf.Tables)).
		Int("with_schema", withSchema).
		Str("run_id", pf.RunID.String()).
		Dur("duration", time.Since(start)).
		Msg("preflight complete")

	return pf, nil
}

// resolveTable builds the table shape from the schema, or from the header
// when there is none.
func (ts *TableSource) resolveTable(header []string) *Table {
	t := &Table{Name: ts.Name}
	if ts.Schema == nil {
		for _, h := range header {
			t.Columns = append(t.Columns, Column{Name: h, Type: TypeText})
		}
		return t
	}
	t.Description = ts.Schema.Description
	for _, c := range ts.Schema.Columns {
		t.Columns = append(t.Columns, Column{
			Name:        c.Name,
			Type:        StorageType(c.Type),
			Description: c.Description,
		})
	}
	for _, pk := range ts.Schema.PrimaryKey {
		t.PrimaryKey = append(t.PrimaryKey, pk.ColumnName)
	}
	return t
}
