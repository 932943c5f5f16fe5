package parquetread

import (
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/ehiledger/internal/model"
)

// ValidateSchema checks that a Parquet schema carries every required
// timeline column.
func ValidateSchema(schema *parquet.Schema) error {
	columns := make(map[string]bool)
	for _, field := range schema.Fields() {
		columns[strings.ToLower(field.Name())] = true
	}

	var missing []string
	for _, col := range model.TimelineRequiredColumns() {
		if !columns[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("not a timeline file; missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}
