package model

// TimelineRow is one timeline event flattened for Parquet, one row per
// event in report order. Amounts are integer cents.
type TimelineRow struct {
	EncounterID   string  `parquet:"encounter_id"`
	EncounterDate *string `parquet:"encounter_date,optional"`
	Seq           int32   `parquet:"seq"`
	EventID       string  `parquet:"event_id"`
	Date          *string `parquet:"date,optional"`
	OrderKey      float64 `parquet:"order_key"`
	Family        string  `parquet:"family"`
	Label         string  `parquet:"label"`
	Detail        *string `parquet:"detail,optional"`
	AmountCents   *int64  `parquet:"amount_cents,optional"`
	AmountLabel   *string `parquet:"amount_label,optional"`
	Dim           bool    `parquet:"dim"`
	SourceID      *string `parquet:"source_id,optional"`
}

// TimelineRequiredColumns are the columns a timeline file must carry.
func TimelineRequiredColumns() []string {
	return []string{"encounter_id", "seq", "event_id", "family", "label"}
}
