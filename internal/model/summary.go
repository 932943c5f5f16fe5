package model

import "time"

// RunSummary captures metrics from a single report run.
type RunSummary struct {
	InputPath             string
	InputSHA256           string
	RunID                 string
	Source                string
	Encounters            int
	EncountersWithBilling int
	Charges               int
	TimelineEvents        int
	UnbalancedCharges     int
	ParquetRows           int
	HasBilling            bool
	MissingCollections    []string
	TableCoverage         map[string]bool // collection key → source table present; nil without a row store
	DurationHydrate       time.Duration
	DurationProject       time.Duration
	DurationReconcile     time.Duration
	DurationEmit          time.Duration
	DurationTotal         time.Duration
}

// LoadSummary captures metrics from loading a TSV export into a row store.
type LoadSummary struct {
	Dir            string
	RunID          string
	TablesFound    int
	TablesLoaded   int
	RowsRead       int64
	RowsLoaded     int64
	RowsRejected   int64
	TablesRejected []string
	SpotChecks     []SpotCheck
	DurationStage  time.Duration
	DurationTotal  time.Duration
}

// SpotCheck reports how populated a well-known column is after a load.
type SpotCheck struct {
	Table   string
	Column  string
	Total   int64
	NonNull int64
	Err     error
}
