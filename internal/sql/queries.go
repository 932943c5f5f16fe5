package sql

import (
	"embed"
)

// Migrations holds the DDL for the loader's bookkeeping tables, one
// directory per engine.
//
//go:embed migrations
var Migrations embed.FS

//go:embed queries/record_load_run_pg.sql
var RecordLoadRunPG string

//go:embed queries/record_load_run_sqlite.sql
var RecordLoadRunSQLite string

//go:embed queries/spot_check.sql
var SpotCheck string
