package exitcode

const (
	Success         = 0
	UsageError      = 1
	ValidationError = 2 // unreadable input or Clean Projection schema violations
	DBConnError     = 3
	LoadError       = 4 // TSV load failed
	TransformError  = 5 // hydrate or reconcile failed
	PartialSuccess  = 6 // load finished with rejected tables
	EmitError       = 7
)
