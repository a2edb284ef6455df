package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSite is the standardized key for colony names.
	FieldSite = "site"
	// FieldYear is the standardized key for survey years.
	FieldYear = "year"
	// FieldTarget is the standardized key for target_ind values.
	FieldTarget = "target"
	// FieldRunID is the standardized key for batch run identifiers.
	FieldRunID = "run_id"
	// FieldInput is the standardized key for input file paths.
	FieldInput = "input"
	// FieldOutput is the standardized key for output file paths.
	FieldOutput = "output"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for a failure.
	FieldErrorHint = "error_hint"
)
