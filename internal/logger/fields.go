package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields propagated through the call chain.
const (
	// FieldTenant is the consortium key the worker is running for.
	FieldTenant = "tenant"

	// FieldRunIdent is the optional runtime name given to a worker process,
	// used to tell staggered parallel runs apart in shared log output.
	FieldRunIdent = "run_ident"

	// FieldHarvestID is the ingest log ID being processed.
	FieldHarvestID = "harvest_id"

	// FieldJobID is the harvest queue job ID.
	FieldJobID = "job_id"

	// FieldProvider is the provider name.
	FieldProvider = "provider"

	// FieldInstitution is the institution name.
	FieldInstitution = "institution"

	// FieldReport is the COUNTER report name (TR, DR, PR, IR).
	FieldReport = "report"

	// FieldYearMonth is the harvested period (YYYY-MM).
	FieldYearMonth = "yearmon"

	// FieldRequestID is the HTTP request ID on the status API.
	FieldRequestID = "request_id"

	// FieldComponent is the component/module name.
	FieldComponent = "component"
)

// Metric fields used for aggregation and alerting.
const (
	FieldDurationMs = "duration_ms"
	FieldStatus     = "status"
	FieldErrorCode  = "error_code"
)
