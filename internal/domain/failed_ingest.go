package domain

import "time"

// Pipeline steps recorded with failure detail.
const (
	StepHTTP    = "HTTP"    // transport-level failure
	StepSUSHI   = "SUSHI"   // provider-reported exception
	StepCOUNTER = "COUNTER" // report schema validation
	StepSaving  = "Saving"  // normalization / persistence
)

// Error catalog identifiers used for failures the provider did not code.
const (
	ErrorValidation = 100  // report failed COUNTER validation
	ErrorHTTP       = 9010 // request could not be completed
	ErrorBadPayload = 9020 // response was not a recognizable report or exception
	ErrorProcessing = 9030 // validated report could not be saved
)

// FailedIngest is one append-only audit record for a failed fetch,
// validation, or processing attempt. The trail backs an eventual Alert.
type FailedIngest struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	IngestID    uint      `gorm:"not null;index" json:"ingest_id"`
	ProcessStep string    `gorm:"type:varchar(16)" json:"process_step"`
	ErrorID     int       `gorm:"not null" json:"error_id"`
	Detail      string    `gorm:"type:text" json:"detail"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for FailedIngest.
func (FailedIngest) TableName() string {
	return "failed_ingests"
}

// CounterError is one entry of the tenant's error catalog, keyed by the
// SUSHI error code. Messages are cleaned of trailing URL text before
// insertion so embedded links do not multiply catalog rows.
type CounterError struct {
	ID       int    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Message  string `gorm:"type:varchar(60)" json:"message"`
	Severity string `gorm:"type:varchar(16)" json:"severity"`
}

// TableName returns the database table name for CounterError.
func (CounterError) TableName() string {
	return "counter_errors"
}
