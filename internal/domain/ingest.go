package domain

import "time"

// IngestStatus is the lifecycle state of one harvest attempt.
//
// Transitions: Queued/Pending/Retrying -> Active -> {Success, Pending,
// Retrying, Fail}. Success and Fail are terminal (the job row is removed);
// Pending and Retrying keep the job row so it can be re-polled. The Active
// status is also the cross-process lock: at most one Active ingest per
// provider endpoint may exist system-wide.
type IngestStatus string

const (
	IngestQueued   IngestStatus = "Queued"
	IngestActive   IngestStatus = "Active"
	IngestPending  IngestStatus = "Pending"
	IngestRetrying IngestStatus = "Retrying"
	IngestSuccess  IngestStatus = "Success"
	IngestFail     IngestStatus = "Fail"
)

// Runnable reports whether an ingest in this status may be picked up by
// the queue worker.
func (s IngestStatus) Runnable() bool {
	switch s {
	case IngestQueued, IngestPending, IngestRetrying:
		return true
	}
	return false
}

// Terminal reports whether this status ends the harvest attempt.
func (s IngestStatus) Terminal() bool {
	return s == IngestSuccess || s == IngestFail
}

// IngestLog is the state record for one (provider, institution, report,
// year-month) harvest attempt. The worker mutates status and attempts on
// every pass; creation and deletion belong to scheduling.
type IngestLog struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	ReportID       uint          `gorm:"not null;index" json:"report_id"`
	SushiSettingID uint          `gorm:"not null;index" json:"sushi_setting_id"`
	YearMonth      string        `gorm:"type:varchar(7);not null" json:"yearmon"`
	Status         IngestStatus  `gorm:"type:varchar(16);default:'Queued';index" json:"status"`
	Attempts       int           `gorm:"default:0" json:"attempts"`
	// No database-level constraint: a setting may be deleted out from
	// under a queued ingest, and the worker discards such jobs itself.
	SushiSetting *SushiSetting `gorm:"foreignKey:SushiSettingID;constraint:-" json:"sushi_setting,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// TableName returns the database table name for IngestLog.
func (IngestLog) TableName() string {
	return "ingest_logs"
}
