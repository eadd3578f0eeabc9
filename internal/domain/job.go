package domain

import "time"

// HarvestJob is one unit of pending harvest work in the shared backlog.
// Jobs live in the global store and reference an IngestLog row in the
// owning consortium's store. Higher priority is picked up first; ties
// break on ascending ID.
//
// A job is consumed (deleted) when its ingest reaches a terminal status.
// Pending and Retrying ingests keep their job row so the queue re-polls
// them on a later pass.
type HarvestJob struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ConsortiumID uint      `gorm:"not null;index" json:"consortium_id"`
	IngestID     uint      `gorm:"not null;index" json:"ingest_id"`
	Priority     int       `gorm:"default:0" json:"priority"`
	ReplaceData  bool      `gorm:"default:false" json:"replace_data"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for HarvestJob.
func (HarvestJob) TableName() string {
	return "harvest_jobs"
}
