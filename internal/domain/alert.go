package domain

import "time"

// Alert is a durable, human-actionable record of a harvest that failed
// permanently (retry attempts exhausted). Exactly one Alert is created
// per exhausted ingest; Pending and Retrying states never alert.
type Alert struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	YearMonth  string    `gorm:"type:varchar(7);not null" json:"yearmon"`
	ProviderID uint      `gorm:"not null;index" json:"provider_id"`
	IngestID   uint      `gorm:"not null;index" json:"ingest_id"`
	Status     string    `gorm:"type:varchar(16);default:'Active'" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the database table name for Alert.
func (Alert) TableName() string {
	return "alerts"
}
