package domain

import "time"

// UsageRecord is one normalized metric row produced by the report
// processor. Rows are tagged with the report type they came from; the
// optional attribute columns are only populated for report types that
// carry them (YOP and section type for TR, data type for TR/DR/PR).
type UsageRecord struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	ReportType    string `gorm:"type:varchar(4);not null;index" json:"report_type"`
	ProviderID    uint   `gorm:"not null;index" json:"provider_id"`
	InstitutionID uint   `gorm:"not null;index" json:"institution_id"`
	YearMonth     string `gorm:"type:varchar(7);not null;index" json:"yearmon"`

	Title        string `gorm:"type:text" json:"title,omitempty"`
	Publisher    string `gorm:"type:text" json:"publisher,omitempty"`
	Platform     string `gorm:"type:text" json:"platform,omitempty"`
	DataType     string `gorm:"type:text" json:"data_type,omitempty"`
	SectionType  string `gorm:"type:text" json:"section_type,omitempty"`
	AccessType   string `gorm:"type:text" json:"access_type,omitempty"`
	AccessMethod string `gorm:"type:text" json:"access_method,omitempty"`
	YOP          string `gorm:"type:varchar(9)" json:"yop,omitempty"`

	TotalItemInvestigations   uint `gorm:"default:0" json:"total_item_investigations"`
	TotalItemRequests         uint `gorm:"default:0" json:"total_item_requests"`
	UniqueItemInvestigations  uint `gorm:"default:0" json:"unique_item_investigations"`
	UniqueItemRequests        uint `gorm:"default:0" json:"unique_item_requests"`
	UniqueTitleInvestigations uint `gorm:"default:0" json:"unique_title_investigations"`
	UniqueTitleRequests       uint `gorm:"default:0" json:"unique_title_requests"`
	LimitExceeded             uint `gorm:"default:0" json:"limit_exceeded"`
	NoLicense                 uint `gorm:"default:0" json:"no_license"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for UsageRecord.
func (UsageRecord) TableName() string {
	return "usage_records"
}

// AddMetric applies one COUNTER metric count to the matching column.
// Unknown metric types are ignored; Release 5 defines more metrics than
// the consortium reports on.
func (u *UsageRecord) AddMetric(metricType string, count uint) {
	switch metricType {
	case "Total_Item_Investigations":
		u.TotalItemInvestigations += count
	case "Total_Item_Requests":
		u.TotalItemRequests += count
	case "Unique_Item_Investigations":
		u.UniqueItemInvestigations += count
	case "Unique_Item_Requests":
		u.UniqueItemRequests += count
	case "Unique_Title_Investigations":
		u.UniqueTitleInvestigations += count
	case "Unique_Title_Requests":
		u.UniqueTitleRequests += count
	case "Limit_Exceeded":
		u.LimitExceeded += count
	case "No_License":
		u.NoLicense += count
	}
}
