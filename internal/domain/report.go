package domain

// COUNTER Release 5 master report names.
const (
	ReportTR = "TR" // Title Master Report
	ReportDR = "DR" // Database Master Report
	ReportPR = "PR" // Platform Master Report
	ReportIR = "IR" // Item Master Report
)

// Report is a COUNTER report definition shared by all tenants.
// Revision identifies the schema release the payload must conform to.
type Report struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"type:text;not null;uniqueIndex" json:"name"`
	Legend   string `gorm:"type:text" json:"legend"`
	Revision string `gorm:"type:text;default:'5'" json:"revision"`
}

// TableName returns the database table name for Report.
func (Report) TableName() string {
	return "reports"
}
