package domain

import "time"

// Provider is an external content publisher exposing a SUSHI endpoint.
// ServerURL is the Release 5 base URL and doubles as the key for the
// cross-tenant active-ingest exclusion check.
type Provider struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	ServerURL string    `gorm:"type:text;not null" json:"server_url"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Provider.
func (Provider) TableName() string {
	return "providers"
}

// Institution is a consortium member entitled to usage data from providers.
type Institution struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Institution.
func (Institution) TableName() string {
	return "institutions"
}

// SushiSetting binds a provider+institution pair to the credentials used
// when requesting reports on the institution's behalf.
type SushiSetting struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	ProviderID    uint         `gorm:"not null;index" json:"provider_id"`
	InstitutionID uint         `gorm:"not null;index" json:"institution_id"`
	CustomerID    string       `gorm:"type:text" json:"customer_id"`
	RequestorID   string       `gorm:"type:text" json:"requestor_id"`
	APIKey        string       `gorm:"type:text" json:"-"`
	Provider      *Provider    `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
	Institution   *Institution `gorm:"foreignKey:InstitutionID" json:"institution,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// TableName returns the database table name for SushiSetting.
func (SushiSetting) TableName() string {
	return "sushi_settings"
}
