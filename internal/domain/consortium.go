package domain

import "time"

// Consortium is a tenant organization whose member institutions' usage
// data is harvested. Each consortium owns a logically separate data store;
// the Key selects that store's DSN.
type Consortium struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	Key       string    `gorm:"type:text;not null;uniqueIndex" json:"key"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Consortium.
func (Consortium) TableName() string {
	return "consortia"
}
