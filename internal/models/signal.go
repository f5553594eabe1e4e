package models

import "time"

// ProviderType tags which source table a signal's ProviderID refers to
type ProviderType string

const (
	ProviderTwitter      ProviderType = "twitter"
	ProviderAnnouncement ProviderType = "announcement"
	ProviderNews         ProviderType = "news"
)

// Valid reports whether the provider type is one of the known tags.
func (p ProviderType) Valid() bool {
	switch p {
	case ProviderTwitter, ProviderAnnouncement, ProviderNews:
		return true
	}
	return false
}

// Signal is a normalized mention event. (ProviderType, ProviderID) is a
// tagged union reference into the per-type source tables, not a foreign key.
// Rows are immutable once created; repeat-mention counts and hit accounts
// are derived at query time, never stored.
type Signal struct {
	ID           uint         `gorm:"primarykey" json:"id"`
	ProviderType ProviderType `gorm:"size:20;not null;uniqueIndex:idx_signals_provider" json:"provider_type"`
	ProviderID   string       `gorm:"size:128;not null;uniqueIndex:idx_signals_provider" json:"provider_id"`
	ProjectID    *uint        `gorm:"index" json:"project_id"`
	CategoryCode string       `gorm:"size:50;default:''" json:"category_code"`
	SignalTime   time.Time    `gorm:"not null;index" json:"signal_time"`
	CreatedAt    time.Time    `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name
func (Signal) TableName() string {
	return "signals"
}
