package entities

import (
	"time"

	"github.com/google/uuid"
)

// EntryAnalysis is append-only; the row with the latest CapturedAt is current.
type EntryAnalysis struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	EntryID       uuid.UUID `gorm:"type:uuid;index;not null" json:"entry_id"`
	ExternalID    *string   `json:"external_id,omitempty"`
	ProviderID    string    `gorm:"type:varchar(32);not null" json:"provider_id"`
	Model         string    `gorm:"type:varchar(128)" json:"model"`
	CapturedAt    time.Time `gorm:"index;not null" json:"captured_at"`
	SchemaVersion string    `gorm:"type:varchar(16)" json:"schema_version"`
	InsightsJSON  string    `gorm:"type:text" json:"insights_json"`

	Entry *TrackedEntry `gorm:"foreignKey:EntryID;constraint:OnDelete:CASCADE" json:"-"`
	Timestamp
}
