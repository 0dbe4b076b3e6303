package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type EntryType string

const (
	EntryTypeMeal     EntryType = "Meal"
	EntryTypeExercise EntryType = "Exercise"
	EntryTypeSleep    EntryType = "Sleep"
	EntryTypeOther    EntryType = "Other"
	EntryTypeUnknown  EntryType = "Unknown"
)

type TrackedEntry struct {
	ID                      uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	ExternalID              *string          `gorm:"index" json:"external_id,omitempty"`
	EntryType               EntryType        `gorm:"type:varchar(16);not null;default:Unknown" json:"entry_type"`
	CapturedAt              time.Time        `gorm:"index;not null" json:"captured_at"`
	CapturedAtTimeZoneID    *string          `json:"captured_at_time_zone_id,omitempty"`
	CapturedAtOffsetMinutes *int             `json:"captured_at_offset_minutes,omitempty"`
	BlobPath                *string          `json:"blob_path,omitempty"`
	Payload                 string           `gorm:"type:text" json:"payload"`
	PayloadSchemaVersion    int              `gorm:"not null;default:1" json:"payload_schema_version"`
	Status                  ProcessingStatus `gorm:"column:processing_status;type:varchar(16);index;not null" json:"processing_status"`

	Timestamp
}

// HasImage reports whether the entry references an original image blob.
func (e *TrackedEntry) HasImage() bool {
	return e.BlobPath != nil && *e.BlobPath != ""
}

// HasPayload reports whether the entry carries a non-empty payload document.
func (e *TrackedEntry) HasPayload() bool {
	trimmed := strings.TrimSpace(e.Payload)
	return trimmed != "" && trimmed != "{}" && trimmed != "null"
}

// IsValid enforces that an entry has something to analyse.
func (e *TrackedEntry) IsValid() bool {
	return e.HasImage() || e.HasPayload()
}

// LocalCapturedAt reconstructs the wall-clock time the user saw when the entry
// was captured. The IANA zone wins over the fixed offset; UTC is the fallback.
func (e *TrackedEntry) LocalCapturedAt() time.Time {
	if e.CapturedAtTimeZoneID != nil && *e.CapturedAtTimeZoneID != "" {
		if loc, err := time.LoadLocation(*e.CapturedAtTimeZoneID); err == nil {
			return e.CapturedAt.In(loc)
		}
	}
	if e.CapturedAtOffsetMinutes != nil {
		return e.CapturedAt.In(time.FixedZone("", *e.CapturedAtOffsetMinutes*60))
	}
	return e.CapturedAt.UTC()
}
