package entities

import "time"

// PendingCaptureSlot is the primary key of the only row the staging table holds.
const PendingCaptureSlot = 1

// PendingCapture is written before the camera is opened so a capture
// interrupted by process death can be resumed on the next start.
type PendingCapture struct {
	ID                   int       `gorm:"primaryKey;autoIncrement:false" json:"-"`
	OriginalRelativePath string    `gorm:"not null" json:"original_relative_path"`
	PreviewRelativePath  string    `json:"preview_relative_path"`
	CapturedAt           time.Time `gorm:"not null" json:"captured_at"`
	TimeZoneID           *string   `json:"time_zone_id,omitempty"`
	UTCOffsetMinutes     *int      `json:"utc_offset_minutes,omitempty"`

	Timestamp
}
