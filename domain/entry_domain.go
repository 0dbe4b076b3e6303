package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"time"
)

var (
	MessageSuccessGetEntries     = "entries retrieved successfully"
	MessageSuccessGetEntry       = "entry retrieved successfully"
	MessageSuccessUpdateNotes    = "entry notes updated successfully"
	MessageSuccessDeleteEntry    = "entry deleted successfully"
	MessageSuccessQueueEntry     = "entry queued for analysis"
	MessageSuccessRetryEntry     = "entry queued for retry"
	MessageSuccessGetAnalysis    = "analysis retrieved successfully"
	MessageSuccessSaveCapture    = "pending capture saved"
	MessageSuccessGetCapture     = "pending capture retrieved"
	MessageSuccessClearCapture   = "pending capture cleared"
	MessageSuccessFinalize       = "capture finalized"
	MessageSuccessUploadCapture  = "capture uploaded and queued for analysis"
	MessageSuccessGetDaySummary  = "daily summary generated"
	MessageFailedGetEntries      = "failed to retrieve entries"
	MessageFailedGetEntry        = "failed to retrieve entry"
	MessageFailedUpdateNotes     = "failed to update entry notes"
	MessageFailedDeleteEntry     = "failed to delete entry"
	MessageFailedQueueEntry      = "failed to queue entry"
	MessageFailedRetryEntry      = "failed to retry entry"
	MessageFailedGetAnalysis     = "failed to retrieve analysis"
	MessageFailedSaveCapture     = "failed to save pending capture"
	MessageFailedGetCapture      = "failed to retrieve pending capture"
	MessageFailedClearCapture    = "failed to clear pending capture"
	MessageFailedFinalize        = "failed to finalize capture"
	MessageFailedUploadCapture   = "failed to upload capture"
	MessageFailedTranscribeAudio = "failed to transcribe voice note"
	MessageFailedGetDaySummary   = "failed to generate daily summary"

	ErrEntryNotFound           = errors.New("entry not found")
	ErrAnalysisNotFound        = errors.New("analysis not found")
	ErrInvalidEntry            = errors.New("entry has neither an image nor a payload")
	ErrInvalidStatusTransition = errors.New("invalid processing status transition")
	ErrEntryNotRetryable       = errors.New("entry is not in a retryable state")
	ErrNoPendingCapture        = errors.New("no pending capture")
	ErrCaptureImageMissing     = errors.New("capture image file does not exist")
	ErrCaptureImageEmpty       = errors.New("capture image file is empty")
	ErrInvalidStatusFilter     = errors.New("invalid status filter")
	ErrUnsupportedPayload      = errors.New("unsupported entry payload schema version")
	ErrEntryBusy               = errors.New("entry is being analysed")
	ErrInvalidImageType        = errors.New("unsupported image type")
)

// CurrentEntryPayloadVersion is written by finalization.
const CurrentEntryPayloadVersion = 1

type (
	SavePendingCaptureRequest struct {
		OriginalRelativePath string    `json:"original_relative_path" validate:"required"`
		PreviewRelativePath  string    `json:"preview_relative_path"`
		CapturedAt           time.Time `json:"captured_at"`
		TimeZoneID           *string   `json:"time_zone_id,omitempty" validate:"omitempty,timezone"`
		UTCOffsetMinutes     *int      `json:"utc_offset_minutes,omitempty" validate:"omitempty,min=-840,max=840"`
	}

	UploadCaptureRequest struct {
		Image      *multipart.FileHeader `form:"image" validate:"required"`
		Notes      string                `form:"notes" validate:"max=4000"`
		CapturedAt string                `form:"captured_at"`
		TimeZoneID string                `form:"time_zone_id" validate:"omitempty,timezone"`
	}

	FinalizeCaptureRequest struct {
		Notes string `json:"notes" validate:"max=4000"`
	}

	UpdateNotesRequest struct {
		Notes string `json:"notes" validate:"max=4000"`
	}

	EntryResponse struct {
		ID                   string    `json:"id"`
		ExternalID           *string   `json:"external_id,omitempty"`
		EntryType            string    `json:"entry_type"`
		Status               string    `json:"processing_status"`
		CapturedAt           time.Time `json:"captured_at"`
		LocalCapturedAt      string    `json:"local_captured_at"`
		TimeZoneID           *string   `json:"time_zone_id,omitempty"`
		UTCOffsetMinutes     *int      `json:"utc_offset_minutes,omitempty"`
		BlobPath             *string   `json:"blob_path,omitempty"`
		PayloadSchemaVersion int       `json:"payload_schema_version"`
		Payload              any       `json:"payload,omitempty"`
		CreatedAt            time.Time `json:"created_at"`
		UpdatedAt            time.Time `json:"updated_at"`
	}

	EntryAnalysisResponse struct {
		ID            string          `json:"id"`
		EntryID       string          `json:"entry_id"`
		ProviderID    string          `json:"provider_id"`
		Model         string          `json:"model"`
		CapturedAt    time.Time       `json:"captured_at"`
		SchemaVersion string          `json:"schema_version"`
		Insights      json.RawMessage `json:"insights"`
	}

	// EntryPayload is the v1 kind-agnostic payload written at finalization.
	EntryPayload struct {
		SchemaVersion   int    `json:"schemaVersion"`
		Description     string `json:"description,omitempty"`
		PreviewBlobPath string `json:"previewBlobPath,omitempty"`
		UserNotes       string `json:"userNotes,omitempty"`
	}
)

// DecodeEntryPayload decodes a stored payload without trusting it. An empty
// payload decodes to the zero value; unknown versions are reported, not guessed.
func DecodeEntryPayload(version int, raw string) (EntryPayload, error) {
	if raw == "" {
		return EntryPayload{SchemaVersion: version}, nil
	}
	switch version {
	case 0, 1:
		var payload EntryPayload
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return EntryPayload{}, fmt.Errorf("decode entry payload v%d: %w", version, err)
		}
		payload.SchemaVersion = CurrentEntryPayloadVersion
		return payload, nil
	default:
		return EntryPayload{}, fmt.Errorf("%w: %d", ErrUnsupportedPayload, version)
	}
}

// Encode serialises the payload at the current schema version.
func (p EntryPayload) Encode() (string, error) {
	p.SchemaVersion = CurrentEntryPayloadVersion
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// IsEmpty reports whether the payload carries no user-visible content.
func (p EntryPayload) IsEmpty() bool {
	return p.Description == "" && p.PreviewBlobPath == "" && p.UserNotes == ""
}
