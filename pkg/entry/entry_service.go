package entry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/DigitumDei/WellnessWingman-sub001/domain"
	"github.com/DigitumDei/WellnessWingman-sub001/entities"
	"github.com/DigitumDei/WellnessWingman-sub001/internal/utils/imaging"
	"github.com/DigitumDei/WellnessWingman-sub001/internal/utils/storage"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/analysis"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/capture"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/keepalive"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/llm"
)

type (
	// Queuer hands a persisted entry to background analysis.
	Queuer interface {
		QueueEntry(ctx context.Context, id uuid.UUID) error
	}

	inFlightChecker interface {
		IsInFlight(id uuid.UUID) bool
	}

	EntryService interface {
		SavePendingCapture(ctx context.Context, req domain.SavePendingCaptureRequest) error
		GetPendingCapture(ctx context.Context) (*entities.PendingCapture, error)
		ClearPendingCapture(ctx context.Context) error
		FinalizeCapture(ctx context.Context, pending *entities.PendingCapture, notes string) (*entities.TrackedEntry, error)
		CompletePendingCapture(ctx context.Context, notes string) (*entities.TrackedEntry, error)
		CompleteCapture(ctx context.Context, pending *entities.PendingCapture, notes string) (*entities.TrackedEntry, error)
		StageUpload(ctx context.Context, image io.Reader, filename string, capturedAt time.Time, timeZoneID *string) (*entities.PendingCapture, error)
		DiscardCapture(ctx context.Context, pending *entities.PendingCapture) error
		TranscribeVoiceNote(ctx context.Context, audio []byte, mimeType string) (string, error)

		GetEntry(ctx context.Context, id string) (domain.EntryResponse, error)
		ListEntries(ctx context.Context, status string) ([]domain.EntryResponse, error)
		UpdateNotes(ctx context.Context, id string, notes string) (domain.EntryResponse, error)
		DeleteEntry(ctx context.Context, id string) error
		GetLatestAnalysis(ctx context.Context, id string) (domain.EntryAnalysisResponse, error)
	}

	Dependencies struct {
		Entries     EntryRepository
		Analyses    analysis.AnalysisRepository
		Captures    capture.Store
		Blobs       storage.BlobStore
		Queuer      Queuer
		Permissions keepalive.PermissionRequester
		LLM         llm.Resolver

		PreviewMaxDimension int
		// DeviceLocation is used when a capture carries no zone of its own.
		DeviceLocation *time.Location
		Logger         *slog.Logger
	}

	entryService struct {
		entries     EntryRepository
		analyses    analysis.AnalysisRepository
		captures    capture.Store
		blobs       storage.BlobStore
		queuer      Queuer
		permissions keepalive.PermissionRequester
		llm         llm.Resolver

		previewMaxDim int
		deviceLoc     *time.Location
		logger        *slog.Logger
	}
)

func NewEntryService(deps Dependencies) EntryService {
	if deps.PreviewMaxDimension <= 0 {
		deps.PreviewMaxDimension = imaging.DefaultPreviewMaxDimension
	}
	if deps.DeviceLocation == nil {
		deps.DeviceLocation = time.Local
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &entryService{
		entries:       deps.Entries,
		analyses:      deps.Analyses,
		captures:      deps.Captures,
		blobs:         deps.Blobs,
		queuer:        deps.Queuer,
		permissions:   deps.Permissions,
		llm:           deps.LLM,
		previewMaxDim: deps.PreviewMaxDimension,
		deviceLoc:     deps.DeviceLocation,
		logger:        deps.Logger,
	}
}

func (s *entryService) SavePendingCapture(ctx context.Context, req domain.SavePendingCaptureRequest) error {
	original, err := storage.CleanPath(req.OriginalRelativePath)
	if err != nil {
		return err
	}
	var preview string
	if strings.TrimSpace(req.PreviewRelativePath) != "" {
		if preview, err = storage.CleanPath(req.PreviewRelativePath); err != nil {
			return err
		}
	}
	capturedAt := req.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	return s.captures.Save(ctx, &entities.PendingCapture{
		OriginalRelativePath: original,
		PreviewRelativePath:  preview,
		CapturedAt:           capturedAt,
		TimeZoneID:           req.TimeZoneID,
		UTCOffsetMinutes:     req.UTCOffsetMinutes,
	})
}

func (s *entryService) GetPendingCapture(ctx context.Context) (*entities.PendingCapture, error) {
	pending, err := s.captures.Get(ctx)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, domain.ErrNoPendingCapture
	}
	return pending, nil
}

func (s *entryService) ClearPendingCapture(ctx context.Context) error {
	return s.captures.Clear(ctx)
}

// FinalizeCapture turns a staged photo into a Pending entry and queues it. No
// entry exists when an error is returned. A queueing failure is not an error:
// the entry stays Pending and recovery picks it up on the next start.
func (s *entryService) FinalizeCapture(ctx context.Context, pending *entities.PendingCapture, notes string) (*entities.TrackedEntry, error) {
	if pending == nil {
		return nil, domain.ErrNoPendingCapture
	}
	original, err := storage.CleanPath(pending.OriginalRelativePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCaptureImageMissing, err)
	}

	size, err := s.blobs.Stat(ctx, original)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return nil, domain.ErrCaptureImageMissing
		}
		return nil, fmt.Errorf("stat capture image: %w", err)
	}
	if size == 0 {
		return nil, domain.ErrCaptureImageEmpty
	}

	previewPath := previewPathFor(original)
	if pending.PreviewRelativePath != "" {
		// a preview written over the original would replace the full-size photo
		if cleaned, err := storage.CleanPath(pending.PreviewRelativePath); err == nil && cleaned != original {
			previewPath = cleaned
		}
	}
	if err := imaging.GeneratePreview(ctx, s.blobs, original, previewPath, s.previewMaxDim); err != nil {
		s.logger.WarnContext(ctx, "preview generation failed, continuing without preview",
			"original", original, "error", err)
		previewPath = ""
	}

	timeZoneID, offsetMinutes := s.resolveZone(pending)
	payload, err := domain.EntryPayload{
		PreviewBlobPath: previewPath,
		UserNotes:       strings.TrimSpace(notes),
	}.Encode()
	if err != nil {
		return nil, err
	}

	entry := &entities.TrackedEntry{
		ID:                      uuid.New(),
		EntryType:               entities.EntryTypeUnknown,
		CapturedAt:              pending.CapturedAt.UTC(),
		CapturedAtTimeZoneID:    timeZoneID,
		CapturedAtOffsetMinutes: offsetMinutes,
		BlobPath:                &original,
		Payload:                 payload,
		PayloadSchemaVersion:    domain.CurrentEntryPayloadVersion,
		Status:                  entities.StatusPending,
	}
	if !entry.IsValid() {
		return nil, domain.ErrInvalidEntry
	}
	if err := s.entries.Add(ctx, entry); err != nil {
		return nil, fmt.Errorf("persist entry: %w", err)
	}
	s.logger.InfoContext(ctx, "capture finalized", "entry_id", entry.ID, "blob", original)

	s.ensurePermission(ctx)

	if s.queuer != nil {
		if err := s.queuer.QueueEntry(ctx, entry.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to queue entry, it stays pending until recovery",
				"entry_id", entry.ID, "error", err)
		}
	}
	return entry, nil
}

func (s *entryService) CompletePendingCapture(ctx context.Context, notes string) (*entities.TrackedEntry, error) {
	pending, err := s.GetPendingCapture(ctx)
	if err != nil {
		return nil, err
	}
	return s.CompleteCapture(ctx, pending, notes)
}

// CompleteCapture finalizes pending and then clears the staging slot, unless
// another capture has been staged in the meantime.
func (s *entryService) CompleteCapture(ctx context.Context, pending *entities.PendingCapture, notes string) (*entities.TrackedEntry, error) {
	entry, err := s.FinalizeCapture(ctx, pending, notes)
	if err != nil {
		return nil, err
	}
	if err := s.captures.ClearIfCurrent(ctx, pending.OriginalRelativePath); err != nil {
		s.logger.WarnContext(ctx, "failed to clear pending capture", "entry_id", entry.ID, "error", err)
	}
	return entry, nil
}

// StageUpload stores an uploaded photo and records it as the pending capture.
func (s *entryService) StageUpload(ctx context.Context, image io.Reader, filename string, capturedAt time.Time, timeZoneID *string) (*entities.PendingCapture, error) {
	if !storage.IsAllowedImage(filename) {
		return nil, domain.ErrInvalidImageType
	}
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	relPath := path.Join("entries", capturedAt.UTC().Format("2006/01"), uuid.NewString()+strings.ToLower(path.Ext(filename)))
	if err := s.blobs.Write(ctx, relPath, image); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	pending := &entities.PendingCapture{
		OriginalRelativePath: relPath,
		CapturedAt:           capturedAt,
		TimeZoneID:           timeZoneID,
	}
	if err := s.captures.Save(ctx, pending); err != nil {
		return nil, err
	}
	return pending, nil
}

// DiscardCapture drops a staged capture that will never be finalized. The slot
// is cleared only while it still holds pending, and the original and any
// generated preview are deleted.
func (s *entryService) DiscardCapture(ctx context.Context, pending *entities.PendingCapture) error {
	if pending == nil {
		return nil
	}
	var errs []error
	if err := s.captures.ClearIfCurrent(ctx, pending.OriginalRelativePath); err != nil {
		errs = append(errs, fmt.Errorf("clear pending capture: %w", err))
	}
	original, err := storage.CleanPath(pending.OriginalRelativePath)
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	for _, blob := range []string{original, previewPathFor(original)} {
		if err := s.blobs.Delete(ctx, blob); err != nil && !errors.Is(err, storage.ErrBlobNotFound) {
			errs = append(errs, fmt.Errorf("delete %s: %w", blob, err))
		}
	}
	return errors.Join(errs...)
}

// TranscribeVoiceNote surfaces llm.ErrNotConfigured and
// llm.ErrUnsupportedOperation unchanged so callers can tell them apart.
func (s *entryService) TranscribeVoiceNote(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if s.llm == nil {
		return "", llm.ErrNotConfigured
	}
	client, err := s.llm.Resolve(ctx)
	if err != nil {
		return "", err
	}
	text, err := client.TranscribeAudio(ctx, audio, mimeType)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (s *entryService) GetEntry(ctx context.Context, id string) (domain.EntryResponse, error) {
	entry, err := s.loadEntry(ctx, id)
	if err != nil {
		return domain.EntryResponse{}, err
	}
	return s.toEntryResponse(ctx, entry), nil
}

func (s *entryService) ListEntries(ctx context.Context, status string) ([]domain.EntryResponse, error) {
	var (
		entries []*entities.TrackedEntry
		err     error
	)
	if status == "" || status == "all" {
		entries, err = s.entries.ListAll(ctx)
	} else {
		st := entities.ProcessingStatus(status)
		if !st.IsValid() {
			return nil, domain.ErrInvalidStatusFilter
		}
		entries, err = s.entries.ListByStatus(ctx, st)
	}
	if err != nil {
		return nil, err
	}

	response := make([]domain.EntryResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, s.toEntryResponse(ctx, entry))
	}
	return response, nil
}

// UpdateNotes rewrites the user notes in the payload. The processing status is
// left alone.
func (s *entryService) UpdateNotes(ctx context.Context, id string, notes string) (domain.EntryResponse, error) {
	entry, err := s.loadEntry(ctx, id)
	if err != nil {
		return domain.EntryResponse{}, err
	}

	payload, err := domain.DecodeEntryPayload(entry.PayloadSchemaVersion, entry.Payload)
	if err != nil {
		return domain.EntryResponse{}, err
	}
	payload.UserNotes = strings.TrimSpace(notes)
	encoded, err := payload.Encode()
	if err != nil {
		return domain.EntryResponse{}, err
	}
	entry.Payload = encoded
	entry.PayloadSchemaVersion = domain.CurrentEntryPayloadVersion

	if err := s.entries.UpdatePayload(ctx, entry); err != nil {
		return domain.EntryResponse{}, err
	}
	return s.toEntryResponse(ctx, entry), nil
}

func (s *entryService) DeleteEntry(ctx context.Context, id string) error {
	entry, err := s.loadEntry(ctx, id)
	if err != nil {
		return err
	}
	if entry.Status == entities.StatusProcessing || s.inFlight(entry.ID) {
		return domain.ErrEntryBusy
	}

	var blobs []string
	if entry.HasImage() {
		blobs = append(blobs, *entry.BlobPath)
	}
	if payload, err := domain.DecodeEntryPayload(entry.PayloadSchemaVersion, entry.Payload); err == nil && payload.PreviewBlobPath != "" {
		blobs = append(blobs, payload.PreviewBlobPath)
	}

	if s.analyses != nil {
		if err := s.analyses.DeleteForEntry(ctx, entry.ID); err != nil {
			return err
		}
	}
	if err := s.entries.Delete(ctx, entry.ID); err != nil {
		return err
	}
	for _, blob := range blobs {
		if err := s.blobs.Delete(ctx, blob); err != nil {
			s.logger.WarnContext(ctx, "failed to delete entry blob", "entry_id", entry.ID, "blob", blob, "error", err)
		}
	}
	return nil
}

// inFlight reports whether the queuer already has work scheduled for id, even
// if the entry has not reached Processing yet.
func (s *entryService) inFlight(id uuid.UUID) bool {
	checker, ok := s.queuer.(inFlightChecker)
	return ok && checker.IsInFlight(id)
}

func (s *entryService) GetLatestAnalysis(ctx context.Context, id string) (domain.EntryAnalysisResponse, error) {
	entry, err := s.loadEntry(ctx, id)
	if err != nil {
		return domain.EntryAnalysisResponse{}, err
	}
	latest, err := s.analyses.GetLatestForEntry(ctx, entry.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.EntryAnalysisResponse{}, domain.ErrAnalysisNotFound
		}
		return domain.EntryAnalysisResponse{}, err
	}
	return domain.EntryAnalysisResponse{
		ID:            latest.ID.String(),
		EntryID:       latest.EntryID.String(),
		ProviderID:    latest.ProviderID,
		Model:         latest.Model,
		CapturedAt:    latest.CapturedAt,
		SchemaVersion: latest.SchemaVersion,
		Insights:      []byte(latest.InsightsJSON),
	}, nil
}

func (s *entryService) loadEntry(ctx context.Context, id string) (*entities.TrackedEntry, error) {
	entryID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrParseUUID
	}
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

// resolveZone keeps the capture's own zone metadata, or falls back to the
// device zone at the capture instant.
func (s *entryService) resolveZone(pending *entities.PendingCapture) (*string, *int) {
	if pending.TimeZoneID != nil || pending.UTCOffsetMinutes != nil {
		return pending.TimeZoneID, pending.UTCOffsetMinutes
	}
	_, offsetSeconds := pending.CapturedAt.In(s.deviceLoc).Zone()
	offset := offsetSeconds / 60
	if name := s.deviceLoc.String(); name != "" && name != "Local" {
		return &name, &offset
	}
	return nil, &offset
}

func (s *entryService) ensurePermission(ctx context.Context) {
	if s.permissions == nil {
		return
	}
	granted, err := s.permissions.EnsurePermission(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "notification permission request failed", "error", err)
		return
	}
	if !granted {
		s.logger.WarnContext(ctx, "notification permission denied, background analysis runs without indicator")
	}
}

func (s *entryService) toEntryResponse(ctx context.Context, entry *entities.TrackedEntry) domain.EntryResponse {
	response := domain.EntryResponse{
		ID:                   entry.ID.String(),
		ExternalID:           entry.ExternalID,
		EntryType:            string(entry.EntryType),
		Status:               string(entry.Status),
		CapturedAt:           entry.CapturedAt,
		LocalCapturedAt:      entry.LocalCapturedAt().Format(time.RFC3339),
		TimeZoneID:           entry.CapturedAtTimeZoneID,
		UTCOffsetMinutes:     entry.CapturedAtOffsetMinutes,
		BlobPath:             entry.BlobPath,
		PayloadSchemaVersion: entry.PayloadSchemaVersion,
		CreatedAt:            entry.CreatedAt,
		UpdatedAt:            entry.UpdatedAt,
	}
	payload, err := domain.DecodeEntryPayload(entry.PayloadSchemaVersion, entry.Payload)
	if err != nil {
		s.logger.WarnContext(ctx, "entry payload could not be decoded", "entry_id", entry.ID, "error", err)
		return response
	}
	response.Payload = payload
	return response
}

func previewPathFor(original string) string {
	return strings.TrimSuffix(original, path.Ext(original)) + "_preview.jpg"
}
