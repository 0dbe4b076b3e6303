package handlers

import (
	"io"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/DigitumDei/WellnessWingman-sub001/domain"
	"github.com/DigitumDei/WellnessWingman-sub001/internal/api/presenters"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/entry"
)

// Voice notes above this size are rejected before transcription.
const maxVoiceNoteBytes = 25 << 20

type (
	CaptureHandler interface {
		SavePending(c *fiber.Ctx) error
		GetPending(c *fiber.Ctx) error
		ClearPending(c *fiber.Ctx) error
		Finalize(c *fiber.Ctx) error
		Upload(c *fiber.Ctx) error
	}

	captureHandler struct {
		entryService entry.EntryService
		validator    *validator.Validate
		logger       *slog.Logger
	}
)

func NewCaptureHandler(entryService entry.EntryService, validator *validator.Validate, logger *slog.Logger) CaptureHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &captureHandler{
		entryService: entryService,
		validator:    validator,
		logger:       logger,
	}
}

func (h *captureHandler) SavePending(c *fiber.Ctx) error {
	req := new(domain.SavePendingCaptureRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedSaveCapture, err)
	}

	if err := h.entryService.SavePendingCapture(c.Context(), *req); err != nil {
		return presenters.ErrorResponse(c, presenters.StatusForError(err), domain.MessageFailedSaveCapture, err)
	}
	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessSaveCapture)
}

func (h *captureHandler) GetPending(c *fiber.Ctx) error {
	pending, err := h.entryService.GetPendingCapture(c.Context())
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusForError(err), domain.MessageFailedGetCapture, err)
	}
	return presenters.SuccessResponse(c, pending, fiber.StatusOK, domain.MessageSuccessGetCapture)
}

func (h *captureHandler) ClearPending(c *fiber.Ctx) error {
	if err := h.entryService.ClearPendingCapture(c.Context()); err != nil {
		return presenters.ErrorResponse(c, presenters.StatusForError(err), domain.MessageFailedClearCapture, err)
	}
	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessClearCapture)
}

// Finalize turns the stored pending capture into an entry.
func (h *captureHandler) Finalize(c *fiber.Ctx) error {
	req := new(domain.FinalizeCaptureRequest)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
		}
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedFinalize, err)
	}

	created, err := h.entryService.CompletePendingCapture(c.Context(), req.Notes)
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusForError(err), domain.MessageFailedFinalize, err)
	}
	res, err := h.entryService.GetEntry(c.Context(), created.ID.String())
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusForError(err), domain.MessageFailedFinalize, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessFinalize)
}

// Upload accepts a multipart photo with optional notes and voice note, stages
// it and finalizes it in one request.
func (h *captureHandler) Upload(c *fiber.Ctx) error {
	req := new(domain.UploadCaptureRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	file, err := c.FormFile("image")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	req.Image = file

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUploadCapture, err)
	}

	capturedAt := time.Now()
	if req.CapturedAt != "" {
		capturedAt, err = time.Parse(time.RFC3339, req.CapturedAt)
		if err != nil {
			return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
		}
	}
	var timeZoneID *string
	if req.TimeZoneID != "" {
		timeZoneID = &req.TimeZoneID
	}

	notes := strings.TrimSpace(req.Notes)
	if voice, err := c.FormFile("voice_note"); err == nil {
		notes = h.appendTranscript(c, voice, notes)
	}

	src, err := req.Image.Open()
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUploadCapture, err)
	}
	defer src.Close()

	staged, err := h.entryService.StageUpload(c.Context(), src, req.Image.Filename, capturedAt, timeZoneID)
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusForError(err), domain.MessageFailedUploadCapture, err)
	}
	created, err := h.entryService.CompleteCapture(c.Context(), staged, notes)
	if err != nil {
		if discardErr := h.entryService.DiscardCapture(c.Context(), staged); discardErr != nil {
			h.logger.WarnContext(c.Context(), "failed to discard rejected upload",
				"blob", staged.OriginalRelativePath, "error", discardErr)
		}
		return presenters.ErrorResponse(c, presenters.StatusForError(err), domain.MessageFailedUploadCapture, err)
	}
	res, err := h.entryService.GetEntry(c.Context(), created.ID.String())
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusForError(err), domain.MessageFailedUploadCapture, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusCreated, domain.MessageSuccessUploadCapture)
}

// appendTranscript adds the voice note transcript to notes. Transcription
// problems never block the capture.
func (h *captureHandler) appendTranscript(c *fiber.Ctx, voice *multipart.FileHeader, notes string) string {
	if voice.Size <= 0 || voice.Size > maxVoiceNoteBytes {
		h.logger.WarnContext(c.Context(), "voice note ignored", "size", voice.Size)
		return notes
	}
	rc, err := voice.Open()
	if err != nil {
		h.logger.WarnContext(c.Context(), "voice note unreadable", "error", err)
		return notes
	}
	defer rc.Close()
	audio, err := io.ReadAll(rc)
	if err != nil {
		h.logger.WarnContext(c.Context(), "voice note unreadable", "error", err)
		return notes
	}

	transcript, err := h.entryService.TranscribeVoiceNote(c.Context(), audio, voice.Header.Get(fiber.HeaderContentType))
	if err != nil {
		h.logger.WarnContext(c.Context(), domain.MessageFailedTranscribeAudio, "error", err)
		return notes
	}
	transcript = strings.TrimSpace(transcript)
	switch {
	case transcript == "":
		return notes
	case notes == "":
		return transcript
	default:
		return notes + "\n\n" + transcript
	}
}
