package handlers

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/DigitumDei/WellnessWingman-sub001/domain"
	"github.com/DigitumDei/WellnessWingman-sub001/internal/api/presenters"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/entry"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/orchestrator"
)

const eventsPingInterval = 15 * time.Second

type (
	// AnalysisQueue is the slice of the orchestrator the HTTP layer drives.
	AnalysisQueue interface {
		QueueEntry(ctx context.Context, id uuid.UUID) error
		RetryEntry(ctx context.Context, id uuid.UUID) error
		Subscribe(buffer int) (<-chan orchestrator.StatusChange, func())
	}

	EntryHandler interface {
		GetEntries(c *fiber.Ctx) error
		GetEntry(c *fiber.Ctx) error
		UpdateNotes(c *fiber.Ctx) error
		DeleteEntry(c *fiber.Ctx) error
		QueueEntry(c *fiber.Ctx) error
		RetryEntry(c *fiber.Ctx) error
		GetAnalysis(c *fiber.Ctx) error
		Events(c *fiber.Ctx) error
	}

	entryHandler struct {
		entryService entry.EntryService
		queue        AnalysisQueue
		validator    *validator.Validate
		logger       *slog.Logger
	}
)

func NewEntryHandler(entryService entry.EntryService, queue AnalysisQueue, validator *validator.Validate, logger *slog.Logger) EntryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &entryHandler{
		entryService: entryService,
		queue:        queue,
		validator:    validator,
		logger:       logger,
	}
}

func (h *entryHandler) GetEntries(c *fiber.Ctx) error {
	entries, err := h.entryService.ListEntries(c.Context(), c.Query("status"))
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusForError(err), domain.MessageFailedGetEntries, err)
	}
	return presenters.SuccessResponse(c, fiber.Map{
		"entries": entries,
		"total":   len(entries),
	}, fiber.StatusOK, domain.MessageSuccessGetEntries)
}

func (h *entryHandler) GetEntry(c *fiber.Ctx) error {
	res, err := h.entryService.GetEntry(c.Context(), c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusForError(err), domain.MessageFailedGetEntry, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetEntry)
}

func (h *entryHandler) UpdateNotes(c *fiber.Ctx) error {
	req := new(domain.UpdateNotesRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUpdateNotes, err)
	}

	res, err := h.entryService.UpdateNotes(c.Context(), c.Params("id"), req.Notes)
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusForError(err), domain.MessageFailedUpdateNotes, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessUpdateNotes)
}

func (h *entryHandler) DeleteEntry(c *fiber.Ctx) error {
	if err := h.entryService.DeleteEntry(c.Context(), c.Params("id")); err != nil {
		return presenters.ErrorResponse(c, presenters.StatusForError(err), domain.MessageFailedDeleteEntry, err)
	}
	return presenters.SuccessResponse(c, nil, fiber.StatusOK, domain.MessageSuccessDeleteEntry)
}

func (h *entryHandler) QueueEntry(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedQueueEntry, domain.ErrParseUUID)
	}
	if err := h.queue.QueueEntry(c.Context(), id); err != nil {
		return presenters.ErrorResponse(c, presenters.StatusForError(err), domain.MessageFailedQueueEntry, err)
	}
	return presenters.SuccessResponse(c, fiber.Map{"id": id}, fiber.StatusAccepted, domain.MessageSuccessQueueEntry)
}

func (h *entryHandler) RetryEntry(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedRetryEntry, domain.ErrParseUUID)
	}
	if err := h.queue.RetryEntry(c.Context(), id); err != nil {
		return presenters.ErrorResponse(c, presenters.StatusForError(err), domain.MessageFailedRetryEntry, err)
	}
	return presenters.SuccessResponse(c, fiber.Map{"id": id}, fiber.StatusAccepted, domain.MessageSuccessRetryEntry)
}

func (h *entryHandler) GetAnalysis(c *fiber.Ctx) error {
	res, err := h.entryService.GetLatestAnalysis(c.Context(), c.Params("id"))
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusForError(err), domain.MessageFailedGetAnalysis, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetAnalysis)
}

// Events streams status changes as server-sent events. ?entry_id narrows the
// stream to one entry.
func (h *entryHandler) Events(c *fiber.Ctx) error {
	var filter uuid.UUID
	if raw := c.Query("entry_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, domain.ErrParseUUID)
		}
		filter = id
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	changes, cancel := h.queue.Subscribe(0)
	logger := h.logger
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		ticker := time.NewTicker(eventsPingInterval)
		defer ticker.Stop()

		if err := writeComment(w, "connected"); err != nil {
			return
		}
		for {
			select {
			case change, ok := <-changes:
				if !ok {
					return
				}
				if filter != uuid.Nil && change.EntryID != filter {
					continue
				}
				if err := writeEvent(w, "status", change); err != nil {
					logger.Debug("event stream closed", "error", err)
					return
				}
			case <-ticker.C:
				if err := writeComment(w, "ping"); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func writeEvent(w *bufio.Writer, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeComment(w *bufio.Writer, text string) error {
	if _, err := fmt.Fprintf(w, ": %s\n\n", text); err != nil {
		return err
	}
	return w.Flush()
}
