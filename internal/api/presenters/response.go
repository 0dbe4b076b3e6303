package presenters

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/DigitumDei/WellnessWingman-sub001/domain"
	"github.com/DigitumDei/WellnessWingman-sub001/internal/utils/storage"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/llm"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/orchestrator"
)

type Response struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func SuccessResponse(c *fiber.Ctx, data any, status int, message string) error {
	return c.Status(status).JSON(Response{
		Status:  true,
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	res := Response{
		Status:  false,
		Message: message,
	}
	if err != nil {
		res.Error = err.Error()
	}
	return c.Status(status).JSON(res)
}

// StatusForError maps service errors onto HTTP status codes.
func StatusForError(err error) int {
	var providerErr *llm.ProviderError
	switch {
	case errors.Is(err, domain.ErrEntryNotFound),
		errors.Is(err, domain.ErrAnalysisNotFound),
		errors.Is(err, domain.ErrNoPendingCapture),
		errors.Is(err, domain.ErrNoEntriesForDay),
		errors.Is(err, storage.ErrBlobNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrParseUUID),
		errors.Is(err, domain.ErrInvalidStatusFilter),
		errors.Is(err, domain.ErrInvalidImageType),
		errors.Is(err, domain.ErrCaptureImageMissing),
		errors.Is(err, domain.ErrCaptureImageEmpty),
		errors.Is(err, domain.ErrInvalidSummaryDate),
		errors.Is(err, storage.ErrInvalidPath),
		errors.Is(err, llm.ErrUnknownProvider):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrEntryBusy),
		errors.Is(err, domain.ErrEntryNotRetryable),
		errors.Is(err, domain.ErrInvalidStatusTransition):
		return fiber.StatusConflict
	case errors.Is(err, llm.ErrNotConfigured):
		return fiber.StatusPreconditionFailed
	case errors.Is(err, llm.ErrUnsupportedOperation):
		return fiber.StatusNotImplemented
	case errors.Is(err, orchestrator.ErrShuttingDown):
		return fiber.StatusServiceUnavailable
	case errors.As(err, &providerErr), errors.Is(err, llm.ErrEmptyResponse):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
