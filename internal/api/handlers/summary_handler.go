package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/DigitumDei/WellnessWingman-sub001/domain"
	"github.com/DigitumDei/WellnessWingman-sub001/internal/api/presenters"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/summary"
)

type (
	SummaryHandler interface {
		GetDailySummary(c *fiber.Ctx) error
	}

	summaryHandler struct {
		summaryService summary.SummaryService
		validator      *validator.Validate
	}
)

func NewSummaryHandler(summaryService summary.SummaryService, validator *validator.Validate) SummaryHandler {
	return &summaryHandler{
		summaryService: summaryService,
		validator:      validator,
	}
}

func (h *summaryHandler) GetDailySummary(c *fiber.Ctx) error {
	req := new(domain.DailySummaryRequest)
	if err := c.ParamsParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := c.QueryParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetDaySummary, err)
	}

	res, err := h.summaryService.GenerateDailySummary(c.Context(), req.Date, req.TimeZoneID)
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusForError(err), domain.MessageFailedGetDaySummary, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetDaySummary)
}
