package handlers

import (
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/DigitumDei/WellnessWingman-sub001/domain"
	"github.com/DigitumDei/WellnessWingman-sub001/internal/api/presenters"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/credential"
)

type (
	SettingsHandler interface {
		GetLLMSettings(c *fiber.Ctx) error
		UpdateLLMSettings(c *fiber.Ctx) error
	}

	settingsHandler struct {
		credentials credential.Store
		validator   *validator.Validate
		logger      *slog.Logger
	}
)

func NewSettingsHandler(credentials credential.Store, validator *validator.Validate, logger *slog.Logger) SettingsHandler {
	return &settingsHandler{
		credentials: credentials,
		validator:   validator,
		logger:      logger,
	}
}

func (h *settingsHandler) GetLLMSettings(c *fiber.Ctx) error {
	res, err := credential.Describe(c.Context(), h.credentials)
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusForError(err), domain.MessageFailedGetSettings, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetSettings)
}

// UpdateLLMSettings takes effect on the next provider resolution; Skipped
// entries are analysed once the client retries them.
func (h *settingsHandler) UpdateLLMSettings(c *fiber.Ctx) error {
	req := new(domain.UpdateLLMSettingsRequest)
	if err := c.BodyParser(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedUpdateSettings, err)
	}
	if err := credential.Apply(c.Context(), h.credentials, *req); err != nil {
		return presenters.ErrorResponse(c, presenters.StatusForError(err), domain.MessageFailedUpdateSettings, err)
	}
	h.logger.InfoContext(c.Context(), "llm settings updated", "provider", req.Provider,
		"key_changed", req.APIKey != nil, "model_changed", req.Model != nil, "selected", req.Select)

	res, err := credential.Describe(c.Context(), h.credentials)
	if err != nil {
		return presenters.ErrorResponse(c, presenters.StatusForError(err), domain.MessageFailedGetSettings, err)
	}
	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessUpdateSettings)
}
