package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/makerlabExp/pickupConnect/internal/dto"
	"github.com/makerlabExp/pickupConnect/internal/service"
	"github.com/makerlabExp/pickupConnect/internal/utils"
)

// SetupHandler exposes the first-run configuration endpoints.
type SetupHandler struct {
	service service.SetupService
	logger  zerolog.Logger
}

// NewSetupHandler constructs the handler.
func NewSetupHandler(service service.SetupService, logger zerolog.Logger) *SetupHandler {
	return &SetupHandler{
		service: service,
		logger:  logger.With().Str("component", "setup_handler").Logger(),
	}
}

// Register binds the setup routes.
func (h *SetupHandler) Register(router fiber.Router) {
	router.Post("/validate", h.validate)
	router.Post("/magic-link", h.magicLink)
	router.Get("/magic-link", h.decodeMagicLink)
}

func (h *SetupHandler) validate(c *fiber.Ctx) error {
	var creds dto.SetupCredentials
	if err := c.BodyParser(&creds); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result := h.service.Validate(c.UserContext(), creds)
	return utils.SendSuccess(c, "configuration checked", result)
}

func (h *SetupHandler) magicLink(c *fiber.Ctx) error {
	var creds dto.SetupCredentials
	if err := c.BodyParser(&creds); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	baseURL := c.Query("base_url", c.BaseURL())
	link, err := h.service.EncodeMagicLink(creds, baseURL)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, "url and key are required")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("encode magic link")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to build magic link")
	}

	return utils.SendSuccess(c, "magic link built", link)
}

func (h *SetupHandler) decodeMagicLink(c *fiber.Ctx) error {
	blob := c.Query("config")
	if blob == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "config parameter required")
	}

	creds, err := h.service.DecodeMagicLink(blob)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "malformed magic link")
	}

	return utils.SendSuccess(c, "magic link decoded", creds)
}
