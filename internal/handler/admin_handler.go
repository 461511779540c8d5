package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/makerlabExp/pickupConnect/internal/dto"
	"github.com/makerlabExp/pickupConnect/internal/service"
	"github.com/makerlabExp/pickupConnect/internal/utils"
)

// AdminHandler exposes roster management and the demo data actions.
type AdminHandler struct {
	service service.AdminService
	logger  zerolog.Logger
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(service service.AdminService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register binds the admin routes. Role enforcement happens at the group
// level in the router.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Get("/roster", h.roster)
	router.Post("/students", h.addFamily)
	router.Post("/seed", h.seed)
	router.Post("/reset", h.reset)
}

func (h *AdminHandler) roster(c *fiber.Ctx) error {
	students, parents, err := h.service.Roster(c.UserContext())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("load roster")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load roster")
	}

	return utils.SendSuccess(c, "roster", fiber.Map{
		"students": dto.NewStudentResponseSlice(students),
		"parents":  dto.NewParentResponseSlice(parents),
	})
}

func (h *AdminHandler) addFamily(c *fiber.Ctx) error {
	var req dto.AddStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	family, err := h.service.AddFamily(c.UserContext(), req)
	if err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, "invalid registration request")
		case errors.Is(err, service.ErrCodesExhausted):
			return utils.SendError(c, fiber.StatusConflict, "no free access code available")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("register family")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to register family")
		}
	}

	return utils.SendCreated(c, "family registered", family)
}

func (h *AdminHandler) seed(c *fiber.Ctx) error {
	if err := h.service.Seed(c.UserContext()); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("seed sample data")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to seed sample data")
	}

	return utils.SendSuccess(c, "sample data seeded", nil)
}

func (h *AdminHandler) reset(c *fiber.Ctx) error {
	if err := h.service.Reset(c.UserContext()); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("reset data")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to reset data")
	}

	return utils.SendSuccess(c, "data reset", nil)
}
