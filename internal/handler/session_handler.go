package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/makerlabExp/pickupConnect/internal/dto"
	"github.com/makerlabExp/pickupConnect/internal/middleware"
	"github.com/makerlabExp/pickupConnect/internal/service"
	"github.com/makerlabExp/pickupConnect/internal/utils"
)

// SessionHandler exposes workshop theme endpoints.
type SessionHandler struct {
	service service.SessionService
	logger  zerolog.Logger
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(service service.SessionService, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		logger:  logger.With().Str("component", "session_handler").Logger(),
	}
}

// Register binds the session routes. Writes are admin-only.
func (h *SessionHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/current", h.current)
	router.Post("/", middleware.RequireRole(middleware.RoleAdmin), h.add)
	router.Post("/:id/activate", middleware.RequireRole(middleware.RoleAdmin), h.activate)
}

func (h *SessionHandler) list(c *fiber.Ctx) error {
	sessions, err := h.service.List(c.UserContext())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("list sessions")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list sessions")
	}

	return utils.SendSuccess(c, "sessions", dto.NewSessionResponseSlice(sessions))
}

func (h *SessionHandler) current(c *fiber.Ctx) error {
	session, err := h.service.Current(c.UserContext())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("load current session")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load current session")
	}

	return utils.SendSuccess(c, "current session", dto.NewSessionResponse(session))
}

func (h *SessionHandler) add(c *fiber.Ctx) error {
	var req dto.SessionCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	session, err := h.service.Add(c.UserContext(), req)
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid session request")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("add session")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to add session")
	}

	return utils.SendCreated(c, "session added", dto.NewSessionResponse(session))
}

func (h *SessionHandler) activate(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "session id required")
	}

	session, err := h.service.Activate(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "session not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("activate session")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to activate session")
	}

	return utils.SendSuccess(c, "session activated", dto.NewSessionResponse(session))
}
