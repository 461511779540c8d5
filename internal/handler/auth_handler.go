package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/makerlabExp/pickupConnect/internal/dto"
	"github.com/makerlabExp/pickupConnect/internal/service"
	"github.com/makerlabExp/pickupConnect/internal/utils"
)

// AuthHandler exposes the login endpoints for every role.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register binds the auth routes.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/student", h.loginStudent)
	router.Post("/parent", h.loginParent)
	router.Post("/admin", h.loginAdmin)
	router.Post("/instructor", h.loginInstructor)
}

func (h *AuthHandler) loginStudent(c *fiber.Ctx) error {
	var req dto.StudentLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	resp, err := h.service.LoginStudent(c.UserContext(), req)
	if err != nil {
		return h.loginError(c, err)
	}

	return utils.SendSuccess(c, "logged in", resp)
}

func (h *AuthHandler) loginParent(c *fiber.Ctx) error {
	var req dto.StudentLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	resp, err := h.service.LoginParent(c.UserContext(), req)
	if err != nil {
		return h.loginError(c, err)
	}

	return utils.SendSuccess(c, "logged in", resp)
}

func (h *AuthHandler) loginAdmin(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	resp, err := h.service.LoginAdmin(req)
	if err != nil {
		return h.loginError(c, err)
	}

	return utils.SendSuccess(c, "logged in", resp)
}

func (h *AuthHandler) loginInstructor(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	resp, err := h.service.LoginInstructor(req)
	if err != nil {
		return h.loginError(c, err)
	}

	return utils.SendSuccess(c, "logged in", resp)
}

func (h *AuthHandler) loginError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid login request")
	case errors.Is(err, service.ErrInvalidAccessCode),
		errors.Is(err, service.ErrInvalidPassword):
		return utils.SendError(c, fiber.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrParentMissing):
		return utils.SendError(c, fiber.StatusUnauthorized, "no parent paired with this code")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("login failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "login failed")
	}
}
