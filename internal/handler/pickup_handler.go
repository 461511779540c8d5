package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/makerlabExp/pickupConnect/internal/dto"
	"github.com/makerlabExp/pickupConnect/internal/middleware"
	"github.com/makerlabExp/pickupConnect/internal/models"
	"github.com/makerlabExp/pickupConnect/internal/service"
	"github.com/makerlabExp/pickupConnect/internal/utils"
)

// PickupHandler exposes the pickup workflow: queue view, status updates,
// chat, announcement audio and the manual re-announce action.
type PickupHandler struct {
	service   service.PickupService
	announcer *service.Announcer
	logger    zerolog.Logger
}

// NewPickupHandler constructs the handler.
func NewPickupHandler(pickupService service.PickupService, announcer *service.Announcer, logger zerolog.Logger) *PickupHandler {
	return &PickupHandler{
		service:   pickupService,
		announcer: announcer,
		logger:    logger.With().Str("component", "pickup_handler").Logger(),
	}
}

// Register binds the pickup routes.
func (h *PickupHandler) Register(router fiber.Router) {
	router.Get("/", h.queue)
	router.Get("/student/:studentID", h.forStudent)
	router.Post("/status", h.updateStatus)
	router.Post("/chat", h.sendMessage)
	router.Get("/:id/audio", h.audio)
	router.Post("/:id/announce", middleware.RequireRole(middleware.RoleInstructor, middleware.RoleAdmin), h.manualAnnounce)
}

func (h *PickupHandler) queue(c *fiber.Ctx) error {
	classroom := c.Query("classroom")

	queue, err := h.service.Queue(c.UserContext(), classroom)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("load pickup queue")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load pickup queue")
	}

	return utils.SendSuccess(c, "pickup queue", dto.NewPickupResponseSlice(queue))
}

func (h *PickupHandler) forStudent(c *fiber.Ctx) error {
	studentID := c.Params("studentID")
	if studentID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "student id required")
	}

	// Students and parents may only read their own thread.
	role := userRoleFromContext(c)
	if role == middleware.RoleStudent && userIDFromContext(c) != studentID {
		return utils.SendError(c, fiber.StatusForbidden, "not your pickup request")
	}

	request, err := h.service.RequestForStudent(c.UserContext(), studentID)
	if err != nil {
		if errors.Is(err, service.ErrRequestNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "no pickup request for student")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("load pickup request")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load pickup request")
	}

	return utils.SendSuccess(c, "pickup request", dto.NewPickupResponse(request))
}

func (h *PickupHandler) updateStatus(c *fiber.Ctx) error {
	var req dto.StatusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	request, err := h.service.UpdateStatus(c.UserContext(), req)
	if err != nil {
		return h.workflowError(c, err, "update pickup status")
	}

	return utils.SendSuccess(c, "status updated", dto.NewPickupResponse(request))
}

func (h *PickupHandler) sendMessage(c *fiber.Ctx) error {
	var req dto.ChatSendRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	// The sender tag comes from the token, not the payload.
	switch userRoleFromContext(c) {
	case middleware.RoleStudent:
		req.Sender = models.SenderStudent
	case middleware.RoleParent:
		req.Sender = models.SenderParent
	}

	request, err := h.service.SendMessage(c.UserContext(), req)
	if err != nil {
		return h.workflowError(c, err, "send chat message")
	}

	return utils.SendCreated(c, "message sent", dto.NewPickupResponse(request))
}

func (h *PickupHandler) audio(c *fiber.Ctx) error {
	requestID := c.Params("id")
	if requestID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "request id required")
	}

	resp, err := h.service.Audio(c.UserContext(), requestID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRequestNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "pickup request not found")
		case errors.Is(err, service.ErrNoAudio):
			return utils.SendError(c, fiber.StatusNotFound, "no announcement audio cached")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("load announcement audio")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to load audio")
		}
	}

	return utils.SendSuccess(c, "announcement audio", resp)
}

func (h *PickupHandler) manualAnnounce(c *fiber.Ctx) error {
	requestID := c.Params("id")
	if requestID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "request id required")
	}

	if err := h.announcer.ManualAnnounce(c.UserContext(), requestID); err != nil {
		if errors.Is(err, service.ErrRequestNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "pickup request not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("manual announce")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to announce")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "announcement queued", nil)
}

func (h *PickupHandler) workflowError(c *fiber.Ctx, err error, action string) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request")
	case errors.Is(err, service.ErrUnknownStudent):
		return utils.SendError(c, fiber.StatusNotFound, "unknown student")
	case errors.Is(err, service.ErrInvalidStatus):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid pickup status")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(action)
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to "+action)
	}
}
