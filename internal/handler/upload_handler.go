package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/makerlabExp/pickupConnect/internal/service"
	"github.com/makerlabExp/pickupConnect/internal/utils"
)

// UploadHandler accepts session artwork uploads.
type UploadHandler struct {
	service service.UploadService
	logger  zerolog.Logger
}

// NewUploadHandler constructs the handler.
func NewUploadHandler(service service.UploadService, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		logger:  logger.With().Str("component", "upload_handler").Logger(),
	}
}

// Register binds the upload routes.
func (h *UploadHandler) Register(router fiber.Router) {
	router.Post("/session-image", h.uploadSessionImage)
}

func (h *UploadHandler) uploadSessionImage(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("open uploaded file")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to read upload")
	}
	defer file.Close()

	resp, err := h.service.UploadSessionImage(c.UserContext(), fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUploadTooLarge):
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, "upload exceeds size limit")
		case errors.Is(err, service.ErrUploadNotImage):
			return utils.SendError(c, fiber.StatusUnsupportedMediaType, "only image uploads are accepted")
		case errors.Is(err, service.ErrUploadsDisabled):
			return utils.SendError(c, fiber.StatusServiceUnavailable, "media storage not configured")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("upload session image")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to store upload")
		}
	}

	return utils.SendCreated(c, "image uploaded", resp)
}
