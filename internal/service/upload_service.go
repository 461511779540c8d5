package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/makerlabExp/pickupConnect/internal/dto"
	"github.com/makerlabExp/pickupConnect/pkg/media"
)

var (
	// ErrUploadTooLarge indicates the file exceeds the configured limit.
	ErrUploadTooLarge = errors.New("upload exceeds size limit")
	// ErrUploadNotImage indicates the file is not an image.
	ErrUploadNotImage = errors.New("upload is not an image")
	// ErrUploadsDisabled indicates no media storage is configured.
	ErrUploadsDisabled = errors.New("media storage not configured")
)

// UploadService stores session artwork.
type UploadService interface {
	UploadSessionImage(ctx context.Context, filename string, size int64, reader io.Reader) (dto.UploadResponse, error)
}

type uploadService struct {
	media    *media.Service
	maxBytes int64
	logger   zerolog.Logger
}

// NewUploadService constructs the upload service. A nil media service
// disables uploads.
func NewUploadService(mediaService *media.Service, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}

	return &uploadService{
		media:    mediaService,
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
		logger:   logger.With().Str("component", "upload_service").Logger(),
	}
}

// UploadSessionImage sniffs the content, rejects non-images and oversize
// files, then pushes the bytes to media storage.
func (s *uploadService) UploadSessionImage(ctx context.Context, filename string, size int64, reader io.Reader) (dto.UploadResponse, error) {
	if size > s.maxBytes {
		return dto.UploadResponse{}, fmt.Errorf("%w: %d bytes", ErrUploadTooLarge, size)
	}

	payload, err := io.ReadAll(io.LimitReader(reader, s.maxBytes+1))
	if err != nil {
		return dto.UploadResponse{}, err
	}
	if int64(len(payload)) > s.maxBytes {
		return dto.UploadResponse{}, ErrUploadTooLarge
	}

	detected := mimetype.Detect(payload)
	if !strings.HasPrefix(detected.String(), "image/") {
		return dto.UploadResponse{}, fmt.Errorf("%w: %s", ErrUploadNotImage, detected.String())
	}

	if s.media == nil {
		return dto.UploadResponse{}, ErrUploadsDisabled
	}

	imageURL, err := s.media.Upload(ctx, filename, bytes.NewReader(payload))
	if err != nil {
		return dto.UploadResponse{}, err
	}

	s.logger.Info().
		Str("filename", filename).
		Str("content_type", detected.String()).
		Int("size", len(payload)).
		Msg("session image uploaded")

	return dto.UploadResponse{
		URL:         imageURL,
		ContentType: detected.String(),
		Size:        int64(len(payload)),
	}, nil
}
