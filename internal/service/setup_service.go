package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/makerlabExp/pickupConnect/internal/dto"
)

// SetupService validates pasted backend credentials and packs them into
// shareable magic links.
type SetupService interface {
	Validate(ctx context.Context, creds dto.SetupCredentials) dto.SetupValidateResponse
	EncodeMagicLink(creds dto.SetupCredentials, baseURL string) (dto.MagicLinkResponse, error)
	DecodeMagicLink(blob string) (dto.SetupCredentials, error)
}

type setupService struct {
	client    *http.Client
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSetupService constructs the setup service.
func NewSetupService(validate *validator.Validate, logger zerolog.Logger) SetupService {
	return &setupService{
		client:    &http.Client{Timeout: 5 * time.Second},
		validator: validate,
		logger:    logger.With().Str("component", "setup_service").Logger(),
	}
}

// Validate probes the roster table with the supplied credentials. Any
// authenticated read counts as a working configuration.
func (s *setupService) Validate(ctx context.Context, creds dto.SetupCredentials) dto.SetupValidateResponse {
	if err := s.validator.Struct(creds); err != nil {
		return dto.SetupValidateResponse{Valid: false, Message: "url and key are required"}
	}

	probe := strings.TrimRight(creds.URL, "/") + "/rest/v1/students?select=id&limit=1"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probe, nil)
	if err != nil {
		return dto.SetupValidateResponse{Valid: false, Message: "invalid backend url"}
	}
	req.Header.Set("apikey", creds.Key)
	req.Header.Set("Authorization", "Bearer "+creds.Key)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn().Err(err).Msg("setup probe failed")
		return dto.SetupValidateResponse{Valid: false, Message: "backend unreachable"}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return dto.SetupValidateResponse{
			Valid:   false,
			Message: fmt.Sprintf("backend rejected credentials (status %d)", resp.StatusCode),
		}
	}

	return dto.SetupValidateResponse{Valid: true}
}

// EncodeMagicLink packs the credentials into a base64 JSON blob and a
// ready-to-share link pointing at baseURL.
func (s *setupService) EncodeMagicLink(creds dto.SetupCredentials, baseURL string) (dto.MagicLinkResponse, error) {
	if err := s.validator.Struct(creds); err != nil {
		return dto.MagicLinkResponse{}, err
	}

	payload, err := json.Marshal(creds)
	if err != nil {
		return dto.MagicLinkResponse{}, err
	}

	blob := base64.StdEncoding.EncodeToString(payload)
	link := strings.TrimRight(baseURL, "/") + "/?config=" + url.QueryEscape(blob)

	return dto.MagicLinkResponse{Config: blob, Link: link}, nil
}

// DecodeMagicLink unpacks a magic-link blob back into credentials.
func (s *setupService) DecodeMagicLink(blob string) (dto.SetupCredentials, error) {
	payload, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		// Query param transport sometimes swaps padding for spaces.
		payload, err = base64.StdEncoding.DecodeString(strings.ReplaceAll(blob, " ", "+"))
		if err != nil {
			return dto.SetupCredentials{}, fmt.Errorf("decode magic link: %w", err)
		}
	}

	var creds dto.SetupCredentials
	if err := json.Unmarshal(payload, &creds); err != nil {
		return dto.SetupCredentials{}, fmt.Errorf("decode magic link: %w", err)
	}
	if err := s.validator.Struct(creds); err != nil {
		return dto.SetupCredentials{}, fmt.Errorf("magic link missing url or key")
	}

	return creds, nil
}
