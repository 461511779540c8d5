package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/makerlabExp/pickupConnect/internal/dto"
	"github.com/makerlabExp/pickupConnect/internal/handler"
	"github.com/makerlabExp/pickupConnect/internal/service"
)

type mockSetupService struct {
	validateResult dto.SetupValidateResponse
	link           dto.MagicLinkResponse
	decoded        dto.SetupCredentials
	err            error
	lastBlob       string
}

func (m *mockSetupService) Validate(_ context.Context, creds dto.SetupCredentials) dto.SetupValidateResponse {
	return m.validateResult
}

func (m *mockSetupService) EncodeMagicLink(creds dto.SetupCredentials, baseURL string) (dto.MagicLinkResponse, error) {
	return m.link, m.err
}

func (m *mockSetupService) DecodeMagicLink(blob string) (dto.SetupCredentials, error) {
	m.lastBlob = blob
	return m.decoded, m.err
}

func setupApp(svc service.SetupService) *fiber.App {
	app := fiber.New()
	handler.NewSetupHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/setup"))
	return app
}

func TestSetupHandler_Validate(t *testing.T) {
	svc := &mockSetupService{validateResult: dto.SetupValidateResponse{Valid: true}}
	app := setupApp(svc)

	resp := postJSON(t, app, "/api/v1/setup/validate", dto.SetupCredentials{
		URL: "https://demo.example.co",
		Key: "anon-key-12345",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Data dto.SetupValidateResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Data.Valid)
}

func TestSetupHandler_MagicLink(t *testing.T) {
	svc := &mockSetupService{link: dto.MagicLinkResponse{
		Config: "eyJ1cmwi",
		Link:   "https://pickup.example.co/?config=eyJ1cmwi",
	}}
	app := setupApp(svc)

	resp := postJSON(t, app, "/api/v1/setup/magic-link?base_url=https://pickup.example.co", dto.SetupCredentials{
		URL: "https://demo.example.co",
		Key: "anon-key-12345",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Data dto.MagicLinkResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Contains(t, response.Data.Link, "config=")
}

func TestSetupHandler_DecodeMagicLink(t *testing.T) {
	svc := &mockSetupService{decoded: dto.SetupCredentials{URL: "https://demo.example.co", Key: "anon-key-12345"}}
	app := setupApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/setup/magic-link?config=eyJ1cmwi", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "eyJ1cmwi", svc.lastBlob)
}

func TestSetupHandler_DecodeMissingConfig(t *testing.T) {
	svc := &mockSetupService{}
	app := setupApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/setup/magic-link", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
