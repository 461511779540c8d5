package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
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

type mockAuthService struct {
	response dto.LoginResponse
	err      error
	lastCode string
}

func (m *mockAuthService) LoginStudent(_ context.Context, req dto.StudentLoginRequest) (dto.LoginResponse, error) {
	m.lastCode = req.Code
	return m.response, m.err
}

func (m *mockAuthService) LoginParent(_ context.Context, req dto.StudentLoginRequest) (dto.LoginResponse, error) {
	m.lastCode = req.Code
	return m.response, m.err
}

func (m *mockAuthService) LoginAdmin(req dto.StaffLoginRequest) (dto.LoginResponse, error) {
	return m.response, m.err
}

func (m *mockAuthService) LoginInstructor(req dto.StaffLoginRequest) (dto.LoginResponse, error) {
	return m.response, m.err
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestAuthHandler_StudentLoginSuccess(t *testing.T) {
	svc := &mockAuthService{response: dto.LoginResponse{Token: "tok", Role: "student", UserID: "s1", Name: "Leo"}}
	app := fiber.New()
	handler.NewAuthHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/auth"))

	resp := postJSON(t, app, "/api/v1/auth/student", dto.StudentLoginRequest{Code: "1234"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Success bool              `json:"success"`
		Data    dto.LoginResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Success)
	require.Equal(t, "tok", response.Data.Token)
	require.Equal(t, "1234", svc.lastCode)
}

func TestAuthHandler_InvalidCredentials(t *testing.T) {
	svc := &mockAuthService{err: service.ErrInvalidAccessCode}
	app := fiber.New()
	handler.NewAuthHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/auth"))

	resp := postJSON(t, app, "/api/v1/auth/student", dto.StudentLoginRequest{Code: "0000"})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthHandler_ParentWithoutPair(t *testing.T) {
	svc := &mockAuthService{err: service.ErrParentMissing}
	app := fiber.New()
	handler.NewAuthHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/auth"))

	resp := postJSON(t, app, "/api/v1/auth/parent", dto.StudentLoginRequest{Code: "9999"})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthHandler_AdminWrongPassword(t *testing.T) {
	svc := &mockAuthService{err: service.ErrInvalidPassword}
	app := fiber.New()
	handler.NewAuthHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/auth"))

	resp := postJSON(t, app, "/api/v1/auth/admin", dto.StaffLoginRequest{Password: "wrong"})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthHandler_MalformedBody(t *testing.T) {
	svc := &mockAuthService{}
	app := fiber.New()
	handler.NewAuthHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/auth"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/student", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
