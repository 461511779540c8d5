package contract_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/makerlabExp/pickupConnect/internal/dto"
	"github.com/makerlabExp/pickupConnect/internal/feed"
	"github.com/makerlabExp/pickupConnect/internal/handler"
	"github.com/makerlabExp/pickupConnect/internal/models"
	"github.com/makerlabExp/pickupConnect/internal/service"
	"github.com/makerlabExp/pickupConnect/internal/store"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", name))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)
	return schema
}

func validateBody(t *testing.T, schema *jsonschema.Schema, resp *http.Response) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}

func TestPickupQueueContract(t *testing.T) {
	schema := compileSchema(t, "pickup_queue.schema.json")

	state := store.New()
	state.LoadStudents([]models.Student{
		{ID: "s1", Name: "Leo", AccessCode: "1234", ParentID: "p1", Classroom: "Salle 1"},
	})
	state.LoadParents([]models.Parent{{ID: "p1", Name: "Sarah", StudentID: "s1"}})

	validate := validator.New(validator.WithRequiredStructEnabled())
	broker := feed.NewBroker(nil, "", nil, zerolog.Nop())
	pickups := service.NewPickupService(state, nil, broker, validate, zerolog.Nop())
	announcer := service.NewAnnouncer(state, pickups, broker, nil, time.Millisecond, zerolog.Nop())

	app := fiber.New()
	group := app.Group("/api/v1/pickups", func(c *fiber.Ctx) error {
		c.Locals("user_id", "instructor")
		c.Locals("user_role", "instructor")
		return c.Next()
	})
	handler.NewPickupHandler(pickups, announcer, zerolog.Nop()).Register(group)

	statusPayload, err := json.Marshal(dto.StatusUpdateRequest{StudentID: "s1", Status: "arrived"})
	require.NoError(t, err)
	statusReq := httptest.NewRequest(http.MethodPost, "/api/v1/pickups/status", bytes.NewReader(statusPayload))
	statusReq.Header.Set("Content-Type", "application/json")
	statusResp, err := app.Test(statusReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, statusResp.StatusCode)
	_ = statusResp.Body.Close()

	chatPayload, err := json.Marshal(dto.ChatSendRequest{StudentID: "s1", Text: "here soon", Sender: "parent"})
	require.NoError(t, err)
	chatReq := httptest.NewRequest(http.MethodPost, "/api/v1/pickups/chat", bytes.NewReader(chatPayload))
	chatReq.Header.Set("Content-Type", "application/json")
	chatResp, err := app.Test(chatReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, chatResp.StatusCode)
	_ = chatResp.Body.Close()

	queueReq := httptest.NewRequest(http.MethodGet, "/api/v1/pickups/", nil)
	queueResp, err := app.Test(queueReq)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, queueResp.StatusCode)

	validateBody(t, schema, queueResp)
}

func TestLoginContract(t *testing.T) {
	schema := compileSchema(t, "login.schema.json")

	state := store.New()
	state.LoadStudents([]models.Student{
		{ID: "s1", Name: "Leo", AccessCode: "1234", ParentID: "p1", AvatarURL: "https://api.dicebear.com/7.x/avataaars/svg?seed=Leo"},
	})

	validate := validator.New(validator.WithRequiredStructEnabled())
	auth := service.NewAuthService(state, "contract-secret", time.Hour, "admin", "teach", validate, zerolog.Nop())

	app := fiber.New()
	handler.NewAuthHandler(auth, zerolog.Nop()).Register(app.Group("/api/v1/auth"))

	payload, err := json.Marshal(dto.StudentLoginRequest{Code: "1234"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/student", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	validateBody(t, schema, resp)
}
