package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type correlationKey struct{}

// CorrelationID tags each request with a correlation identifier so pickup
// events can be traced from the HTTP call through the feed and announcer.
// An incoming X-Correlation-ID (or X-Request-ID) is honoured, otherwise a
// fresh UUID is minted.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get("X-Correlation-ID"))
		if id == "" {
			id = strings.TrimSpace(c.Get("X-Request-ID"))
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals("correlation_id", id)
		c.Set("X-Correlation-ID", id)
		c.SetUserContext(context.WithValue(c.Context(), correlationKey{}, id))

		return c.Next()
	}
}

// GetCorrelationID returns the identifier bound to the active request, or an
// empty string when the middleware did not run.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals("correlation_id").(string); ok {
		return id
	}
	if id, ok := c.Context().Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}
