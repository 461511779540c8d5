package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/makerlabExp/pickupConnect/internal/utils"
)

// JWTProtected returns a middleware that validates JWT bearer tokens issued
// by the auth service and exposes the subject and role on the request.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			// Websocket clients cannot set headers; accept the token as a
			// query parameter on upgrade requests.
			if token := strings.TrimSpace(c.Query("token")); token != "" {
				return validateToken(c, token, secret)
			}
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		return validateToken(c, tokenString, secret)
	}
}

func validateToken(c *fiber.Ctx, tokenString, secret string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
	}

	if sub, ok := claims["sub"].(string); ok && sub != "" {
		c.Locals("user_id", sub)
	}
	if role, ok := claims["role"].(string); ok && role != "" {
		c.Locals("user_role", strings.ToLower(strings.TrimSpace(role)))
	}
	if name, ok := claims["name"].(string); ok && name != "" {
		c.Locals("user_name", name)
	}

	return c.Next()
}
