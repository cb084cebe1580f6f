package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// APIKeyHeader is the header clients authenticate with.
const APIKeyHeader = "X-API-Key"

// Messages of rejected requests.
const (
	MsgNotAuthenticated   = "Not authenticated"
	MsgInvalidCredentials = "Could not validate credentials"
)

// APIKey rejects requests whose X-API-Key header does not equal key with 403.
func APIKey(key string, log zerolog.Logger) fiber.Handler {
	expected := []byte(key)
	return func(c *fiber.Ctx) error {
		got := c.Get(APIKeyHeader)
		if got == "" {
			return fiber.NewError(fiber.StatusForbidden, MsgNotAuthenticated)
		}
		if subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
			log.Warn().
				Str("event", "api_key_rejected").
				Str("request_id", GetRequestID(c)).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Send()
			return fiber.NewError(fiber.StatusForbidden, MsgInvalidCredentials)
		}
		return c.Next()
	}
}
