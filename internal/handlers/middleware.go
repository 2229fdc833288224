package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/resumeiq/internal/services"
)

const HeaderUserID = "X-User-ID"

// RateLimit counts requests per client, identified by the X-User-ID header
// or the remote IP, against the limiter.
func RateLimit(limiter services.RateLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		clientID := strings.TrimSpace(c.Get(HeaderUserID))
		if clientID == "" {
			clientID = c.IP()
		}

		if err := limiter.Allow(c.UserContext(), clientID); err != nil {
			return respondError(c, err)
		}
		return c.Next()
	}
}
