package middleware

import (
	"strings"

	"go-automation/internal/features/audit"

	"github.com/gofiber/fiber/v2"
)

// ActorHeader names the caller recorded in audit logs.
const ActorHeader = "X-Actor"

// ActorMiddleware copies the X-Actor header into the request context
func ActorMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if actor := strings.TrimSpace(c.Get(ActorHeader)); actor != "" {
			c.SetUserContext(audit.WithActor(c.UserContext(), actor))
		}
		return c.Next()
	}
}
