package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/policy"
)

// RequireAction rejects callers whose role cannot perform the action. Target
// specific rules are left to the service that loads the target.
func RequireAction(action policy.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := CurrentUser(c)
		if err := policy.Authorize(user, action, nil); err != nil {
			return err
		}
		return c.Next()
	}
}
