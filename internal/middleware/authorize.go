package middleware

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/activity-portal-api/internal/authz"
	"github.com/noah-isme/activity-portal-api/internal/utils"
)

// RequireAction rejects callers the authorization guard refuses for action.
// Browsers (Accept: text/html) are redirected to the home page with a message
// instead of receiving a JSON error.
func RequireAction(action authz.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := authz.Authorize(PrincipalFrom(c), action)
		if err == nil {
			return c.Next()
		}

		status := fiber.StatusForbidden
		message := "insufficient permissions"
		if errors.Is(err, authz.ErrUnauthenticated) {
			status = fiber.StatusUnauthorized
			message = "authentication required"
			if reason := rejectionFrom(c); reason != "" {
				message = reason
			}
		}

		if wantsHTML(c) {
			return c.Redirect("/?message="+url.QueryEscape(message), fiber.StatusFound)
		}
		return utils.SendError(c, status, message)
	}
}

func wantsHTML(c *fiber.Ctx) bool {
	accept := c.Get(fiber.HeaderAccept)
	return strings.Contains(accept, fiber.MIMETextHTML) && !strings.Contains(accept, fiber.MIMEApplicationJSON)
}
