package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deptforge/agent-departments/internal/domain"
)

// RequireActiveUser rejects suspended owners after authentication.
func RequireActiveUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if principal.User.Status != domain.UserStatusActive {
			return fiber.NewError(http.StatusForbidden, "account suspended")
		}
		return c.Next()
	}
}
