package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deptforge/agent-departments/internal/auth"
	apperrors "github.com/deptforge/agent-departments/pkg/util/errorutil"
)

func principal(c *fiber.Ctx) (*auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("user required")
	}
	return p, nil
}
