package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/deptforge/agent-departments/internal/api/dto"
	"github.com/deptforge/agent-departments/internal/domain"
	"github.com/deptforge/agent-departments/internal/service"
	apperrors "github.com/deptforge/agent-departments/pkg/util/errorutil"
)

// UsersHandler exposes auth endpoints for department owners.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Register handles POST /auth/users/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := domain.ValidateStruct("invalid registration", req); err != nil {
		return err
	}

	user, token, exp, err := h.auth.RegisterUser(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(authPayload(user, token, exp))
}

// Login handles POST /auth/users/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := domain.ValidateStruct("email and password required", req); err != nil {
		return err
	}

	user, token, exp, err := h.auth.LoginUser(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(authPayload(user, token, exp))
}

func authPayload(user *domain.User, token string, exp time.Time) fiber.Map {
	return fiber.Map{
		"data": fiber.Map{
			"user": dto.UserSummary{ID: user.ID, Name: user.Name, Email: user.Email},
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	}
}
