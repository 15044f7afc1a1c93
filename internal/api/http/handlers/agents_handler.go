package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deptforge/agent-departments/internal/api/dto"
	"github.com/deptforge/agent-departments/internal/service"
	apperrors "github.com/deptforge/agent-departments/pkg/util/errorutil"
)

// AgentsHandler manages the persona staffing each department.
type AgentsHandler struct {
	service *service.AgentService
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(agentService *service.AgentService) *AgentsHandler {
	return &AgentsHandler{service: agentService}
}

// Assign PUT /departments/:id/agent.
func (h *AgentsHandler) Assign(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.AgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	persona, err := h.service.AssignAgent(c.UserContext(), p.OwnerID(), c.Params("id"), req.ToPersona())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAgentResponse(persona)})
}

// Get GET /departments/:id/agent.
func (h *AgentsHandler) Get(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	persona, err := h.service.GetAgent(c.UserContext(), p.OwnerID(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAgentResponse(persona)})
}
