package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deptforge/agent-departments/internal/api/dto"
	"github.com/deptforge/agent-departments/internal/service"
	apperrors "github.com/deptforge/agent-departments/pkg/util/errorutil"
)

// MessagesHandler sends messages to department agents.
type MessagesHandler struct {
	service *service.ChatService
}

// NewMessagesHandler constructs handler.
func NewMessagesHandler(chatService *service.ChatService) *MessagesHandler {
	return &MessagesHandler{service: chatService}
}

// Send POST /departments/:id/messages. An agent that cannot answer still
// yields 200 with delivered=false.
func (h *MessagesHandler) Send(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.service.SendMessage(c.UserContext(), p.OwnerID(), c.Params("id"), req.Message, p.User.Name)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewReplyResponse(*result)})
}

// History GET /departments/:id/messages.
func (h *MessagesHandler) History(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	history, err := h.service.History(c.UserContext(), p.OwnerID(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTurnResponses(history)})
}

// Broadcast POST /broadcast.
func (h *MessagesHandler) Broadcast(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.BroadcastRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	results, err := h.service.Broadcast(c.UserContext(), p.OwnerID(), req.Message, req.DepartmentIDs, p.User.Name)
	if err != nil {
		return err
	}
	items := make([]dto.ReplyResponse, 0, len(results))
	for _, r := range results {
		items = append(items, dto.NewReplyResponse(r))
	}
	return c.JSON(fiber.Map{"data": items})
}
