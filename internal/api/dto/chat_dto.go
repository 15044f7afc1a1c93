package dto

import (
	"time"

	"github.com/deptforge/agent-departments/internal/domain"
	"github.com/deptforge/agent-departments/internal/service"
	apperrors "github.com/deptforge/agent-departments/pkg/util/errorutil"
)

// MessageRequest payload for POST /departments/:id/messages.
type MessageRequest struct {
	Message string `json:"message"`
}

// BroadcastRequest payload for POST /broadcast. An empty DepartmentIDs
// addresses every department.
type BroadcastRequest struct {
	Message       string   `json:"message"`
	DepartmentIDs []string `json:"department_ids"`
}

// ErrorBody mirrors the error envelope for per-item failures.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ReplyResponse is the outcome for one department. Reply is null when the
// agent did not answer.
type ReplyResponse struct {
	DepartmentID string                    `json:"department_id"`
	Category     domain.DepartmentCategory `json:"category"`
	Agent        string                    `json:"agent,omitempty"`
	Delivered    bool                      `json:"delivered"`
	Reply        *string                   `json:"reply"`
	Error        *ErrorBody                `json:"error,omitempty"`
}

// TurnResponse is one history entry.
type TurnResponse struct {
	Role      domain.TurnRole `json:"role"`
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewReplyResponse converts a chat result.
func NewReplyResponse(r service.ChatResult) ReplyResponse {
	resp := ReplyResponse{
		DepartmentID: r.Department.ID,
		Category:     r.Department.Category,
		Agent:        r.AgentName,
		Delivered:    r.Delivered,
	}
	if r.Delivered {
		content := r.Content
		resp.Reply = &content
	}
	if r.Err != nil {
		de := apperrors.ToDomainError(r.Err)
		resp.Error = &ErrorBody{Code: de.Code, Message: de.Message, Details: de.Details}
	}
	return resp
}

// NewTurnResponses converts a history.
func NewTurnResponses(history domain.ConversationHistory) []TurnResponse {
	out := make([]TurnResponse, 0, len(history))
	for _, t := range history {
		out = append(out, TurnResponse{Role: t.Role, Content: t.Content, CreatedAt: t.CreatedAt})
	}
	return out
}
