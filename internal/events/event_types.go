package events

import (
	"time"

	"github.com/deptforge/agent-departments/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventDepartmentsCreated EventType = "departments_created"
	EventDepartmentRemoved  EventType = "department_removed"
	EventAgentAssigned      EventType = "agent_assigned"
	EventAgentReplied       EventType = "agent_replied"
	EventAgentUnavailable   EventType = "agent_unavailable"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	OwnerID      string      `json:"owner_id"`
	DepartmentID string      `json:"department_id,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload"`
}

// DepartmentsCreatedPayload payload.
type DepartmentsCreatedPayload struct {
	DepartmentIDs []string                    `json:"department_ids"`
	Categories    []domain.DepartmentCategory `json:"categories"`
	FromSelection bool                        `json:"from_selection"`
}

// DepartmentRemovedPayload payload.
type DepartmentRemovedPayload struct {
	Category domain.DepartmentCategory `json:"category"`
}

// AgentAssignedPayload payload.
type AgentAssignedPayload struct {
	AgentName string `json:"agent_name"`
	Role      string `json:"role"`
}

// AgentReplyPayload is shared by agent_replied and agent_unavailable.
type AgentReplyPayload struct {
	Category       domain.DepartmentCategory `json:"category"`
	AgentName      string                    `json:"agent_name"`
	MessagePreview string                    `json:"message_preview"`
	ReplyLength    int                       `json:"reply_length"`
}
