package domain

import "time"

// TurnRole identifies who authored a conversation turn.
type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
)

// ConversationTurn is one message exchanged with an agent.
type ConversationTurn struct {
	Role      TurnRole
	Content   string
	Name      string
	CreatedAt time.Time
}

// ConversationHistory is scoped to one department's agent, oldest first.
type ConversationHistory []ConversationTurn
