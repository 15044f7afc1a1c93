package domain

import "time"

// AgentPersonality describes the agent staffing a department. Expertise and
// Traits are ordered; the first entries are primary.
type AgentPersonality struct {
	DepartmentID       string
	Name               string   `validate:"required,notblank"`
	Role               string   `validate:"required,notblank"`
	Expertise          []string `validate:"dive,notblank"`
	Traits             []string `validate:"dive,notblank"`
	CommunicationStyle string   `validate:"required,notblank"`
	UpdatedAt          time.Time
}
