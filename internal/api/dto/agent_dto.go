package dto

import (
	"time"

	"github.com/deptforge/agent-departments/internal/domain"
)

// AgentRequest payload for PUT /departments/:id/agent.
type AgentRequest struct {
	Name               string   `json:"name"`
	Role               string   `json:"role"`
	Expertise          []string `json:"expertise"`
	Traits             []string `json:"traits"`
	CommunicationStyle string   `json:"communication_style"`
}

// ToPersona converts the payload into a persona.
func (r AgentRequest) ToPersona() domain.AgentPersonality {
	return domain.AgentPersonality{
		Name:               r.Name,
		Role:               r.Role,
		Expertise:          r.Expertise,
		Traits:             r.Traits,
		CommunicationStyle: r.CommunicationStyle,
	}
}

// AgentResponse is the persona staffing a department.
type AgentResponse struct {
	DepartmentID       string    `json:"department_id"`
	Name               string    `json:"name"`
	Role               string    `json:"role"`
	Expertise          []string  `json:"expertise"`
	Traits             []string  `json:"traits"`
	CommunicationStyle string    `json:"communication_style"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// NewAgentResponse converts a persona.
func NewAgentResponse(p *domain.AgentPersonality) AgentResponse {
	resp := AgentResponse{
		DepartmentID:       p.DepartmentID,
		Name:               p.Name,
		Role:               p.Role,
		Expertise:          p.Expertise,
		Traits:             p.Traits,
		CommunicationStyle: p.CommunicationStyle,
		UpdatedAt:          p.UpdatedAt,
	}
	if resp.Expertise == nil {
		resp.Expertise = []string{}
	}
	if resp.Traits == nil {
		resp.Traits = []string{}
	}
	return resp
}
