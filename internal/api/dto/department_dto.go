package dto

import (
	"time"

	"github.com/deptforge/agent-departments/internal/catalog"
	"github.com/deptforge/agent-departments/internal/domain"
	"github.com/deptforge/agent-departments/internal/registry"
)

// ArchetypeResponse is one catalog entry.
type ArchetypeResponse struct {
	ID          string                    `json:"id"`
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Category    domain.DepartmentCategory `json:"category"`
}

// DepartmentResponse is one live department.
type DepartmentResponse struct {
	ID          string                    `json:"id"`
	ArchetypeID string                    `json:"archetype_id"`
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Category    domain.DepartmentCategory `json:"category"`
	Status      domain.DepartmentStatus   `json:"status"`
	CreatedAt   time.Time                 `json:"created_at"`
}

// SelectionResponse lists the pending archetype ids in toggle order.
type SelectionResponse struct {
	Selected []string `json:"selected"`
}

// ToggleSelectionRequest payload for POST /departments/selection/toggle.
type ToggleSelectionRequest struct {
	ArchetypeID string `json:"archetype_id"`
}

// DepartmentCandidate is one entry of an explicit add. Fields left empty are
// filled from the named archetype.
type DepartmentCandidate struct {
	ArchetypeID string                    `json:"archetype_id"`
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Category    domain.DepartmentCategory `json:"category"`
	Status      domain.DepartmentStatus   `json:"status"`
}

// AddDepartmentsRequest payload for POST /departments.
type AddDepartmentsRequest struct {
	Departments []DepartmentCandidate `json:"departments"`
}

// ToCandidates converts the payload for the registry.
func (r AddDepartmentsRequest) ToCandidates() []registry.Candidate {
	out := make([]registry.Candidate, 0, len(r.Departments))
	for _, d := range r.Departments {
		out = append(out, registry.Candidate{
			ArchetypeID: d.ArchetypeID,
			Name:        d.Name,
			Description: d.Description,
			Category:    d.Category,
			Status:      d.Status,
		})
	}
	return out
}

// NewArchetypeResponses converts catalog entries.
func NewArchetypeResponses(archetypes []catalog.Archetype) []ArchetypeResponse {
	out := make([]ArchetypeResponse, 0, len(archetypes))
	for _, a := range archetypes {
		out = append(out, ArchetypeResponse{ID: a.ID, Name: a.Name, Description: a.Description, Category: a.Category})
	}
	return out
}

// NewDepartmentResponse converts a department instance.
func NewDepartmentResponse(d domain.DepartmentInstance) DepartmentResponse {
	return DepartmentResponse{
		ID:          d.ID,
		ArchetypeID: d.ArchetypeID,
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		Status:      d.Status,
		CreatedAt:   d.CreatedAt,
	}
}

// NewDepartmentResponses converts a list of department instances.
func NewDepartmentResponses(list []domain.DepartmentInstance) []DepartmentResponse {
	out := make([]DepartmentResponse, 0, len(list))
	for _, d := range list {
		out = append(out, NewDepartmentResponse(d))
	}
	return out
}
