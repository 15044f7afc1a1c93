package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/deptforge/agent-departments/internal/domain"
	"github.com/deptforge/agent-departments/internal/events"
	"github.com/deptforge/agent-departments/internal/repository"
	apperrors "github.com/deptforge/agent-departments/pkg/util/errorutil"
)

// AgentService assigns personas to departments.
type AgentService struct {
	departments *DepartmentService
	personas    repository.PersonaRepository
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// NewAgentService constructs the service.
func NewAgentService(departments *DepartmentService, personas repository.PersonaRepository, dispatcher events.Dispatcher, logger *zap.Logger) *AgentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentService{
		departments: departments,
		personas:    personas,
		dispatcher:  dispatcher,
		logger:      logger.Named("agents"),
	}
}

// AssignAgent creates or replaces the persona staffing departmentID.
func (s *AgentService) AssignAgent(ctx context.Context, ownerID, departmentID string, persona domain.AgentPersonality) (*domain.AgentPersonality, error) {
	if _, err := s.departments.Get(ctx, ownerID, departmentID); err != nil {
		return nil, err
	}
	persona.DepartmentID = departmentID
	if err := persona.Validate(); err != nil {
		return nil, err
	}
	if err := s.personas.Upsert(ctx, &persona); err != nil {
		return nil, err
	}

	s.logger.Info("agent assigned",
		zap.String("department_id", departmentID),
		zap.String("agent", persona.Name))
	publish(ctx, s.dispatcher, events.Event{
		Type:         events.EventAgentAssigned,
		OwnerID:      ownerID,
		DepartmentID: departmentID,
		Payload:      events.AgentAssignedPayload{AgentName: persona.Name, Role: persona.Role},
	})
	return &persona, nil
}

// GetAgent returns the persona staffing departmentID.
func (s *AgentService) GetAgent(ctx context.Context, ownerID, departmentID string) (*domain.AgentPersonality, error) {
	if _, err := s.departments.Get(ctx, ownerID, departmentID); err != nil {
		return nil, err
	}
	return s.persona(ctx, departmentID)
}

func (s *AgentService) persona(ctx context.Context, departmentID string) (*domain.AgentPersonality, error) {
	p, err := s.personas.GetByDepartment(ctx, departmentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("agent", map[string]any{"department_id": departmentID})
	}
	return p, err
}
