package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deptforge/agent-departments/internal/domain"
)

// PersonaRepository stores the agent persona assigned to each department.
// GetByDepartment returns pgx.ErrNoRows when none is assigned.
type PersonaRepository interface {
	Upsert(ctx context.Context, persona *domain.AgentPersonality) error
	GetByDepartment(ctx context.Context, departmentID string) (*domain.AgentPersonality, error)
	Delete(ctx context.Context, departmentID string) error
}

type personaRepository struct {
	pool *pgxpool.Pool
}

// NewPersonaRepository returns a Postgres-backed implementation.
func NewPersonaRepository(pool *pgxpool.Pool) PersonaRepository {
	return &personaRepository{pool: pool}
}

func (r *personaRepository) Upsert(ctx context.Context, p *domain.AgentPersonality) error {
	const query = `
        INSERT INTO agent_personas (department_id, name, role, expertise, traits, communication_style)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (department_id) DO UPDATE SET
            name=EXCLUDED.name,
            role=EXCLUDED.role,
            expertise=EXCLUDED.expertise,
            traits=EXCLUDED.traits,
            communication_style=EXCLUDED.communication_style,
            updated_at=NOW()
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		p.DepartmentID,
		p.Name,
		p.Role,
		nonNil(p.Expertise),
		nonNil(p.Traits),
		p.CommunicationStyle,
	).Scan(&p.UpdatedAt)
}

func (r *personaRepository) GetByDepartment(ctx context.Context, departmentID string) (*domain.AgentPersonality, error) {
	const query = `
        SELECT department_id, name, role, expertise, traits, communication_style, updated_at
        FROM agent_personas WHERE department_id=$1`
	var p domain.AgentPersonality
	if err := r.pool.QueryRow(ctx, query, departmentID).Scan(
		&p.DepartmentID,
		&p.Name,
		&p.Role,
		&p.Expertise,
		&p.Traits,
		&p.CommunicationStyle,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *personaRepository) Delete(ctx context.Context, departmentID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM agent_personas WHERE department_id=$1`, departmentID)
	return err
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

type memoryPersonaRepository struct {
	mu       sync.RWMutex
	personas map[string]domain.AgentPersonality
	now      func() time.Time
}

// NewMemoryPersonaRepository keeps personas in process memory.
func NewMemoryPersonaRepository() PersonaRepository {
	return &memoryPersonaRepository{personas: make(map[string]domain.AgentPersonality), now: time.Now}
}

func (r *memoryPersonaRepository) Upsert(_ context.Context, p *domain.AgentPersonality) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.UpdatedAt = r.now().UTC()
	stored := *p
	stored.Expertise = slices.Clone(nonNil(p.Expertise))
	stored.Traits = slices.Clone(nonNil(p.Traits))
	r.personas[p.DepartmentID] = stored
	return nil
}

func (r *memoryPersonaRepository) GetByDepartment(_ context.Context, departmentID string) (*domain.AgentPersonality, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.personas[departmentID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	p.Expertise = slices.Clone(p.Expertise)
	p.Traits = slices.Clone(p.Traits)
	return &p, nil
}

func (r *memoryPersonaRepository) Delete(_ context.Context, departmentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.personas, departmentID)
	return nil
}
