package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/deptforge/agent-departments/internal/catalog"
	"github.com/deptforge/agent-departments/internal/domain"
	"github.com/deptforge/agent-departments/internal/events"
	"github.com/deptforge/agent-departments/internal/registry"
	"github.com/deptforge/agent-departments/internal/repository"
	apperrors "github.com/deptforge/agent-departments/pkg/util/errorutil"
)

// DepartmentService owns one registry per department owner. A registry is
// opened from the store on first use and dropped by EndSession or after it
// has been idle for the configured TTL.
type DepartmentService struct {
	catalog       *catalog.Catalog
	departments   repository.DepartmentRepository
	personas      repository.PersonaRepository
	conversations repository.ConversationRepository
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	idleTTL       time.Duration
	now           func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	registry *registry.Registry
	lastUsed time.Time
}

// DepartmentDependencies bundles what the department service needs.
type DepartmentDependencies struct {
	Catalog          *catalog.Catalog
	DepartmentRepo   repository.DepartmentRepository
	PersonaRepo      repository.PersonaRepository
	ConversationRepo repository.ConversationRepository
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	// SessionIdleTTL evicts registries unused for this long. Zero keeps them
	// until EndSession.
	SessionIdleTTL time.Duration
	Clock          func() time.Time
}

// NewDepartmentService constructs the service.
func NewDepartmentService(deps DepartmentDependencies) *DepartmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cat := deps.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &DepartmentService{
		catalog:       cat,
		departments:   deps.DepartmentRepo,
		personas:      deps.PersonaRepo,
		conversations: deps.ConversationRepo,
		dispatcher:    deps.Dispatcher,
		logger:        logger.Named("departments"),
		idleTTL:       deps.SessionIdleTTL,
		now:           now,
		sessions:      make(map[string]*session),
	}
}

// Catalog lists the archetypes a user can choose from.
func (s *DepartmentService) Catalog() []catalog.Archetype {
	return s.catalog.All()
}

// Registry returns the owner's registry, opening it on first use. The store
// load runs without the session lock; when two callers race, the first
// registry stored wins.
func (s *DepartmentService) Registry(ctx context.Context, ownerID string) (*registry.Registry, error) {
	if r, ok := s.cached(ownerID); ok {
		return r, nil
	}

	r, err := registry.Open(ctx, ownerID, s.catalog, s.departments, s.logger)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if existing, ok := s.sessions[ownerID]; ok {
		existing.lastUsed = now
		return existing.registry, nil
	}
	s.evictIdleLocked(now)
	s.sessions[ownerID] = &session{registry: r, lastUsed: now}
	s.logger.Debug("session opened", zap.String("owner_id", ownerID))
	return r, nil
}

func (s *DepartmentService) cached(ownerID string) (*registry.Registry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[ownerID]
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.idleTTL > 0 && now.Sub(sess.lastUsed) > s.idleTTL {
		delete(s.sessions, ownerID)
		return nil, false
	}
	sess.lastUsed = now
	return sess.registry, true
}

func (s *DepartmentService) evictIdleLocked(now time.Time) {
	if s.idleTTL <= 0 {
		return
	}
	for owner, sess := range s.sessions {
		if now.Sub(sess.lastUsed) > s.idleTTL {
			delete(s.sessions, owner)
			s.logger.Debug("session expired", zap.String("owner_id", owner))
		}
	}
}

// EndSession drops the owner's in-memory registry and any pending selection.
// Persisted departments are reloaded on the next call.
func (s *DepartmentService) EndSession(ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, ownerID)
}

// List returns the owner's live departments in creation order.
func (s *DepartmentService) List(ctx context.Context, ownerID string) ([]domain.DepartmentInstance, error) {
	r, err := s.Registry(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return r.List(), nil
}

// Get returns one of the owner's departments.
func (s *DepartmentService) Get(ctx context.Context, ownerID, departmentID string) (domain.DepartmentInstance, error) {
	r, err := s.Registry(ctx, ownerID)
	if err != nil {
		return domain.DepartmentInstance{}, err
	}
	d, ok := r.Get(departmentID)
	if !ok {
		return domain.DepartmentInstance{}, apperrors.NewNotFound("department", map[string]any{"department_id": departmentID})
	}
	return d, nil
}

// Selection returns the owner's pending archetype selection.
func (s *DepartmentService) Selection(ctx context.Context, ownerID string) ([]string, error) {
	r, err := s.Registry(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return r.Selection(), nil
}

// ToggleSelection flips one archetype in the pending selection.
func (s *DepartmentService) ToggleSelection(ctx context.Context, ownerID, archetypeID string) ([]string, error) {
	r, err := s.Registry(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return r.ToggleSelection(archetypeID)
}

// ClearSelection empties the pending selection.
func (s *DepartmentService) ClearSelection(ctx context.Context, ownerID string) error {
	r, err := s.Registry(ctx, ownerID)
	if err != nil {
		return err
	}
	r.ClearSelection()
	return nil
}

// CommitSelection creates a department for every selected archetype.
func (s *DepartmentService) CommitSelection(ctx context.Context, ownerID string) ([]domain.DepartmentInstance, error) {
	r, err := s.Registry(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	created, err := r.CommitSelection(ctx)
	if err != nil {
		return nil, err
	}
	s.publishCreated(ctx, ownerID, created, true)
	return created, nil
}

// AddDepartments adds an explicit batch. Candidates that name a catalog
// archetype inherit its name, description and category where left empty.
func (s *DepartmentService) AddDepartments(ctx context.Context, ownerID string, candidates []registry.Candidate) ([]domain.DepartmentInstance, error) {
	r, err := s.Registry(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	resolved := make([]registry.Candidate, len(candidates))
	for i, c := range candidates {
		resolved[i] = s.fillFromCatalog(c)
	}
	created, err := r.AddDepartments(ctx, resolved)
	if err != nil {
		return nil, err
	}
	s.publishCreated(ctx, ownerID, created, false)
	return created, nil
}

func (s *DepartmentService) fillFromCatalog(c registry.Candidate) registry.Candidate {
	a, ok := s.catalog.Get(c.ArchetypeID)
	if !ok {
		return c
	}
	if c.Name == "" {
		c.Name = a.Name
	}
	if c.Description == "" {
		c.Description = a.Description
	}
	if c.Category == "" {
		c.Category = a.Category
	}
	return c
}

// RemoveDepartment deletes a department together with its agent and history.
func (s *DepartmentService) RemoveDepartment(ctx context.Context, ownerID, departmentID string) error {
	r, err := s.Registry(ctx, ownerID)
	if err != nil {
		return err
	}
	dept, ok := r.Get(departmentID)
	if !ok {
		return apperrors.NewNotFound("department", map[string]any{"department_id": departmentID})
	}
	if err := r.RemoveDepartment(ctx, departmentID); err != nil {
		return err
	}

	// Postgres cascades these; the memory stores need the explicit delete.
	if err := s.personas.Delete(ctx, departmentID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		s.logger.Warn("delete agent persona", zap.String("department_id", departmentID), zap.Error(err))
	}
	if err := s.conversations.Delete(ctx, departmentID); err != nil {
		s.logger.Warn("delete conversation history", zap.String("department_id", departmentID), zap.Error(err))
	}

	s.publishEvent(ctx, events.Event{
		Type:         events.EventDepartmentRemoved,
		OwnerID:      ownerID,
		DepartmentID: departmentID,
		Payload:      events.DepartmentRemovedPayload{Category: dept.Category},
	})
	return nil
}

func (s *DepartmentService) publishCreated(ctx context.Context, ownerID string, created []domain.DepartmentInstance, fromSelection bool) {
	payload := events.DepartmentsCreatedPayload{FromSelection: fromSelection}
	for _, d := range created {
		payload.DepartmentIDs = append(payload.DepartmentIDs, d.ID)
		payload.Categories = append(payload.Categories, d.Category)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventDepartmentsCreated,
		OwnerID: ownerID,
		Payload: payload,
	})
}

func (s *DepartmentService) publishEvent(ctx context.Context, event events.Event) {
	publish(ctx, s.dispatcher, event)
}

func publish(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}
