// Package registry keeps a user's live departments and the in-progress
// selection made during setup.
//
// At most one live department per category is allowed. ToggleSelection checks
// this against live departments only, so it is advisory; AddDepartments
// re-checks the merged set and is the final authority.
package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deptforge/agent-departments/internal/catalog"
	"github.com/deptforge/agent-departments/internal/domain"
	apperrors "github.com/deptforge/agent-departments/pkg/util/errorutil"
)

// Store persists department instances. Implementations must apply
// AddDepartments as a single unit.
type Store interface {
	ListDepartments(ctx context.Context, ownerID string) ([]domain.DepartmentInstance, error)
	AddDepartments(ctx context.Context, batch []domain.DepartmentInstance) error
	RemoveDepartment(ctx context.Context, ownerID, id string) error
}

// Candidate carries the archetype-derived fields of a department to create.
type Candidate struct {
	ArchetypeID string                    `validate:"required,notblank"`
	Name        string                    `validate:"required,notblank"`
	Description string
	Category    domain.DepartmentCategory `validate:"department_category"`
	Status      domain.DepartmentStatus   `validate:"omitempty,oneof=active inactive"`
}

// CandidateFromArchetype builds an active candidate from a catalog entry.
func CandidateFromArchetype(a catalog.Archetype) Candidate {
	return Candidate{
		ArchetypeID: a.ID,
		Name:        a.Name,
		Description: a.Description,
		Category:    a.Category,
		Status:      domain.DepartmentStatusActive,
	}
}

// Registry is the per-owner department collection. It is safe for
// concurrent use.
type Registry struct {
	ownerID string
	catalog *catalog.Catalog
	store   Store
	logger  *zap.Logger
	now     func() time.Time

	mu          sync.Mutex
	departments []domain.DepartmentInstance
	selection   []string
}

// Option customizes a Registry.
type Option func(*Registry)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// Open creates a registry for ownerID, seeded with the departments the store
// already holds. A nil store keeps everything in memory and a nil catalog
// means catalog.Default.
func Open(ctx context.Context, ownerID string, cat *catalog.Catalog, store Store, logger *zap.Logger, opts ...Option) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cat == nil {
		cat = catalog.Default()
	}
	r := &Registry{
		ownerID: ownerID,
		catalog: cat,
		store:   store,
		logger:  logger.Named("registry").With(zap.String("owner_id", ownerID)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	if store != nil {
		existing, err := store.ListDepartments(ctx, ownerID)
		if err != nil {
			return nil, fmt.Errorf("load departments: %w", err)
		}
		r.departments = existing
	}
	return r, nil
}

// OwnerID returns the owner this registry belongs to.
func (r *Registry) OwnerID() string {
	return r.ownerID
}

// List returns all live departments in creation order.
func (r *Registry) List() []domain.DepartmentInstance {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.departments)
}

// Get returns the live department with the given id.
func (r *Registry) Get(id string) (domain.DepartmentInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.departments {
		if d.ID == id {
			return d, true
		}
	}
	return domain.DepartmentInstance{}, false
}

// HasDuplicateCategory reports whether a live department already has category.
func (r *Registry) HasDuplicateCategory(category domain.DepartmentCategory) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasCategoryLocked(category)
}

func (r *Registry) hasCategoryLocked(category domain.DepartmentCategory) bool {
	for _, d := range r.departments {
		if d.Category == category {
			return true
		}
	}
	return false
}

// AddDepartments validates the batch against itself and the live set, hands
// it to the store, and appends it. Nothing is added when any check fails.
func (r *Registry) AddDepartments(ctx context.Context, candidates []Candidate) ([]domain.DepartmentInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addLocked(ctx, candidates)
}

func (r *Registry) addLocked(ctx context.Context, candidates []Candidate) ([]domain.DepartmentInstance, error) {
	if len(candidates) == 0 {
		return nil, apperrors.NewValidationError("at least one department is required", nil)
	}

	seen := make(map[domain.DepartmentCategory]struct{}, len(r.departments)+len(candidates))
	for _, d := range r.departments {
		seen[d.Category] = struct{}{}
	}
	for i, c := range candidates {
		if err := domain.ValidateStruct("invalid department candidate", c); err != nil {
			return nil, err
		}
		if _, dup := seen[c.Category]; dup {
			return nil, apperrors.NewDuplicateCategoryBatch(string(c.Category), map[string]any{"index": i})
		}
		seen[c.Category] = struct{}{}
	}

	created := make([]domain.DepartmentInstance, 0, len(candidates))
	now := r.now().UTC()
	for _, c := range candidates {
		status := c.Status
		if status == "" {
			status = domain.DepartmentStatusActive
		}
		created = append(created, domain.DepartmentInstance{
			ID:          c.ArchetypeID + "-" + uuid.NewString(),
			ArchetypeID: c.ArchetypeID,
			Name:        c.Name,
			Description: c.Description,
			Category:    c.Category,
			Status:      status,
			OwnerID:     r.ownerID,
			CreatedAt:   now,
		})
	}

	if r.store != nil {
		if err := r.store.AddDepartments(ctx, created); err != nil {
			return nil, fmt.Errorf("persist departments: %w", err)
		}
	}
	r.departments = append(r.departments, created...)

	r.logger.Info("departments added", zap.Int("count", len(created)), zap.Int("total", len(r.departments)))
	return slices.Clone(created), nil
}

// RemoveDepartment deletes a live department.
func (r *Registry) RemoveDepartment(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.IndexFunc(r.departments, func(d domain.DepartmentInstance) bool { return d.ID == id })
	if idx < 0 {
		return apperrors.NewNotFound("department", map[string]any{"department_id": id})
	}
	if r.store != nil {
		if err := r.store.RemoveDepartment(ctx, r.ownerID, id); err != nil {
			return fmt.Errorf("remove department: %w", err)
		}
	}
	r.departments = slices.Delete(r.departments, idx, idx+1)
	r.logger.Info("department removed", zap.String("department_id", id))
	return nil
}

// Selection returns the archetype ids currently selected, in toggle order.
func (r *Registry) Selection() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.selection)
}

// ToggleSelection removes archetypeID from the selection when present and
// adds it otherwise. Adding is refused with a DuplicateCategory error when a
// live department already has the archetype's category; the selection is
// returned unchanged in that case.
func (r *Registry) ToggleSelection(archetypeID string) ([]string, error) {
	archetype, ok := r.catalog.Get(archetypeID)
	if !ok {
		return r.Selection(), apperrors.NewNotFound("department archetype", map[string]any{"archetype_id": archetypeID})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if idx := slices.Index(r.selection, archetypeID); idx >= 0 {
		r.selection = slices.Delete(r.selection, idx, idx+1)
		return slices.Clone(r.selection), nil
	}
	if r.hasCategoryLocked(archetype.Category) {
		return slices.Clone(r.selection), apperrors.NewDuplicateCategory(string(archetype.Category))
	}
	r.selection = append(r.selection, archetypeID)
	return slices.Clone(r.selection), nil
}

// ClearSelection empties the selection.
func (r *Registry) ClearSelection() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selection = nil
}

// CommitSelection creates active departments for every selected archetype,
// in catalog order, and clears the selection on success.
func (r *Registry) CommitSelection(ctx context.Context) ([]domain.DepartmentInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.selection) == 0 {
		return nil, apperrors.NewValidationError("select at least one department", nil)
	}

	candidates := make([]Candidate, 0, len(r.selection))
	for _, a := range r.catalog.All() {
		if slices.Contains(r.selection, a.ID) {
			candidates = append(candidates, CandidateFromArchetype(a))
		}
	}

	created, err := r.addLocked(ctx, candidates)
	if err != nil {
		return nil, err
	}
	r.selection = nil
	return created, nil
}
