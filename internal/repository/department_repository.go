package repository

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deptforge/agent-departments/internal/domain"
	apperrors "github.com/deptforge/agent-departments/pkg/util/errorutil"
)

const uniqueViolation = "23505"

// DepartmentRepository manages department persistence. AddDepartments writes
// the whole batch or nothing.
type DepartmentRepository interface {
	ListDepartments(ctx context.Context, ownerID string) ([]domain.DepartmentInstance, error)
	AddDepartments(ctx context.Context, batch []domain.DepartmentInstance) error
	RemoveDepartment(ctx context.Context, ownerID, id string) error
}

type departmentRepository struct {
	pool *pgxpool.Pool
}

// NewDepartmentRepository builds the repository.
func NewDepartmentRepository(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepository{pool: pool}
}

func (r *departmentRepository) ListDepartments(ctx context.Context, ownerID string) ([]domain.DepartmentInstance, error) {
	const query = `
        SELECT id, archetype_id, name, description, category, status, owner_id, created_at
        FROM departments WHERE owner_id=$1
        ORDER BY created_at, position`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DepartmentInstance
	for rows.Next() {
		var d domain.DepartmentInstance
		if err := rows.Scan(
			&d.ID,
			&d.ArchetypeID,
			&d.Name,
			&d.Description,
			&d.Category,
			&d.Status,
			&d.OwnerID,
			&d.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (r *departmentRepository) AddDepartments(ctx context.Context, batch []domain.DepartmentInstance) error {
	const query = `
        INSERT INTO departments (id, archetype_id, name, description, category, status, owner_id, position, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	b := &pgx.Batch{}
	for i, d := range batch {
		b.Queue(query, d.ID, d.ArchetypeID, d.Name, d.Description, d.Category, d.Status, d.OwnerID, i, d.CreatedAt)
	}
	if err := tx.SendBatch(ctx, b).Close(); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperrors.NewDuplicateCategoryBatch(conflictingCategory(batch, pgErr.Detail), nil)
		}
		return err
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// conflictingCategory picks the batch category named in a unique violation
// detail such as "Key (owner_id, category)=(u1, sales) already exists.".
func conflictingCategory(batch []domain.DepartmentInstance, detail string) string {
	for _, d := range batch {
		if strings.Contains(detail, ", "+string(d.Category)+")") {
			return string(d.Category)
		}
	}
	return ""
}

func (r *departmentRepository) RemoveDepartment(ctx context.Context, ownerID, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM departments WHERE owner_id=$1 AND id=$2`, ownerID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type memoryDepartmentRepository struct {
	mu      sync.RWMutex
	byOwner map[string][]domain.DepartmentInstance
}

// NewMemoryDepartmentRepository keeps departments in process memory. It is
// used when no database is configured.
func NewMemoryDepartmentRepository() DepartmentRepository {
	return &memoryDepartmentRepository{byOwner: make(map[string][]domain.DepartmentInstance)}
}

func (r *memoryDepartmentRepository) ListDepartments(_ context.Context, ownerID string) ([]domain.DepartmentInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.DepartmentInstance(nil), r.byOwner[ownerID]...), nil
}

func (r *memoryDepartmentRepository) AddDepartments(_ context.Context, batch []domain.DepartmentInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	type key struct {
		owner    string
		category domain.DepartmentCategory
	}
	seen := make(map[key]struct{})
	for owner, list := range r.byOwner {
		for _, d := range list {
			seen[key{owner, d.Category}] = struct{}{}
		}
	}
	for _, d := range batch {
		k := key{d.OwnerID, d.Category}
		if _, dup := seen[k]; dup {
			return apperrors.NewDuplicateCategoryBatch(string(d.Category), nil)
		}
		seen[k] = struct{}{}
	}
	for _, d := range batch {
		r.byOwner[d.OwnerID] = append(r.byOwner[d.OwnerID], d)
	}
	return nil
}

func (r *memoryDepartmentRepository) RemoveDepartment(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.byOwner[ownerID]
	for i, d := range list {
		if d.ID == id {
			r.byOwner[ownerID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}
