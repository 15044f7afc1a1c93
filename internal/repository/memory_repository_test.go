package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deptforge/agent-departments/internal/domain"
	apperrors "github.com/deptforge/agent-departments/pkg/util/errorutil"
)

func dept(id, owner string, category domain.DepartmentCategory) domain.DepartmentInstance {
	return domain.DepartmentInstance{ID: id, OwnerID: owner, Category: category, Status: domain.DepartmentStatusActive}
}

func TestMemoryDepartmentRepositoryBatchIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDepartmentRepository()

	require.NoError(t, repo.AddDepartments(ctx, []domain.DepartmentInstance{
		dept("sales-1", "u1", domain.CategorySales),
	}))

	err := repo.AddDepartments(ctx, []domain.DepartmentInstance{
		dept("finance-1", "u1", domain.CategoryFinance),
		dept("sales-2", "u1", domain.CategorySales),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDuplicateCategory))
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	list, err := repo.ListDepartments(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "sales-1", list[0].ID)
}

func TestMemoryDepartmentRepositoryScopesByOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryDepartmentRepository()

	require.NoError(t, repo.AddDepartments(ctx, []domain.DepartmentInstance{dept("sales-1", "u1", domain.CategorySales)}))
	require.NoError(t, repo.AddDepartments(ctx, []domain.DepartmentInstance{dept("sales-2", "u2", domain.CategorySales)}))

	list, err := repo.ListDepartments(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "sales-2", list[0].ID)

	assert.ErrorIs(t, repo.RemoveDepartment(ctx, "u2", "sales-1"), pgx.ErrNoRows)
	require.NoError(t, repo.RemoveDepartment(ctx, "u1", "sales-1"))

	list, err = repo.ListDepartments(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConflictingCategory(t *testing.T) {
	batch := []domain.DepartmentInstance{
		dept("finance-1", "u1", domain.CategoryFinance),
		dept("sales-1", "u1", domain.CategorySales),
	}
	assert.Equal(t, "sales", conflictingCategory(batch, "Key (owner_id, category)=(u1, sales) already exists."))
	assert.Equal(t, "", conflictingCategory(batch, "something else"))
}

func TestMemoryPersonaRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPersonaRepository()

	_, err := repo.GetByDepartment(ctx, "sales-1")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)

	p := &domain.AgentPersonality{
		DepartmentID:       "sales-1",
		Name:               "Ava",
		Role:               "Analyst",
		Expertise:          []string{"SEO"},
		CommunicationStyle: "concise",
	}
	require.NoError(t, repo.Upsert(ctx, p))
	assert.False(t, p.UpdatedAt.IsZero())

	p.Expertise[0] = "mutated"
	got, err := repo.GetByDepartment(ctx, "sales-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"SEO"}, got.Expertise, "stored persona is isolated from caller slices")
	assert.Equal(t, []string{}, got.Traits)

	got.Name = "Bea"
	require.NoError(t, repo.Upsert(ctx, got))
	again, err := repo.GetByDepartment(ctx, "sales-1")
	require.NoError(t, err)
	assert.Equal(t, "Bea", again.Name)

	require.NoError(t, repo.Delete(ctx, "sales-1"))
	_, err = repo.GetByDepartment(ctx, "sales-1")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestMemoryConversationRepositoryKeepsOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryConversationRepository()

	require.NoError(t, repo.Append(ctx, "sales-1",
		domain.ConversationTurn{Role: domain.TurnRoleUser, Content: "one"},
		domain.ConversationTurn{Role: domain.TurnRoleAssistant, Content: "two"},
	))
	require.NoError(t, repo.Append(ctx, "sales-1", domain.ConversationTurn{Role: domain.TurnRoleUser, Content: "three"}))
	require.NoError(t, repo.Append(ctx, "finance-1", domain.ConversationTurn{Role: domain.TurnRoleUser, Content: "other"}))

	history, err := repo.List(ctx, "sales-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "one", history[0].Content)
	assert.Equal(t, "two", history[1].Content)
	assert.Equal(t, "three", history[2].Content)
	assert.False(t, history[0].CreatedAt.IsZero())

	require.NoError(t, repo.Delete(ctx, "sales-1"))
	history, err = repo.List(ctx, "sales-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	u := &domain.User{Name: "Sam", Email: "sam@example.com", Status: domain.UserStatusActive}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotEmpty(t, u.ID)

	err := repo.Create(ctx, &domain.User{Email: "SAM@example.com"})
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)

	got, err := repo.GetByEmail(ctx, "sam@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}
