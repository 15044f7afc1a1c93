package repository

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deptforge/agent-departments/internal/domain"
)

// ConversationRepository stores each department agent's history. Turns are
// listed in the order they were appended.
type ConversationRepository interface {
	Append(ctx context.Context, departmentID string, turns ...domain.ConversationTurn) error
	List(ctx context.Context, departmentID string) (domain.ConversationHistory, error)
	Delete(ctx context.Context, departmentID string) error
}

type conversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository returns a Postgres-backed implementation.
func NewConversationRepository(pool *pgxpool.Pool) ConversationRepository {
	return &conversationRepository{pool: pool}
}

func (r *conversationRepository) Append(ctx context.Context, departmentID string, turns ...domain.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}
	const query = `
        INSERT INTO conversation_turns (department_id, role, content, name, created_at)
        VALUES ($1,$2,$3,$4,$5)`

	b := &pgx.Batch{}
	for _, t := range turns {
		b.Queue(query, departmentID, t.Role, t.Content, t.Name, createdAt(t))
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, b).Close()
	})
}

func (r *conversationRepository) List(ctx context.Context, departmentID string) (domain.ConversationHistory, error) {
	const query = `
        SELECT role, content, name, created_at
        FROM conversation_turns WHERE department_id=$1
        ORDER BY seq`
	rows, err := r.pool.Query(ctx, query, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history domain.ConversationHistory
	for rows.Next() {
		var t domain.ConversationTurn
		if err := rows.Scan(&t.Role, &t.Content, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, t)
	}
	return history, rows.Err()
}

func (r *conversationRepository) Delete(ctx context.Context, departmentID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM conversation_turns WHERE department_id=$1`, departmentID)
	return err
}

func createdAt(t domain.ConversationTurn) time.Time {
	if t.CreatedAt.IsZero() {
		return time.Now().UTC()
	}
	return t.CreatedAt
}

type memoryConversationRepository struct {
	mu      sync.RWMutex
	history map[string]domain.ConversationHistory
}

// NewMemoryConversationRepository keeps histories in process memory.
func NewMemoryConversationRepository() ConversationRepository {
	return &memoryConversationRepository{history: make(map[string]domain.ConversationHistory)}
}

func (r *memoryConversationRepository) Append(_ context.Context, departmentID string, turns ...domain.ConversationTurn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range turns {
		t.CreatedAt = createdAt(t)
		r.history[departmentID] = append(r.history[departmentID], t)
	}
	return nil
}

func (r *memoryConversationRepository) List(_ context.Context, departmentID string) (domain.ConversationHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append(domain.ConversationHistory(nil), r.history[departmentID]...), nil
}

func (r *memoryConversationRepository) Delete(_ context.Context, departmentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.history, departmentID)
	return nil
}
