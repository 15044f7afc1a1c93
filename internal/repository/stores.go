package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Stores groups the repositories the services depend on.
type Stores struct {
	Users         UserRepository
	Departments   DepartmentRepository
	Personas      PersonaRepository
	Conversations ConversationRepository
}

// NewStores returns Postgres repositories when pool is set and in-memory ones
// otherwise.
func NewStores(pool *pgxpool.Pool) Stores {
	if pool == nil {
		return Stores{
			Users:         NewMemoryUserRepository(),
			Departments:   NewMemoryDepartmentRepository(),
			Personas:      NewMemoryPersonaRepository(),
			Conversations: NewMemoryConversationRepository(),
		}
	}
	return Stores{
		Users:         NewUserRepository(pool),
		Departments:   NewDepartmentRepository(pool),
		Personas:      NewPersonaRepository(pool),
		Conversations: NewConversationRepository(pool),
	}
}
