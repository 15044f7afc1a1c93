// Package catalog lists the department archetypes a user can pick from.
package catalog

import "github.com/deptforge/agent-departments/internal/domain"

// Archetype is a department template that no user owns yet.
type Archetype struct {
	ID          string
	Name        string
	Description string
	Category    domain.DepartmentCategory
}

// Catalog is an immutable, ordered set of archetypes.
type Catalog struct {
	archetypes []Archetype
	byID       map[string]int
}

// New builds a catalog from the given archetypes. Later duplicates of an id
// are ignored.
func New(archetypes ...Archetype) *Catalog {
	c := &Catalog{byID: make(map[string]int, len(archetypes))}
	for _, a := range archetypes {
		if _, exists := c.byID[a.ID]; exists {
			continue
		}
		c.byID[a.ID] = len(c.archetypes)
		c.archetypes = append(c.archetypes, a)
	}
	return c
}

// Default returns the built-in department catalog.
func Default() *Catalog {
	return New(
		Archetype{
			ID:          "sales",
			Name:        "Sales & Marketing",
			Description: "AI-driven campaign management and lead generation",
			Category:    domain.CategorySales,
		},
		Archetype{
			ID:          "customer-service",
			Name:        "Customer Service",
			Description: "24/7 customer support and ticket management",
			Category:    domain.CategoryCustomerService,
		},
		Archetype{
			ID:          "finance",
			Name:        "Finance & Admin",
			Description: "Automated bookkeeping and financial reporting",
			Category:    domain.CategoryFinance,
		},
		Archetype{
			ID:          "operations",
			Name:        "Project Management",
			Description: "Task automation and progress tracking",
			Category:    domain.CategoryOperations,
		},
	)
}

// All returns a copy of every archetype in catalog order.
func (c *Catalog) All() []Archetype {
	out := make([]Archetype, len(c.archetypes))
	copy(out, c.archetypes)
	return out
}

// Get looks up an archetype by id.
func (c *Catalog) Get(id string) (Archetype, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Archetype{}, false
	}
	return c.archetypes[idx], true
}
