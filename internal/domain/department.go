package domain

import "time"

// DepartmentCategory is the uniqueness key for a user's departments.
type DepartmentCategory string

const (
	CategorySales           DepartmentCategory = "sales"
	CategoryCustomerService DepartmentCategory = "customer-service"
	CategoryFinance         DepartmentCategory = "finance"
	CategoryOperations      DepartmentCategory = "operations"
)

// Valid reports whether c is one of the known categories.
func (c DepartmentCategory) Valid() bool {
	switch c {
	case CategorySales, CategoryCustomerService, CategoryFinance, CategoryOperations:
		return true
	}
	return false
}

// DepartmentStatus represents lifecycle states for a department instance.
type DepartmentStatus string

const (
	DepartmentStatusActive   DepartmentStatus = "active"
	DepartmentStatusInactive DepartmentStatus = "inactive"
)

// DepartmentInstance is a live department owned by a user.
type DepartmentInstance struct {
	ID          string
	ArchetypeID string
	Name        string
	Description string
	Category    DepartmentCategory
	Status      DepartmentStatus
	OwnerID     string
	CreatedAt   time.Time
}
