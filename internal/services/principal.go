// internal/services/principal.go
package services

import (
	"github.com/google/uuid"

	"github.com/javajoker/insurance-backend/internal/models"
)

// Principal is the authenticated caller of a service operation.
type Principal struct {
	ID   uuid.UUID
	Role models.Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

func (p Principal) IsAgent() bool {
	return p.Role == models.RoleAgent
}

func (p Principal) IsStaff() bool {
	return p.Role.IsStaff()
}

// Actor returns the id recorded in status histories.
func (p Principal) Actor() *uuid.UUID {
	id := p.ID
	return &id
}

// CanAccess reports whether p owns the record or is an admin.
func (p Principal) CanAccess(ownerID uuid.UUID) bool {
	return p.ID == ownerID || p.IsAdmin()
}
