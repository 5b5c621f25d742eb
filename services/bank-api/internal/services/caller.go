package services

import (
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
)

// Caller is the authenticated principal a request acts for.
type Caller struct {
	ID    uuid.UUID
	Email string
	Role  pkg.Role
}

func (c Caller) IsAdmin() bool {
	return c.Role == pkg.RoleAdmin
}

// CanSee reports whether the caller may read a resource owned by ownerID.
func (c Caller) CanSee(ownerID uuid.UUID) bool {
	return c.IsAdmin() || c.ID == ownerID
}
