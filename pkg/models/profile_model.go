package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
)

// Profile maps to table `profiles`. ID is the auth subject.
type Profile struct {
	ID        uuid.UUID
	Email     string
	FullName  string
	Phone     string
	Role      pkg.Role
	KycStatus KycStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
