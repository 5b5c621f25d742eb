package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transfer maps to table `transfers`. ToAccountID is nil for external transfers.
type Transfer struct {
	ID                    uuid.UUID
	FromAccountID         uuid.UUID
	ToAccountID           *uuid.UUID
	ExternalAccountNumber string
	ExternalRoutingNumber string
	Amount                decimal.Decimal
	Status                TransferStatus
	Memo                  string
	CreatedBy             uuid.UUID
	ApprovedBy            *uuid.UUID
	IdempotencyKey        *uuid.UUID
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (t Transfer) IsExternal() bool {
	return t.ToAccountID == nil
}
