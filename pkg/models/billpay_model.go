package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payee maps to table `payees`
type Payee struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Name          string
	AccountNumber string
	Category      string
	CreatedAt     time.Time
}

// BillPayment maps to table `bill_payments`
type BillPayment struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	PayeeID   uuid.UUID
	AccountID uuid.UUID
	Amount    decimal.Decimal
	Status    string
	Memo      string
	CreatedAt time.Time
}
