package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountType string

const (
	PersonalChecking AccountType = "personal_checking"
	PersonalSavings  AccountType = "personal_savings"
	BusinessChecking AccountType = "business_checking"
	BusinessSavings  AccountType = "business_savings"
)

// DefaultRoutingNumber is the simulated bank's ABA routing number.
const DefaultRoutingNumber = "021000021"

// Account maps to table `accounts`
type Account struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	AccountNumber string
	RoutingNumber string
	Type          AccountType
	Balance       decimal.Decimal
	Status        AccountStatus
	Currency      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (a Account) IsActive() bool {
	return a.Status == AccountActive
}

// CanDebit reports whether the account holds at least amount.
func (a Account) CanDebit(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}
