package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CardType string

const (
	CardDebit  CardType = "debit"
	CardCredit CardType = "credit"
)

// Card maps to table `cards`. The full number is only ever stored encrypted.
type Card struct {
	ID              uuid.UUID
	AccountID       uuid.UUID
	UserID          uuid.UUID
	Network         string
	Type            CardType
	MaskedNumber    string
	EncryptedNumber string
	ExpiryMonth     int
	ExpiryYear      int
	Status          CardStatus
	CreditLimit     decimal.Decimal
	AvailableCredit decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
