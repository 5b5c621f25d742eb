package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DepositMethod string

const (
	DepositCard   DepositMethod = "card"
	DepositCrypto DepositMethod = "crypto"
	DepositCheck  DepositMethod = "check"
	DepositACH    DepositMethod = "ach"
	DepositWire   DepositMethod = "wire"
)

func (m DepositMethod) Valid() bool {
	switch m {
	case DepositCard, DepositCrypto, DepositCheck, DepositACH, DepositWire:
		return true
	}
	return false
}

type WithdrawalMethod string

const (
	WithdrawalACH   WithdrawalMethod = "ach"
	WithdrawalWire  WithdrawalMethod = "wire"
	WithdrawalCheck WithdrawalMethod = "check"
)

func (m WithdrawalMethod) Valid() bool {
	return m == WithdrawalACH || m == WithdrawalWire || m == WithdrawalCheck
}

// Deposit maps to table `deposits`
type Deposit struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	AccountID  uuid.UUID
	Method     DepositMethod
	Amount     decimal.Decimal
	Reference  string
	Status     RequestStatus
	AdminNotes string
	ReviewedBy *uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Withdrawal maps to table `withdrawals`
type Withdrawal struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	AccountID   uuid.UUID
	Method      WithdrawalMethod
	Amount      decimal.Decimal
	Destination string
	Status      RequestStatus
	AdminNotes  string
	ReviewedBy  *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
