package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ApplicationType string

const (
	AppPersonalChecking ApplicationType = "personal_checking"
	AppPersonalSavings  ApplicationType = "personal_savings"
	AppBusinessChecking ApplicationType = "business_checking"
	AppBusinessSavings  ApplicationType = "business_savings"
	AppCreditCard       ApplicationType = "credit_card"
	AppPersonalLoan     ApplicationType = "personal_loan"
)

// AccountType returns the account opened when an application of this type is
// approved. Credit card applications open no account.
func (t ApplicationType) AccountType() (AccountType, bool) {
	switch t {
	case AppPersonalChecking, AppPersonalLoan:
		return PersonalChecking, true
	case AppPersonalSavings:
		return PersonalSavings, true
	case AppBusinessChecking:
		return BusinessChecking, true
	case AppBusinessSavings:
		return BusinessSavings, true
	}
	return "", false
}

func (t ApplicationType) Valid() bool {
	switch t {
	case AppPersonalChecking, AppPersonalSavings, AppBusinessChecking, AppBusinessSavings, AppCreditCard, AppPersonalLoan:
		return true
	}
	return false
}

// Application maps to table `applications`
type Application struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Type            ApplicationType
	FullName        string
	Email           string
	Phone           string
	DateOfBirth     *time.Time
	Address         string
	AnnualIncome    decimal.Decimal
	BusinessName    string
	RequestedAmount decimal.Decimal
	RequestedLimit  decimal.Decimal
	Status          ApplicationStatus
	ReviewNotes     string
	ReviewedBy      *uuid.UUID
	ReviewedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
