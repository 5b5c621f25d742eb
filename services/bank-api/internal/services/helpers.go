package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/nimeshabuddhika/resilient-banking/pkg/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 100
	recentTransfers  = 10
	// maxAmountScale is the number of fractional digits a cash amount may carry.
	maxAmountScale = 2
)

// table names used in realtime change events
const (
	tableAccounts      = "accounts"
	tableTransfers     = "transfers"
	tableApplications  = "applications"
	tableCards         = "cards"
	tableWallets       = "crypto_wallets"
	tableExchanges     = "crypto_exchanges"
	tableDeposits      = "deposits"
	tableWithdrawals   = "withdrawals"
	tableBillPayments  = "bill_payments"
	tableProfiles      = "profiles"
	tableConversations = "support_conversations"
	tableMessages      = "support_messages"
)

func missingInformation(field string) error {
	return pkg.NewAppError(pkg.ErrMissingInformationCode, pkg.ErrMissingInformationCode.Message, errors.New(field+" is required"))
}

func invalidInput(msg string) error {
	return pkg.NewAppError(pkg.ErrInvalidInputCode, msg, nil)
}

func notFound(what string) error {
	return pkg.NewAppError(pkg.ErrRecordNotFoundCode, what+" not found", nil)
}

// parseRequiredID reports an empty value as missing information and a
// malformed value as invalid input.
func parseRequiredID(field, value string) (uuid.UUID, error) {
	if utils.IsEmpty(value) {
		return uuid.Nil, missingInformation(field)
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, pkg.NewAppError(pkg.ErrInvalidInputCode, field+" must be a uuid", err)
	}
	return id, nil
}

// requirePositiveAmount validates a cash amount: present, > 0, at most two decimals.
func requirePositiveAmount(amount *decimal.Decimal) (decimal.Decimal, error) {
	if amount == nil {
		return decimal.Zero, missingInformation("amount")
	}
	if !amount.IsPositive() {
		return decimal.Zero, invalidInput("amount must be greater than zero")
	}
	if !amount.Round(maxAmountScale).Equal(*amount) {
		return decimal.Zero, invalidInput("amount must have at most two decimal places")
	}
	return *amount, nil
}

// optionalAmount returns zero for a nil amount and rejects negatives.
func optionalAmount(amount *decimal.Decimal, field string) (decimal.Decimal, error) {
	if amount == nil {
		return decimal.Zero, nil
	}
	if amount.IsNegative() {
		return decimal.Zero, invalidInput(field + " must not be negative")
	}
	return amount.Round(maxAmountScale), nil
}

// isNoRows reports a missing row, raw or already mapped.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || pkg.HasCode(err, pkg.ErrRecordNotFoundCode)
}

// dbError maps repository errors onto AppErrors; AppErrors pass through.
func dbError(traceID string, logger *zap.Logger, err error) error {
	return pkg.HandleSQLError(traceID, logger, err)
}
