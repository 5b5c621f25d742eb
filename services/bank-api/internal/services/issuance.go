package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/nimeshabuddhika/resilient-banking/pkg/database"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
	"github.com/nimeshabuddhika/resilient-banking/pkg/repositories"
	"github.com/nimeshabuddhika/resilient-banking/pkg/utils"
	"github.com/shopspring/decimal"
)

const (
	accountNumberAttempts = 5
	cardValidityYears     = 4
)

// openAccount creates an active, empty account. Account numbers are random, so
// a collision is retried inside a savepoint.
func openAccount(ctx context.Context, tx pgx.Tx, repo repositories.AccountRepository, userID uuid.UUID,
	accountType models.AccountType, currency string) (models.Account, error) {
	var lastErr error
	for attempt := 0; attempt < accountNumberAttempts; attempt++ {
		number, err := utils.GenerateAccountNumber()
		if err != nil {
			return models.Account{}, err
		}
		account := models.Account{
			ID:            uuid.New(),
			UserID:        userID,
			AccountNumber: number,
			RoutingNumber: models.DefaultRoutingNumber,
			Type:          accountType,
			Balance:       decimal.Zero,
			Status:        models.AccountActive,
			Currency:      currency,
		}
		lastErr = database.WithSavepoint(ctx, tx, func(sp pgx.Tx) error {
			return repo.Create(ctx, sp, &account)
		})
		if lastErr == nil {
			return account, nil
		}
		if !pkg.IsUniqueViolation(lastErr) {
			return models.Account{}, lastErr
		}
	}
	return models.Account{}, lastErr
}

// cardIssuer generates card numbers and stores them encrypted.
type cardIssuer struct {
	repo   repositories.CardRepository
	aesKey []byte
	now    func() time.Time
}

func newCardIssuer(repo repositories.CardRepository, aesKey []byte) *cardIssuer {
	return &cardIssuer{repo: repo, aesKey: aesKey, now: time.Now}
}

func (i *cardIssuer) issue(ctx context.Context, db database.DBTX, account models.Account, network string,
	cardType models.CardType, status models.CardStatus, limit decimal.Decimal) (models.Card, error) {
	number, err := utils.GenerateCardNumber(network)
	if err != nil {
		return models.Card{}, invalidInput(err.Error())
	}
	encrypted, err := utils.EncryptAES([]byte(number), i.aesKey)
	if err != nil {
		return models.Card{}, err
	}
	expiry := i.now().UTC().AddDate(cardValidityYears, 0, 0)
	card := models.Card{
		ID:              uuid.New(),
		AccountID:       account.ID,
		UserID:          account.UserID,
		Network:         network,
		Type:            cardType,
		MaskedNumber:    utils.MaskCardNumber(number),
		EncryptedNumber: encrypted,
		ExpiryMonth:     int(expiry.Month()),
		ExpiryYear:      expiry.Year(),
		Status:          status,
		CreditLimit:     limit,
		AvailableCredit: limit,
	}
	if err := i.repo.Create(ctx, db, &card); err != nil {
		return models.Card{}, err
	}
	return card, nil
}
