package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/resilient-banking/pkg/database"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, user_id, account_number, routing_number, account_type, balance, status, currency, created_at, updated_at`

// AccountRepository defines the interface for account repository.
type AccountRepository interface {
	// Create inserts a new account. A duplicate account number surfaces as a unique violation.
	Create(ctx context.Context, db database.DBTX, account *models.Account) error
	FindByID(ctx context.Context, db database.DBTX, accountID uuid.UUID) (models.Account, error)
	// FindByIDForUpdate locks the row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, db database.DBTX, accountID uuid.UUID) (models.Account, error)
	ListByUser(ctx context.Context, db database.DBTX, userID uuid.UUID) ([]models.Account, error)
	// FirstActiveByUser returns the oldest active account of the user.
	FirstActiveByUser(ctx context.Context, db database.DBTX, userID uuid.UUID) (models.Account, error)
	// AdjustBalance adds delta (negative to debit) and returns the new balance.
	AdjustBalance(ctx context.Context, db database.DBTX, accountID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	UpdateStatus(ctx context.Context, db database.DBTX, accountID uuid.UUID, status models.AccountStatus) error
}

type AccountRepositoryImpl struct {
}

func NewAccountRepository() AccountRepository {
	return &AccountRepositoryImpl{}
}

func (a AccountRepositoryImpl) Create(ctx context.Context, db database.DBTX, account *models.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	return db.QueryRow(ctx, `INSERT INTO accounts (id, user_id, account_number, routing_number, account_type, balance, status, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		account.ID, account.UserID, account.AccountNumber, account.RoutingNumber, account.Type,
		account.Balance, account.Status, account.Currency,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
}

func (a AccountRepositoryImpl) FindByID(ctx context.Context, db database.DBTX, accountID uuid.UUID) (models.Account, error) {
	if accountID == uuid.Nil {
		return models.Account{}, fmt.Errorf("invalid account ID: %s", accountID.String())
	}
	return scanAccount(db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID))
}

func (a AccountRepositoryImpl) FindByIDForUpdate(ctx context.Context, db database.DBTX, accountID uuid.UUID) (models.Account, error) {
	if accountID == uuid.Nil {
		return models.Account{}, fmt.Errorf("invalid account ID: %s", accountID.String())
	}
	return scanAccount(db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, accountID))
}

func (a AccountRepositoryImpl) ListByUser(ctx context.Context, db database.DBTX, userID uuid.UUID) ([]models.Account, error) {
	rows, err := db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Account, error) {
		return scanAccount(row)
	})
}

func (a AccountRepositoryImpl) FirstActiveByUser(ctx context.Context, db database.DBTX, userID uuid.UUID) (models.Account, error) {
	return scanAccount(db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts
		WHERE user_id = $1 AND status = $2 ORDER BY created_at LIMIT 1`, userID, models.AccountActive))
}

func (a AccountRepositoryImpl) AdjustBalance(ctx context.Context, db database.DBTX, accountID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := db.QueryRow(ctx, `UPDATE accounts SET balance = balance + $2, updated_at = NOW() WHERE id = $1 RETURNING balance`,
		accountID, delta).Scan(&balance)
	return balance, err
}

func (a AccountRepositoryImpl) UpdateStatus(ctx context.Context, db database.DBTX, accountID uuid.UUID, status models.AccountStatus) error {
	tag, err := db.Exec(ctx, `UPDATE accounts SET status = $2, updated_at = NOW() WHERE id = $1`, accountID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var acc models.Account
	err := row.Scan(&acc.ID, &acc.UserID, &acc.AccountNumber, &acc.RoutingNumber, &acc.Type,
		&acc.Balance, &acc.Status, &acc.Currency, &acc.CreatedAt, &acc.UpdatedAt)
	return acc, err
}
