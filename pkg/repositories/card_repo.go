package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/resilient-banking/pkg/database"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
)

const cardColumns = `id, account_id, user_id, network, card_type, masked_number, encrypted_number,
	expiry_month, expiry_year, status, credit_limit, available_credit, created_at, updated_at`

// CardRepository defines the interface for card repository.
type CardRepository interface {
	Create(ctx context.Context, db database.DBTX, card *models.Card) error
	FindByIDForUpdate(ctx context.Context, db database.DBTX, cardID uuid.UUID) (models.Card, error)
	ListByUser(ctx context.Context, db database.DBTX, userID uuid.UUID) ([]models.Card, error)
	ListByStatus(ctx context.Context, db database.DBTX, status models.CardStatus, limit int) ([]models.Card, error)
	UpdateStatus(ctx context.Context, db database.DBTX, cardID uuid.UUID, status models.CardStatus) error
}

type CardRepositoryImpl struct {
}

func NewCardRepository() CardRepository {
	return &CardRepositoryImpl{}
}

func (r CardRepositoryImpl) Create(ctx context.Context, db database.DBTX, c *models.Card) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return db.QueryRow(ctx, `INSERT INTO cards (id, account_id, user_id, network, card_type, masked_number,
			encrypted_number, expiry_month, expiry_year, status, credit_limit, available_credit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		c.ID, c.AccountID, c.UserID, c.Network, c.Type, c.MaskedNumber, c.EncryptedNumber,
		c.ExpiryMonth, c.ExpiryYear, c.Status, c.CreditLimit, c.AvailableCredit,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r CardRepositoryImpl) FindByIDForUpdate(ctx context.Context, db database.DBTX, cardID uuid.UUID) (models.Card, error) {
	return scanCard(db.QueryRow(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = $1 FOR UPDATE`, cardID))
}

func (r CardRepositoryImpl) ListByUser(ctx context.Context, db database.DBTX, userID uuid.UUID) ([]models.Card, error) {
	rows, err := db.Query(ctx, `SELECT `+cardColumns+` FROM cards WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Card, error) {
		return scanCard(row)
	})
}

func (r CardRepositoryImpl) ListByStatus(ctx context.Context, db database.DBTX, status models.CardStatus, limit int) ([]models.Card, error) {
	rows, err := db.Query(ctx, `SELECT `+cardColumns+` FROM cards
		WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Card, error) {
		return scanCard(row)
	})
}

func (r CardRepositoryImpl) UpdateStatus(ctx context.Context, db database.DBTX, cardID uuid.UUID, status models.CardStatus) error {
	tag, err := db.Exec(ctx, `UPDATE cards SET status = $2, updated_at = NOW() WHERE id = $1`, cardID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanCard(row pgx.Row) (models.Card, error) {
	var c models.Card
	err := row.Scan(&c.ID, &c.AccountID, &c.UserID, &c.Network, &c.Type, &c.MaskedNumber, &c.EncryptedNumber,
		&c.ExpiryMonth, &c.ExpiryYear, &c.Status, &c.CreditLimit, &c.AvailableCredit, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
