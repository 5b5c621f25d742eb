package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/resilient-banking/pkg/database"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
)

const transferColumns = `t.id, t.from_account_id, t.to_account_id, t.external_account_number, t.external_routing_number,
	t.amount, t.status, t.memo, t.created_by, t.approved_by, t.idempotency_key, t.created_at, t.updated_at`

// TransferRepository defines the interface for transfer repository.
type TransferRepository interface {
	Create(ctx context.Context, db database.DBTX, transfer *models.Transfer) error
	FindByID(ctx context.Context, db database.DBTX, transferID uuid.UUID) (models.Transfer, error)
	FindByIDForUpdate(ctx context.Context, db database.DBTX, transferID uuid.UUID) (models.Transfer, error)
	// FindByIdempotencyKey returns pgx.ErrNoRows when the key was never used.
	FindByIdempotencyKey(ctx context.Context, db database.DBTX, key uuid.UUID) (models.Transfer, error)
	// ListByUser returns transfers touching any account of the user, newest first.
	// A non-nil accountID narrows the history to that account.
	ListByUser(ctx context.Context, db database.DBTX, userID uuid.UUID, accountID *uuid.UUID, limit int) ([]models.Transfer, error)
	// ListByStatus returns all transfers, optionally filtered by status, newest first.
	ListByStatus(ctx context.Context, db database.DBTX, status models.TransferStatus, limit int) ([]models.Transfer, error)
	UpdateStatus(ctx context.Context, db database.DBTX, transferID uuid.UUID, status models.TransferStatus, approvedBy uuid.UUID) error
}

type TransferRepositoryImpl struct {
}

func NewTransferRepository() TransferRepository {
	return &TransferRepositoryImpl{}
}

func (r TransferRepositoryImpl) Create(ctx context.Context, db database.DBTX, t *models.Transfer) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return db.QueryRow(ctx, `INSERT INTO transfers (id, from_account_id, to_account_id, external_account_number,
			external_routing_number, amount, status, memo, created_by, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		t.ID, t.FromAccountID, t.ToAccountID, t.ExternalAccountNumber, t.ExternalRoutingNumber,
		t.Amount, t.Status, t.Memo, t.CreatedBy, t.IdempotencyKey,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r TransferRepositoryImpl) FindByID(ctx context.Context, db database.DBTX, transferID uuid.UUID) (models.Transfer, error) {
	return scanTransfer(db.QueryRow(ctx, `SELECT `+transferColumns+` FROM transfers t WHERE t.id = $1`, transferID))
}

func (r TransferRepositoryImpl) FindByIDForUpdate(ctx context.Context, db database.DBTX, transferID uuid.UUID) (models.Transfer, error) {
	return scanTransfer(db.QueryRow(ctx, `SELECT `+transferColumns+` FROM transfers t WHERE t.id = $1 FOR UPDATE`, transferID))
}

func (r TransferRepositoryImpl) FindByIdempotencyKey(ctx context.Context, db database.DBTX, key uuid.UUID) (models.Transfer, error) {
	return scanTransfer(db.QueryRow(ctx, `SELECT `+transferColumns+` FROM transfers t WHERE t.idempotency_key = $1`, key))
}

func (r TransferRepositoryImpl) ListByUser(ctx context.Context, db database.DBTX, userID uuid.UUID, accountID *uuid.UUID, limit int) ([]models.Transfer, error) {
	rows, err := db.Query(ctx, `SELECT `+transferColumns+` FROM transfers t
		WHERE (t.from_account_id IN (SELECT id FROM accounts WHERE user_id = $1)
			OR t.to_account_id IN (SELECT id FROM accounts WHERE user_id = $1))
		  AND ($2::uuid IS NULL OR t.from_account_id = $2 OR t.to_account_id = $2)
		ORDER BY t.created_at DESC
		LIMIT $3`, userID, accountID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Transfer, error) {
		return scanTransfer(row)
	})
}

func (r TransferRepositoryImpl) ListByStatus(ctx context.Context, db database.DBTX, status models.TransferStatus, limit int) ([]models.Transfer, error) {
	rows, err := db.Query(ctx, `SELECT `+transferColumns+` FROM transfers t
		WHERE ($1 = '' OR t.status = $1)
		ORDER BY t.created_at DESC
		LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Transfer, error) {
		return scanTransfer(row)
	})
}

func (r TransferRepositoryImpl) UpdateStatus(ctx context.Context, db database.DBTX, transferID uuid.UUID, status models.TransferStatus, approvedBy uuid.UUID) error {
	tag, err := db.Exec(ctx, `UPDATE transfers SET status = $2, approved_by = $3, updated_at = NOW() WHERE id = $1`,
		transferID, status, approvedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTransfer(row pgx.Row) (models.Transfer, error) {
	var t models.Transfer
	err := row.Scan(&t.ID, &t.FromAccountID, &t.ToAccountID, &t.ExternalAccountNumber, &t.ExternalRoutingNumber,
		&t.Amount, &t.Status, &t.Memo, &t.CreatedBy, &t.ApprovedBy, &t.IdempotencyKey, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}
