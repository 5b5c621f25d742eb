package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/resilient-banking/pkg/database"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
)

const (
	depositColumns    = `id, user_id, account_id, method, amount, reference, status, admin_notes, reviewed_by, created_at, updated_at`
	withdrawalColumns = `id, user_id, account_id, method, amount, destination, status, admin_notes, reviewed_by, created_at, updated_at`
)

// DepositRepository defines the interface for deposit request repository.
type DepositRepository interface {
	Create(ctx context.Context, db database.DBTX, deposit *models.Deposit) error
	FindByIDForUpdate(ctx context.Context, db database.DBTX, depositID uuid.UUID) (models.Deposit, error)
	ListByUser(ctx context.Context, db database.DBTX, userID uuid.UUID) ([]models.Deposit, error)
	ListByStatus(ctx context.Context, db database.DBTX, status models.RequestStatus, limit int) ([]models.Deposit, error)
	UpdateReview(ctx context.Context, db database.DBTX, depositID uuid.UUID, status models.RequestStatus, notes string, reviewer uuid.UUID) error
}

// WithdrawalRepository defines the interface for withdrawal request repository.
type WithdrawalRepository interface {
	Create(ctx context.Context, db database.DBTX, withdrawal *models.Withdrawal) error
	FindByIDForUpdate(ctx context.Context, db database.DBTX, withdrawalID uuid.UUID) (models.Withdrawal, error)
	ListByUser(ctx context.Context, db database.DBTX, userID uuid.UUID) ([]models.Withdrawal, error)
	ListByStatus(ctx context.Context, db database.DBTX, status models.RequestStatus, limit int) ([]models.Withdrawal, error)
	UpdateReview(ctx context.Context, db database.DBTX, withdrawalID uuid.UUID, status models.RequestStatus, notes string, reviewer uuid.UUID) error
}

type DepositRepositoryImpl struct {
}

func NewDepositRepository() DepositRepository {
	return &DepositRepositoryImpl{}
}

func (r DepositRepositoryImpl) Create(ctx context.Context, db database.DBTX, d *models.Deposit) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return db.QueryRow(ctx, `INSERT INTO deposits (id, user_id, account_id, method, amount, reference, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		d.ID, d.UserID, d.AccountID, d.Method, d.Amount, d.Reference, d.Status,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r DepositRepositoryImpl) FindByIDForUpdate(ctx context.Context, db database.DBTX, depositID uuid.UUID) (models.Deposit, error) {
	return scanDeposit(db.QueryRow(ctx, `SELECT `+depositColumns+` FROM deposits WHERE id = $1 FOR UPDATE`, depositID))
}

func (r DepositRepositoryImpl) ListByUser(ctx context.Context, db database.DBTX, userID uuid.UUID) ([]models.Deposit, error) {
	rows, err := db.Query(ctx, `SELECT `+depositColumns+` FROM deposits WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Deposit, error) {
		return scanDeposit(row)
	})
}

func (r DepositRepositoryImpl) ListByStatus(ctx context.Context, db database.DBTX, status models.RequestStatus, limit int) ([]models.Deposit, error) {
	rows, err := db.Query(ctx, `SELECT `+depositColumns+` FROM deposits
		WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Deposit, error) {
		return scanDeposit(row)
	})
}

func (r DepositRepositoryImpl) UpdateReview(ctx context.Context, db database.DBTX, depositID uuid.UUID, status models.RequestStatus, notes string, reviewer uuid.UUID) error {
	return updateReview(ctx, db, "deposits", depositID, string(status), notes, reviewer)
}

func scanDeposit(row pgx.Row) (models.Deposit, error) {
	var d models.Deposit
	err := row.Scan(&d.ID, &d.UserID, &d.AccountID, &d.Method, &d.Amount, &d.Reference, &d.Status,
		&d.AdminNotes, &d.ReviewedBy, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

type WithdrawalRepositoryImpl struct {
}

func NewWithdrawalRepository() WithdrawalRepository {
	return &WithdrawalRepositoryImpl{}
}

func (r WithdrawalRepositoryImpl) Create(ctx context.Context, db database.DBTX, w *models.Withdrawal) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return db.QueryRow(ctx, `INSERT INTO withdrawals (id, user_id, account_id, method, amount, destination, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		w.ID, w.UserID, w.AccountID, w.Method, w.Amount, w.Destination, w.Status,
	).Scan(&w.CreatedAt, &w.UpdatedAt)
}

func (r WithdrawalRepositoryImpl) FindByIDForUpdate(ctx context.Context, db database.DBTX, withdrawalID uuid.UUID) (models.Withdrawal, error) {
	return scanWithdrawal(db.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1 FOR UPDATE`, withdrawalID))
}

func (r WithdrawalRepositoryImpl) ListByUser(ctx context.Context, db database.DBTX, userID uuid.UUID) ([]models.Withdrawal, error) {
	rows, err := db.Query(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Withdrawal, error) {
		return scanWithdrawal(row)
	})
}

func (r WithdrawalRepositoryImpl) ListByStatus(ctx context.Context, db database.DBTX, status models.RequestStatus, limit int) ([]models.Withdrawal, error) {
	rows, err := db.Query(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals
		WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Withdrawal, error) {
		return scanWithdrawal(row)
	})
}

func (r WithdrawalRepositoryImpl) UpdateReview(ctx context.Context, db database.DBTX, withdrawalID uuid.UUID, status models.RequestStatus, notes string, reviewer uuid.UUID) error {
	return updateReview(ctx, db, "withdrawals", withdrawalID, string(status), notes, reviewer)
}

func scanWithdrawal(row pgx.Row) (models.Withdrawal, error) {
	var w models.Withdrawal
	err := row.Scan(&w.ID, &w.UserID, &w.AccountID, &w.Method, &w.Amount, &w.Destination, &w.Status,
		&w.AdminNotes, &w.ReviewedBy, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

// updateReview writes an admin decision; table is always one of the constants above.
func updateReview(ctx context.Context, db database.DBTX, table string, id uuid.UUID, status, notes string, reviewer uuid.UUID) error {
	tag, err := db.Exec(ctx, `UPDATE `+table+`
		SET status = $2, admin_notes = $3, reviewed_by = $4, updated_at = NOW()
		WHERE id = $1`, id, status, notes, reviewer)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
