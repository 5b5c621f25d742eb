package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/resilient-banking/pkg/database"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
)

// BillPayRepository defines the interface for payee and bill payment repository.
type BillPayRepository interface {
	CreatePayee(ctx context.Context, db database.DBTX, payee *models.Payee) error
	FindPayee(ctx context.Context, db database.DBTX, payeeID uuid.UUID) (models.Payee, error)
	ListPayees(ctx context.Context, db database.DBTX, userID uuid.UUID) ([]models.Payee, error)
	CreatePayment(ctx context.Context, db database.DBTX, payment *models.BillPayment) error
	ListPayments(ctx context.Context, db database.DBTX, userID uuid.UUID, limit int) ([]models.BillPayment, error)
}

type BillPayRepositoryImpl struct {
}

func NewBillPayRepository() BillPayRepository {
	return &BillPayRepositoryImpl{}
}

func (r BillPayRepositoryImpl) CreatePayee(ctx context.Context, db database.DBTX, p *models.Payee) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return db.QueryRow(ctx, `INSERT INTO payees (id, user_id, name, account_number, category)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		p.ID, p.UserID, p.Name, p.AccountNumber, p.Category,
	).Scan(&p.CreatedAt)
}

func (r BillPayRepositoryImpl) FindPayee(ctx context.Context, db database.DBTX, payeeID uuid.UUID) (models.Payee, error) {
	var p models.Payee
	err := db.QueryRow(ctx, `SELECT id, user_id, name, account_number, category, created_at FROM payees WHERE id = $1`, payeeID).
		Scan(&p.ID, &p.UserID, &p.Name, &p.AccountNumber, &p.Category, &p.CreatedAt)
	return p, err
}

func (r BillPayRepositoryImpl) ListPayees(ctx context.Context, db database.DBTX, userID uuid.UUID) ([]models.Payee, error) {
	rows, err := db.Query(ctx, `SELECT id, user_id, name, account_number, category, created_at
		FROM payees WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Payee, error) {
		var p models.Payee
		err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.AccountNumber, &p.Category, &p.CreatedAt)
		return p, err
	})
}

func (r BillPayRepositoryImpl) CreatePayment(ctx context.Context, db database.DBTX, b *models.BillPayment) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return db.QueryRow(ctx, `INSERT INTO bill_payments (id, user_id, payee_id, account_id, amount, status, memo)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`,
		b.ID, b.UserID, b.PayeeID, b.AccountID, b.Amount, b.Status, b.Memo,
	).Scan(&b.CreatedAt)
}

func (r BillPayRepositoryImpl) ListPayments(ctx context.Context, db database.DBTX, userID uuid.UUID, limit int) ([]models.BillPayment, error) {
	rows, err := db.Query(ctx, `SELECT id, user_id, payee_id, account_id, amount, status, memo, created_at
		FROM bill_payments WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.BillPayment, error) {
		var b models.BillPayment
		err := row.Scan(&b.ID, &b.UserID, &b.PayeeID, &b.AccountID, &b.Amount, &b.Status, &b.Memo, &b.CreatedAt)
		return b, err
	})
}
