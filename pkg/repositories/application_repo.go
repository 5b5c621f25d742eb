package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/resilient-banking/pkg/database"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
)

const applicationColumns = `id, user_id, application_type, full_name, email, phone, date_of_birth, address,
	annual_income, business_name, requested_amount, requested_limit, status, review_notes, reviewed_by,
	reviewed_at, created_at, updated_at`

// ApplicationRepository defines the interface for product application repository.
type ApplicationRepository interface {
	Create(ctx context.Context, db database.DBTX, app *models.Application) error
	FindByIDForUpdate(ctx context.Context, db database.DBTX, appID uuid.UUID) (models.Application, error)
	ListByUser(ctx context.Context, db database.DBTX, userID uuid.UUID) ([]models.Application, error)
	ListByStatus(ctx context.Context, db database.DBTX, status models.ApplicationStatus, limit int) ([]models.Application, error)
	UpdateReview(ctx context.Context, db database.DBTX, appID uuid.UUID, status models.ApplicationStatus, notes string, reviewer uuid.UUID) error
}

type ApplicationRepositoryImpl struct {
}

func NewApplicationRepository() ApplicationRepository {
	return &ApplicationRepositoryImpl{}
}

func (r ApplicationRepositoryImpl) Create(ctx context.Context, db database.DBTX, app *models.Application) error {
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	return db.QueryRow(ctx, `INSERT INTO applications (id, user_id, application_type, full_name, email, phone,
			date_of_birth, address, annual_income, business_name, requested_amount, requested_limit, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`,
		app.ID, app.UserID, app.Type, app.FullName, app.Email, app.Phone, app.DateOfBirth, app.Address,
		app.AnnualIncome, app.BusinessName, app.RequestedAmount, app.RequestedLimit, app.Status,
	).Scan(&app.CreatedAt, &app.UpdatedAt)
}

func (r ApplicationRepositoryImpl) FindByIDForUpdate(ctx context.Context, db database.DBTX, appID uuid.UUID) (models.Application, error) {
	return scanApplication(db.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1 FOR UPDATE`, appID))
}

func (r ApplicationRepositoryImpl) ListByUser(ctx context.Context, db database.DBTX, userID uuid.UUID) ([]models.Application, error) {
	rows, err := db.Query(ctx, `SELECT `+applicationColumns+` FROM applications WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Application, error) {
		return scanApplication(row)
	})
}

func (r ApplicationRepositoryImpl) ListByStatus(ctx context.Context, db database.DBTX, status models.ApplicationStatus, limit int) ([]models.Application, error) {
	rows, err := db.Query(ctx, `SELECT `+applicationColumns+` FROM applications
		WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Application, error) {
		return scanApplication(row)
	})
}

func (r ApplicationRepositoryImpl) UpdateReview(ctx context.Context, db database.DBTX, appID uuid.UUID, status models.ApplicationStatus, notes string, reviewer uuid.UUID) error {
	tag, err := db.Exec(ctx, `UPDATE applications
		SET status = $2, review_notes = $3, reviewed_by = $4, reviewed_at = NOW(), updated_at = NOW()
		WHERE id = $1`, appID, status, notes, reviewer)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanApplication(row pgx.Row) (models.Application, error) {
	var a models.Application
	err := row.Scan(&a.ID, &a.UserID, &a.Type, &a.FullName, &a.Email, &a.Phone, &a.DateOfBirth, &a.Address,
		&a.AnnualIncome, &a.BusinessName, &a.RequestedAmount, &a.RequestedLimit, &a.Status, &a.ReviewNotes,
		&a.ReviewedBy, &a.ReviewedAt, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}
