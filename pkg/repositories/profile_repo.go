package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/resilient-banking/pkg/database"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
)

// ProfileRepository defines the interface for profile repository.
type ProfileRepository interface {
	// Upsert creates the profile or refreshes its contact details.
	Upsert(ctx context.Context, db database.DBTX, profile *models.Profile) error
	// CreateIfMissing inserts the profile unless its id exists; created reports
	// whether a row was written. An existing row is left untouched.
	CreateIfMissing(ctx context.Context, db database.DBTX, profile *models.Profile) (created bool, err error)
	FindByID(ctx context.Context, db database.DBTX, userID uuid.UUID) (models.Profile, error)
	UpdateKycStatus(ctx context.Context, db database.DBTX, userID uuid.UUID, status models.KycStatus) error
}

type ProfileRepositoryImpl struct {
}

func NewProfileRepository() ProfileRepository {
	return &ProfileRepositoryImpl{}
}

func (p ProfileRepositoryImpl) Upsert(ctx context.Context, db database.DBTX, profile *models.Profile) error {
	return db.QueryRow(ctx, `INSERT INTO profiles (id, email, full_name, phone, role, kyc_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, full_name = EXCLUDED.full_name,
			phone = EXCLUDED.phone, updated_at = NOW()
		RETURNING role, kyc_status, created_at, updated_at`,
		profile.ID, profile.Email, profile.FullName, profile.Phone, profile.Role, profile.KycStatus,
	).Scan(&profile.Role, &profile.KycStatus, &profile.CreatedAt, &profile.UpdatedAt)
}

func (p ProfileRepositoryImpl) CreateIfMissing(ctx context.Context, db database.DBTX, profile *models.Profile) (bool, error) {
	tag, err := db.Exec(ctx, `INSERT INTO profiles (id, email, full_name, phone, role, kyc_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		profile.ID, profile.Email, profile.FullName, profile.Phone, profile.Role, profile.KycStatus)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (p ProfileRepositoryImpl) FindByID(ctx context.Context, db database.DBTX, userID uuid.UUID) (models.Profile, error) {
	var profile models.Profile
	err := db.QueryRow(ctx, `SELECT id, email, full_name, phone, role, kyc_status, created_at, updated_at
		FROM profiles WHERE id = $1`, userID).Scan(
		&profile.ID, &profile.Email, &profile.FullName, &profile.Phone, &profile.Role,
		&profile.KycStatus, &profile.CreatedAt, &profile.UpdatedAt)
	return profile, err
}

func (p ProfileRepositoryImpl) UpdateKycStatus(ctx context.Context, db database.DBTX, userID uuid.UUID, status models.KycStatus) error {
	tag, err := db.Exec(ctx, `UPDATE profiles SET kyc_status = $2, updated_at = NOW() WHERE id = $1`, userID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
