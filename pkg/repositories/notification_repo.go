package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/resilient-banking/pkg/database"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
)

// NotificationRepository defines the interface for notification repository.
type NotificationRepository interface {
	// Create stores the notification once per event id; created is false on a replay.
	Create(ctx context.Context, db database.DBTX, n *models.Notification) (created bool, err error)
	FindByEventID(ctx context.Context, db database.DBTX, eventID uuid.UUID) (models.Notification, error)
	MarkDelivered(ctx context.Context, db database.DBTX, eventID uuid.UUID) error
	ListByUser(ctx context.Context, db database.DBTX, userID uuid.UUID, limit int) ([]models.Notification, error)
}

type NotificationRepositoryImpl struct {
}

func NewNotificationRepository() NotificationRepository {
	return &NotificationRepositoryImpl{}
}

func (r NotificationRepositoryImpl) Create(ctx context.Context, db database.DBTX, n *models.Notification) (bool, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	tag, err := db.Exec(ctx, `INSERT INTO notifications (id, event_id, user_id, event_type, title, body)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING`,
		n.ID, n.EventID, n.UserID, n.EventType, n.Title, n.Body)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r NotificationRepositoryImpl) FindByEventID(ctx context.Context, db database.DBTX, eventID uuid.UUID) (models.Notification, error) {
	var n models.Notification
	err := db.QueryRow(ctx, `SELECT id, event_id, user_id, event_type, title, body, delivered, created_at
		FROM notifications WHERE event_id = $1`, eventID).Scan(
		&n.ID, &n.EventID, &n.UserID, &n.EventType, &n.Title, &n.Body, &n.Delivered, &n.CreatedAt)
	return n, err
}

func (r NotificationRepositoryImpl) MarkDelivered(ctx context.Context, db database.DBTX, eventID uuid.UUID) error {
	_, err := db.Exec(ctx, `UPDATE notifications SET delivered = TRUE WHERE event_id = $1`, eventID)
	return err
}

func (r NotificationRepositoryImpl) ListByUser(ctx context.Context, db database.DBTX, userID uuid.UUID, limit int) ([]models.Notification, error) {
	rows, err := db.Query(ctx, `SELECT id, event_id, user_id, event_type, title, body, delivered, created_at
		FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Notification, error) {
		var n models.Notification
		err := row.Scan(&n.ID, &n.EventID, &n.UserID, &n.EventType, &n.Title, &n.Body, &n.Delivered, &n.CreatedAt)
		return n, err
	})
}
