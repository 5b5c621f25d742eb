package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/nimeshabuddhika/resilient-banking/pkg/database"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
	"github.com/nimeshabuddhika/resilient-banking/pkg/repositories"
	"github.com/nimeshabuddhika/resilient-banking/pkg/views"
	"github.com/nimeshabuddhika/resilient-banking/services/notification-worker/internal/observability"
	"go.uber.org/zap"
)

// EventHandler processes one decoded bank event.
type EventHandler interface {
	Handle(ctx context.Context, ev views.BankEvent) error
}

type NotificationService struct {
	logger    *zap.Logger
	db        database.DBTX
	repo      repositories.NotificationRepository
	deliverer Deliverer
}

func NewNotificationService(logger *zap.Logger, db database.DBTX, repo repositories.NotificationRepository, deliverer Deliverer) *NotificationService {
	return &NotificationService{logger: logger, db: db, repo: repo, deliverer: deliverer}
}

// Handle stores the notification once per event id and delivers it. A
// redelivered event that was already sent is a no-op.
func (s *NotificationService) Handle(ctx context.Context, ev views.BankEvent) error {
	n := models.Notification{
		EventID:   ev.ID,
		UserID:    ev.UserID,
		EventType: ev.Type,
		Title:     ev.Title,
		Body:      ev.Message,
	}
	created, err := s.repo.Create(ctx, s.db, &n)
	if err != nil {
		return err
	}
	if created {
		observability.NotificationsStored.WithLabelValues(ev.Type).Inc()
	} else {
		stored, err := s.repo.FindByEventID(ctx, s.db, ev.ID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if stored.Delivered {
			s.logger.Info("notification_already_delivered", zap.String("event_id", ev.ID.String()))
			return nil
		}
	}

	if err := s.deliverer.Deliver(ctx, ev); err != nil {
		return err
	}
	if err := s.repo.MarkDelivered(ctx, s.db, ev.ID); err != nil {
		return err
	}
	observability.NotificationsDelivered.WithLabelValues(ev.Type).Inc()
	s.logger.Info("notification_delivered",
		zap.String("event_id", ev.ID.String()),
		zap.String("type", ev.Type),
		zap.String(pkg.TraceId, ev.TraceID))
	return nil
}
