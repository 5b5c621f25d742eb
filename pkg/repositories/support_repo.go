package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/resilient-banking/pkg/database"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
)

const conversationColumns = `id, user_id, subject, status, priority, created_at, updated_at`

// SupportRepository defines the interface for support conversation repository.
type SupportRepository interface {
	CreateConversation(ctx context.Context, db database.DBTX, conv *models.Conversation) error
	FindConversation(ctx context.Context, db database.DBTX, convID uuid.UUID) (models.Conversation, error)
	ListByUser(ctx context.Context, db database.DBTX, userID uuid.UUID) ([]models.Conversation, error)
	ListByStatus(ctx context.Context, db database.DBTX, status models.ConversationStatus, limit int) ([]models.Conversation, error)
	UpdateConversation(ctx context.Context, db database.DBTX, convID uuid.UUID, status models.ConversationStatus, priority models.Priority) error
	// Touch bumps updated_at so the conversation sorts as recently active.
	Touch(ctx context.Context, db database.DBTX, convID uuid.UUID) error
	AddMessage(ctx context.Context, db database.DBTX, msg *models.Message) error
	ListMessages(ctx context.Context, db database.DBTX, convID uuid.UUID) ([]models.Message, error)
	// MarkRead flags every message sent by sender as read and returns how many changed.
	MarkRead(ctx context.Context, db database.DBTX, convID uuid.UUID, sender models.SenderType) (int64, error)
}

type SupportRepositoryImpl struct {
}

func NewSupportRepository() SupportRepository {
	return &SupportRepositoryImpl{}
}

func (r SupportRepositoryImpl) CreateConversation(ctx context.Context, db database.DBTX, c *models.Conversation) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return db.QueryRow(ctx, `INSERT INTO support_conversations (id, user_id, subject, status, priority)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`,
		c.ID, c.UserID, c.Subject, c.Status, c.Priority,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r SupportRepositoryImpl) FindConversation(ctx context.Context, db database.DBTX, convID uuid.UUID) (models.Conversation, error) {
	return scanConversation(db.QueryRow(ctx, `SELECT `+conversationColumns+` FROM support_conversations WHERE id = $1`, convID))
}

func (r SupportRepositoryImpl) ListByUser(ctx context.Context, db database.DBTX, userID uuid.UUID) ([]models.Conversation, error) {
	rows, err := db.Query(ctx, `SELECT `+conversationColumns+` FROM support_conversations
		WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Conversation, error) {
		return scanConversation(row)
	})
}

func (r SupportRepositoryImpl) ListByStatus(ctx context.Context, db database.DBTX, status models.ConversationStatus, limit int) ([]models.Conversation, error) {
	rows, err := db.Query(ctx, `SELECT `+conversationColumns+` FROM support_conversations
		WHERE ($1 = '' OR status = $1) ORDER BY updated_at DESC LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Conversation, error) {
		return scanConversation(row)
	})
}

func (r SupportRepositoryImpl) UpdateConversation(ctx context.Context, db database.DBTX, convID uuid.UUID, status models.ConversationStatus, priority models.Priority) error {
	tag, err := db.Exec(ctx, `UPDATE support_conversations SET status = $2, priority = $3, updated_at = NOW() WHERE id = $1`,
		convID, status, priority)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r SupportRepositoryImpl) Touch(ctx context.Context, db database.DBTX, convID uuid.UUID) error {
	_, err := db.Exec(ctx, `UPDATE support_conversations SET updated_at = NOW() WHERE id = $1`, convID)
	return err
}

func (r SupportRepositoryImpl) AddMessage(ctx context.Context, db database.DBTX, m *models.Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return db.QueryRow(ctx, `INSERT INTO support_messages (id, conversation_id, sender_id, sender_type, body)
		VALUES ($1, $2, $3, $4, $5) RETURNING is_read, created_at`,
		m.ID, m.ConversationID, m.SenderID, m.SenderType, m.Body,
	).Scan(&m.IsRead, &m.CreatedAt)
}

func (r SupportRepositoryImpl) ListMessages(ctx context.Context, db database.DBTX, convID uuid.UUID) ([]models.Message, error) {
	rows, err := db.Query(ctx, `SELECT id, conversation_id, sender_id, sender_type, body, is_read, created_at
		FROM support_messages WHERE conversation_id = $1 ORDER BY created_at, id`, convID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Message, error) {
		var m models.Message
		err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderType, &m.Body, &m.IsRead, &m.CreatedAt)
		return m, err
	})
}

func (r SupportRepositoryImpl) MarkRead(ctx context.Context, db database.DBTX, convID uuid.UUID, sender models.SenderType) (int64, error) {
	tag, err := db.Exec(ctx, `UPDATE support_messages SET is_read = TRUE
		WHERE conversation_id = $1 AND sender_type = $2 AND is_read = FALSE`, convID, sender)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanConversation(row pgx.Row) (models.Conversation, error) {
	var c models.Conversation
	err := row.Scan(&c.ID, &c.UserID, &c.Subject, &c.Status, &c.Priority, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
