package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/nimeshabuddhika/resilient-banking/pkg/database"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
	"github.com/nimeshabuddhika/resilient-banking/pkg/repositories"
	"github.com/nimeshabuddhika/resilient-banking/pkg/utils"
	"github.com/nimeshabuddhika/resilient-banking/pkg/views"
	reqviews "github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/views"
	"go.uber.org/zap"
)

type SupportService interface {
	// Open starts a conversation with its first message.
	Open(ctx context.Context, traceID string, caller Caller, req reqviews.ConversationRequest) (models.Conversation, models.Message, error)
	ListMine(ctx context.Context, traceID string, caller Caller) ([]models.Conversation, error)
	ListByStatus(ctx context.Context, traceID string, status string) ([]models.Conversation, error)
	// Messages returns the thread and marks the other side's messages as read.
	Messages(ctx context.Context, traceID string, caller Caller, conversationID uuid.UUID) ([]models.Message, error)
	Post(ctx context.Context, traceID string, caller Caller, conversationID uuid.UUID, req reqviews.MessageRequest) (models.Message, error)
	Update(ctx context.Context, traceID string, admin Caller, conversationID uuid.UUID, req reqviews.ConversationUpdateRequest) (models.Conversation, error)
}

type SupportServiceImpl struct {
	logger      *zap.Logger
	db          database.Store
	supportRepo repositories.SupportRepository
	notifier    Notifier
}

func NewSupportService(logger *zap.Logger, db database.Store, supportRepo repositories.SupportRepository, notifier Notifier) SupportService {
	return &SupportServiceImpl{logger: logger, db: db, supportRepo: supportRepo, notifier: notifier}
}

func (s *SupportServiceImpl) Open(ctx context.Context, traceID string, caller Caller, req reqviews.ConversationRequest) (models.Conversation, models.Message, error) {
	if utils.IsEmpty(req.Subject) {
		return models.Conversation{}, models.Message{}, missingInformation("subject")
	}
	if utils.IsEmpty(req.Message) {
		return models.Conversation{}, models.Message{}, missingInformation("message")
	}
	priority := models.PriorityNormal
	if req.Priority != "" {
		priority = models.Priority(req.Priority)
		if !priority.Valid() {
			return models.Conversation{}, models.Message{}, invalidInput("unknown priority")
		}
	}

	conv := models.Conversation{
		ID:       uuid.New(),
		UserID:   caller.ID,
		Subject:  req.Subject,
		Status:   models.ConversationOpen,
		Priority: priority,
	}
	msg := models.Message{ConversationID: conv.ID, SenderID: caller.ID, SenderType: senderOf(caller), Body: req.Message}
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.supportRepo.CreateConversation(ctx, tx, &conv); err != nil {
			return err
		}
		return s.supportRepo.AddMessage(ctx, tx, &msg)
	})
	if err != nil {
		return models.Conversation{}, models.Message{}, dbError(traceID, s.logger, err)
	}
	s.logger.Info("support_conversation_opened",
		zap.String(pkg.TraceId, traceID),
		zap.String("conversation_id", conv.ID.String()),
		zap.String("priority", string(priority)))
	s.notifier.Changed(ctx,
		change(tableConversations, views.ActionInsert, conv.ID, caller.ID),
		change(tableMessages, views.ActionInsert, msg.ID, caller.ID))
	return conv, msg, nil
}

func (s *SupportServiceImpl) ListMine(ctx context.Context, traceID string, caller Caller) ([]models.Conversation, error) {
	convs, err := s.supportRepo.ListByUser(ctx, s.db, caller.ID)
	if err != nil {
		return nil, dbError(traceID, s.logger, err)
	}
	return convs, nil
}

func (s *SupportServiceImpl) ListByStatus(ctx context.Context, traceID string, status string) ([]models.Conversation, error) {
	filter := models.ConversationStatus(status)
	if filter != "" && !filter.Valid() {
		return nil, invalidInput("unknown conversation status")
	}
	convs, err := s.supportRepo.ListByStatus(ctx, s.db, filter, defaultListLimit)
	if err != nil {
		return nil, dbError(traceID, s.logger, err)
	}
	return convs, nil
}

func (s *SupportServiceImpl) Messages(ctx context.Context, traceID string, caller Caller, conversationID uuid.UUID) ([]models.Message, error) {
	if _, err := s.visible(ctx, traceID, caller, conversationID); err != nil {
		return nil, err
	}
	other := models.SenderAdmin
	if caller.IsAdmin() {
		other = models.SenderUser
	}
	marked, err := s.supportRepo.MarkRead(ctx, s.db, conversationID, other)
	if err != nil {
		return nil, dbError(traceID, s.logger, err)
	}
	msgs, err := s.supportRepo.ListMessages(ctx, s.db, conversationID)
	if err != nil {
		return nil, dbError(traceID, s.logger, err)
	}
	if marked > 0 {
		s.notifier.Changed(ctx, change(tableMessages, views.ActionUpdate, conversationID, caller.ID))
	}
	return msgs, nil
}

func (s *SupportServiceImpl) Post(ctx context.Context, traceID string, caller Caller, conversationID uuid.UUID, req reqviews.MessageRequest) (models.Message, error) {
	if utils.IsEmpty(req.Body) {
		return models.Message{}, missingInformation("body")
	}
	conv, err := s.visible(ctx, traceID, caller, conversationID)
	if err != nil {
		return models.Message{}, err
	}
	if conv.Status == models.ConversationClosed {
		return models.Message{}, pkg.NewAppError(pkg.ErrInvalidTransitionCode, "conversation is closed", nil)
	}

	msg := models.Message{ConversationID: conv.ID, SenderID: caller.ID, SenderType: senderOf(caller), Body: req.Body}
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.supportRepo.AddMessage(ctx, tx, &msg); err != nil {
			return err
		}
		// the first admin reply picks the conversation up
		if msg.SenderType == models.SenderAdmin && conv.Status == models.ConversationOpen {
			conv.Status = models.ConversationInProgress
			return s.supportRepo.UpdateConversation(ctx, tx, conv.ID, conv.Status, conv.Priority)
		}
		return s.supportRepo.Touch(ctx, tx, conv.ID)
	})
	if err != nil {
		return models.Message{}, dbError(traceID, s.logger, err)
	}

	s.logger.Info("support_message_posted",
		zap.String(pkg.TraceId, traceID),
		zap.String("conversation_id", conv.ID.String()),
		zap.String("sender_type", string(msg.SenderType)))
	s.notifier.Changed(ctx,
		change(tableMessages, views.ActionInsert, msg.ID, conv.UserID),
		change(tableConversations, views.ActionUpdate, conv.ID, conv.UserID))
	if msg.SenderType == models.SenderAdmin {
		s.notifier.Emit(ctx, event(traceID, pkg.EventSupportReply, conv.UserID, conv.ID,
			"Support replied", "You have a new reply on \""+conv.Subject+"\".", nil))
	}
	return msg, nil
}

func (s *SupportServiceImpl) Update(ctx context.Context, traceID string, admin Caller, conversationID uuid.UUID, req reqviews.ConversationUpdateRequest) (models.Conversation, error) {
	if req.Status == "" && req.Priority == "" {
		return models.Conversation{}, missingInformation("status or priority")
	}
	var conv models.Conversation
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		conv, err = s.supportRepo.FindConversation(ctx, tx, conversationID)
		if err != nil {
			return err
		}
		if req.Status != "" {
			conv.Status = models.ConversationStatus(req.Status)
			if !conv.Status.Valid() {
				return invalidInput("unknown conversation status")
			}
		}
		if req.Priority != "" {
			conv.Priority = models.Priority(req.Priority)
			if !conv.Priority.Valid() {
				return invalidInput("unknown priority")
			}
		}
		return s.supportRepo.UpdateConversation(ctx, tx, conv.ID, conv.Status, conv.Priority)
	})
	if err != nil {
		return models.Conversation{}, dbError(traceID, s.logger, err)
	}
	s.logger.Info("support_conversation_updated",
		zap.String(pkg.TraceId, traceID),
		zap.String("conversation_id", conv.ID.String()),
		zap.String("status", string(conv.Status)),
		zap.String("priority", string(conv.Priority)),
		zap.String("admin_id", admin.ID.String()))
	s.notifier.Changed(ctx, change(tableConversations, views.ActionUpdate, conv.ID, conv.UserID))
	return conv, nil
}

func (s *SupportServiceImpl) visible(ctx context.Context, traceID string, caller Caller, conversationID uuid.UUID) (models.Conversation, error) {
	conv, err := s.supportRepo.FindConversation(ctx, s.db, conversationID)
	if isNoRows(err) || (err == nil && !caller.CanSee(conv.UserID)) {
		return models.Conversation{}, notFound("conversation")
	}
	if err != nil {
		return models.Conversation{}, dbError(traceID, s.logger, err)
	}
	return conv, nil
}

func senderOf(caller Caller) models.SenderType {
	if caller.IsAdmin() {
		return models.SenderAdmin
	}
	return models.SenderUser
}
