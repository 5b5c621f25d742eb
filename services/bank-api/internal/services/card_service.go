package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/nimeshabuddhika/resilient-banking/pkg/database"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
	"github.com/nimeshabuddhika/resilient-banking/pkg/repositories"
	"github.com/nimeshabuddhika/resilient-banking/pkg/views"
	reqviews "github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/views"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CardService interface {
	// Request issues a debit card on one of the caller's accounts; it stays pending until an admin activates it.
	Request(ctx context.Context, traceID string, caller Caller, req reqviews.CardRequest) (models.Card, error)
	ListMine(ctx context.Context, traceID string, caller Caller) ([]models.Card, error)
	ListByStatus(ctx context.Context, traceID string, status string) ([]models.Card, error)
	// UpdateStatus lets owners block, unblock or cancel their cards; admins may apply any allowed transition.
	UpdateStatus(ctx context.Context, traceID string, caller Caller, cardID uuid.UUID, status string) (models.Card, error)
}

type CardServiceImpl struct {
	logger      *zap.Logger
	db          database.Store
	accountRepo repositories.AccountRepository
	cardRepo    repositories.CardRepository
	issuer      *cardIssuer
	notifier    Notifier
}

func NewCardService(logger *zap.Logger, db database.Store, accountRepo repositories.AccountRepository,
	cardRepo repositories.CardRepository, aesKey []byte, notifier Notifier) CardService {
	return &CardServiceImpl{
		logger:      logger,
		db:          db,
		accountRepo: accountRepo,
		cardRepo:    cardRepo,
		issuer:      newCardIssuer(cardRepo, aesKey),
		notifier:    notifier,
	}
}

func (s *CardServiceImpl) Request(ctx context.Context, traceID string, caller Caller, req reqviews.CardRequest) (models.Card, error) {
	accountID, err := parseRequiredID("accountId", req.AccountID)
	if err != nil {
		return models.Card{}, err
	}
	account, err := s.accountRepo.FindByID(ctx, s.db, accountID)
	if isNoRows(err) || (err == nil && account.UserID != caller.ID) {
		return models.Card{}, notFound("account")
	}
	if err != nil {
		return models.Card{}, dbError(traceID, s.logger, err)
	}
	if !account.IsActive() {
		return models.Card{}, pkg.NewCodeError(pkg.ErrAccountInactiveCode)
	}

	card, err := s.issuer.issue(ctx, s.db, account, req.Network, models.CardDebit, models.CardPending, decimal.Zero)
	if err != nil {
		return models.Card{}, dbError(traceID, s.logger, err)
	}
	s.logger.Info("card_requested",
		zap.String(pkg.TraceId, traceID),
		zap.String("card_id", card.ID.String()),
		zap.String("network", card.Network))
	s.notifier.Changed(ctx, change(tableCards, views.ActionInsert, card.ID, caller.ID))
	return card, nil
}

func (s *CardServiceImpl) ListMine(ctx context.Context, traceID string, caller Caller) ([]models.Card, error) {
	cards, err := s.cardRepo.ListByUser(ctx, s.db, caller.ID)
	if err != nil {
		return nil, dbError(traceID, s.logger, err)
	}
	return cards, nil
}

func (s *CardServiceImpl) ListByStatus(ctx context.Context, traceID string, status string) ([]models.Card, error) {
	filter := models.CardStatus(status)
	if filter != "" && !filter.Valid() {
		return nil, invalidInput("unknown card status")
	}
	cards, err := s.cardRepo.ListByStatus(ctx, s.db, filter, defaultListLimit)
	if err != nil {
		return nil, dbError(traceID, s.logger, err)
	}
	return cards, nil
}

func (s *CardServiceImpl) UpdateStatus(ctx context.Context, traceID string, caller Caller, cardID uuid.UUID, status string) (models.Card, error) {
	next := models.CardStatus(status)
	if !next.Valid() {
		return models.Card{}, invalidInput("unknown card status")
	}

	var card models.Card
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		card, err = s.cardRepo.FindByIDForUpdate(ctx, tx, cardID)
		if err != nil {
			return err
		}
		if !caller.CanSee(card.UserID) {
			return notFound("card")
		}
		// only an admin activates a newly issued card
		if !caller.IsAdmin() && card.Status == models.CardPending && next == models.CardActive {
			return pkg.NewAppError(pkg.ErrForbiddenCode, "card is awaiting activation", nil)
		}
		if !card.Status.CanTransitionTo(next) {
			return pkg.NewAppError(pkg.ErrInvalidTransitionCode,
				"card cannot move from "+string(card.Status)+" to "+string(next), nil)
		}
		if err := s.cardRepo.UpdateStatus(ctx, tx, card.ID, next); err != nil {
			return err
		}
		card.Status = next
		return nil
	})
	if err != nil {
		return models.Card{}, dbError(traceID, s.logger, err)
	}

	s.logger.Info("card_status_updated",
		zap.String(pkg.TraceId, traceID),
		zap.String("card_id", card.ID.String()),
		zap.String("status", string(next)),
		zap.String("actor_id", caller.ID.String()))
	s.notifier.Changed(ctx, change(tableCards, views.ActionUpdate, card.ID, card.UserID))
	s.notifier.Emit(ctx, event(traceID, pkg.EventCardStatusChanged, card.UserID, card.ID,
		"Card "+string(next), "Your card "+card.MaskedNumber+" is now "+string(next)+".",
		map[string]string{"status": string(next)}))
	return card, nil
}
