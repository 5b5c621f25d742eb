package services

import (
	"bytes"
	"context"
	"errors"
	"sort"

	"github.com/go-playground/validator/v10"
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

// "number" accepts digits only; "numeric" would let signs and decimals through.
const (
	externalAccountRule = "number,min=4,max=34"
	routingNumberRule   = "number,len=9"
)

var fieldValidator = validator.New()

type TransferService interface {
	// CreateInternal moves money between two of the caller's accounts in one
	// transaction. replayed is true when the idempotency key was already used.
	CreateInternal(ctx context.Context, traceID string, caller Caller, req reqviews.InternalTransferRequest, idempotencyKey *uuid.UUID) (transfer models.Transfer, replayed bool, err error)
	// CreateExternal debits the source and leaves the transfer pending for an admin.
	CreateExternal(ctx context.Context, traceID string, caller Caller, req reqviews.ExternalTransferRequest, idempotencyKey *uuid.UUID) (transfer models.Transfer, replayed bool, err error)
	ListByStatus(ctx context.Context, traceID string, status string) ([]models.Transfer, error)
	// UpdateStatus applies an admin decision; failed and cancelled reverse the money movement.
	UpdateStatus(ctx context.Context, traceID string, admin Caller, transferID uuid.UUID, status string) (models.Transfer, error)
}

type TransferServiceImpl struct {
	logger       *zap.Logger
	db           database.Store
	accountRepo  repositories.AccountRepository
	transferRepo repositories.TransferRepository
	notifier     Notifier
}

func NewTransferService(logger *zap.Logger, db database.Store, accountRepo repositories.AccountRepository,
	transferRepo repositories.TransferRepository, notifier Notifier) TransferService {
	return &TransferServiceImpl{
		logger:       logger,
		db:           db,
		accountRepo:  accountRepo,
		transferRepo: transferRepo,
		notifier:     notifier,
	}
}

func (s *TransferServiceImpl) CreateInternal(ctx context.Context, traceID string, caller Caller, req reqviews.InternalTransferRequest, idempotencyKey *uuid.UUID) (models.Transfer, bool, error) {
	fromID, err := parseRequiredID("fromAccountId", req.FromAccountID)
	if err != nil {
		return models.Transfer{}, false, err
	}
	toID, err := parseRequiredID("toAccountId", req.ToAccountID)
	if err != nil {
		return models.Transfer{}, false, err
	}
	amount, err := requirePositiveAmount(req.Amount)
	if err != nil {
		return models.Transfer{}, false, err
	}
	if fromID == toID {
		return models.Transfer{}, false, pkg.NewCodeError(pkg.ErrSameAccountCode)
	}
	if existing, ok, err := s.replay(ctx, traceID, caller, idempotencyKey); err != nil || ok {
		return existing, ok, err
	}

	transfer := models.Transfer{
		ID:             uuid.New(),
		FromAccountID:  fromID,
		ToAccountID:    &toID,
		Amount:         amount,
		Status:         models.TransferPending,
		Memo:           req.Memo,
		CreatedBy:      caller.ID,
		IdempotencyKey: idempotencyKey,
	}
	var src, dst models.Account
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		locked, err := lockAccounts(ctx, tx, s.accountRepo, fromID, toID)
		if err != nil {
			return err
		}
		src, dst = locked[fromID], locked[toID]
		if src.UserID != caller.ID {
			return notFound("source account")
		}
		if dst.UserID != caller.ID {
			return notFound("destination account")
		}
		if !src.IsActive() || !dst.IsActive() {
			return pkg.NewCodeError(pkg.ErrAccountInactiveCode)
		}
		if src.Currency != dst.Currency {
			return invalidInput("accounts use different currencies")
		}
		// checked under the row lock, before any write
		if !src.CanDebit(amount) {
			return pkg.NewCodeError(pkg.ErrInsufficientFundsCode)
		}

		if err := s.transferRepo.Create(ctx, tx, &transfer); err != nil {
			return err
		}
		if src.Balance, err = s.accountRepo.AdjustBalance(ctx, tx, src.ID, amount.Neg()); err != nil {
			return err
		}
		if dst.Balance, err = s.accountRepo.AdjustBalance(ctx, tx, dst.ID, amount); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if existing, ok := s.replayAfterConflict(ctx, traceID, caller, idempotencyKey, err); ok {
			return existing, true, nil
		}
		return models.Transfer{}, false, s.transferError(traceID, err)
	}

	s.logger.Info("internal_transfer_created",
		zap.String(pkg.TraceId, traceID),
		zap.String("transfer_id", transfer.ID.String()),
		zap.String("from_account_id", fromID.String()),
		zap.String("to_account_id", toID.String()),
		zap.String("amount", amount.String()))

	s.notifier.Changed(ctx,
		change(tableTransfers, views.ActionInsert, transfer.ID, caller.ID),
		change(tableAccounts, views.ActionUpdate, src.ID, src.UserID),
		change(tableAccounts, views.ActionUpdate, dst.ID, dst.UserID))
	s.notifier.Emit(ctx, event(traceID, pkg.EventTransferCreated, caller.ID, transfer.ID,
		"Transfer submitted", "Your transfer of "+amount.StringFixed(2)+" "+src.Currency+" was submitted.",
		map[string]string{"amount": amount.StringFixed(2), "fromAccountId": fromID.String(), "toAccountId": toID.String()}))
	return transfer, false, nil
}

func (s *TransferServiceImpl) CreateExternal(ctx context.Context, traceID string, caller Caller, req reqviews.ExternalTransferRequest, idempotencyKey *uuid.UUID) (models.Transfer, bool, error) {
	fromID, err := parseRequiredID("fromAccountId", req.FromAccountID)
	if err != nil {
		return models.Transfer{}, false, err
	}
	if utils.IsEmpty(req.AccountNumber) {
		return models.Transfer{}, false, missingInformation("accountNumber")
	}
	if utils.IsEmpty(req.RoutingNumber) {
		return models.Transfer{}, false, missingInformation("routingNumber")
	}
	amount, err := requirePositiveAmount(req.Amount)
	if err != nil {
		return models.Transfer{}, false, err
	}
	if fieldValidator.Var(req.AccountNumber, externalAccountRule) != nil {
		return models.Transfer{}, false, invalidInput("accountNumber must be 4 to 34 digits")
	}
	if fieldValidator.Var(req.RoutingNumber, routingNumberRule) != nil {
		return models.Transfer{}, false, invalidInput("routingNumber must be 9 digits")
	}
	if existing, ok, err := s.replay(ctx, traceID, caller, idempotencyKey); err != nil || ok {
		return existing, ok, err
	}

	transfer := models.Transfer{
		ID:                    uuid.New(),
		FromAccountID:         fromID,
		ExternalAccountNumber: req.AccountNumber,
		ExternalRoutingNumber: req.RoutingNumber,
		Amount:                amount,
		Status:                models.TransferPending,
		Memo:                  req.Memo,
		CreatedBy:             caller.ID,
		IdempotencyKey:        idempotencyKey,
	}
	var src models.Account
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		src, err = s.accountRepo.FindByIDForUpdate(ctx, tx, fromID)
		if err != nil {
			return err
		}
		if src.UserID != caller.ID {
			return notFound("source account")
		}
		if !src.IsActive() {
			return pkg.NewCodeError(pkg.ErrAccountInactiveCode)
		}
		if !src.CanDebit(amount) {
			return pkg.NewCodeError(pkg.ErrInsufficientFundsCode)
		}
		if err := s.transferRepo.Create(ctx, tx, &transfer); err != nil {
			return err
		}
		src.Balance, err = s.accountRepo.AdjustBalance(ctx, tx, src.ID, amount.Neg())
		return err
	})
	if err != nil {
		if existing, ok := s.replayAfterConflict(ctx, traceID, caller, idempotencyKey, err); ok {
			return existing, true, nil
		}
		return models.Transfer{}, false, s.transferError(traceID, err)
	}

	s.logger.Info("external_transfer_created",
		zap.String(pkg.TraceId, traceID),
		zap.String("transfer_id", transfer.ID.String()),
		zap.String("from_account_id", fromID.String()),
		zap.String("amount", amount.String()))

	s.notifier.Changed(ctx,
		change(tableTransfers, views.ActionInsert, transfer.ID, caller.ID),
		change(tableAccounts, views.ActionUpdate, src.ID, src.UserID))
	s.notifier.Emit(ctx, event(traceID, pkg.EventTransferCreated, caller.ID, transfer.ID,
		"External transfer submitted", "Your external transfer of "+amount.StringFixed(2)+" "+src.Currency+" is pending review.",
		map[string]string{"amount": amount.StringFixed(2), "fromAccountId": fromID.String()}))
	return transfer, false, nil
}

func (s *TransferServiceImpl) ListByStatus(ctx context.Context, traceID string, status string) ([]models.Transfer, error) {
	filter := models.TransferStatus(status)
	if filter != "" && !filter.Valid() {
		return nil, invalidInput("unknown transfer status")
	}
	transfers, err := s.transferRepo.ListByStatus(ctx, s.db, filter, defaultListLimit)
	if err != nil {
		return nil, dbError(traceID, s.logger, err)
	}
	return transfers, nil
}

func (s *TransferServiceImpl) UpdateStatus(ctx context.Context, traceID string, admin Caller, transferID uuid.UUID, status string) (models.Transfer, error) {
	next := models.TransferStatus(status)
	if !next.Valid() {
		return models.Transfer{}, invalidInput("unknown transfer status")
	}

	var transfer models.Transfer
	var touched []models.Account
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		transfer, err = s.transferRepo.FindByIDForUpdate(ctx, tx, transferID)
		if err != nil {
			return err
		}
		if !transfer.Status.CanTransitionTo(next) {
			return pkg.NewAppError(pkg.ErrInvalidTransitionCode,
				"transfer cannot move from "+string(transfer.Status)+" to "+string(next), nil)
		}
		if next.Reverses() {
			if touched, err = s.reverse(ctx, tx, transfer); err != nil {
				return err
			}
		}
		if err := s.transferRepo.UpdateStatus(ctx, tx, transfer.ID, next, admin.ID); err != nil {
			return err
		}
		transfer.Status = next
		transfer.ApprovedBy = &admin.ID
		return nil
	})
	if err != nil {
		return models.Transfer{}, dbError(traceID, s.logger, err)
	}

	s.logger.Info("transfer_status_updated",
		zap.String(pkg.TraceId, traceID),
		zap.String("transfer_id", transfer.ID.String()),
		zap.String("admin_id", admin.ID.String()),
		zap.String("status", string(next)))

	changes := []views.ChangeEvent{change(tableTransfers, views.ActionUpdate, transfer.ID, transfer.CreatedBy)}
	for _, acc := range touched {
		changes = append(changes, change(tableAccounts, views.ActionUpdate, acc.ID, acc.UserID))
	}
	s.notifier.Changed(ctx, changes...)
	s.notifier.Emit(ctx, event(traceID, pkg.EventTransferStatusChanged, transfer.CreatedBy, transfer.ID,
		"Transfer "+string(next), "Your transfer of "+transfer.Amount.StringFixed(2)+" is now "+string(next)+".",
		map[string]string{"status": string(next)}))
	return transfer, nil
}

// reverse undoes the balance effect of a transfer inside tx and returns the touched accounts.
func (s *TransferServiceImpl) reverse(ctx context.Context, tx pgx.Tx, t models.Transfer) ([]models.Account, error) {
	if t.IsExternal() {
		src, err := s.accountRepo.FindByIDForUpdate(ctx, tx, t.FromAccountID)
		if err != nil {
			return nil, err
		}
		if src.Balance, err = s.accountRepo.AdjustBalance(ctx, tx, src.ID, t.Amount); err != nil {
			return nil, err
		}
		return []models.Account{src}, nil
	}

	locked, err := lockAccounts(ctx, tx, s.accountRepo, t.FromAccountID, *t.ToAccountID)
	if err != nil {
		return nil, err
	}
	src, dst := locked[t.FromAccountID], locked[*t.ToAccountID]
	if !dst.CanDebit(t.Amount) {
		return nil, pkg.NewAppError(pkg.ErrInsufficientFundsCode, "destination no longer holds the transferred funds", nil)
	}
	if dst.Balance, err = s.accountRepo.AdjustBalance(ctx, tx, dst.ID, t.Amount.Neg()); err != nil {
		return nil, err
	}
	if src.Balance, err = s.accountRepo.AdjustBalance(ctx, tx, src.ID, t.Amount); err != nil {
		return nil, err
	}
	return []models.Account{src, dst}, nil
}

// lockAccounts takes FOR UPDATE locks in a fixed id order so two opposing
// transfers cannot deadlock.
func lockAccounts(ctx context.Context, tx pgx.Tx, repo repositories.AccountRepository, ids ...uuid.UUID) (map[uuid.UUID]models.Account, error) {
	ordered := append([]uuid.UUID(nil), ids...)
	sort.Slice(ordered, func(i, j int) bool { return bytes.Compare(ordered[i][:], ordered[j][:]) < 0 })
	locked := make(map[uuid.UUID]models.Account, len(ordered))
	for _, id := range ordered {
		if _, ok := locked[id]; ok {
			continue
		}
		acc, err := repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			if isNoRows(err) {
				return nil, notFound("account")
			}
			return nil, err
		}
		locked[id] = acc
	}
	return locked, nil
}

// replay returns the transfer already recorded under key, if any. The lookup
// runs in a transaction so it reads the primary; a lagging replica would miss
// a key the primary just reported as taken.
func (s *TransferServiceImpl) replay(ctx context.Context, traceID string, caller Caller, key *uuid.UUID) (models.Transfer, bool, error) {
	if key == nil {
		return models.Transfer{}, false, nil
	}
	var existing models.Transfer
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		existing, err = s.transferRepo.FindByIdempotencyKey(ctx, tx, *key)
		return err
	})
	if isNoRows(err) {
		return models.Transfer{}, false, nil
	}
	if err != nil {
		return models.Transfer{}, false, dbError(traceID, s.logger, err)
	}
	if existing.CreatedBy != caller.ID {
		return models.Transfer{}, false, pkg.NewCodeError(pkg.ErrIdempotencyConflictCode)
	}
	s.logger.Info("transfer_replayed",
		zap.String(pkg.TraceId, traceID),
		zap.String(pkg.IdempotencyKey, key.String()),
		zap.String("transfer_id", existing.ID.String()))
	return existing, true, nil
}

// replayAfterConflict handles two concurrent submissions racing on the same key.
func (s *TransferServiceImpl) replayAfterConflict(ctx context.Context, traceID string, caller Caller, key *uuid.UUID, err error) (models.Transfer, bool) {
	if key == nil || !pkg.IsUniqueViolation(err) {
		return models.Transfer{}, false
	}
	existing, ok, rerr := s.replay(ctx, traceID, caller, key)
	if rerr != nil || !ok {
		return models.Transfer{}, false
	}
	return existing, true
}

// transferError collapses failures onto the user-facing taxonomy: business
// rule errors pass through, a balance check violation is insufficient funds,
// anything else is Transfer Failed.
func (s *TransferServiceImpl) transferError(traceID string, err error) error {
	var appErr pkg.AppError
	if errors.As(err, &appErr) {
		return err
	}
	mapped := dbError(traceID, s.logger, err)
	if pkg.HasCode(mapped, pkg.ErrInsufficientFundsCode) || pkg.HasCode(mapped, pkg.ErrRecordNotFoundCode) {
		return mapped
	}
	return pkg.NewAppError(pkg.ErrTransferFailedCode, pkg.ErrTransferFailedCode.Message, err)
}
