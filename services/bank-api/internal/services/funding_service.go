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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FundingService handles deposit and withdrawal requests. Money only moves
// when an admin completes a request.
type FundingService interface {
	RequestDeposit(ctx context.Context, traceID string, caller Caller, req reqviews.DepositRequest) (models.Deposit, error)
	ListDeposits(ctx context.Context, traceID string, caller Caller) ([]models.Deposit, error)
	ListDepositsByStatus(ctx context.Context, traceID string, status string) ([]models.Deposit, error)
	ReviewDeposit(ctx context.Context, traceID string, admin Caller, depositID uuid.UUID, req reqviews.StatusUpdateRequest) (models.Deposit, error)

	RequestWithdrawal(ctx context.Context, traceID string, caller Caller, req reqviews.WithdrawalRequest) (models.Withdrawal, error)
	ListWithdrawals(ctx context.Context, traceID string, caller Caller) ([]models.Withdrawal, error)
	ListWithdrawalsByStatus(ctx context.Context, traceID string, status string) ([]models.Withdrawal, error)
	ReviewWithdrawal(ctx context.Context, traceID string, admin Caller, withdrawalID uuid.UUID, req reqviews.StatusUpdateRequest) (models.Withdrawal, error)
}

type FundingServiceImpl struct {
	logger         *zap.Logger
	db             database.Store
	accountRepo    repositories.AccountRepository
	depositRepo    repositories.DepositRepository
	withdrawalRepo repositories.WithdrawalRepository
	notifier       Notifier
}

func NewFundingService(logger *zap.Logger, db database.Store, accountRepo repositories.AccountRepository,
	depositRepo repositories.DepositRepository, withdrawalRepo repositories.WithdrawalRepository, notifier Notifier) FundingService {
	return &FundingServiceImpl{
		logger:         logger,
		db:             db,
		accountRepo:    accountRepo,
		depositRepo:    depositRepo,
		withdrawalRepo: withdrawalRepo,
		notifier:       notifier,
	}
}

func (s *FundingServiceImpl) RequestDeposit(ctx context.Context, traceID string, caller Caller, req reqviews.DepositRequest) (models.Deposit, error) {
	method := models.DepositMethod(req.Method)
	if !method.Valid() {
		return models.Deposit{}, invalidInput("unknown deposit method")
	}
	account, amount, err := s.ownedTarget(ctx, traceID, caller, req.AccountID, req.Amount)
	if err != nil {
		return models.Deposit{}, err
	}
	deposit := models.Deposit{
		UserID:    caller.ID,
		AccountID: account.ID,
		Method:    method,
		Amount:    amount,
		Reference: req.Reference,
		Status:    models.RequestPending,
	}
	if err := s.depositRepo.Create(ctx, s.db, &deposit); err != nil {
		return models.Deposit{}, dbError(traceID, s.logger, err)
	}
	s.logger.Info("deposit_requested",
		zap.String(pkg.TraceId, traceID),
		zap.String("deposit_id", deposit.ID.String()),
		zap.String("method", string(method)),
		zap.String("amount", amount.String()))
	s.notifier.Changed(ctx, change(tableDeposits, views.ActionInsert, deposit.ID, caller.ID))
	return deposit, nil
}

func (s *FundingServiceImpl) ListDeposits(ctx context.Context, traceID string, caller Caller) ([]models.Deposit, error) {
	deposits, err := s.depositRepo.ListByUser(ctx, s.db, caller.ID)
	if err != nil {
		return nil, dbError(traceID, s.logger, err)
	}
	return deposits, nil
}

func (s *FundingServiceImpl) ListDepositsByStatus(ctx context.Context, traceID string, status string) ([]models.Deposit, error) {
	filter, err := requestStatusFilter(status)
	if err != nil {
		return nil, err
	}
	deposits, err := s.depositRepo.ListByStatus(ctx, s.db, filter, defaultListLimit)
	if err != nil {
		return nil, dbError(traceID, s.logger, err)
	}
	return deposits, nil
}

func (s *FundingServiceImpl) ReviewDeposit(ctx context.Context, traceID string, admin Caller, depositID uuid.UUID, req reqviews.StatusUpdateRequest) (models.Deposit, error) {
	next := models.RequestStatus(req.Status)
	if !next.Valid() {
		return models.Deposit{}, invalidInput("unknown request status")
	}
	var deposit models.Deposit
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		deposit, err = s.depositRepo.FindByIDForUpdate(ctx, tx, depositID)
		if err != nil {
			return err
		}
		if err := checkRequestTransition("deposit", deposit.Status, next); err != nil {
			return err
		}
		if next == models.RequestCompleted {
			account, err := s.accountRepo.FindByIDForUpdate(ctx, tx, deposit.AccountID)
			if err != nil {
				return err
			}
			if !account.IsActive() {
				return pkg.NewCodeError(pkg.ErrAccountInactiveCode)
			}
			if _, err := s.accountRepo.AdjustBalance(ctx, tx, account.ID, deposit.Amount); err != nil {
				return err
			}
		}
		if err := s.depositRepo.UpdateReview(ctx, tx, deposit.ID, next, req.Notes, admin.ID); err != nil {
			return err
		}
		deposit.Status, deposit.AdminNotes, deposit.ReviewedBy = next, req.Notes, &admin.ID
		return nil
	})
	if err != nil {
		return models.Deposit{}, dbError(traceID, s.logger, err)
	}

	s.logger.Info("deposit_reviewed",
		zap.String(pkg.TraceId, traceID),
		zap.String("deposit_id", deposit.ID.String()),
		zap.String("status", string(next)))
	changes := []views.ChangeEvent{change(tableDeposits, views.ActionUpdate, deposit.ID, deposit.UserID)}
	if next == models.RequestCompleted {
		changes = append(changes, change(tableAccounts, views.ActionUpdate, deposit.AccountID, deposit.UserID))
	}
	s.notifier.Changed(ctx, changes...)
	s.notifier.Emit(ctx, event(traceID, pkg.EventDepositStatusChanged, deposit.UserID, deposit.ID,
		"Deposit "+string(next), "Your deposit of "+deposit.Amount.StringFixed(2)+" is now "+string(next)+".",
		map[string]string{"status": string(next), "amount": deposit.Amount.StringFixed(2)}))
	return deposit, nil
}

func (s *FundingServiceImpl) RequestWithdrawal(ctx context.Context, traceID string, caller Caller, req reqviews.WithdrawalRequest) (models.Withdrawal, error) {
	method := models.WithdrawalMethod(req.Method)
	if !method.Valid() {
		return models.Withdrawal{}, invalidInput("unknown withdrawal method")
	}
	if utils.IsEmpty(req.Destination) {
		return models.Withdrawal{}, missingInformation("destination")
	}
	account, amount, err := s.ownedTarget(ctx, traceID, caller, req.AccountID, req.Amount)
	if err != nil {
		return models.Withdrawal{}, err
	}
	// early feedback only; the balance is checked again under lock on completion
	if !account.CanDebit(amount) {
		return models.Withdrawal{}, pkg.NewCodeError(pkg.ErrInsufficientFundsCode)
	}
	withdrawal := models.Withdrawal{
		UserID:      caller.ID,
		AccountID:   account.ID,
		Method:      method,
		Amount:      amount,
		Destination: req.Destination,
		Status:      models.RequestPending,
	}
	if err := s.withdrawalRepo.Create(ctx, s.db, &withdrawal); err != nil {
		return models.Withdrawal{}, dbError(traceID, s.logger, err)
	}
	s.logger.Info("withdrawal_requested",
		zap.String(pkg.TraceId, traceID),
		zap.String("withdrawal_id", withdrawal.ID.String()),
		zap.String("method", string(method)),
		zap.String("amount", amount.String()))
	s.notifier.Changed(ctx, change(tableWithdrawals, views.ActionInsert, withdrawal.ID, caller.ID))
	return withdrawal, nil
}

func (s *FundingServiceImpl) ListWithdrawals(ctx context.Context, traceID string, caller Caller) ([]models.Withdrawal, error) {
	withdrawals, err := s.withdrawalRepo.ListByUser(ctx, s.db, caller.ID)
	if err != nil {
		return nil, dbError(traceID, s.logger, err)
	}
	return withdrawals, nil
}

func (s *FundingServiceImpl) ListWithdrawalsByStatus(ctx context.Context, traceID string, status string) ([]models.Withdrawal, error) {
	filter, err := requestStatusFilter(status)
	if err != nil {
		return nil, err
	}
	withdrawals, err := s.withdrawalRepo.ListByStatus(ctx, s.db, filter, defaultListLimit)
	if err != nil {
		return nil, dbError(traceID, s.logger, err)
	}
	return withdrawals, nil
}

func (s *FundingServiceImpl) ReviewWithdrawal(ctx context.Context, traceID string, admin Caller, withdrawalID uuid.UUID, req reqviews.StatusUpdateRequest) (models.Withdrawal, error) {
	next := models.RequestStatus(req.Status)
	if !next.Valid() {
		return models.Withdrawal{}, invalidInput("unknown request status")
	}
	var withdrawal models.Withdrawal
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		withdrawal, err = s.withdrawalRepo.FindByIDForUpdate(ctx, tx, withdrawalID)
		if err != nil {
			return err
		}
		if err := checkRequestTransition("withdrawal", withdrawal.Status, next); err != nil {
			return err
		}
		if next == models.RequestCompleted {
			account, err := s.accountRepo.FindByIDForUpdate(ctx, tx, withdrawal.AccountID)
			if err != nil {
				return err
			}
			if !account.CanDebit(withdrawal.Amount) {
				return pkg.NewCodeError(pkg.ErrInsufficientFundsCode)
			}
			if _, err := s.accountRepo.AdjustBalance(ctx, tx, account.ID, withdrawal.Amount.Neg()); err != nil {
				return err
			}
		}
		if err := s.withdrawalRepo.UpdateReview(ctx, tx, withdrawal.ID, next, req.Notes, admin.ID); err != nil {
			return err
		}
		withdrawal.Status, withdrawal.AdminNotes, withdrawal.ReviewedBy = next, req.Notes, &admin.ID
		return nil
	})
	if err != nil {
		return models.Withdrawal{}, dbError(traceID, s.logger, err)
	}

	s.logger.Info("withdrawal_reviewed",
		zap.String(pkg.TraceId, traceID),
		zap.String("withdrawal_id", withdrawal.ID.String()),
		zap.String("status", string(next)))
	changes := []views.ChangeEvent{change(tableWithdrawals, views.ActionUpdate, withdrawal.ID, withdrawal.UserID)}
	if next == models.RequestCompleted {
		changes = append(changes, change(tableAccounts, views.ActionUpdate, withdrawal.AccountID, withdrawal.UserID))
	}
	s.notifier.Changed(ctx, changes...)
	s.notifier.Emit(ctx, event(traceID, pkg.EventWithdrawalStatus, withdrawal.UserID, withdrawal.ID,
		"Withdrawal "+string(next), "Your withdrawal of "+withdrawal.Amount.StringFixed(2)+" is now "+string(next)+".",
		map[string]string{"status": string(next), "amount": withdrawal.Amount.StringFixed(2)}))
	return withdrawal, nil
}

// ownedTarget validates the account id and amount shared by both request kinds.
func (s *FundingServiceImpl) ownedTarget(ctx context.Context, traceID string, caller Caller, rawAccountID string, rawAmount *decimal.Decimal) (models.Account, decimal.Decimal, error) {
	accountID, err := parseRequiredID("accountId", rawAccountID)
	if err != nil {
		return models.Account{}, decimal.Zero, err
	}
	amount, err := requirePositiveAmount(rawAmount)
	if err != nil {
		return models.Account{}, decimal.Zero, err
	}
	account, err := s.accountRepo.FindByID(ctx, s.db, accountID)
	if isNoRows(err) || (err == nil && account.UserID != caller.ID) {
		return models.Account{}, decimal.Zero, notFound("account")
	}
	if err != nil {
		return models.Account{}, decimal.Zero, dbError(traceID, s.logger, err)
	}
	if !account.IsActive() {
		return models.Account{}, decimal.Zero, pkg.NewCodeError(pkg.ErrAccountInactiveCode)
	}
	return account, amount, nil
}

func checkRequestTransition(kind string, from, to models.RequestStatus) error {
	if from.CanTransitionTo(to) {
		return nil
	}
	return pkg.NewAppError(pkg.ErrInvalidTransitionCode, kind+" cannot move from "+string(from)+" to "+string(to), nil)
}

func requestStatusFilter(status string) (models.RequestStatus, error) {
	filter := models.RequestStatus(status)
	if filter != "" && !filter.Valid() {
		return "", invalidInput("unknown request status")
	}
	return filter, nil
}
