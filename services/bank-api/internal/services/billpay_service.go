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
	"go.uber.org/zap"
)

const billPaymentCompleted = "completed"

type BillPayService interface {
	AddPayee(ctx context.Context, traceID string, caller Caller, req reqviews.PayeeRequest) (models.Payee, error)
	ListPayees(ctx context.Context, traceID string, caller Caller) ([]models.Payee, error)
	// Pay debits the account and records the payment in one transaction.
	Pay(ctx context.Context, traceID string, caller Caller, req reqviews.BillPaymentRequest) (models.BillPayment, error)
	ListPayments(ctx context.Context, traceID string, caller Caller) ([]models.BillPayment, error)
}

type BillPayServiceImpl struct {
	logger      *zap.Logger
	db          database.Store
	accountRepo repositories.AccountRepository
	billPayRepo repositories.BillPayRepository
	notifier    Notifier
}

func NewBillPayService(logger *zap.Logger, db database.Store, accountRepo repositories.AccountRepository,
	billPayRepo repositories.BillPayRepository, notifier Notifier) BillPayService {
	return &BillPayServiceImpl{
		logger:      logger,
		db:          db,
		accountRepo: accountRepo,
		billPayRepo: billPayRepo,
		notifier:    notifier,
	}
}

func (s *BillPayServiceImpl) AddPayee(ctx context.Context, traceID string, caller Caller, req reqviews.PayeeRequest) (models.Payee, error) {
	payee := models.Payee{
		UserID:        caller.ID,
		Name:          req.Name,
		AccountNumber: req.AccountNumber,
		Category:      req.Category,
	}
	if err := s.billPayRepo.CreatePayee(ctx, s.db, &payee); err != nil {
		return models.Payee{}, dbError(traceID, s.logger, err)
	}
	s.logger.Info("payee_created", zap.String(pkg.TraceId, traceID), zap.String("payee_id", payee.ID.String()))
	return payee, nil
}

func (s *BillPayServiceImpl) ListPayees(ctx context.Context, traceID string, caller Caller) ([]models.Payee, error) {
	payees, err := s.billPayRepo.ListPayees(ctx, s.db, caller.ID)
	if err != nil {
		return nil, dbError(traceID, s.logger, err)
	}
	return payees, nil
}

func (s *BillPayServiceImpl) Pay(ctx context.Context, traceID string, caller Caller, req reqviews.BillPaymentRequest) (models.BillPayment, error) {
	payeeID, err := parseRequiredID("payeeId", req.PayeeID)
	if err != nil {
		return models.BillPayment{}, err
	}
	accountID, err := parseRequiredID("accountId", req.AccountID)
	if err != nil {
		return models.BillPayment{}, err
	}
	amount, err := requirePositiveAmount(req.Amount)
	if err != nil {
		return models.BillPayment{}, err
	}

	payment := models.BillPayment{
		ID:        uuid.New(),
		UserID:    caller.ID,
		PayeeID:   payeeID,
		AccountID: accountID,
		Amount:    amount,
		Status:    billPaymentCompleted,
		Memo:      req.Memo,
	}
	var payee models.Payee
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		payee, err = s.billPayRepo.FindPayee(ctx, tx, payeeID)
		if err != nil || payee.UserID != caller.ID {
			if err == nil || isNoRows(err) {
				return notFound("payee")
			}
			return err
		}
		account, err := s.accountRepo.FindByIDForUpdate(ctx, tx, accountID)
		if err != nil || account.UserID != caller.ID {
			if err == nil || isNoRows(err) {
				return notFound("account")
			}
			return err
		}
		if !account.IsActive() {
			return pkg.NewCodeError(pkg.ErrAccountInactiveCode)
		}
		if !account.CanDebit(amount) {
			return pkg.NewCodeError(pkg.ErrInsufficientFundsCode)
		}
		if _, err := s.accountRepo.AdjustBalance(ctx, tx, accountID, amount.Neg()); err != nil {
			return err
		}
		return s.billPayRepo.CreatePayment(ctx, tx, &payment)
	})
	if err != nil {
		return models.BillPayment{}, dbError(traceID, s.logger, err)
	}

	s.logger.Info("bill_payment_completed",
		zap.String(pkg.TraceId, traceID),
		zap.String("payment_id", payment.ID.String()),
		zap.String("amount", amount.String()))
	s.notifier.Changed(ctx,
		change(tableBillPayments, views.ActionInsert, payment.ID, caller.ID),
		change(tableAccounts, views.ActionUpdate, accountID, caller.ID))
	s.notifier.Emit(ctx, event(traceID, pkg.EventBillPaid, caller.ID, payment.ID,
		"Bill paid", "You paid "+amount.StringFixed(2)+" to "+payee.Name+".",
		map[string]string{"amount": amount.StringFixed(2), "payee": payee.Name}))
	return payment, nil
}

func (s *BillPayServiceImpl) ListPayments(ctx context.Context, traceID string, caller Caller) ([]models.BillPayment, error) {
	payments, err := s.billPayRepo.ListPayments(ctx, s.db, caller.ID, defaultListLimit)
	if err != nil {
		return nil, dbError(traceID, s.logger, err)
	}
	return payments, nil
}
