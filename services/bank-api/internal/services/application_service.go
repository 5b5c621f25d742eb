package services

import (
	"context"
	"time"

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

const (
	minApplicantAge   = 18
	creditCardNetwork = "visa"
)

// Decision is the outcome of an application review. Account and Card are set
// when the approval opened one.
type Decision struct {
	Application models.Application
	Account     *models.Account
	Card        *models.Card
}

type ApplicationService interface {
	Submit(ctx context.Context, traceID string, caller Caller, req reqviews.ApplicationRequest) (models.Application, error)
	ListMine(ctx context.Context, traceID string, caller Caller) ([]models.Application, error)
	ListByStatus(ctx context.Context, traceID string, status string) ([]models.Application, error)
	// Review records an admin decision. Approval opens the product in the same transaction.
	Review(ctx context.Context, traceID string, admin Caller, applicationID uuid.UUID, req reqviews.StatusUpdateRequest) (Decision, error)
}

type ApplicationServiceImpl struct {
	logger          *zap.Logger
	db              database.Store
	applicationRepo repositories.ApplicationRepository
	accountRepo     repositories.AccountRepository
	issuer          *cardIssuer
	currency        string
	notifier        Notifier
	now             func() time.Time
}

func NewApplicationService(logger *zap.Logger, db database.Store, applicationRepo repositories.ApplicationRepository,
	accountRepo repositories.AccountRepository, cardRepo repositories.CardRepository, aesKey []byte,
	currency string, notifier Notifier) ApplicationService {
	return &ApplicationServiceImpl{
		logger:          logger,
		db:              db,
		applicationRepo: applicationRepo,
		accountRepo:     accountRepo,
		issuer:          newCardIssuer(cardRepo, aesKey),
		currency:        currency,
		notifier:        notifier,
		now:             time.Now,
	}
}

func (s *ApplicationServiceImpl) Submit(ctx context.Context, traceID string, caller Caller, req reqviews.ApplicationRequest) (models.Application, error) {
	appType := models.ApplicationType(req.Type)
	if !appType.Valid() {
		return models.Application{}, invalidInput("unknown application type")
	}
	if utils.IsEmpty(req.FullName) {
		return models.Application{}, missingInformation("fullName")
	}
	if utils.IsEmpty(req.Email) {
		return models.Application{}, missingInformation("email")
	}
	if req.DateOfBirth != nil && req.DateOfBirth.AddDate(minApplicantAge, 0, 0).After(s.now()) {
		return models.Application{}, invalidInput("applicant must be at least 18 years old")
	}
	income, err := optionalAmount(req.AnnualIncome, "annualIncome")
	if err != nil {
		return models.Application{}, err
	}
	requestedAmount, err := optionalAmount(req.RequestedAmount, "requestedAmount")
	if err != nil {
		return models.Application{}, err
	}
	requestedLimit, err := optionalAmount(req.RequestedLimit, "requestedLimit")
	if err != nil {
		return models.Application{}, err
	}
	switch appType {
	case models.AppBusinessChecking, models.AppBusinessSavings:
		if utils.IsEmpty(req.BusinessName) {
			return models.Application{}, missingInformation("businessName")
		}
	case models.AppPersonalLoan:
		if !requestedAmount.IsPositive() {
			return models.Application{}, missingInformation("requestedAmount")
		}
	case models.AppCreditCard:
		if !requestedLimit.IsPositive() {
			return models.Application{}, missingInformation("requestedLimit")
		}
	}

	app := models.Application{
		UserID:          caller.ID,
		Type:            appType,
		FullName:        req.FullName,
		Email:           req.Email,
		Phone:           req.Phone,
		DateOfBirth:     req.DateOfBirth.TimePtr(),
		Address:         req.Address,
		AnnualIncome:    income,
		BusinessName:    req.BusinessName,
		RequestedAmount: requestedAmount,
		RequestedLimit:  requestedLimit,
		Status:          models.ApplicationPending,
	}
	if err := s.applicationRepo.Create(ctx, s.db, &app); err != nil {
		return models.Application{}, dbError(traceID, s.logger, err)
	}
	s.logger.Info("application_submitted",
		zap.String(pkg.TraceId, traceID),
		zap.String("application_id", app.ID.String()),
		zap.String("type", string(appType)))
	s.notifier.Changed(ctx, change(tableApplications, views.ActionInsert, app.ID, caller.ID))
	return app, nil
}

func (s *ApplicationServiceImpl) ListMine(ctx context.Context, traceID string, caller Caller) ([]models.Application, error) {
	apps, err := s.applicationRepo.ListByUser(ctx, s.db, caller.ID)
	if err != nil {
		return nil, dbError(traceID, s.logger, err)
	}
	return apps, nil
}

func (s *ApplicationServiceImpl) ListByStatus(ctx context.Context, traceID string, status string) ([]models.Application, error) {
	filter := models.ApplicationStatus(status)
	if filter != "" && !filter.Valid() {
		return nil, invalidInput("unknown application status")
	}
	apps, err := s.applicationRepo.ListByStatus(ctx, s.db, filter, defaultListLimit)
	if err != nil {
		return nil, dbError(traceID, s.logger, err)
	}
	return apps, nil
}

func (s *ApplicationServiceImpl) Review(ctx context.Context, traceID string, admin Caller, applicationID uuid.UUID, req reqviews.StatusUpdateRequest) (Decision, error) {
	next := models.ApplicationStatus(req.Status)
	if !next.Valid() {
		return Decision{}, invalidInput("unknown application status")
	}

	var decision Decision
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		app, err := s.applicationRepo.FindByIDForUpdate(ctx, tx, applicationID)
		if err != nil {
			return err
		}
		if !app.Status.CanTransitionTo(next) {
			return pkg.NewAppError(pkg.ErrInvalidTransitionCode,
				"application cannot move from "+string(app.Status)+" to "+string(next), nil)
		}
		if err := s.applicationRepo.UpdateReview(ctx, tx, app.ID, next, req.Notes, admin.ID); err != nil {
			return err
		}
		reviewedAt := s.now().UTC()
		app.Status, app.ReviewNotes, app.ReviewedBy, app.ReviewedAt = next, req.Notes, &admin.ID, &reviewedAt
		decision.Application = app

		if next != models.ApplicationApproved {
			return nil
		}
		return s.fulfil(ctx, tx, app, &decision)
	})
	if err != nil {
		return Decision{}, dbError(traceID, s.logger, err)
	}

	app := decision.Application
	s.logger.Info("application_reviewed",
		zap.String(pkg.TraceId, traceID),
		zap.String("application_id", app.ID.String()),
		zap.String("status", string(next)),
		zap.String("admin_id", admin.ID.String()))

	changes := []views.ChangeEvent{change(tableApplications, views.ActionUpdate, app.ID, app.UserID)}
	attrs := map[string]string{"status": string(next), "type": string(app.Type)}
	if decision.Account != nil {
		changes = append(changes, change(tableAccounts, views.ActionInsert, decision.Account.ID, app.UserID))
		attrs["accountNumber"] = decision.Account.AccountNumber
	}
	if decision.Card != nil {
		changes = append(changes, change(tableCards, views.ActionInsert, decision.Card.ID, app.UserID))
		attrs["card"] = decision.Card.MaskedNumber
	}
	s.notifier.Changed(ctx, changes...)
	s.notifier.Emit(ctx, event(traceID, pkg.EventApplicationReviewed, app.UserID, app.ID,
		"Application "+string(next), "Your "+string(app.Type)+" application is now "+string(next)+".", attrs))
	return decision, nil
}

// fulfil opens the approved product: exactly one account for account and loan
// applications, a credit card on the applicant's first active account otherwise.
func (s *ApplicationServiceImpl) fulfil(ctx context.Context, tx pgx.Tx, app models.Application, decision *Decision) error {
	if accountType, ok := app.Type.AccountType(); ok {
		account, err := openAccount(ctx, tx, s.accountRepo, app.UserID, accountType, s.currency)
		if err != nil {
			return err
		}
		if app.Type == models.AppPersonalLoan && app.RequestedAmount.IsPositive() {
			if account.Balance, err = s.accountRepo.AdjustBalance(ctx, tx, account.ID, app.RequestedAmount); err != nil {
				return err
			}
		}
		decision.Account = &account
		return nil
	}

	account, err := s.accountRepo.FirstActiveByUser(ctx, tx, app.UserID)
	if isNoRows(err) {
		return pkg.NewAppError(pkg.ErrBusinessRuleCode, "applicant has no active account to link the card to", err)
	}
	if err != nil {
		return err
	}
	card, err := s.issuer.issue(ctx, tx, account, creditCardNetwork, models.CardCredit, models.CardActive, app.RequestedLimit)
	if err != nil {
		return err
	}
	decision.Card = &card
	return nil
}
