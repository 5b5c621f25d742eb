package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/nimeshabuddhika/resilient-banking/pkg/database"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
	"github.com/nimeshabuddhika/resilient-banking/pkg/repositories"
	"github.com/nimeshabuddhika/resilient-banking/pkg/utils"
	"github.com/nimeshabuddhika/resilient-banking/pkg/views"
	"go.uber.org/zap"
)

// Overview is the dashboard read model: profile, accounts and recent activity.
type Overview struct {
	Profile   models.Profile
	Accounts  []models.Account
	Transfers []models.Transfer
}

// placeholderEmailDomain stands in for tokens without an email claim, or whose
// email already belongs to another profile. The .invalid TLD never resolves.
const placeholderEmailDomain = "profiles.invalid"

type AccountService interface {
	// EnsureProfile creates the subject's profile the first time it is seen.
	// Known subjects are cached so repeat calls skip the database.
	EnsureProfile(ctx context.Context, traceID string, userID uuid.UUID, email string, role pkg.Role) error
	Overview(ctx context.Context, traceID string, caller Caller) (Overview, error)
	ListAccounts(ctx context.Context, traceID string, caller Caller) ([]models.Account, error)
	GetAccount(ctx context.Context, traceID string, caller Caller, accountID uuid.UUID) (models.Account, error)
	ListTransfers(ctx context.Context, traceID string, caller Caller, accountID *uuid.UUID) ([]models.Transfer, error)
	ListNotifications(ctx context.Context, traceID string, caller Caller) ([]models.Notification, error)
	UpdateKycStatus(ctx context.Context, traceID string, admin Caller, userID uuid.UUID, status string) (models.Profile, error)
}

type AccountServiceImpl struct {
	logger           *zap.Logger
	db               database.Store
	profileRepo      repositories.ProfileRepository
	accountRepo      repositories.AccountRepository
	transferRepo     repositories.TransferRepository
	notificationRepo repositories.NotificationRepository
	notifier         Notifier
	knownProfiles    sync.Map
}

func NewAccountService(logger *zap.Logger, db database.Store, profileRepo repositories.ProfileRepository,
	accountRepo repositories.AccountRepository, transferRepo repositories.TransferRepository,
	notificationRepo repositories.NotificationRepository, notifier Notifier) AccountService {
	return &AccountServiceImpl{
		logger:           logger,
		db:               db,
		profileRepo:      profileRepo,
		accountRepo:      accountRepo,
		transferRepo:     transferRepo,
		notificationRepo: notificationRepo,
		notifier:         notifier,
	}
}

func (s *AccountServiceImpl) EnsureProfile(ctx context.Context, traceID string, userID uuid.UUID, email string, role pkg.Role) error {
	if _, ok := s.knownProfiles.Load(userID); ok {
		return nil
	}
	if role == "" {
		role = pkg.RoleUser
	}
	if utils.IsEmpty(email) {
		email = placeholderEmail(userID)
	}
	profile := models.Profile{ID: userID, Email: email, Role: role, KycStatus: models.KycPending}
	created, err := s.profileRepo.CreateIfMissing(ctx, s.db, &profile)
	if pkg.IsUniqueViolation(err) {
		// the email is taken by another subject; the id still needs a row
		profile.Email = placeholderEmail(userID)
		created, err = s.profileRepo.CreateIfMissing(ctx, s.db, &profile)
	}
	if err != nil {
		return dbError(traceID, s.logger, err)
	}
	if created {
		s.logger.Info("profile_created",
			zap.String(pkg.TraceId, traceID),
			zap.String(pkg.UserId, userID.String()),
			zap.String("role", string(role)))
	}
	s.knownProfiles.Store(userID, struct{}{})
	return nil
}

func placeholderEmail(userID uuid.UUID) string {
	return userID.String() + "@" + placeholderEmailDomain
}

func (s *AccountServiceImpl) Overview(ctx context.Context, traceID string, caller Caller) (Overview, error) {
	profile, err := s.profileRepo.FindByID(ctx, s.db, caller.ID)
	if err != nil {
		return Overview{}, dbError(traceID, s.logger, err)
	}

	accounts, err := s.accountRepo.ListByUser(ctx, s.db, caller.ID)
	if err != nil {
		return Overview{}, dbError(traceID, s.logger, err)
	}
	transfers, err := s.transferRepo.ListByUser(ctx, s.db, caller.ID, nil, recentTransfers)
	if err != nil {
		return Overview{}, dbError(traceID, s.logger, err)
	}
	return Overview{Profile: profile, Accounts: accounts, Transfers: transfers}, nil
}

func (s *AccountServiceImpl) ListAccounts(ctx context.Context, traceID string, caller Caller) ([]models.Account, error) {
	accounts, err := s.accountRepo.ListByUser(ctx, s.db, caller.ID)
	if err != nil {
		return nil, dbError(traceID, s.logger, err)
	}
	return accounts, nil
}

func (s *AccountServiceImpl) GetAccount(ctx context.Context, traceID string, caller Caller, accountID uuid.UUID) (models.Account, error) {
	account, err := s.accountRepo.FindByID(ctx, s.db, accountID)
	if err != nil {
		return models.Account{}, dbError(traceID, s.logger, err)
	}
	if !caller.CanSee(account.UserID) {
		return models.Account{}, notFound("account")
	}
	return account, nil
}

func (s *AccountServiceImpl) ListTransfers(ctx context.Context, traceID string, caller Caller, accountID *uuid.UUID) ([]models.Transfer, error) {
	if accountID != nil {
		if _, err := s.GetAccount(ctx, traceID, caller, *accountID); err != nil {
			return nil, err
		}
	}
	transfers, err := s.transferRepo.ListByUser(ctx, s.db, caller.ID, accountID, defaultListLimit)
	if err != nil {
		return nil, dbError(traceID, s.logger, err)
	}
	return transfers, nil
}

func (s *AccountServiceImpl) ListNotifications(ctx context.Context, traceID string, caller Caller) ([]models.Notification, error) {
	notifications, err := s.notificationRepo.ListByUser(ctx, s.db, caller.ID, defaultListLimit)
	if err != nil {
		return nil, dbError(traceID, s.logger, err)
	}
	return notifications, nil
}

func (s *AccountServiceImpl) UpdateKycStatus(ctx context.Context, traceID string, admin Caller, userID uuid.UUID, status string) (models.Profile, error) {
	next := models.KycStatus(status)
	if !next.Valid() {
		return models.Profile{}, invalidInput("unknown kyc status")
	}
	if err := s.profileRepo.UpdateKycStatus(ctx, s.db, userID, next); err != nil {
		return models.Profile{}, dbError(traceID, s.logger, err)
	}
	profile, err := s.profileRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		return models.Profile{}, dbError(traceID, s.logger, err)
	}
	s.logger.Info("kyc_status_updated",
		zap.String(pkg.TraceId, traceID),
		zap.String(pkg.UserId, userID.String()),
		zap.String("admin_id", admin.ID.String()),
		zap.String("status", status))

	s.notifier.Changed(ctx, change(tableProfiles, views.ActionUpdate, userID, userID))
	s.notifier.Emit(ctx, event(traceID, pkg.EventKycStatusChanged, userID, userID,
		"Identity verification update", "Your verification status is now "+status+".", nil))
	return profile, nil
}
