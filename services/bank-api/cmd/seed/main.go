package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/nimeshabuddhika/resilient-banking/pkg/auth"
	"github.com/nimeshabuddhika/resilient-banking/pkg/database"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
	"github.com/nimeshabuddhika/resilient-banking/pkg/repositories"
	"github.com/nimeshabuddhika/resilient-banking/pkg/utils"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/configs"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// main seeds customers, one admin, their accounts and crypto wallets, then
// prints a bearer token per seeded profile for local testing.
func main() {
	noOfUsers := flag.Int("noOfUsers", 10, "Number of customers to seed")
	minAccountBalance := flag.Float64("minBalance", 500.0, "Min checking balance")
	maxAccountBalance := flag.Float64("maxBalance", 5000.0, "Max checking balance")
	tokenTTL := flag.Duration("tokenTtl", 24*time.Hour, "Lifetime of printed tokens")

	flag.Parse()

	pkg.InitLogger("bank-seed")
	logger := pkg.Logger
	defer logger.Sync()

	cfg, err := configs.Load(logger)
	if err != nil {
		logger.Fatal("failed_to_load_config", zap.Error(err))
	}

	dbConfig := database.Config{
		PrimaryDSN: cfg.PrimaryDbAddr,
		MaxConns:   cfg.MaxDbCons,
		MinConns:   cfg.MinDbCons,
	}
	ctx := context.Background()
	db, closer, err := database.New(ctx, logger, dbConfig)
	if err != nil {
		logger.Fatal("failed_to_init_db", zap.Error(err))
	}
	defer closer()

	if err := database.RunMigrations(logger, cfg.PrimaryDbAddr); err != nil {
		logger.Fatal("failed_to_run_database_migrations", zap.Error(err))
	}

	profileRepo := repositories.NewProfileRepository()
	accountRepo := repositories.NewAccountRepository()
	walletRepo := repositories.NewWalletRepository()
	tokens := auth.NewTokenManager(cfg.JwtSecret, cfg.JwtIssuer)

	minBal, maxBal := *minAccountBalance, *maxAccountBalance
	if minBal > maxBal {
		minBal, maxBal = maxBal, minBal
	}

	var seeded []models.Profile
	err = db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		admin := models.Profile{
			ID:        uuid.New(),
			Email:     "admin@resilient.bank",
			FullName:  "Back Office",
			Role:      pkg.RoleAdmin,
			KycStatus: models.KycVerified,
		}
		if err := profileRepo.Upsert(ctx, tx, &admin); err != nil {
			return err
		}
		seeded = append(seeded, admin)

		for i := 1; i <= *noOfUsers; i++ {
			profile := models.Profile{
				ID:        uuid.New(),
				Email:     fmt.Sprintf("customer_%d@resilient.bank", i),
				FullName:  fmt.Sprintf("Customer %d", i),
				Role:      pkg.RoleUser,
				KycStatus: models.KycVerified,
			}
			if err := profileRepo.Upsert(ctx, tx, &profile); err != nil {
				return err
			}
			seeded = append(seeded, profile)

			balance := decimal.NewFromFloat(minBal + rand.Float64()*(maxBal-minBal)).Round(2)
			for _, acc := range []struct {
				kind    models.AccountType
				balance decimal.Decimal
			}{
				{models.PersonalChecking, balance},
				{models.PersonalSavings, decimal.Zero},
			} {
				number, err := utils.GenerateAccountNumber()
				if err != nil {
					return err
				}
				if err := accountRepo.Create(ctx, tx, &models.Account{
					UserID:        profile.ID,
					AccountNumber: number,
					RoutingNumber: models.DefaultRoutingNumber,
					Type:          acc.kind,
					Balance:       acc.balance,
					Status:        models.AccountActive,
					Currency:      cfg.DefaultCurrency,
				}); err != nil {
					return err
				}
			}

			for _, symbol := range []string{"BTC", "ETH"} {
				address, err := utils.GenerateWalletAddress(symbol)
				if err != nil {
					return err
				}
				if err := walletRepo.Create(ctx, tx, &models.CryptoWallet{
					UserID:  profile.ID,
					Symbol:  symbol,
					Balance: decimal.NewFromFloat(rand.Float64()).Truncate(8),
					Address: address,
				}); err != nil {
					return err
				}
			}
			logger.Info("customer_seeded", zap.Int("i", i), zap.String("user_id", profile.ID.String()))
		}
		return nil
	})
	if err != nil {
		logger.Fatal("failed_to_seed_data", zap.Error(err))
	}

	for _, p := range seeded {
		token, err := tokens.Issue(p.ID, p.Email, p.Role, *tokenTTL)
		if err != nil {
			logger.Fatal("failed_to_issue_token", zap.Error(err))
		}
		fmt.Printf("%s\t%s\t%s\n", p.Role, p.Email, token)
	}
	logger.Info("data_seeded_successfully", zap.Int("profiles", len(seeded)))
}
