package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/nimeshabuddhika/resilient-banking/pkg/auth"
	"github.com/nimeshabuddhika/resilient-banking/pkg/cache"
	"github.com/nimeshabuddhika/resilient-banking/pkg/database"
	middleware "github.com/nimeshabuddhika/resilient-banking/pkg/middlewares"
	"github.com/nimeshabuddhika/resilient-banking/pkg/realtime"
	"github.com/nimeshabuddhika/resilient-banking/pkg/repositories"
	"github.com/nimeshabuddhika/resilient-banking/pkg/utils"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/configs"
	_ "github.com/nimeshabuddhika/resilient-banking/services/bank-api/docs"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/handlers"
	"github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// NewApp wires dependencies, builds the Gin engine, and returns an *http.Server and a cleanup func.
// It reads configuration from environment variables via configs.Load.
func NewApp(ctx context.Context, logger *zap.Logger) (*http.Server, func(), error) {
	// Load config
	cfg, err := configs.Load(logger)
	if err != nil {
		return nil, nil, err
	}
	aesKey, err := utils.DecodeString(cfg.AesKey)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid APP_AES_KEY: %w", err)
	}
	feeRate, err := decimal.NewFromString(cfg.ExchangeFeeRate)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid APP_EXCHANGE_FEE_RATE: %w", err)
	}
	staticPrices, err := services.ParseStaticPrices(cfg.StaticPrices)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid APP_STATIC_PRICES: %w", err)
	}

	// Initialize postgres db
	dbConfig := database.Config{
		PrimaryDSN:  cfg.PrimaryDbAddr,
		ReplicaDSNs: strings.Split(cfg.ReplicaDbAddr, ","),
		MaxConns:    cfg.MaxDbCons,
		MinConns:    cfg.MinDbCons,
	}
	db, disconnect, err := database.New(ctx, logger, dbConfig)
	if err != nil {
		return nil, nil, err
	}

	// Run migrations on primary
	if err := database.RunMigrations(logger, cfg.PrimaryDbAddr); err != nil {
		disconnect()
		return nil, nil, err
	}

	redisClient, closeRedis, err := cache.New(ctx, cache.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err != nil {
		disconnect()
		return nil, nil, err
	}

	publisher, err := services.NewKafkaPublisher(ctx, logger, cfg)
	if err != nil {
		closeRedis()
		disconnect()
		return nil, nil, err
	}

	// Setup dependencies
	hub := realtime.NewHub(redisClient, cfg.RealtimeChannel, logger)
	notifier := services.NewNotifier(logger, publisher, hub)
	tokens := auth.NewTokenManager(cfg.JwtSecret, cfg.JwtIssuer)
	limiter := pkg.NewDistributedLimiter(redisClient, "ratelimit:money", cfg.RateLimitPerSec, cfg.RateLimitBurst,
		cfg.RateLimitWindow, cfg.RateLimitPerWindow, logger)
	prices := services.NewPriceFeed(logger, cfg.PriceFeedURL, redisClient, cfg.PriceCacheTTL, staticPrices)

	profileRepo := repositories.NewProfileRepository()
	accountRepo := repositories.NewAccountRepository()
	transferRepo := repositories.NewTransferRepository()
	applicationRepo := repositories.NewApplicationRepository()
	cardRepo := repositories.NewCardRepository()
	walletRepo := repositories.NewWalletRepository()
	depositRepo := repositories.NewDepositRepository()
	withdrawalRepo := repositories.NewWithdrawalRepository()
	billPayRepo := repositories.NewBillPayRepository()
	supportRepo := repositories.NewSupportRepository()
	notificationRepo := repositories.NewNotificationRepository()

	accountService := services.NewAccountService(logger, db, profileRepo, accountRepo, transferRepo, notificationRepo, notifier)
	transferService := services.NewTransferService(logger, db, accountRepo, transferRepo, notifier)
	billPayService := services.NewBillPayService(logger, db, accountRepo, billPayRepo, notifier)
	applicationService := services.NewApplicationService(logger, db, applicationRepo, accountRepo, cardRepo, aesKey,
		cfg.DefaultCurrency, notifier)
	cardService := services.NewCardService(logger, db, accountRepo, cardRepo, aesKey, notifier)
	exchangeService := services.NewExchangeService(logger, db, walletRepo, prices, feeRate, notifier)
	fundingService := services.NewFundingService(logger, db, accountRepo, depositRepo, withdrawalRepo, notifier)
	supportService := services.NewSupportService(logger, db, supportRepo, notifier)

	baseHandler := handlers.NewBaseHandler(logger, map[string]handlers.Pinger{
		"postgres": db,
		"redis":    handlers.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
	})
	accountHandler := handlers.NewAccountHandler(logger, accountService)
	transferHandler := handlers.NewTransferHandler(logger, transferService)
	billPayHandler := handlers.NewBillPayHandler(logger, billPayService)
	applicationHandler := handlers.NewApplicationHandler(logger, applicationService)
	cardHandler := handlers.NewCardHandler(logger, cardService)
	cryptoHandler := handlers.NewCryptoHandler(logger, exchangeService)
	fundingHandler := handlers.NewFundingHandler(logger, fundingService)
	supportHandler := handlers.NewSupportHandler(logger, supportService)
	adminHandler := handlers.NewAdminHandler(logger, transferService, accountService)
	realtimeHandler := handlers.NewRealtimeHandler(logger, hub)

	// Router
	r := gin.Default()

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.Use(middleware.TraceID())
	api.Use(middleware.Metrics())
	api.Use(middleware.Authenticate(logger, tokens))
	api.Use(middleware.EnsureProfile(logger, accountService))

	accountHandler.RegisterRoutes(api)
	billPayHandler.RegisterRoutes(api)
	applicationHandler.RegisterRoutes(api)
	cardHandler.RegisterRoutes(api)
	cryptoHandler.RegisterRoutes(api)
	fundingHandler.RegisterRoutes(api)
	supportHandler.RegisterRoutes(api)
	realtimeHandler.RegisterRoutes(api)

	// money-moving routes share one per-user budget
	money := api.Group("")
	money.Use(middleware.RateLimit(logger, limiter))
	transferHandler.RegisterRoutes(money)
	billPayHandler.RegisterPaymentRoutes(money)
	cryptoHandler.RegisterExchangeRoutes(money)

	admin := api.Group("/admin")
	admin.Use(middleware.RequireRole(logger, pkg.RoleAdmin))
	adminHandler.RegisterRoutes(admin)
	applicationHandler.RegisterAdminRoutes(admin)
	cardHandler.RegisterAdminRoutes(admin)
	fundingHandler.RegisterAdminRoutes(admin)
	supportHandler.RegisterAdminRoutes(admin)

	baseHandler.RegisterRoutes(r)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	cleanup := func() {
		// flush pending bank events before the pools go away
		publisher.Close()
		closeRedis()
		disconnect()
	}

	return srv, cleanup, nil
}
