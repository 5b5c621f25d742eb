package services

import (
	"context"
	"strings"

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

// cryptoScale matches the NUMERIC(28,8) wallet balances.
const cryptoScale = 8

type ExchangeService interface {
	ListWallets(ctx context.Context, traceID string, caller Caller) ([]models.CryptoWallet, error)
	CreateWallet(ctx context.Context, traceID string, caller Caller, req reqviews.WalletRequest) (models.CryptoWallet, error)
	Prices(ctx context.Context, traceID string) (map[string]decimal.Decimal, error)
	Quote(ctx context.Context, traceID string, req reqviews.ExchangeRequest) (reqviews.Quote, error)
	// Exchange converts between two of the caller's wallets at the quoted rate minus the fee.
	Exchange(ctx context.Context, traceID string, caller Caller, req reqviews.ExchangeRequest) (models.CryptoExchange, error)
	ListExchanges(ctx context.Context, traceID string, caller Caller) ([]models.CryptoExchange, error)
}

type ExchangeServiceImpl struct {
	logger     *zap.Logger
	db         database.Store
	walletRepo repositories.WalletRepository
	prices     PriceSource
	feeRate    decimal.Decimal
	notifier   Notifier
}

func NewExchangeService(logger *zap.Logger, db database.Store, walletRepo repositories.WalletRepository,
	prices PriceSource, feeRate decimal.Decimal, notifier Notifier) ExchangeService {
	return &ExchangeServiceImpl{
		logger:     logger,
		db:         db,
		walletRepo: walletRepo,
		prices:     prices,
		feeRate:    feeRate,
		notifier:   notifier,
	}
}

func (s *ExchangeServiceImpl) ListWallets(ctx context.Context, traceID string, caller Caller) ([]models.CryptoWallet, error) {
	wallets, err := s.walletRepo.ListByUser(ctx, s.db, caller.ID)
	if err != nil {
		return nil, dbError(traceID, s.logger, err)
	}
	return wallets, nil
}

func (s *ExchangeServiceImpl) CreateWallet(ctx context.Context, traceID string, caller Caller, req reqviews.WalletRequest) (models.CryptoWallet, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return models.CryptoWallet{}, missingInformation("symbol")
	}
	prices, err := s.prices.Prices(ctx)
	if err != nil {
		return models.CryptoWallet{}, err
	}
	if _, ok := prices[symbol]; !ok {
		return models.CryptoWallet{}, invalidInput("unsupported symbol " + symbol)
	}
	address, err := utils.GenerateWalletAddress(symbol)
	if err != nil {
		return models.CryptoWallet{}, err
	}
	wallet := models.CryptoWallet{UserID: caller.ID, Symbol: symbol, Balance: decimal.Zero, Address: address}
	if err := s.walletRepo.Create(ctx, s.db, &wallet); err != nil {
		return models.CryptoWallet{}, dbError(traceID, s.logger, err)
	}
	s.logger.Info("wallet_created", zap.String(pkg.TraceId, traceID), zap.String("symbol", symbol))
	s.notifier.Changed(ctx, change(tableWallets, views.ActionInsert, wallet.ID, caller.ID))
	return wallet, nil
}

func (s *ExchangeServiceImpl) Prices(ctx context.Context, traceID string) (map[string]decimal.Decimal, error) {
	prices, err := s.prices.Prices(ctx)
	if err != nil {
		s.logger.Error("price_lookup_failed", zap.String(pkg.TraceId, traceID), zap.Error(err))
		return nil, err
	}
	return prices, nil
}

func (s *ExchangeServiceImpl) Quote(ctx context.Context, traceID string, req reqviews.ExchangeRequest) (reqviews.Quote, error) {
	from, to, amount, err := s.validate(req)
	if err != nil {
		return reqviews.Quote{}, err
	}
	return s.quote(ctx, from, to, amount)
}

// quote computes toAmount = amount * fromPrice / toPrice * (1 - fee).
func (s *ExchangeServiceImpl) quote(ctx context.Context, from, to string, amount decimal.Decimal) (reqviews.Quote, error) {
	prices, err := s.prices.Prices(ctx)
	if err != nil {
		return reqviews.Quote{}, err
	}
	fromPrice, ok := prices[from]
	if !ok {
		return reqviews.Quote{}, invalidInput("unsupported symbol " + from)
	}
	toPrice, ok := prices[to]
	if !ok {
		return reqviews.Quote{}, invalidInput("unsupported symbol " + to)
	}
	toAmount := amount.Mul(fromPrice).Div(toPrice).Mul(decimal.NewFromInt(1).Sub(s.feeRate)).Truncate(cryptoScale)
	return reqviews.Quote{
		From:       from,
		To:         to,
		FromAmount: amount,
		ToAmount:   toAmount,
		FromPrice:  fromPrice,
		ToPrice:    toPrice,
		FeeRate:    s.feeRate,
	}, nil
}

func (s *ExchangeServiceImpl) Exchange(ctx context.Context, traceID string, caller Caller, req reqviews.ExchangeRequest) (models.CryptoExchange, error) {
	from, to, amount, err := s.validate(req)
	if err != nil {
		return models.CryptoExchange{}, err
	}
	q, err := s.quote(ctx, from, to, amount)
	if err != nil {
		return models.CryptoExchange{}, err
	}
	if !q.ToAmount.IsPositive() {
		return models.CryptoExchange{}, invalidInput("amount is too small to exchange")
	}

	exchange := models.CryptoExchange{
		UserID:     caller.ID,
		FromSymbol: from,
		ToSymbol:   to,
		FromAmount: amount,
		ToAmount:   q.ToAmount,
		Rate:       q.FromPrice.Div(q.ToPrice),
		FeeRate:    s.feeRate,
	}
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		wallets := make(map[string]models.CryptoWallet, 2)
		// lock in symbol order, mirroring the account lock ordering
		first, second := from, to
		if second < first {
			first, second = second, first
		}
		for _, symbol := range []string{first, second} {
			w, err := s.walletRepo.FindBySymbolForUpdate(ctx, tx, caller.ID, symbol)
			if isNoRows(err) {
				return notFound(symbol + " wallet")
			}
			if err != nil {
				return err
			}
			wallets[symbol] = w
		}
		src, dst := wallets[from], wallets[to]
		if src.Balance.LessThan(amount) {
			return pkg.NewCodeError(pkg.ErrInsufficientFundsCode)
		}
		if _, err := s.walletRepo.AdjustBalance(ctx, tx, src.ID, amount.Neg()); err != nil {
			return err
		}
		if _, err := s.walletRepo.AdjustBalance(ctx, tx, dst.ID, q.ToAmount); err != nil {
			return err
		}
		exchange.FromWalletID, exchange.ToWalletID = src.ID, dst.ID
		return s.walletRepo.CreateExchange(ctx, tx, &exchange)
	})
	if err != nil {
		return models.CryptoExchange{}, dbError(traceID, s.logger, err)
	}

	s.logger.Info("crypto_exchanged",
		zap.String(pkg.TraceId, traceID),
		zap.String("exchange_id", exchange.ID.String()),
		zap.String("from", from),
		zap.String("to", to),
		zap.String("from_amount", amount.String()),
		zap.String("to_amount", q.ToAmount.String()))
	s.notifier.Changed(ctx,
		change(tableExchanges, views.ActionInsert, exchange.ID, caller.ID),
		change(tableWallets, views.ActionUpdate, exchange.FromWalletID, caller.ID),
		change(tableWallets, views.ActionUpdate, exchange.ToWalletID, caller.ID))
	s.notifier.Emit(ctx, event(traceID, pkg.EventCryptoExchanged, caller.ID, exchange.ID,
		"Exchange completed", "You exchanged "+amount.String()+" "+from+" for "+q.ToAmount.String()+" "+to+".",
		map[string]string{"from": from, "to": to, "fromAmount": amount.String(), "toAmount": q.ToAmount.String()}))
	return exchange, nil
}

func (s *ExchangeServiceImpl) ListExchanges(ctx context.Context, traceID string, caller Caller) ([]models.CryptoExchange, error) {
	exchanges, err := s.walletRepo.ListExchanges(ctx, s.db, caller.ID, defaultListLimit)
	if err != nil {
		return nil, dbError(traceID, s.logger, err)
	}
	return exchanges, nil
}

func (s *ExchangeServiceImpl) validate(req reqviews.ExchangeRequest) (string, string, decimal.Decimal, error) {
	from := strings.ToUpper(strings.TrimSpace(req.From))
	to := strings.ToUpper(strings.TrimSpace(req.To))
	if from == "" {
		return "", "", decimal.Zero, missingInformation("from")
	}
	if to == "" {
		return "", "", decimal.Zero, missingInformation("to")
	}
	if from == to {
		return "", "", decimal.Zero, invalidInput("cannot exchange a symbol for itself")
	}
	if req.Amount == nil {
		return "", "", decimal.Zero, missingInformation("amount")
	}
	amount := *req.Amount
	if !amount.IsPositive() {
		return "", "", decimal.Zero, invalidInput("amount must be greater than zero")
	}
	if !amount.Truncate(cryptoScale).Equal(amount) {
		return "", "", decimal.Zero, invalidInput("amount must have at most eight decimal places")
	}
	return from, to, amount, nil
}
