package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/resilient-banking/pkg/database"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
	"github.com/shopspring/decimal"
)

const walletColumns = `id, user_id, symbol, balance, address, created_at, updated_at`

// WalletRepository defines the interface for crypto wallet and exchange persistence.
type WalletRepository interface {
	Create(ctx context.Context, db database.DBTX, wallet *models.CryptoWallet) error
	ListByUser(ctx context.Context, db database.DBTX, userID uuid.UUID) ([]models.CryptoWallet, error)
	// FindBySymbolForUpdate locks the user's wallet for symbol.
	FindBySymbolForUpdate(ctx context.Context, db database.DBTX, userID uuid.UUID, symbol string) (models.CryptoWallet, error)
	AdjustBalance(ctx context.Context, db database.DBTX, walletID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	CreateExchange(ctx context.Context, db database.DBTX, exchange *models.CryptoExchange) error
	ListExchanges(ctx context.Context, db database.DBTX, userID uuid.UUID, limit int) ([]models.CryptoExchange, error)
}

type WalletRepositoryImpl struct {
}

func NewWalletRepository() WalletRepository {
	return &WalletRepositoryImpl{}
}

func (r WalletRepositoryImpl) Create(ctx context.Context, db database.DBTX, w *models.CryptoWallet) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return db.QueryRow(ctx, `INSERT INTO crypto_wallets (id, user_id, symbol, balance, address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		w.ID, w.UserID, w.Symbol, w.Balance, w.Address,
	).Scan(&w.CreatedAt, &w.UpdatedAt)
}

func (r WalletRepositoryImpl) ListByUser(ctx context.Context, db database.DBTX, userID uuid.UUID) ([]models.CryptoWallet, error) {
	rows, err := db.Query(ctx, `SELECT `+walletColumns+` FROM crypto_wallets WHERE user_id = $1 ORDER BY symbol`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CryptoWallet, error) {
		return scanWallet(row)
	})
}

func (r WalletRepositoryImpl) FindBySymbolForUpdate(ctx context.Context, db database.DBTX, userID uuid.UUID, symbol string) (models.CryptoWallet, error) {
	return scanWallet(db.QueryRow(ctx, `SELECT `+walletColumns+` FROM crypto_wallets
		WHERE user_id = $1 AND symbol = $2 FOR UPDATE`, userID, symbol))
}

func (r WalletRepositoryImpl) AdjustBalance(ctx context.Context, db database.DBTX, walletID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := db.QueryRow(ctx, `UPDATE crypto_wallets SET balance = balance + $2, updated_at = NOW() WHERE id = $1 RETURNING balance`,
		walletID, delta).Scan(&balance)
	return balance, err
}

func (r WalletRepositoryImpl) CreateExchange(ctx context.Context, db database.DBTX, e *models.CryptoExchange) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return db.QueryRow(ctx, `INSERT INTO crypto_exchanges (id, user_id, from_wallet_id, to_wallet_id, from_symbol,
			to_symbol, from_amount, to_amount, rate, fee_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		e.ID, e.UserID, e.FromWalletID, e.ToWalletID, e.FromSymbol, e.ToSymbol, e.FromAmount, e.ToAmount, e.Rate, e.FeeRate,
	).Scan(&e.CreatedAt)
}

func (r WalletRepositoryImpl) ListExchanges(ctx context.Context, db database.DBTX, userID uuid.UUID, limit int) ([]models.CryptoExchange, error) {
	rows, err := db.Query(ctx, `SELECT id, user_id, from_wallet_id, to_wallet_id, from_symbol, to_symbol,
			from_amount, to_amount, rate, fee_rate, created_at
		FROM crypto_exchanges WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CryptoExchange, error) {
		var e models.CryptoExchange
		err := row.Scan(&e.ID, &e.UserID, &e.FromWalletID, &e.ToWalletID, &e.FromSymbol, &e.ToSymbol,
			&e.FromAmount, &e.ToAmount, &e.Rate, &e.FeeRate, &e.CreatedAt)
		return e, err
	})
}

func scanWallet(row pgx.Row) (models.CryptoWallet, error) {
	var w models.CryptoWallet
	err := row.Scan(&w.ID, &w.UserID, &w.Symbol, &w.Balance, &w.Address, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}
