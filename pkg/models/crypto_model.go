package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CryptoWallet maps to table `crypto_wallets`
type CryptoWallet struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Symbol    string
	Balance   decimal.Decimal
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CryptoExchange maps to table `crypto_exchanges`
type CryptoExchange struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	FromWalletID uuid.UUID
	ToWalletID   uuid.UUID
	FromSymbol   string
	ToSymbol     string
	FromAmount   decimal.Decimal
	ToAmount     decimal.Decimal
	Rate         decimal.Decimal
	FeeRate      decimal.Decimal
	CreatedAt    time.Time
}
