package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-banking/pkg"
	"github.com/nimeshabuddhika/resilient-banking/pkg/models"
	reqviews "github.com/nimeshabuddhika/resilient-banking/services/bank-api/internal/views"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockPrices struct {
	mock.Mock
}

func (m *mockPrices) Prices(ctx context.Context) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx)
	prices, _ := args.Get(0).(map[string]decimal.Decimal)
	return prices, args.Error(1)
}

func usdPrices() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"BTC": decimal.RequireFromString("65000"),
		"ETH": decimal.RequireFromString("3250"),
	}
}

type exchangeFixture struct {
	bank   *memBank
	prices *mockPrices
	svc    ExchangeService
	user   Caller
}

func newExchangeFixture(t *testing.T) *exchangeFixture {
	bank := newMemBank()
	prices := &mockPrices{}
	prices.On("Prices", mock.Anything).Return(usdPrices(), nil)
	t.Cleanup(func() { prices.AssertExpectations(t) })
	svc := NewExchangeService(zap.NewNop(), &fakeStore{bank: bank}, fakeWallets{bank}, prices,
		decimal.RequireFromString("0.005"), &recordingNotifier{})
	return &exchangeFixture{bank: bank, prices: prices, svc: svc, user: Caller{ID: uuid.New(), Role: pkg.RoleUser}}
}

func (f *exchangeFixture) wallet(symbol, balance string) models.CryptoWallet {
	w := models.CryptoWallet{ID: uuid.New(), UserID: f.user.ID, Symbol: symbol, Balance: decimal.RequireFromString(balance)}
	f.bank.wallets[w.ID] = w
	return w
}

func TestQuote_AppliesRateAndFee(t *testing.T) {
	f := newExchangeFixture(t)

	q, err := f.svc.Quote(context.Background(), "trace", reqviews.ExchangeRequest{From: "btc", To: "eth", Amount: amountOf("0.5")})
	require.NoError(t, err)
	// 0.5 * 65000 / 3250 * 0.995
	assert.Equal(t, "9.95", q.ToAmount.String())
	assert.Equal(t, "BTC", q.From)
	assert.Equal(t, "ETH", q.To)
}

func TestQuote_TruncatesToEightPlaces(t *testing.T) {
	f := newExchangeFixture(t)

	q, err := f.svc.Quote(context.Background(), "trace", reqviews.ExchangeRequest{From: "ETH", To: "BTC", Amount: amountOf("1")})
	require.NoError(t, err)
	// 3250 / 65000 * 0.995 = 0.04975
	assert.Equal(t, "0.04975", q.ToAmount.String())
	assert.LessOrEqual(t, int32(-q.ToAmount.Exponent()), int32(cryptoScale))
}

func TestExchange_MovesBothWallets(t *testing.T) {
	f := newExchangeFixture(t)
	btc := f.wallet("BTC", "1")
	eth := f.wallet("ETH", "0")

	ex, err := f.svc.Exchange(context.Background(), "trace", f.user, reqviews.ExchangeRequest{From: "BTC", To: "ETH", Amount: amountOf("0.5")})
	require.NoError(t, err)
	assert.Equal(t, btc.ID, ex.FromWalletID)
	assert.Equal(t, eth.ID, ex.ToWalletID)
	assert.Equal(t, "20", ex.Rate.String())

	assert.Equal(t, "0.5", f.bank.wallets[btc.ID].Balance.String())
	assert.Equal(t, "9.95", f.bank.wallets[eth.ID].Balance.String())
	assert.Len(t, f.bank.exchanges, 1)
}

func TestExchange_Rejections(t *testing.T) {
	f := newExchangeFixture(t)
	f.wallet("BTC", "0.1")

	_, err := f.svc.Exchange(context.Background(), "trace", f.user, reqviews.ExchangeRequest{From: "BTC", To: "ETH", Amount: amountOf("0.05")})
	assert.True(t, pkg.HasCode(err, pkg.ErrRecordNotFoundCode), "missing destination wallet")

	f.wallet("ETH", "0")
	_, err = f.svc.Exchange(context.Background(), "trace", f.user, reqviews.ExchangeRequest{From: "BTC", To: "ETH", Amount: amountOf("0.2")})
	assert.True(t, pkg.HasCode(err, pkg.ErrInsufficientFundsCode))

	_, err = f.svc.Exchange(context.Background(), "trace", f.user, reqviews.ExchangeRequest{From: "BTC", To: "btc", Amount: amountOf("0.01")})
	assert.True(t, pkg.HasCode(err, pkg.ErrInvalidInputCode))

	_, err = f.svc.Exchange(context.Background(), "trace", f.user, reqviews.ExchangeRequest{From: "BTC", To: "DOGE", Amount: amountOf("0.01")})
	assert.True(t, pkg.HasCode(err, pkg.ErrInvalidInputCode))

	_, err = f.svc.Exchange(context.Background(), "trace", f.user, reqviews.ExchangeRequest{From: "BTC", To: "ETH", Amount: amountOf("0.000000001")})
	assert.True(t, pkg.HasCode(err, pkg.ErrInvalidInputCode))

	assert.Empty(t, f.bank.exchanges)
	assert.Zero(t, f.bank.writes)
}

func TestCreateWallet_OnlyPricedSymbols(t *testing.T) {
	f := newExchangeFixture(t)

	w, err := f.svc.CreateWallet(context.Background(), "trace", f.user, reqviews.WalletRequest{Symbol: " eth "})
	require.NoError(t, err)
	assert.Equal(t, "ETH", w.Symbol)
	assert.True(t, w.Balance.IsZero())
	assert.Contains(t, w.Address, "eth_0x")

	_, err = f.svc.CreateWallet(context.Background(), "trace", f.user, reqviews.WalletRequest{Symbol: "DOGE"})
	assert.True(t, pkg.HasCode(err, pkg.ErrInvalidInputCode))

	_, err = f.svc.CreateWallet(context.Background(), "trace", f.user, reqviews.WalletRequest{Symbol: "ETH"})
	assert.True(t, pkg.HasCode(err, pkg.ErrSQLDuplicateCode))
}
