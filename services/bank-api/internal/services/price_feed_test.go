package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseStaticPrices(t *testing.T) {
	prices, err := ParseStaticPrices("btc=65000, ETH = 3200.5,,")
	require.NoError(t, err)
	assert.Equal(t, "65000", prices["BTC"].String())
	assert.Equal(t, "3200.5", prices["ETH"].String())

	for _, raw := range []string{"", "BTC", "BTC=abc", "BTC=0", "BTC=-1"} {
		_, err := ParseStaticPrices(raw)
		assert.Error(t, err, raw)
	}
}

func TestPriceFeed_UsesStaticWithoutURL(t *testing.T) {
	static, err := ParseStaticPrices("BTC=65000,ETH=3200")
	require.NoError(t, err)
	feed := NewPriceFeed(zap.NewNop(), "", nil, time.Minute, static)

	prices, err := feed.Prices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, static, prices)
}

func TestPriceFeed_MergesRemoteWithStatic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"btc":"70000","sol":"150","bad":"-3"}`))
	}))
	defer srv.Close()

	static, err := ParseStaticPrices("BTC=65000,ETH=3200")
	require.NoError(t, err)
	feed := NewPriceFeed(zap.NewNop(), srv.URL, nil, time.Minute, static)

	prices, err := feed.Prices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "70000", prices["BTC"].String())
	assert.Equal(t, "150", prices["SOL"].String())
	assert.Equal(t, "3200", prices["ETH"].String())
	assert.NotContains(t, prices, "BAD")
}

func TestPriceFeed_FallsBackWhenRemoteFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	static, err := ParseStaticPrices("BTC=65000")
	require.NoError(t, err)
	feed := NewPriceFeed(zap.NewNop(), srv.URL, nil, time.Minute, static)

	prices, err := feed.Prices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, static, prices)
}
