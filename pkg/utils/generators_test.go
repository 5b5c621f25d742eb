package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLuhnValid(t *testing.T) {
	assert.True(t, LuhnValid("4242424242424242"))
	assert.True(t, LuhnValid("79927398713"))
	assert.False(t, LuhnValid("4242424242424241"))
	assert.False(t, LuhnValid("4242-4242"))
	assert.False(t, LuhnValid("7"))
}

func TestGenerateCardNumber(t *testing.T) {
	for network, prefix := range map[string]string{"visa": "4", "MasterCard": "51"} {
		for i := 0; i < 20; i++ {
			number, err := GenerateCardNumber(network)
			require.NoError(t, err)
			assert.Len(t, number, CardNumberLength)
			assert.True(t, strings.HasPrefix(number, prefix), number)
			assert.True(t, LuhnValid(number), number)
		}
	}
	_, err := GenerateCardNumber("amex")
	assert.Error(t, err)
}

func TestGenerateAccountNumber(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		number, err := GenerateAccountNumber()
		require.NoError(t, err)
		assert.Len(t, number, AccountNumberLength)
		assert.NotEqual(t, byte('0'), number[0])
		seen[number] = struct{}{}
	}
	assert.Greater(t, len(seen), 45)
}

func TestGenerateWalletAddress(t *testing.T) {
	address, err := GenerateWalletAddress("BTC")
	require.NoError(t, err)
	assert.Regexp(t, `^btc_0x[0-9a-f]{40}$`, address)
}

func TestMaskCardNumber(t *testing.T) {
	assert.Equal(t, "**** **** **** 4242", MaskCardNumber("4242424242424242"))
	assert.Equal(t, "***", MaskCardNumber("123"))
}
