package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "Zk6IWX04Qm7ThZ5dJi8Xo4zyb8g9wfcxr5jxa1i3JKU="

func TestEncryptDecryptAES(t *testing.T) {
	key, err := DecodeString(testKey)
	require.NoError(t, err)

	encrypted, err := EncryptAES([]byte("4242424242424242"), key)
	require.NoError(t, err)
	assert.NotContains(t, encrypted, "4242424242424242")

	again, err := EncryptAES([]byte("4242424242424242"), key)
	require.NoError(t, err)
	assert.NotEqual(t, encrypted, again, "nonce must differ per call")

	plain, err := DecryptAES(encrypted, key)
	require.NoError(t, err)
	assert.Equal(t, "4242424242424242", string(plain))

	other, err := DecodeString(EncodeString("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	_, err = DecryptAES(encrypted, other)
	assert.Error(t, err)
}

func TestDecodeString_RejectsShortKeys(t *testing.T) {
	_, err := DecodeString(EncodeString("short"))
	assert.Error(t, err)
	_, err = DecodeString("%%%")
	assert.Error(t, err)
}

func TestDecryptAES_Malformed(t *testing.T) {
	key, err := DecodeString(testKey)
	require.NoError(t, err)
	_, err = DecryptAES("bm9wZQ==", key)
	assert.Error(t, err)
}
