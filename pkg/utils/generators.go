package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
)

const (
	AccountNumberLength = 10
	CardNumberLength    = 16
)

// network prefixes (IIN) used when issuing simulated cards
var cardPrefixes = map[string]string{
	"visa":       "4",
	"mastercard": "51",
}

// RandomDigits returns n digits drawn from crypto/rand.
func RandomDigits(n int) (string, error) {
	var sb strings.Builder
	sb.Grow(n)
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}
	return sb.String(), nil
}

// GenerateAccountNumber returns a 10 digit account number that never starts with zero.
// Uniqueness is enforced by the accounts.account_number constraint; callers retry on collision.
func GenerateAccountNumber() (string, error) {
	first, err := rand.Int(rand.Reader, big.NewInt(9))
	if err != nil {
		return "", err
	}
	rest, err := RandomDigits(AccountNumberLength - 1)
	if err != nil {
		return "", err
	}
	return string(byte('1'+first.Int64())) + rest, nil
}

// GenerateCardNumber returns a Luhn-valid 16 digit number for the given network.
func GenerateCardNumber(network string) (string, error) {
	prefix, ok := cardPrefixes[strings.ToLower(network)]
	if !ok {
		return "", errors.New("unsupported card network")
	}
	body, err := RandomDigits(CardNumberLength - len(prefix) - 1)
	if err != nil {
		return "", err
	}
	partial := prefix + body
	return partial + string(byte('0'+luhnCheckDigit(partial))), nil
}

// LuhnValid reports whether number passes the Luhn checksum.
func LuhnValid(number string) bool {
	if len(number) < 2 {
		return false
	}
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func luhnCheckDigit(partial string) int {
	sum := 0
	double := true
	for i := len(partial) - 1; i >= 0; i-- {
		d := int(partial[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return (10 - sum%10) % 10
}

// GenerateWalletAddress returns a simulated hex wallet address for symbol.
func GenerateWalletAddress(symbol string) (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToLower(symbol) + "_0x" + hex.EncodeToString(buf), nil
}
