package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/emptyinbox/emptyinbox/internal/eth"
)

// NewSessionToken returns 256 bits of fresh randomness, hex encoded
// (64 characters). Tokens are opaque; nothing is derived from account
// state.
func NewSessionToken() (string, error) {
	return randomHex(32)
}

// NewAPIKey returns the long-lived account secret: 128 bits, hex encoded
// (32 characters).
func NewAPIKey() (string, error) {
	return randomHex(16)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// newNonce draws a nine-digit numeric nonce from the wallet challenge
// range.
func newNonce() (string, error) {
	span := big.NewInt(eth.NonceMax - eth.NonceMin + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return n.Add(n, big.NewInt(eth.NonceMin)).String(), nil
}
