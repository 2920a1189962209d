package eth

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ChainID embedded in every sign-in message.
const ChainID = 1

// NonceMin and NonceMax bound the numeric nonce range, giving nine-digit
// nonces.
const (
	NonceMin = 100_000_000
	NonceMax = 999_999_999
)

var noncePattern = regexp.MustCompile(`(?m)^Nonce: (\d+)$`)

// SignInMessage builds the deterministic text a wallet is asked to sign.
// Verification stores and later byte-compares this exact text, so the
// format must never change between issue and verify.
func SignInMessage(domain, tosURL, address, nonce string, issuedAt time.Time) string {
	return fmt.Sprintf(
		"%s wants you to sign in with your Ethereum account:\n%s\n\n"+
			"I accept the Terms of Service: %s\n\n"+
			"Chain ID: %d\nNonce: %s\nIssued At: %d",
		domain, address, tosURL, ChainID, nonce, issuedAt.Unix(),
	)
}

// NonceFromMessage re-derives the nonce from a client-submitted message.
// Returns "" when the message carries no nonce line.
func NonceFromMessage(message string) string {
	m := noncePattern.FindStringSubmatch(message)
	if m == nil {
		return ""
	}
	return m[1]
}

// ValidAddress reports whether s is a well-formed 0x-prefixed 20-byte hex
// Ethereum address.
func ValidAddress(s string) bool {
	return len(s) == 42 && strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

// NormalizeAddress lowercases an address for use as a stable account ID.
func NormalizeAddress(s string) string {
	return strings.ToLower(s)
}
