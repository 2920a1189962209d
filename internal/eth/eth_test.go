package eth

import (
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

func signMessage(t *testing.T, message string) (signature string, address string) {
	t.Helper()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	// Present the signature the way wallets do, with V in {27, 28}.
	sig[crypto.RecoveryIDOffset] += 27

	return hexutil.Encode(sig), crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func TestVerifyPersonalSignature_Valid(t *testing.T) {
	msg := SignInMessage("emptyinbox.me", "https://emptyinbox.me/tos", "0xabc", "123456789", time.Unix(1724800000, 0))
	sig, addr := signMessage(t, msg)

	if !VerifyPersonalSignature(msg, sig, addr) {
		t.Error("valid signature rejected")
	}
	// Case-insensitive address comparison.
	if !VerifyPersonalSignature(msg, sig, strings.ToLower(addr)) {
		t.Error("lowercased address rejected")
	}
}

func TestVerifyPersonalSignature_WrongSigner(t *testing.T) {
	msg := "sign me"
	sig, _ := signMessage(t, msg)
	_, other := signMessage(t, msg)

	if VerifyPersonalSignature(msg, sig, other) {
		t.Error("signature accepted for a different address")
	}
}

func TestVerifyPersonalSignature_TamperedMessage(t *testing.T) {
	sig, addr := signMessage(t, "original")

	if VerifyPersonalSignature("tampered", sig, addr) {
		t.Error("signature accepted for a different message")
	}
}

func TestVerifyPersonalSignature_Malformed(t *testing.T) {
	cases := []string{
		"",
		"not-hex",
		"0x1234",
		"0x" + strings.Repeat("ff", 65), // recovery ID out of range
	}
	for _, sig := range cases {
		if VerifyPersonalSignature("msg", sig, "0x0000000000000000000000000000000000000001") {
			t.Errorf("malformed signature %q accepted", sig)
		}
	}
}

func TestNonceFromMessage(t *testing.T) {
	msg := SignInMessage("emptyinbox.me", "https://emptyinbox.me/tos", "0xabc", "987654321", time.Now())
	if got := NonceFromMessage(msg); got != "987654321" {
		t.Errorf("NonceFromMessage = %q, want %q", got, "987654321")
	}
	if got := NonceFromMessage("no nonce here"); got != "" {
		t.Errorf("NonceFromMessage on nonce-free text = %q, want empty", got)
	}
}

func TestValidAddress(t *testing.T) {
	if !ValidAddress("0x742d35Cc6634C0532925a3b8D9DDdB4D1f0B1b69") {
		t.Error("well-formed address rejected")
	}
	for _, bad := range []string{"", "0x123", "742d35Cc6634C0532925a3b8D9DDdB4D1f0B1b69", "0xZZZd35Cc6634C0532925a3b8D9DDdB4D1f0B1b69"} {
		if ValidAddress(bad) {
			t.Errorf("address %q accepted", bad)
		}
	}
}
