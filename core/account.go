package core

import "time"

// StartingQuota is the number of inboxes a freshly created account may
// allocate before topping up.
const StartingQuota = 5

// Account is a durable user record. Wallet accounts use their lowercase
// Ethereum address as the ID; passkey accounts get an opaque generated ID
// and a unique username. Accounts are created lazily on first successful
// verification or registration.
type Account struct {
	ID         string
	Username   string // unique; empty for wallet-only accounts
	APIKey     string // long-lived secret, distinct from session tokens
	InboxQuota int    // never negative; allocation at zero is rejected
	CreatedAt  time.Time
}

// PasskeyCredential is a WebAuthn credential bound to exactly one account.
// An account may hold several (multi-device).
type PasskeyCredential struct {
	CredentialID    []byte // opaque authenticator-assigned ID
	AccountID       string
	PublicKey       []byte // COSE/CBOR-encoded public key material
	AttestationType string
	Transports      []string
	SignCount       uint32 // monotonic; regression is treated as a cloned authenticator
	DeviceType      string
	CreatedAt       time.Time
	LastUsedAt      time.Time
}
