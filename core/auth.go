package core

import "time"

// Challenge is a wallet sign-in challenge awaiting a signature.
// It is single-use: verification consumes it inside the same transaction
// that creates the resulting session.
type Challenge struct {
	ID        string    // "challenge:{address}:{nonce}"
	Address   string    // Ethereum address the challenge was issued to
	Nonce     string    // Random numeric nonce embedded in the message
	Message   string    // Exact message text the client must sign
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge expires
}

// ChallengeOp tags a passkey challenge with the ceremony it belongs to.
// A registration challenge never satisfies an authentication completion
// and vice versa.
type ChallengeOp string

const (
	OpRegistration   ChallengeOp = "registration"
	OpAuthentication ChallengeOp = "authentication"
)

// PasskeyChallenge is a WebAuthn challenge awaiting ceremony completion.
type PasskeyChallenge struct {
	ID          string      // Generated challenge identifier
	Username    string      // Empty for usernameless (discoverable) authentication
	Challenge   string      // base64url-encoded random challenge
	Operation   ChallengeOp // registration or authentication
	SessionData []byte      // Serialized relying-party ceremony state
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// AuthMethod identifies which credential scheme produced an identity.
// Downstream session and quota logic depends only on the resolved
// account, never on the method tag.
type AuthMethod string

const (
	MethodWallet  AuthMethod = "wallet"
	MethodPasskey AuthMethod = "passkey"
)

// Identity is the canonical result of resolving a request credential.
type Identity struct {
	Account *Account
	Session *Session
	Method  AuthMethod
}
