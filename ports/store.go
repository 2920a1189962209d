package ports

import (
	"context"
	"time"

	"github.com/emptyinbox/emptyinbox/core"
)

// Tx is the set of durable operations available inside a unit of work.
// Lookups that miss return core.ErrNotFound.
type Tx interface {
	// Accounts
	CreateAccount(ctx context.Context, account *core.Account) error
	GetAccount(ctx context.Context, id string) (*core.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*core.Account, error)
	GetAccountByAPIKey(ctx context.Context, apiKey string) (*core.Account, error)
	// AdjustQuota adds delta to the account's inbox quota. A decrement
	// that would take the quota below zero fails with
	// core.ErrQuotaExhausted and leaves the row untouched.
	AdjustQuota(ctx context.Context, accountID string, delta int) error

	// Wallet challenges
	CreateChallenge(ctx context.Context, challenge *core.Challenge) error
	GetChallenge(ctx context.Context, address, nonce string, now time.Time) (*core.Challenge, error)
	DeleteChallenge(ctx context.Context, id string) error

	// Passkey challenges
	CreatePasskeyChallenge(ctx context.Context, challenge *core.PasskeyChallenge) error
	// FindPasskeyChallenge matches on the base64url challenge value and
	// operation. username is nil for the usernameless lookup, which must
	// only match rows stored without a username.
	FindPasskeyChallenge(ctx context.Context, challenge string, op core.ChallengeOp, username *string, now time.Time) (*core.PasskeyChallenge, error)
	DeletePasskeyChallenge(ctx context.Context, id string) error

	// Sessions
	CreateSession(ctx context.Context, session *core.Session) error
	GetSession(ctx context.Context, token string) (*core.Session, error)
	LatestSession(ctx context.Context, accountID string, now time.Time) (*core.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteAccountSessions(ctx context.Context, accountID string) error

	// Passkey credentials
	CreateCredential(ctx context.Context, cred *core.PasskeyCredential) error
	GetCredential(ctx context.Context, credentialID []byte) (*core.PasskeyCredential, error)
	ListCredentials(ctx context.Context, accountID string) ([]*core.PasskeyCredential, error)
	UpdateCredentialUsage(ctx context.Context, credentialID []byte, signCount uint32, usedAt time.Time) error

	// Payments
	CreatePayment(ctx context.Context, payment *core.Payment) error
	GetPayment(ctx context.Context, id, accountID string) (*core.Payment, error)
	UpdatePayment(ctx context.Context, payment *core.Payment) error
	ListConfirmedPayments(ctx context.Context, accountID string) ([]*core.Payment, error)

	// Mailboxes
	CreateInbox(ctx context.Context, inbox *core.Inbox) error
	InboxExists(ctx context.Context, address string) (bool, error)
	ListInboxes(ctx context.Context, accountID string) ([]string, error)
	ListAllInboxes(ctx context.Context) ([]string, error)
	SaveMessage(ctx context.Context, msg *core.Message) error
	ListMessages(ctx context.Context, accountID string) ([]*core.Message, error)
	GetMessage(ctx context.Context, accountID, messageID string) (*core.Message, error)

	// Expiry sweep; each returns the number of rows removed.
	DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredPasskeyChallenges(ctx context.Context, now time.Time) (int64, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Store is the durable storage port. Operations invoked directly on the
// Store auto-commit; WithinTx groups several into one atomic unit that
// rolls back entirely if fn returns an error.
type Store interface {
	Tx
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
