package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emptyinbox/emptyinbox/core"
	"github.com/emptyinbox/emptyinbox/internal/eth"
	"github.com/emptyinbox/emptyinbox/ports"
)

// DefaultChallengeTTL is how long an issued sign-in challenge stays
// verifiable.
const DefaultChallengeTTL = 5 * time.Minute

// AuthService handles wallet sign-in: challenge issuance, signature
// verification, lazy account creation, and logout.
type AuthService struct {
	store    ports.Store
	sessions *SessionManager
	eventPub ports.EventPublisher
	logger   *slog.Logger

	domain       string
	tosURL       string
	challengeTTL time.Duration
}

// NewAuthService creates a new wallet authentication service.
func NewAuthService(
	store ports.Store,
	sessions *SessionManager,
	eventPub ports.EventPublisher,
	logger *slog.Logger,
	domain, tosURL string,
	challengeTTL time.Duration,
) *AuthService {
	if challengeTTL == 0 {
		challengeTTL = DefaultChallengeTTL
	}
	return &AuthService{
		store:        store,
		sessions:     sessions,
		eventPub:     eventPub,
		logger:       logger.With("component", "auth"),
		domain:       domain,
		tosURL:       tosURL,
		challengeTTL: challengeTTL,
	}
}

// CreateChallenge issues a fresh sign-in challenge for the address. The
// returned message embeds the address exactly as submitted; the challenge
// row is keyed by the lowercase form so verification is case-insensitive.
func (s *AuthService) CreateChallenge(ctx context.Context, address string) (*core.Challenge, error) {
	if !eth.ValidAddress(address) {
		return nil, core.ErrInvalidAddress
	}

	nonce, err := newNonce()
	if err != nil {
		return nil, err
	}

	now := time.Now()

	// Opportunistic purge; the timer-driven sweeper does the same on its
	// own schedule.
	if _, err := s.store.DeleteExpiredChallenges(ctx, now); err != nil {
		s.logger.Warn("failed to purge expired challenges", "error", err)
	}

	normalized := eth.NormalizeAddress(address)
	challenge := &core.Challenge{
		ID:        fmt.Sprintf("challenge:%s:%s", normalized, nonce),
		Address:   normalized,
		Nonce:     nonce,
		Message:   eth.SignInMessage(s.domain, s.tosURL, address, nonce, now),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.challengeTTL),
	}

	if err := s.store.CreateChallenge(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}
	return challenge, nil
}

// Verify checks a signed challenge and logs the wallet in. On success the
// challenge is consumed and a new session replaces any existing one for
// the account, all within a single transaction. Concurrent verifications
// of the same challenge produce exactly one winner.
func (s *AuthService) Verify(ctx context.Context, address, message, signature string) (*core.Identity, error) {
	if !eth.ValidAddress(address) {
		return nil, core.ErrInvalidAddress
	}

	nonce := eth.NonceFromMessage(message)
	if nonce == "" {
		return nil, core.ErrInvalidRequest
	}

	now := time.Now()
	normalized := eth.NormalizeAddress(address)

	var identity *core.Identity
	err := s.store.WithinTx(ctx, func(tx ports.Tx) error {
		challenge, err := tx.GetChallenge(ctx, normalized, nonce, now)
		if err != nil {
			return err
		}

		// The client must sign the exact text we issued.
		if challenge.Message != message {
			return core.ErrChallengeNotFound
		}

		if !eth.VerifyPersonalSignature(message, signature, address) {
			return core.ErrInvalidSignature
		}

		// Consume before creating the session; losing the delete race
		// means another request already logged this challenge in.
		if err := tx.DeleteChallenge(ctx, challenge.ID); err != nil {
			return err
		}

		account, err := tx.GetAccount(ctx, normalized)
		if errors.Is(err, core.ErrNotFound) {
			account, err = s.createWalletAccount(ctx, tx, normalized, now)
		}
		if err != nil {
			return err
		}

		session, err := s.sessions.Create(ctx, tx, account.ID, now)
		if err != nil {
			return err
		}

		identity = &core.Identity{Account: account, Session: session, Method: core.MethodWallet}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.eventPub.PublishLogin(ctx, identity.Account.ID, string(core.MethodWallet)); err != nil {
		s.logger.Warn("failed to publish login event", "error", err)
	}
	return identity, nil
}

func (s *AuthService) createWalletAccount(ctx context.Context, tx ports.Tx, id string, now time.Time) (*core.Account, error) {
	apiKey, err := NewAPIKey()
	if err != nil {
		return nil, err
	}
	account := &core.Account{
		ID:         id,
		APIKey:     apiKey,
		InboxQuota: core.StartingQuota,
		CreatedAt:  now,
	}
	if err := tx.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

// Profile carries everything the account page shows for a logged-in user.
type Profile struct {
	Account  *core.Account
	Method   core.AuthMethod
	Session  *core.Session
	Payments []*core.Payment
}

// Profile assembles the account view for an authenticated identity.
func (s *AuthService) Profile(ctx context.Context, identity *core.Identity) (*Profile, error) {
	payments, err := s.store.ListConfirmedPayments(ctx, identity.Account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return &Profile{
		Account:  identity.Account,
		Method:   identity.Method,
		Session:  identity.Session,
		Payments: payments,
	}, nil
}

// Logout revokes the identity's session. Revoking twice is harmless.
func (s *AuthService) Logout(ctx context.Context, identity *core.Identity) error {
	if err := s.sessions.Revoke(ctx, identity.Session.Token); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	// The session is already gone from the store, which is the critical
	// part; a publish failure only delays cross-instance notification.
	if err := s.eventPub.PublishLogout(ctx, identity.Account.ID, identity.Session.Token); err != nil {
		s.logger.Warn("failed to publish logout event", "error", err)
	}
	return nil
}
