package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	"github.com/emptyinbox/emptyinbox/core"
	"github.com/emptyinbox/emptyinbox/internal/passkey"
	"github.com/emptyinbox/emptyinbox/ports"
)

// PasskeyService handles WebAuthn ceremonies: registration with a chosen
// username and usernameless (discoverable) authentication.
type PasskeyService struct {
	store    ports.Store
	sessions *SessionManager
	eventPub ports.EventPublisher
	logger   *slog.Logger
	rp       *webauthn.WebAuthn

	challengeTTL time.Duration
}

// NewPasskeyService creates a new passkey service around a configured
// relying party.
func NewPasskeyService(
	store ports.Store,
	sessions *SessionManager,
	eventPub ports.EventPublisher,
	logger *slog.Logger,
	rp *webauthn.WebAuthn,
	challengeTTL time.Duration,
) *PasskeyService {
	if challengeTTL == 0 {
		challengeTTL = DefaultChallengeTTL
	}
	return &PasskeyService{
		store:        store,
		sessions:     sessions,
		eventPub:     eventPub,
		logger:       logger.With("component", "passkey"),
		rp:           rp,
		challengeTTL: challengeTTL,
	}
}

func validUsername(username string) bool {
	return username != "" && len(username) <= 64
}

// UsernameStatus reports what a username is already bound to.
type UsernameStatus struct {
	Exists     bool
	HasPasskey bool
}

// CheckUsername reports whether a username is taken and whether the
// owning account already holds passkey credentials.
func (s *PasskeyService) CheckUsername(ctx context.Context, username string) (*UsernameStatus, error) {
	if !validUsername(username) {
		return nil, core.ErrInvalidRequest
	}
	account, err := s.store.GetAccountByUsername(ctx, username)
	if errors.Is(err, core.ErrNotFound) {
		return &UsernameStatus{}, nil
	}
	if err != nil {
		return nil, err
	}

	creds, err := s.store.ListCredentials(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	return &UsernameStatus{Exists: true, HasPasskey: len(creds) > 0}, nil
}

// BeginRegistration starts a credential creation ceremony for the
// username. A new username registers a prospect whose user handle becomes
// the account ID on completion; an existing passkey account adds another
// credential, with its current ones excluded from re-registration.
func (s *PasskeyService) BeginRegistration(ctx context.Context, username string) (*protocol.CredentialCreation, error) {
	if !validUsername(username) {
		return nil, core.ErrInvalidRequest
	}

	var user *passkey.User
	var opts []webauthn.RegistrationOption

	account, err := s.store.GetAccountByUsername(ctx, username)
	switch {
	case err == nil:
		creds, err := s.store.ListCredentials(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		exclusions := make([]protocol.CredentialDescriptor, 0, len(creds))
		for _, c := range creds {
			exclusions = append(exclusions, protocol.CredentialDescriptor{
				Type:         protocol.PublicKeyCredentialType,
				CredentialID: c.CredentialID,
			})
		}
		user = passkey.NewUser(account, creds)
		opts = append(opts, webauthn.WithExclusions(exclusions))
	case errors.Is(err, core.ErrNotFound):
		user = passkey.NewProspect([]byte(uuid.New().String()), username)
	default:
		return nil, err
	}

	options, sessionData, err := s.rp.BeginRegistration(user, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to begin registration: %w", err)
	}

	if err := s.storeChallenge(ctx, username, core.OpRegistration, sessionData); err != nil {
		return nil, err
	}
	return options, nil
}

// FinishRegistration completes a creation ceremony. The challenge is
// consumed, the account is created if the username was new, the
// credential is stored, and a session is issued, all in one transaction.
func (s *PasskeyService) FinishRegistration(ctx context.Context, username string, parsed *protocol.ParsedCredentialCreationData) (*core.Identity, error) {
	if !validUsername(username) {
		return nil, core.ErrInvalidRequest
	}

	now := time.Now()
	var identity *core.Identity
	err := s.store.WithinTx(ctx, func(tx ports.Tx) error {
		sessionData, challengeID, err := s.consumeChallenge(ctx, tx,
			parsed.Response.CollectedClientData.Challenge, core.OpRegistration, &username, now)
		if err != nil {
			return err
		}

		account, err := tx.GetAccountByUsername(ctx, username)
		isNew := errors.Is(err, core.ErrNotFound)
		if err != nil && !isNew {
			return err
		}

		var user *passkey.User
		if isNew {
			user = passkey.NewProspect(sessionData.UserID, username)
		} else {
			creds, err := tx.ListCredentials(ctx, account.ID)
			if err != nil {
				return err
			}
			user = passkey.NewUser(account, creds)
		}

		cred, err := s.rp.CreateCredential(user, *sessionData, parsed)
		if err != nil {
			s.logger.Debug("credential creation rejected", "username", username, "error", err)
			return core.ErrInvalidSignature
		}

		if err := tx.DeletePasskeyChallenge(ctx, challengeID); err != nil {
			return err
		}

		if isNew {
			account, err = s.createPasskeyAccount(ctx, tx, string(sessionData.UserID), username, now)
			if err != nil {
				return err
			}
		}

		if err := tx.CreateCredential(ctx, passkey.ToCredential(account.ID, cred, now)); err != nil {
			return fmt.Errorf("failed to store credential: %w", err)
		}

		session, err := s.sessions.Create(ctx, tx, account.ID, now)
		if err != nil {
			return err
		}

		identity = &core.Identity{Account: account, Session: session, Method: core.MethodPasskey}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.eventPub.PublishLogin(ctx, identity.Account.ID, string(core.MethodPasskey)); err != nil {
		s.logger.Warn("failed to publish login event", "error", err)
	}
	return identity, nil
}

// BeginAuthentication starts a usernameless assertion ceremony. The
// browser picks a discoverable credential; the server identifies the
// account from the asserted credential ID on completion.
func (s *PasskeyService) BeginAuthentication(ctx context.Context) (*protocol.CredentialAssertion, error) {
	options, sessionData, err := s.rp.BeginDiscoverableLogin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin authentication: %w", err)
	}

	if err := s.storeChallenge(ctx, "", core.OpAuthentication, sessionData); err != nil {
		return nil, err
	}
	return options, nil
}

// FinishAuthentication completes an assertion ceremony and logs the
// credential's account in. A sign count that fails to advance marks a
// possible cloned authenticator and rejects the login outright.
func (s *PasskeyService) FinishAuthentication(ctx context.Context, parsed *protocol.ParsedCredentialAssertionData) (*core.Identity, error) {
	now := time.Now()
	var identity *core.Identity
	err := s.store.WithinTx(ctx, func(tx ports.Tx) error {
		sessionData, challengeID, err := s.consumeChallenge(ctx, tx,
			parsed.Response.CollectedClientData.Challenge, core.OpAuthentication, nil, now)
		if err != nil {
			return err
		}

		stored, err := tx.GetCredential(ctx, parsed.RawID)
		if err != nil {
			return err
		}

		account, err := tx.GetAccount(ctx, stored.AccountID)
		if err != nil {
			return err
		}
		creds, err := tx.ListCredentials(ctx, account.ID)
		if err != nil {
			return err
		}
		user := passkey.NewUser(account, creds)

		validated, err := s.rp.ValidateDiscoverableLogin(
			func(rawID, userHandle []byte) (webauthn.User, error) {
				if string(userHandle) != account.ID {
					return nil, core.ErrCredentialNotFound
				}
				return user, nil
			}, *sessionData, parsed)
		if err != nil {
			s.logger.Debug("assertion rejected", "account_id", account.ID, "error", err)
			return core.ErrInvalidSignature
		}
		if validated.Authenticator.CloneWarning {
			s.logger.Warn("sign count regression, possible cloned authenticator",
				"account_id", account.ID)
			return core.ErrInvalidSignature
		}

		if err := tx.UpdateCredentialUsage(ctx, stored.CredentialID, validated.Authenticator.SignCount, now); err != nil {
			return err
		}
		if err := tx.DeletePasskeyChallenge(ctx, challengeID); err != nil {
			return err
		}

		session, err := s.sessions.Create(ctx, tx, account.ID, now)
		if err != nil {
			return err
		}

		identity = &core.Identity{Account: account, Session: session, Method: core.MethodPasskey}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.eventPub.PublishLogin(ctx, identity.Account.ID, string(core.MethodPasskey)); err != nil {
		s.logger.Warn("failed to publish login event", "error", err)
	}
	return identity, nil
}

// storeChallenge persists ceremony state so completion can run on any
// instance and each challenge can be consumed exactly once.
func (s *PasskeyService) storeChallenge(ctx context.Context, username string, op core.ChallengeOp, sessionData *webauthn.SessionData) error {
	raw, err := passkey.MarshalSession(sessionData)
	if err != nil {
		return fmt.Errorf("failed to serialize ceremony state: %w", err)
	}

	now := time.Now()

	// Opportunistic purge, mirroring wallet challenge issuance.
	if _, err := s.store.DeleteExpiredPasskeyChallenges(ctx, now); err != nil {
		s.logger.Warn("failed to purge expired challenges", "error", err)
	}

	challenge := &core.PasskeyChallenge{
		ID:          uuid.New().String(),
		Username:    username,
		Challenge:   sessionData.Challenge,
		Operation:   op,
		SessionData: raw,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.challengeTTL),
	}
	if err := s.store.CreatePasskeyChallenge(ctx, challenge); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

// consumeChallenge looks up the pending ceremony matching the
// client-echoed challenge value and returns its state. The caller deletes
// the row once the ceremony outcome is known.
func (s *PasskeyService) consumeChallenge(ctx context.Context, tx ports.Tx, challengeValue string, op core.ChallengeOp, username *string, now time.Time) (*webauthn.SessionData, string, error) {
	stored, err := tx.FindPasskeyChallenge(ctx, challengeValue, op, username, now)
	if err != nil {
		return nil, "", err
	}

	sessionData, err := passkey.UnmarshalSession(stored.SessionData)
	if err != nil {
		return nil, "", fmt.Errorf("failed to restore ceremony state: %w", err)
	}
	return sessionData, stored.ID, nil
}

func (s *PasskeyService) createPasskeyAccount(ctx context.Context, tx ports.Tx, id, username string, now time.Time) (*core.Account, error) {
	apiKey, err := NewAPIKey()
	if err != nil {
		return nil, err
	}
	account := &core.Account{
		ID:         id,
		Username:   username,
		APIKey:     apiKey,
		InboxQuota: core.StartingQuota,
		CreatedAt:  now,
	}
	if err := tx.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}
