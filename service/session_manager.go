package service

import (
	"context"
	"errors"
	"time"

	"github.com/emptyinbox/emptyinbox/core"
	"github.com/emptyinbox/emptyinbox/ports"
)

// SessionManager issues, resolves, and revokes session tokens. Each
// account holds at most one active session; issuing a new one purges the
// rest inside the caller's transaction.
type SessionManager struct {
	store ports.Store
	ttl   time.Duration
}

// NewSessionManager creates a session manager with the given session TTL.
func NewSessionManager(store ports.Store, ttl time.Duration) *SessionManager {
	if ttl == 0 {
		ttl = core.DefaultSessionTTL
	}
	return &SessionManager{store: store, ttl: ttl}
}

// TTL returns the configured session lifetime.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Create deletes every existing session for the account and inserts a
// fresh one. It must run inside the same transaction that consumed the
// triggering challenge so a failed verification leaves neither behind.
func (m *SessionManager) Create(ctx context.Context, tx ports.Tx, accountID string, now time.Time) (*core.Session, error) {
	token, err := NewSessionToken()
	if err != nil {
		return nil, err
	}

	if err := tx.DeleteAccountSessions(ctx, accountID); err != nil {
		return nil, err
	}

	session := &core.Session{
		Token:     token,
		AccountID: accountID,
		LoginTime: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := tx.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// resolver is one strategy for turning a raw request credential into an
// identity. Strategies answer core.ErrUnauthenticated to pass the
// credential on to the next one.
type resolver func(ctx context.Context, raw string, now time.Time) (*core.Identity, error)

// Resolve turns a raw credential (cookie value, bearer session token, or
// bearer API key) into an authenticated identity. Strategies are tried
// in a fixed priority order, short-circuiting on the first match.
func (m *SessionManager) Resolve(ctx context.Context, raw string) (*core.Identity, error) {
	if raw == "" {
		return nil, core.ErrUnauthenticated
	}

	now := time.Now()
	for _, resolve := range []resolver{m.resolveSessionToken, m.resolveAPIKey} {
		identity, err := resolve(ctx, raw, now)
		if err == nil {
			return identity, nil
		}
		if !errors.Is(err, core.ErrUnauthenticated) {
			return nil, err
		}
	}
	return nil, core.ErrUnauthenticated
}

// resolveSessionToken treats the credential as a session token.
func (m *SessionManager) resolveSessionToken(ctx context.Context, raw string, now time.Time) (*core.Identity, error) {
	session, err := m.store.GetSession(ctx, raw)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if session.Expired(now) {
		return nil, core.ErrUnauthenticated
	}
	return m.identity(ctx, session)
}

// resolveAPIKey treats the credential as an account API key. The key
// alone is not sufficient: it only resolves through the account's most
// recent live session, forcing key holders to re-authenticate once that
// session is gone.
func (m *SessionManager) resolveAPIKey(ctx context.Context, raw string, now time.Time) (*core.Identity, error) {
	account, err := m.store.GetAccountByAPIKey(ctx, raw)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}

	session, err := m.store.LatestSession(ctx, account.ID, now)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}

	return m.buildIdentity(ctx, account, session)
}

func (m *SessionManager) identity(ctx context.Context, session *core.Session) (*core.Identity, error) {
	account, err := m.store.GetAccount(ctx, session.AccountID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	return m.buildIdentity(ctx, account, session)
}

func (m *SessionManager) buildIdentity(ctx context.Context, account *core.Account, session *core.Session) (*core.Identity, error) {
	creds, err := m.store.ListCredentials(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	method := core.MethodWallet
	if len(creds) > 0 {
		method = core.MethodPasskey
	}
	return &core.Identity{Account: account, Session: session, Method: method}, nil
}

// Revoke deletes the session if present. Revoking an absent or expired
// token is not an error.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	return m.store.DeleteSession(ctx, token)
}
