package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/emptyinbox/emptyinbox/core"
)

func (s *SQLiteStore) CreateSession(ctx context.Context, session *core.Session) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO sessions (token, account_id, login_time, expires_at)
		VALUES (?, ?, ?, ?)`,
		session.Token, session.AccountID, session.LoginTime.UTC(), session.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, token string) (*core.Session, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT token, account_id, login_time, expires_at
		FROM sessions WHERE token = ?`, token)
	return scanSession(row)
}

// LatestSession returns the most recent unexpired session for an account,
// used by the api-key resolution path.
func (s *SQLiteStore) LatestSession(ctx context.Context, accountID string, now time.Time) (*core.Session, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT token, account_id, login_time, expires_at
		FROM sessions
		WHERE account_id = ? AND expires_at > ?
		ORDER BY login_time DESC
		LIMIT 1`,
		accountID, now.UTC(),
	)
	return scanSession(row)
}

// DeleteSession is idempotent; revoking an absent token is not an error.
func (s *SQLiteStore) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.q.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteAccountSessions(ctx context.Context, accountID string) error {
	if _, err := s.q.ExecContext(ctx, "DELETE FROM sessions WHERE account_id = ?", accountID); err != nil {
		return fmt.Errorf("deleting account sessions: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.q.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return res.RowsAffected()
}

func scanSession(row *sql.Row) (*core.Session, error) {
	var sess core.Session
	err := row.Scan(&sess.Token, &sess.AccountID, &sess.LoginTime, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return &sess, nil
}
