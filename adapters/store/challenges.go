package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/emptyinbox/emptyinbox/core"
)

func (s *SQLiteStore) CreateChallenge(ctx context.Context, c *core.Challenge) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO auth_challenges (id, address, nonce, message, issued_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Address, c.Nonce, c.Message, c.IssuedAt.UTC(), c.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting challenge: %w", err)
	}
	return nil
}

// GetChallenge filters on expiry in the query itself: an expired row is
// never matched even before the sweeper removes it.
func (s *SQLiteStore) GetChallenge(ctx context.Context, address, nonce string, now time.Time) (*core.Challenge, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, address, nonce, message, issued_at, expires_at
		FROM auth_challenges
		WHERE address = ? AND nonce = ? AND expires_at > ?`,
		address, nonce, now.UTC(),
	)

	var c core.Challenge
	err := row.Scan(&c.ID, &c.Address, &c.Nonce, &c.Message, &c.IssuedAt, &c.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning challenge: %w", err)
	}
	return &c, nil
}

// DeleteChallenge consumes a challenge. Deleting a row someone else
// already consumed reports core.ErrChallengeNotFound so racing verify
// calls resolve to exactly one winner.
func (s *SQLiteStore) DeleteChallenge(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM auth_challenges WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting challenge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting challenge: %w", err)
	}
	if n == 0 {
		return core.ErrChallengeNotFound
	}
	return nil
}

func (s *SQLiteStore) CreatePasskeyChallenge(ctx context.Context, c *core.PasskeyChallenge) error {
	username := sql.NullString{String: c.Username, Valid: c.Username != ""}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO passkey_challenges
			(challenge_id, username, challenge, operation_type, session_data, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, username, c.Challenge, string(c.Operation), c.SessionData,
		c.CreatedAt.UTC(), c.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting passkey challenge: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindPasskeyChallenge(ctx context.Context, challenge string, op core.ChallengeOp, username *string, now time.Time) (*core.PasskeyChallenge, error) {
	query := `
		SELECT challenge_id, username, challenge, operation_type, session_data, created_at, expires_at
		FROM passkey_challenges
		WHERE challenge = ? AND operation_type = ? AND expires_at > ?`
	args := []any{challenge, string(op), now.UTC()}

	// Usernameless lookups only match rows stored without a username;
	// a registration challenge for "alice" must never satisfy them.
	if username == nil {
		query += " AND username IS NULL"
	} else {
		query += " AND username = ?"
		args = append(args, *username)
	}

	row := s.q.QueryRowContext(ctx, query, args...)

	var c core.PasskeyChallenge
	var storedUsername sql.NullString
	var opType string
	err := row.Scan(&c.ID, &storedUsername, &c.Challenge, &opType, &c.SessionData, &c.CreatedAt, &c.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning passkey challenge: %w", err)
	}
	c.Username = storedUsername.String
	c.Operation = core.ChallengeOp(opType)
	return &c, nil
}

func (s *SQLiteStore) DeletePasskeyChallenge(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM passkey_challenges WHERE challenge_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting passkey challenge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting passkey challenge: %w", err)
	}
	if n == 0 {
		return core.ErrChallengeNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteExpiredChallenges(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.q.ExecContext(ctx, "DELETE FROM auth_challenges WHERE expires_at < ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("deleting expired challenges: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) DeleteExpiredPasskeyChallenges(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.q.ExecContext(ctx, "DELETE FROM passkey_challenges WHERE expires_at < ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("deleting expired passkey challenges: %w", err)
	}
	return res.RowsAffected()
}
