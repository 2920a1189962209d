package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/emptyinbox/emptyinbox/core"
)

func (s *SQLiteStore) CreateInbox(ctx context.Context, inbox *core.Inbox) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO inboxes (address, account_id, created_at)
		VALUES (?, ?, ?)`,
		inbox.Address, inbox.AccountID, inbox.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting inbox: %w", err)
	}
	return nil
}

func (s *SQLiteStore) InboxExists(ctx context.Context, address string) (bool, error) {
	var one int
	err := s.q.QueryRowContext(ctx,
		"SELECT 1 FROM inboxes WHERE address = ?", address).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking inbox: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) ListInboxes(ctx context.Context, accountID string) ([]string, error) {
	return s.listInboxes(ctx,
		"SELECT address FROM inboxes WHERE account_id = ? ORDER BY created_at", accountID)
}

func (s *SQLiteStore) ListAllInboxes(ctx context.Context) ([]string, error) {
	return s.listInboxes(ctx, "SELECT address FROM inboxes ORDER BY created_at")
}

func (s *SQLiteStore) listInboxes(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing inboxes: %w", err)
	}
	defer rows.Close()

	var addresses []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("scanning inbox: %w", err)
		}
		addresses = append(addresses, addr)
	}
	return addresses, rows.Err()
}

func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *core.Message) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO messages (message_id, inbox, ts, content)
		VALUES (?, ?, ?, ?)`,
		msg.ID, msg.Inbox, msg.Timestamp, msg.Content,
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// ListMessages returns id/inbox pairs for every message delivered to the
// account's inboxes; content is omitted in listings.
func (s *SQLiteStore) ListMessages(ctx context.Context, accountID string) ([]*core.Message, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT m.message_id, m.inbox, m.ts
		FROM messages m
		JOIN inboxes i ON m.inbox = i.address
		WHERE i.account_id = ?
		ORDER BY m.ts DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var msgs []*core.Message
	for rows.Next() {
		var m core.Message
		if err := rows.Scan(&m.ID, &m.Inbox, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

func (s *SQLiteStore) GetMessage(ctx context.Context, accountID, messageID string) (*core.Message, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT m.message_id, m.inbox, m.ts, m.content
		FROM messages m
		JOIN inboxes i ON m.inbox = i.address
		WHERE i.account_id = ? AND m.message_id = ?`,
		accountID, messageID,
	)

	var m core.Message
	err := row.Scan(&m.ID, &m.Inbox, &m.Timestamp, &m.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning message: %w", err)
	}
	return &m, nil
}
