package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/emptyinbox/emptyinbox/core"
)

const accountColumns = "account_id, username, api_key, inbox_quota, created_at"

func (s *SQLiteStore) CreateAccount(ctx context.Context, account *core.Account) error {
	username := sql.NullString{String: account.Username, Valid: account.Username != ""}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO accounts (account_id, username, api_key, inbox_quota, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		account.ID, username, account.APIKey, account.InboxQuota, account.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting account: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetAccount(ctx context.Context, id string) (*core.Account, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE account_id = ?", id)
	return scanAccount(row)
}

func (s *SQLiteStore) GetAccountByUsername(ctx context.Context, username string) (*core.Account, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE username = ?", username)
	return scanAccount(row)
}

func (s *SQLiteStore) GetAccountByAPIKey(ctx context.Context, apiKey string) (*core.Account, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE api_key = ?", apiKey)
	return scanAccount(row)
}

// AdjustQuota applies delta to inbox_quota without letting it go
// negative. The guard lives in the UPDATE itself so two concurrent
// allocations cannot both spend the last unit.
func (s *SQLiteStore) AdjustQuota(ctx context.Context, accountID string, delta int) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE accounts SET inbox_quota = inbox_quota + ?
		WHERE account_id = ? AND inbox_quota + ? >= 0`,
		delta, accountID, delta,
	)
	if err != nil {
		return fmt.Errorf("adjusting quota: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjusting quota: %w", err)
	}
	if n == 0 {
		if _, err := s.GetAccount(ctx, accountID); err != nil {
			return err
		}
		return core.ErrQuotaExhausted
	}
	return nil
}

func scanAccount(row *sql.Row) (*core.Account, error) {
	var a core.Account
	var username sql.NullString
	err := row.Scan(&a.ID, &username, &a.APIKey, &a.InboxQuota, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning account: %w", err)
	}
	a.Username = username.String
	return &a, nil
}
