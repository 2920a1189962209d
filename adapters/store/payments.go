package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emptyinbox/emptyinbox/core"
)

func (s *SQLiteStore) CreatePayment(ctx context.Context, p *core.Payment) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO payments
			(payment_id, account_id, amount_usdt, quota_purchased, status, tx_hash,
			 created_at, expires_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.AccountID, p.AmountUSDT.String(), p.QuotaPurchased, string(p.Status),
		nullString(p.TxHash), p.CreatedAt.UTC(), p.ExpiresAt.UTC(), nullTime(p.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting payment: %w", err)
	}
	return nil
}

// GetPayment scopes the lookup to the owning account so one user cannot
// inspect or claim another's payment request.
func (s *SQLiteStore) GetPayment(ctx context.Context, id, accountID string) (*core.Payment, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT payment_id, account_id, amount_usdt, quota_purchased, status, tx_hash,
		       created_at, expires_at, completed_at
		FROM payments WHERE payment_id = ? AND account_id = ?`,
		id, accountID,
	)

	p, err := scanPayment(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrPaymentNotFound
	}
	return p, err
}

func (s *SQLiteStore) UpdatePayment(ctx context.Context, p *core.Payment) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE payments SET status = ?, tx_hash = ?, completed_at = ?, expires_at = ?
		WHERE payment_id = ?`,
		string(p.Status), nullString(p.TxHash), nullTime(p.CompletedAt), p.ExpiresAt.UTC(), p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating payment: %w", err)
	}
	if n == 0 {
		return core.ErrPaymentNotFound
	}
	return nil
}

func (s *SQLiteStore) ListConfirmedPayments(ctx context.Context, accountID string) ([]*core.Payment, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT payment_id, account_id, amount_usdt, quota_purchased, status, tx_hash,
		       created_at, expires_at, completed_at
		FROM payments
		WHERE account_id = ? AND status = ?
		ORDER BY created_at DESC`,
		accountID, string(core.PaymentConfirmed),
	)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()

	var payments []*core.Payment
	for rows.Next() {
		p, err := scanPayment(rows.Scan)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(scan func(...any) error) (*core.Payment, error) {
	var p core.Payment
	var amount, status string
	var txHash sql.NullString
	var completedAt sql.NullTime
	err := scan(&p.ID, &p.AccountID, &amount, &p.QuotaPurchased, &status, &txHash,
		&p.CreatedAt, &p.ExpiresAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning payment: %w", err)
	}

	p.AmountUSDT, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("decoding amount: %w", err)
	}
	p.Status = core.PaymentStatus(status)
	p.TxHash = txHash.String
	if completedAt.Valid {
		t := completedAt.Time
		p.CompletedAt = &t
	}
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
