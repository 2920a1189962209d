package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/emptyinbox/emptyinbox/core"
)

// Credential IDs are opaque authenticator bytes; they are stored
// base64url encoded.
func encodeCredentialID(id []byte) string {
	return base64.RawURLEncoding.EncodeToString(id)
}

func (s *SQLiteStore) CreateCredential(ctx context.Context, cred *core.PasskeyCredential) error {
	transports, err := json.Marshal(cred.Transports)
	if err != nil {
		return fmt.Errorf("encoding transports: %w", err)
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO passkey_credentials
			(credential_id, account_id, public_key, attestation_type, transports,
			 sign_count, device_type, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		encodeCredentialID(cred.CredentialID), cred.AccountID, cred.PublicKey,
		cred.AttestationType, string(transports), cred.SignCount, cred.DeviceType,
		cred.CreatedAt.UTC(), cred.LastUsedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting credential: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetCredential(ctx context.Context, credentialID []byte) (*core.PasskeyCredential, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT credential_id, account_id, public_key, attestation_type, transports,
		       sign_count, device_type, created_at, last_used_at
		FROM passkey_credentials WHERE credential_id = ?`,
		encodeCredentialID(credentialID),
	)

	cred, err := scanCredential(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrCredentialNotFound
	}
	return cred, err
}

func (s *SQLiteStore) ListCredentials(ctx context.Context, accountID string) ([]*core.PasskeyCredential, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT credential_id, account_id, public_key, attestation_type, transports,
		       sign_count, device_type, created_at, last_used_at
		FROM passkey_credentials WHERE account_id = ?
		ORDER BY created_at`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing credentials: %w", err)
	}
	defer rows.Close()

	var creds []*core.PasskeyCredential
	for rows.Next() {
		cred, err := scanCredential(rows.Scan)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	return creds, rows.Err()
}

func (s *SQLiteStore) UpdateCredentialUsage(ctx context.Context, credentialID []byte, signCount uint32, usedAt time.Time) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE passkey_credentials SET sign_count = ?, last_used_at = ?
		WHERE credential_id = ?`,
		signCount, usedAt.UTC(), encodeCredentialID(credentialID),
	)
	if err != nil {
		return fmt.Errorf("updating credential usage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating credential usage: %w", err)
	}
	if n == 0 {
		return core.ErrCredentialNotFound
	}
	return nil
}

func scanCredential(scan func(...any) error) (*core.PasskeyCredential, error) {
	var cred core.PasskeyCredential
	var encodedID, transports string
	err := scan(&encodedID, &cred.AccountID, &cred.PublicKey, &cred.AttestationType,
		&transports, &cred.SignCount, &cred.DeviceType, &cred.CreatedAt, &cred.LastUsedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning credential: %w", err)
	}

	cred.CredentialID, err = base64.RawURLEncoding.DecodeString(encodedID)
	if err != nil {
		return nil, fmt.Errorf("decoding credential id: %w", err)
	}
	if err := json.Unmarshal([]byte(transports), &cred.Transports); err != nil {
		return nil, fmt.Errorf("decoding transports: %w", err)
	}
	return &cred, nil
}
