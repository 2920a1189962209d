// Package store provides the SQLite implementation of ports.Store using
// the pure-Go modernc.org/sqlite driver. The schema is created
// automatically on open.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/emptyinbox/emptyinbox/ports"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore implements ports.Store. Methods run against q, which is the
// database itself outside a transaction and the active *sql.Tx inside
// WithinTx.
type SQLiteStore struct {
	db     *sql.DB
	q      querier
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite allows a single writer; serializing through one connection
	// avoids SQLITE_BUSY between concurrent verify transactions.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db, q: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("sqlite store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS accounts (
			account_id  TEXT PRIMARY KEY,
			username    TEXT UNIQUE,
			api_key     TEXT NOT NULL UNIQUE,
			inbox_quota INTEGER NOT NULL DEFAULT 0 CHECK (inbox_quota >= 0),
			created_at  DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS auth_challenges (
			id         TEXT PRIMARY KEY,
			address    TEXT NOT NULL,
			nonce      TEXT NOT NULL,
			message    TEXT NOT NULL,
			issued_at  DATETIME NOT NULL,
			expires_at DATETIME NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_auth_challenges_addr_nonce
			ON auth_challenges(address, nonce);
		CREATE INDEX IF NOT EXISTS idx_auth_challenges_expires
			ON auth_challenges(expires_at);

		CREATE TABLE IF NOT EXISTS passkey_challenges (
			challenge_id   TEXT PRIMARY KEY,
			username       TEXT,
			challenge      TEXT NOT NULL,
			operation_type TEXT NOT NULL,
			session_data   BLOB NOT NULL,
			created_at     DATETIME NOT NULL,
			expires_at     DATETIME NOT NULL,

			CHECK (operation_type IN ('registration', 'authentication'))
		);

		CREATE INDEX IF NOT EXISTS idx_passkey_challenges_lookup
			ON passkey_challenges(challenge, operation_type);
		CREATE INDEX IF NOT EXISTS idx_passkey_challenges_expires
			ON passkey_challenges(expires_at);

		CREATE TABLE IF NOT EXISTS sessions (
			token      TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			login_time DATETIME NOT NULL,
			expires_at DATETIME NOT NULL,
			FOREIGN KEY (account_id) REFERENCES accounts(account_id)
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_account
			ON sessions(account_id, login_time);
		CREATE INDEX IF NOT EXISTS idx_sessions_expires
			ON sessions(expires_at);

		CREATE TABLE IF NOT EXISTS passkey_credentials (
			credential_id    TEXT PRIMARY KEY,
			account_id       TEXT NOT NULL,
			public_key       BLOB NOT NULL,
			attestation_type TEXT NOT NULL DEFAULT '',
			transports       TEXT NOT NULL DEFAULT '[]',
			sign_count       INTEGER NOT NULL DEFAULT 0,
			device_type      TEXT NOT NULL DEFAULT 'platform',
			created_at       DATETIME NOT NULL,
			last_used_at     DATETIME NOT NULL,
			FOREIGN KEY (account_id) REFERENCES accounts(account_id)
		);

		CREATE INDEX IF NOT EXISTS idx_passkey_credentials_account
			ON passkey_credentials(account_id);

		CREATE TABLE IF NOT EXISTS payments (
			payment_id      TEXT PRIMARY KEY,
			account_id      TEXT NOT NULL,
			amount_usdt     TEXT NOT NULL,
			quota_purchased INTEGER NOT NULL,
			status          TEXT NOT NULL,
			tx_hash         TEXT,
			created_at      DATETIME NOT NULL,
			expires_at      DATETIME NOT NULL,
			completed_at    DATETIME,
			FOREIGN KEY (account_id) REFERENCES accounts(account_id),

			CHECK (status IN ('pending', 'confirmed', 'expired'))
		);

		CREATE INDEX IF NOT EXISTS idx_payments_account
			ON payments(account_id, created_at);

		CREATE TABLE IF NOT EXISTS inboxes (
			address    TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (account_id) REFERENCES accounts(account_id)
		);

		CREATE INDEX IF NOT EXISTS idx_inboxes_account
			ON inboxes(account_id);

		CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			inbox      TEXT NOT NULL,
			ts         INTEGER NOT NULL,
			content    BLOB NOT NULL,
			FOREIGN KEY (inbox) REFERENCES inboxes(address)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_inbox
			ON messages(inbox, ts);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// WithinTx runs fn inside a single transaction. Any error from fn rolls
// the whole unit back.
func (s *SQLiteStore) WithinTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		// Already inside a unit of work; nest flatly.
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	view := &SQLiteStore{db: s.db, q: tx, logger: s.logger}
	if err := fn(view); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ ports.Store = (*SQLiteStore)(nil)
