package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emptyinbox/emptyinbox/core"
	"github.com/emptyinbox/emptyinbox/ports"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestAccount(t *testing.T, s *SQLiteStore, id string, quota int) *core.Account {
	t.Helper()

	account := &core.Account{
		ID:         id,
		APIKey:     "key-" + id,
		InboxQuota: quota,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	return account
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestAccountLookups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	account := &core.Account{
		ID:         "0xabc",
		Username:   "alice",
		APIKey:     "k1",
		InboxQuota: 5,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.CreateAccount(ctx, account); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	byID, err := s.GetAccount(ctx, "0xabc")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if byID.Username != "alice" || byID.InboxQuota != 5 {
		t.Errorf("got %+v", byID)
	}

	if _, err := s.GetAccountByUsername(ctx, "alice"); err != nil {
		t.Errorf("GetAccountByUsername failed: %v", err)
	}
	if _, err := s.GetAccountByAPIKey(ctx, "k1"); err != nil {
		t.Errorf("GetAccountByAPIKey failed: %v", err)
	}
	if _, err := s.GetAccount(ctx, "0xmissing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing account error = %v, want ErrNotFound", err)
	}
}

func TestAccount_EmptyUsernameNotUnique(t *testing.T) {
	s := newTestStore(t)

	// Two wallet accounts, both without usernames; NULL does not collide
	// with NULL under the unique index.
	newTestAccount(t, s, "0xaaa", 0)
	newTestAccount(t, s, "0xbbb", 0)
}

func TestAdjustQuota_NeverNegative(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	newTestAccount(t, s, "0xabc", 1)

	if err := s.AdjustQuota(ctx, "0xabc", -1); err != nil {
		t.Fatalf("first decrement failed: %v", err)
	}
	if err := s.AdjustQuota(ctx, "0xabc", -1); !errors.Is(err, core.ErrQuotaExhausted) {
		t.Errorf("decrement at zero error = %v, want ErrQuotaExhausted", err)
	}

	account, err := s.GetAccount(ctx, "0xabc")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if account.InboxQuota != 0 {
		t.Errorf("quota = %d, want 0", account.InboxQuota)
	}

	if err := s.AdjustQuota(ctx, "0xmissing", -1); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing account error = %v, want ErrNotFound", err)
	}
}

func TestChallenge_ExpiryFilteredInQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	challenge := &core.Challenge{
		ID:        "challenge:0xabc:123456789",
		Address:   "0xabc",
		Nonce:     "123456789",
		Message:   "sign me",
		IssuedAt:  now.Add(-10 * time.Minute),
		ExpiresAt: now.Add(-5 * time.Minute),
	}
	if err := s.CreateChallenge(ctx, challenge); err != nil {
		t.Fatalf("CreateChallenge failed: %v", err)
	}

	// Expired rows never match, even before any sweep runs.
	if _, err := s.GetChallenge(ctx, "0xabc", "123456789", now); !errors.Is(err, core.ErrChallengeNotFound) {
		t.Errorf("expired challenge error = %v, want ErrChallengeNotFound", err)
	}
}

func TestChallenge_ConsumeIsOneShot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	challenge := &core.Challenge{
		ID:        "challenge:0xabc:987654321",
		Address:   "0xabc",
		Nonce:     "987654321",
		Message:   "sign me",
		IssuedAt:  now,
		ExpiresAt: now.Add(5 * time.Minute),
	}
	if err := s.CreateChallenge(ctx, challenge); err != nil {
		t.Fatalf("CreateChallenge failed: %v", err)
	}

	got, err := s.GetChallenge(ctx, "0xabc", "987654321", now)
	if err != nil {
		t.Fatalf("GetChallenge failed: %v", err)
	}
	if got.Message != "sign me" {
		t.Errorf("message = %q", got.Message)
	}

	if err := s.DeleteChallenge(ctx, challenge.ID); err != nil {
		t.Fatalf("DeleteChallenge failed: %v", err)
	}
	// The loser of a racing verify sees the consumed row as not found.
	if err := s.DeleteChallenge(ctx, challenge.ID); !errors.Is(err, core.ErrChallengeNotFound) {
		t.Errorf("second delete error = %v, want ErrChallengeNotFound", err)
	}
}

func TestPasskeyChallenge_OperationAndUsernameScoping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	reg := &core.PasskeyChallenge{
		ID:          "pk-1",
		Username:    "alice",
		Challenge:   "Y2hhbGxlbmdl",
		Operation:   core.OpRegistration,
		SessionData: []byte("{}"),
		CreatedAt:   now,
		ExpiresAt:   now.Add(5 * time.Minute),
	}
	if err := s.CreatePasskeyChallenge(ctx, reg); err != nil {
		t.Fatalf("CreatePasskeyChallenge failed: %v", err)
	}

	username := "alice"
	if _, err := s.FindPasskeyChallenge(ctx, "Y2hhbGxlbmdl", core.OpRegistration, &username, now); err != nil {
		t.Fatalf("registration lookup failed: %v", err)
	}

	// A registration challenge must not satisfy an authentication lookup.
	if _, err := s.FindPasskeyChallenge(ctx, "Y2hhbGxlbmdl", core.OpAuthentication, &username, now); !errors.Is(err, core.ErrChallengeNotFound) {
		t.Errorf("cross-operation lookup error = %v, want ErrChallengeNotFound", err)
	}
	// Nor the usernameless path.
	if _, err := s.FindPasskeyChallenge(ctx, "Y2hhbGxlbmdl", core.OpRegistration, nil, now); !errors.Is(err, core.ErrChallengeNotFound) {
		t.Errorf("usernameless lookup error = %v, want ErrChallengeNotFound", err)
	}

	anon := &core.PasskeyChallenge{
		ID:          "pk-2",
		Challenge:   "YW5vbg",
		Operation:   core.OpAuthentication,
		SessionData: []byte("{}"),
		CreatedAt:   now,
		ExpiresAt:   now.Add(5 * time.Minute),
	}
	if err := s.CreatePasskeyChallenge(ctx, anon); err != nil {
		t.Fatalf("CreatePasskeyChallenge failed: %v", err)
	}
	if _, err := s.FindPasskeyChallenge(ctx, "YW5vbg", core.OpAuthentication, nil, now); err != nil {
		t.Fatalf("usernameless lookup failed: %v", err)
	}
}

func TestSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	newTestAccount(t, s, "0xabc", 0)

	first := &core.Session{Token: "t1", AccountID: "0xabc", LoginTime: now.Add(-time.Hour), ExpiresAt: now.Add(24 * time.Hour)}
	second := &core.Session{Token: "t2", AccountID: "0xabc", LoginTime: now, ExpiresAt: now.Add(24 * time.Hour)}
	for _, sess := range []*core.Session{first, second} {
		if err := s.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	latest, err := s.LatestSession(ctx, "0xabc", now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("LatestSession failed: %v", err)
	}
	if latest.Token != "t2" {
		t.Errorf("latest token = %q, want t2", latest.Token)
	}

	if err := s.DeleteAccountSessions(ctx, "0xabc"); err != nil {
		t.Fatalf("DeleteAccountSessions failed: %v", err)
	}
	if _, err := s.GetSession(ctx, "t1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("deleted session error = %v, want ErrNotFound", err)
	}

	// Idempotent revoke.
	if err := s.DeleteSession(ctx, "t1"); err != nil {
		t.Errorf("DeleteSession on absent token = %v, want nil", err)
	}
}

func TestCredentialRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	newTestAccount(t, s, "acct-1", 0)

	cred := &core.PasskeyCredential{
		CredentialID:    []byte{0xde, 0xad, 0xbe, 0xef},
		AccountID:       "acct-1",
		PublicKey:       []byte{1, 2, 3},
		AttestationType: "none",
		Transports:      []string{"internal"},
		SignCount:       3,
		DeviceType:      "platform",
		CreatedAt:       now,
		LastUsedAt:      now,
	}
	if err := s.CreateCredential(ctx, cred); err != nil {
		t.Fatalf("CreateCredential failed: %v", err)
	}

	got, err := s.GetCredential(ctx, cred.CredentialID)
	if err != nil {
		t.Fatalf("GetCredential failed: %v", err)
	}
	if got.SignCount != 3 || got.DeviceType != "platform" || len(got.Transports) != 1 {
		t.Errorf("got %+v", got)
	}

	if err := s.UpdateCredentialUsage(ctx, cred.CredentialID, 4, now.Add(time.Minute)); err != nil {
		t.Fatalf("UpdateCredentialUsage failed: %v", err)
	}
	got, err = s.GetCredential(ctx, cred.CredentialID)
	if err != nil {
		t.Fatalf("GetCredential failed: %v", err)
	}
	if got.SignCount != 4 {
		t.Errorf("sign count = %d, want 4", got.SignCount)
	}

	creds, err := s.ListCredentials(ctx, "acct-1")
	if err != nil {
		t.Fatalf("ListCredentials failed: %v", err)
	}
	if len(creds) != 1 {
		t.Errorf("credential count = %d, want 1", len(creds))
	}

	if _, err := s.GetCredential(ctx, []byte("nope")); !errors.Is(err, core.ErrCredentialNotFound) {
		t.Errorf("missing credential error = %v, want ErrCredentialNotFound", err)
	}
}

func TestPayments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	newTestAccount(t, s, "0xabc", 0)

	payment := core.NewPayment("pay-1", "0xabc", decimal.RequireFromString("2.5"), now)
	if payment.QuotaPurchased != 25 {
		t.Fatalf("quota purchased = %d, want 25", payment.QuotaPurchased)
	}
	if err := s.CreatePayment(ctx, payment); err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	// Account scoping.
	if _, err := s.GetPayment(ctx, "pay-1", "0xother"); !errors.Is(err, core.ErrPaymentNotFound) {
		t.Errorf("cross-account lookup error = %v, want ErrPaymentNotFound", err)
	}

	got, err := s.GetPayment(ctx, "pay-1", "0xabc")
	if err != nil {
		t.Fatalf("GetPayment failed: %v", err)
	}
	if !got.AmountUSDT.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("amount = %s", got.AmountUSDT)
	}

	completed := now.Add(time.Minute)
	got.Status = core.PaymentConfirmed
	got.TxHash = "0xhash"
	got.CompletedAt = &completed
	if err := s.UpdatePayment(ctx, got); err != nil {
		t.Fatalf("UpdatePayment failed: %v", err)
	}

	confirmed, err := s.ListConfirmedPayments(ctx, "0xabc")
	if err != nil {
		t.Fatalf("ListConfirmedPayments failed: %v", err)
	}
	if len(confirmed) != 1 || confirmed[0].TxHash != "0xhash" {
		t.Errorf("confirmed = %+v", confirmed)
	}
}

func TestMailboxes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	newTestAccount(t, s, "0xabc", 0)
	newTestAccount(t, s, "0xother", 0)

	inbox := &core.Inbox{Address: "misty.blue.river@emptyinbox.me", AccountID: "0xabc", CreatedAt: now}
	if err := s.CreateInbox(ctx, inbox); err != nil {
		t.Fatalf("CreateInbox failed: %v", err)
	}

	exists, err := s.InboxExists(ctx, inbox.Address)
	if err != nil || !exists {
		t.Fatalf("InboxExists = %v, %v", exists, err)
	}

	msg := &core.Message{ID: "m1", Inbox: inbox.Address, Timestamp: now.Unix(), Content: []byte(`{"subject":"hi"}`)}
	if err := s.SaveMessage(ctx, msg); err != nil {
		t.Fatalf("SaveMessage failed: %v", err)
	}

	msgs, err := s.ListMessages(ctx, "0xabc")
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "m1" {
		t.Errorf("messages = %+v", msgs)
	}

	// Message content only visible to the owning account.
	if _, err := s.GetMessage(ctx, "0xother", "m1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-account message error = %v, want ErrNotFound", err)
	}
	got, err := s.GetMessage(ctx, "0xabc", "m1")
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	if string(got.Content) != `{"subject":"hi"}` {
		t.Errorf("content = %s", got.Content)
	}
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	challenge := &core.Challenge{
		ID: "challenge:0xabc:111111111", Address: "0xabc", Nonce: "111111111",
		Message: "m", IssuedAt: now, ExpiresAt: now.Add(5 * time.Minute),
	}
	if err := s.CreateChallenge(ctx, challenge); err != nil {
		t.Fatalf("CreateChallenge failed: %v", err)
	}

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx ports.Tx) error {
		if err := tx.DeleteChallenge(ctx, challenge.ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithinTx error = %v, want boom", err)
	}

	// The delete must have been rolled back; the challenge stays consumable.
	if _, err := s.GetChallenge(ctx, "0xabc", "111111111", now); err != nil {
		t.Errorf("challenge lost after rollback: %v", err)
	}
}

func TestSweepDeletes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	newTestAccount(t, s, "0xabc", 0)

	expired := now.Add(-time.Minute)
	live := now.Add(time.Hour)

	s.CreateChallenge(ctx, &core.Challenge{ID: "c1", Address: "a", Nonce: "1", Message: "m", IssuedAt: now, ExpiresAt: expired})
	s.CreateChallenge(ctx, &core.Challenge{ID: "c2", Address: "a", Nonce: "2", Message: "m", IssuedAt: now, ExpiresAt: live})
	s.CreatePasskeyChallenge(ctx, &core.PasskeyChallenge{ID: "p1", Challenge: "x", Operation: core.OpAuthentication, SessionData: []byte("{}"), CreatedAt: now, ExpiresAt: expired})
	s.CreateSession(ctx, &core.Session{Token: "t1", AccountID: "0xabc", LoginTime: now, ExpiresAt: expired})

	n, err := s.DeleteExpiredChallenges(ctx, now)
	if err != nil || n != 1 {
		t.Errorf("DeleteExpiredChallenges = %d, %v; want 1", n, err)
	}
	n, err = s.DeleteExpiredPasskeyChallenges(ctx, now)
	if err != nil || n != 1 {
		t.Errorf("DeleteExpiredPasskeyChallenges = %d, %v; want 1", n, err)
	}
	n, err = s.DeleteExpiredSessions(ctx, now)
	if err != nil || n != 1 {
		t.Errorf("DeleteExpiredSessions = %d, %v; want 1", n, err)
	}

	if _, err := s.GetChallenge(ctx, "a", "2", now); err != nil {
		t.Errorf("live challenge swept: %v", err)
	}
}
