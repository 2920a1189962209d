package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emptyinbox/emptyinbox/adapters/store"
	"github.com/emptyinbox/emptyinbox/ports"
)

func newTestStore(t *testing.T) ports.Store {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu       sync.Mutex
	logins   []string // account IDs
	logouts  []string
	payments []string // payment IDs
}

func (p *recordingPublisher) PublishLogin(_ context.Context, accountID, method string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logins = append(p.logins, accountID)
	return nil
}

func (p *recordingPublisher) PublishLogout(_ context.Context, accountID, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logouts = append(p.logouts, accountID)
	return nil
}

func (p *recordingPublisher) PublishPaymentConfirmed(_ context.Context, accountID, paymentID string, quota int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payments = append(p.payments, paymentID)
	return nil
}

func (p *recordingPublisher) loginCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.logins)
}

func (p *recordingPublisher) paymentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payments)
}
