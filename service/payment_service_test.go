package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emptyinbox/emptyinbox/core"
)

func newPaymentFixture(t *testing.T) (*PaymentService, *core.Account, *recordingPublisher, func() *core.Account) {
	t.Helper()

	s := newTestStore(t)
	pub := &recordingPublisher{}
	svc := NewPaymentService(s, pub, testLogger(), "0xreceiver")
	account := seedAccount(t, s, "acct-1")

	reload := func() *core.Account {
		got, err := s.GetAccount(context.Background(), account.ID)
		require.NoError(t, err)
		return got
	}
	return svc, account, pub, reload
}

func TestPaymentCreate(t *testing.T) {
	svc, account, _, _ := newPaymentFixture(t)

	payment, err := svc.Create(context.Background(), account.ID, decimal.RequireFromString("2.5"))
	require.NoError(t, err)

	assert.Equal(t, core.PaymentPending, payment.Status)
	assert.Equal(t, 25, payment.QuotaPurchased)
	assert.True(t, payment.ExpiresAt.After(payment.CreatedAt))
	assert.Equal(t, "0xreceiver", svc.ReceivingAddress())
}

func TestPaymentCreateRejectsNonPositiveAmount(t *testing.T) {
	svc, account, _, _ := newPaymentFixture(t)

	for _, amount := range []string{"0", "-1"} {
		_, err := svc.Create(context.Background(), account.ID, decimal.RequireFromString(amount))
		assert.ErrorIs(t, err, core.ErrInvalidRequest, "amount %s", amount)
	}
}

func TestPaymentConfirmCreditsQuota(t *testing.T) {
	svc, account, pub, reload := newPaymentFixture(t)
	ctx := context.Background()

	payment, err := svc.Create(ctx, account.ID, decimal.NewFromInt(3))
	require.NoError(t, err)

	confirmed, err := svc.Confirm(ctx, account.ID, payment.ID, "0xdeadbeef")
	require.NoError(t, err)

	assert.Equal(t, core.PaymentConfirmed, confirmed.Status)
	assert.Equal(t, "0xdeadbeef", confirmed.TxHash)
	require.NotNil(t, confirmed.CompletedAt)
	assert.Equal(t, core.StartingQuota+30, reload().InboxQuota)
	assert.Equal(t, 1, pub.paymentCount())
}

func TestPaymentConfirmIsIdempotent(t *testing.T) {
	svc, account, pub, reload := newPaymentFixture(t)
	ctx := context.Background()

	payment, err := svc.Create(ctx, account.ID, decimal.NewFromInt(1))
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, account.ID, payment.ID, "0xaaa")
	require.NoError(t, err)

	again, err := svc.Confirm(ctx, account.ID, payment.ID, "0xbbb")
	require.NoError(t, err)

	assert.Equal(t, "0xaaa", again.TxHash, "second confirmation does not overwrite")
	assert.Equal(t, core.StartingQuota+10, reload().InboxQuota, "quota credited once")
	assert.Equal(t, 1, pub.paymentCount())
}

func TestPaymentConfirmRejectsMissingTxHash(t *testing.T) {
	svc, account, _, _ := newPaymentFixture(t)

	payment, err := svc.Create(context.Background(), account.ID, decimal.NewFromInt(1))
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), account.ID, payment.ID, "")
	assert.ErrorIs(t, err, core.ErrInvalidRequest)
}

func TestPaymentConfirmUnknownPayment(t *testing.T) {
	svc, account, _, _ := newPaymentFixture(t)

	_, err := svc.Confirm(context.Background(), account.ID, "no-such-payment", "0xtx")
	assert.ErrorIs(t, err, core.ErrPaymentNotFound)
}

func TestPaymentConfirmIsScopedToAccount(t *testing.T) {
	svc, account, _, _ := newPaymentFixture(t)
	ctx := context.Background()

	payment, err := svc.Create(ctx, account.ID, decimal.NewFromInt(1))
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, "someone-else", payment.ID, "0xtx")
	assert.ErrorIs(t, err, core.ErrPaymentNotFound)
}

func TestPaymentConfirmAfterExpiry(t *testing.T) {
	s := newTestStore(t)
	pub := &recordingPublisher{}
	svc := NewPaymentService(s, pub, testLogger(), "0xreceiver")
	account := seedAccount(t, s, "acct-1")
	ctx := context.Background()

	payment, err := svc.Create(ctx, account.ID, decimal.NewFromInt(1))
	require.NoError(t, err)

	// Force the request past its claim window.
	payment.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, s.UpdatePayment(ctx, payment))

	_, err = svc.Confirm(ctx, account.ID, payment.ID, "0xtx")
	assert.ErrorIs(t, err, core.ErrPaymentExpired)

	// The expiry marking is durable and later attempts keep failing.
	got, err := svc.Get(ctx, account.ID, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, core.PaymentExpired, got.Status)

	_, err = svc.Confirm(ctx, account.ID, payment.ID, "0xtx")
	assert.ErrorIs(t, err, core.ErrPaymentExpired)

	acct, err := s.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, core.StartingQuota, acct.InboxQuota)
	assert.Equal(t, 0, pub.paymentCount())
}
