package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emptyinbox/emptyinbox/core"
	"github.com/emptyinbox/emptyinbox/ports"
)

// PaymentService tracks USDT quota top-ups: pending requests, expiry,
// and confirmation with quota credit.
type PaymentService struct {
	store    ports.Store
	eventPub ports.EventPublisher
	logger   *slog.Logger

	receivingAddress string
}

// NewPaymentService creates a new payment service. receivingAddress is
// the on-chain address users send USDT to.
func NewPaymentService(store ports.Store, eventPub ports.EventPublisher, logger *slog.Logger, receivingAddress string) *PaymentService {
	return &PaymentService{
		store:            store,
		eventPub:         eventPub,
		logger:           logger.With("component", "payments"),
		receivingAddress: receivingAddress,
	}
}

// ReceivingAddress returns the address payments should be sent to.
func (s *PaymentService) ReceivingAddress() string {
	return s.receivingAddress
}

// Create opens a pending payment request. The quota to be credited is
// fixed at creation from the requested amount.
func (s *PaymentService) Create(ctx context.Context, accountID string, amount decimal.Decimal) (*core.Payment, error) {
	if amount.Sign() <= 0 {
		return nil, core.ErrInvalidRequest
	}

	payment := core.NewPayment(uuid.New().String(), accountID, amount, time.Now())
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to store payment: %w", err)
	}

	s.logger.Info("payment created",
		"account_id", accountID, "payment_id", payment.ID,
		"amount_usdt", payment.AmountUSDT.String(), "quota", payment.QuotaPurchased)
	return payment, nil
}

// Get returns one of the account's payment requests.
func (s *PaymentService) Get(ctx context.Context, accountID, paymentID string) (*core.Payment, error) {
	return s.store.GetPayment(ctx, paymentID, accountID)
}

// Confirm marks a pending payment as paid and credits the purchased
// quota in the same transaction. Confirming an already confirmed payment
// returns it unchanged without crediting again. A pending payment past
// its expiry is marked expired durably; the marking survives even though
// the confirmation fails.
func (s *PaymentService) Confirm(ctx context.Context, accountID, paymentID, txHash string) (*core.Payment, error) {
	if txHash == "" {
		return nil, core.ErrInvalidRequest
	}

	now := time.Now()
	var payment *core.Payment
	var lapsed, credited bool
	err := s.store.WithinTx(ctx, func(tx ports.Tx) error {
		var err error
		payment, err = tx.GetPayment(ctx, paymentID, accountID)
		if err != nil {
			return err
		}

		switch payment.Status {
		case core.PaymentConfirmed:
			return nil
		case core.PaymentExpired:
			lapsed = true
			return nil
		}

		if now.After(payment.ExpiresAt) {
			// Returning an error here would roll the marking back, so
			// the expiry outcome is carried out of the transaction in
			// lapsed instead.
			payment.Status = core.PaymentExpired
			lapsed = true
			return tx.UpdatePayment(ctx, payment)
		}

		payment.Status = core.PaymentConfirmed
		payment.TxHash = txHash
		payment.CompletedAt = &now
		if err := tx.UpdatePayment(ctx, payment); err != nil {
			return err
		}
		credited = true
		return tx.AdjustQuota(ctx, accountID, payment.QuotaPurchased)
	})
	if err != nil {
		return nil, err
	}
	if lapsed {
		return nil, core.ErrPaymentExpired
	}

	if credited {
		if err := s.eventPub.PublishPaymentConfirmed(ctx, accountID, payment.ID, payment.QuotaPurchased); err != nil {
			s.logger.Warn("failed to publish payment event", "error", err)
		}
		s.logger.Info("payment confirmed",
			"account_id", accountID, "payment_id", payment.ID, "quota", payment.QuotaPurchased)
	}
	return payment, nil
}
