package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuotaPerUSDT is the inbox quota credited per 1 USDT paid.
const QuotaPerUSDT = 10

// PaymentTTL is how long a pending payment request stays claimable.
const PaymentTTL = 24 * time.Hour

// PaymentStatus is the lifecycle state of a payment request.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentExpired   PaymentStatus = "expired"
)

// Payment is a quota top-up request paid in on-chain USDT.
type Payment struct {
	ID             string
	AccountID      string
	AmountUSDT     decimal.Decimal
	QuotaPurchased int
	Status         PaymentStatus
	TxHash         string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	CompletedAt    *time.Time
}

// NewPayment builds a pending payment request for the given account.
func NewPayment(id, accountID string, amount decimal.Decimal, now time.Time) *Payment {
	return &Payment{
		ID:             id,
		AccountID:      accountID,
		AmountUSDT:     amount,
		QuotaPurchased: int(amount.Mul(decimal.NewFromInt(QuotaPerUSDT)).IntPart()),
		Status:         PaymentPending,
		CreatedAt:      now,
		ExpiresAt:      now.Add(PaymentTTL),
	}
}
