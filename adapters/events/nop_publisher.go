package events

import (
	"context"

	"github.com/emptyinbox/emptyinbox/ports"
)

// NopPublisher discards all events. Used when no broker is configured.
type NopPublisher struct{}

// NewNopPublisher creates a publisher that drops everything.
func NewNopPublisher() ports.EventPublisher {
	return NopPublisher{}
}

func (NopPublisher) PublishLogin(ctx context.Context, accountID, method string) error {
	return nil
}

func (NopPublisher) PublishLogout(ctx context.Context, accountID, token string) error {
	return nil
}

func (NopPublisher) PublishPaymentConfirmed(ctx context.Context, accountID, paymentID string, quota int) error {
	return nil
}
