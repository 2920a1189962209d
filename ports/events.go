package ports

import "context"

// EventPublisher notifies other instances about auth and payment
// lifecycle changes. Publish failures must never fail the triggering
// request; callers log and continue.
type EventPublisher interface {
	PublishLogin(ctx context.Context, accountID, method string) error
	PublishLogout(ctx context.Context, accountID, token string) error
	PublishPaymentConfirmed(ctx context.Context, accountID, paymentID string, quota int) error
}
