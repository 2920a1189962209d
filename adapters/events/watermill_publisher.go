package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/emptyinbox/emptyinbox/ports"
)

const (
	TopicLogin            = "emptyinbox.auth.login"
	TopicLogout           = "emptyinbox.auth.logout"
	TopicPaymentConfirmed = "emptyinbox.payment.confirmed"
)

// LoginEvent is published after a successful wallet or passkey login.
type LoginEvent struct {
	AccountID string `json:"account_id"`
	Method    string `json:"method"`
}

// LogoutEvent is published when a session is revoked.
type LogoutEvent struct {
	AccountID string `json:"account_id"`
	Token     string `json:"token"`
}

// PaymentConfirmedEvent is published when a quota top-up is credited.
type PaymentConfirmedEvent struct {
	AccountID string `json:"account_id"`
	PaymentID string `json:"payment_id"`
	Quota     int    `json:"quota"`
}

// WatermillPublisher implements ports.EventPublisher over any Watermill
// publisher (Redis streams in production, gochannel in tests).
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill-backed publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

func (p *WatermillPublisher) PublishLogin(ctx context.Context, accountID, method string) error {
	return p.publish(TopicLogin, LoginEvent{AccountID: accountID, Method: method})
}

func (p *WatermillPublisher) PublishLogout(ctx context.Context, accountID, token string) error {
	return p.publish(TopicLogout, LogoutEvent{AccountID: accountID, Token: token})
}

func (p *WatermillPublisher) PublishPaymentConfirmed(ctx context.Context, accountID, paymentID string, quota int) error {
	return p.publish(TopicPaymentConfirmed, PaymentConfirmedEvent{
		AccountID: accountID, PaymentID: paymentID, Quota: quota,
	})
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
