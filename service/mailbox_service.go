package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/emptyinbox/emptyinbox/core"
	"github.com/emptyinbox/emptyinbox/internal/words"
	"github.com/emptyinbox/emptyinbox/ports"
)

// maxNameAttempts bounds the retry loop when a generated mailbox name
// collides with an existing one.
const maxNameAttempts = 16

// MailboxService allocates disposable inboxes against account quota and
// stores forwarded messages.
type MailboxService struct {
	store  ports.Store
	logger *slog.Logger
	domain string
}

// NewMailboxService creates a new mailbox service. domain is the mail
// domain appended to generated local parts.
func NewMailboxService(store ports.Store, logger *slog.Logger, domain string) *MailboxService {
	return &MailboxService{
		store:  store,
		logger: logger.With("component", "mailbox"),
		domain: domain,
	}
}

// Allocate creates a fresh inbox for the account, spending one unit of
// quota. The decrement and the inbox insert happen in one transaction, so
// a name-generation failure refunds the quota via rollback.
func (s *MailboxService) Allocate(ctx context.Context, accountID string) (*core.Inbox, error) {
	now := time.Now()
	var inbox *core.Inbox
	err := s.store.WithinTx(ctx, func(tx ports.Tx) error {
		if err := tx.AdjustQuota(ctx, accountID, -1); err != nil {
			return err
		}

		address, err := s.freshAddress(ctx, tx)
		if err != nil {
			return err
		}

		inbox = &core.Inbox{Address: address, AccountID: accountID, CreatedAt: now}
		return tx.CreateInbox(ctx, inbox)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("inbox allocated", "account_id", accountID, "inbox", inbox.Address)
	return inbox, nil
}

func (s *MailboxService) freshAddress(ctx context.Context, tx ports.Tx) (string, error) {
	for range maxNameAttempts {
		address := fmt.Sprintf("%s@%s", words.MailboxName(), s.domain)
		exists, err := tx.InboxExists(ctx, address)
		if err != nil {
			return "", err
		}
		if !exists {
			return address, nil
		}
	}
	return "", errors.New("failed to generate a unique inbox name")
}

// List returns the addresses owned by the account.
func (s *MailboxService) List(ctx context.Context, accountID string) ([]string, error) {
	return s.store.ListInboxes(ctx, accountID)
}

// Messages returns message summaries across all of the account's
// inboxes, newest first. Content is fetched per message.
func (s *MailboxService) Messages(ctx context.Context, accountID string) ([]*core.Message, error) {
	return s.store.ListMessages(ctx, accountID)
}

// Message returns one message with its content. Messages in inboxes the
// account does not own are indistinguishable from missing ones.
func (s *MailboxService) Message(ctx context.Context, accountID, messageID string) (*core.Message, error) {
	return s.store.GetMessage(ctx, accountID, messageID)
}

// Ingest stores a forwarded email once per recipient that matches a
// known inbox. Recipients without a matching inbox are skipped, so a
// forwarder fanning out a mixed recipient list never sees a failure
// for the deliverable ones.
func (s *MailboxService) Ingest(ctx context.Context, recipients []string, content []byte) ([]*core.Message, error) {
	var stored []*core.Message
	for _, recipient := range recipients {
		exists, err := s.store.InboxExists(ctx, recipient)
		if err != nil {
			return stored, err
		}
		if !exists {
			s.logger.Debug("dropping mail for unknown inbox", "inbox", recipient)
			continue
		}

		msg := &core.Message{
			ID:        uuid.New().String()[:8],
			Inbox:     recipient,
			Timestamp: time.Now().Unix(),
			Content:   content,
		}
		if err := s.store.SaveMessage(ctx, msg); err != nil {
			return stored, fmt.Errorf("failed to store message: %w", err)
		}

		s.logger.Info("message ingested", "inbox", recipient, "message_id", msg.ID)
		stored = append(stored, msg)
	}
	return stored, nil
}
