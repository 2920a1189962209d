package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emptyinbox/emptyinbox/service"
)

// maxIngestBody bounds a single forwarded email.
const maxIngestBody = 1 << 20 // 1 MiB

// MailboxHandlers contains HTTP handlers for inboxes and messages.
type MailboxHandlers struct {
	mailboxService *service.MailboxService
}

// NewMailboxHandlers creates new mailbox handlers.
func NewMailboxHandlers(mailboxService *service.MailboxService) *MailboxHandlers {
	return &MailboxHandlers{mailboxService: mailboxService}
}

// CreateInbox allocates a fresh inbox against the account's quota.
func (h *MailboxHandlers) CreateInbox(c *gin.Context) {
	inbox, err := h.mailboxService.Allocate(c.Request.Context(), identityFrom(c).Account.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"inbox":      inbox.Address,
		"created_at": inbox.CreatedAt,
	})
}

// ListInboxes returns the account's inbox addresses.
func (h *MailboxHandlers) ListInboxes(c *gin.Context) {
	inboxes, err := h.mailboxService.List(c.Request.Context(), identityFrom(c).Account.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"inboxes": inboxes})
}

// ListMessages returns message summaries across the account's inboxes.
func (h *MailboxHandlers) ListMessages(c *gin.Context) {
	messages, err := h.mailboxService.Messages(c.Request.Context(), identityFrom(c).Account.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(messages))
	for _, m := range messages {
		out = append(out, gin.H{
			"message_id": m.ID,
			"inbox":      m.Inbox,
			"timestamp":  m.Timestamp,
		})
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

// GetMessage returns one message with its content.
func (h *MailboxHandlers) GetMessage(c *gin.Context) {
	msg, err := h.mailboxService.Message(c.Request.Context(), identityFrom(c).Account.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message_id": msg.ID,
		"inbox":      msg.Inbox,
		"timestamp":  msg.Timestamp,
		"content":    json.RawMessage(msg.Content),
	})
}

// Ingest accepts a forwarded email from the SMTP forwarder. The full
// body is stored once per recipient with a known inbox; only the
// recipients field is inspected for routing, and recipients outside
// the service are ignored.
func (h *MailboxHandlers) Ingest(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIngestBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var envelope struct {
		Recipients []string `json:"recipients"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Recipients) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if _, err := h.mailboxService.Ingest(c.Request.Context(), envelope.Recipients, body); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}
