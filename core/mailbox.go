package core

import "time"

// Inbox is a disposable mailbox address owned by one account.
type Inbox struct {
	Address   string // full "local.part@domain" address
	AccountID string
	CreatedAt time.Time
}

// Message is a forwarded email stored as an opaque JSON blob.
type Message struct {
	ID        string // short random identifier
	Inbox     string // recipient inbox address
	Timestamp int64  // Unix seconds at ingestion
	Content   []byte // raw JSON payload from the SMTP forwarder
}
