package core

import "time"

// DefaultSessionTTL is how long a session token stays valid. The cookie
// max-age mirrors it.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Session is an authenticated login. Each account has at most one active
// session: creating a new one deletes all existing sessions for the
// account first.
type Session struct {
	Token     string // opaque 256-bit random token, hex encoded
	AccountID string
	LoginTime time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
