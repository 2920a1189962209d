package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emptyinbox/emptyinbox/core"
	"github.com/emptyinbox/emptyinbox/service"
)

const identityKey = "identity"

// credentialFromRequest extracts the raw credential: the session cookie
// when present, otherwise a bearer value that may be a session token or
// an API key.
func credentialFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(auth[len("Bearer "):])
	}
	return ""
}

// AuthMiddleware resolves the request credential into an identity and
// aborts with 401 when nothing resolves.
func AuthMiddleware(sessions *service.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := sessions.Resolve(c.Request.Context(), credentialFromRequest(c))
		if err != nil {
			respondError(c, core.ErrUnauthenticated)
			c.Abort()
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// identityFrom returns the identity stored by AuthMiddleware.
func identityFrom(c *gin.Context) *core.Identity {
	return c.MustGet(identityKey).(*core.Identity)
}

// IngestMiddleware guards the mail ingestion endpoint with the shared
// forwarder secret.
func IngestMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") ||
			subtle.ConstantTimeCompare([]byte(auth[len("Bearer "):]), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid ingest secret"})
			return
		}
		c.Next()
	}
}
