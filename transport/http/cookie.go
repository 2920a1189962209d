package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionCookieName is the cookie browsers carry the session token in.
const SessionCookieName = "session_token"

// setSessionCookie installs the session cookie. Production cookies are
// Secure with SameSite=None so the SPA can call the API cross-site;
// development relaxes to Lax over plain http.
func setSessionCookie(c *gin.Context, token string, ttl time.Duration, dev bool) {
	if dev {
		c.SetSameSite(http.SameSiteLaxMode)
	} else {
		c.SetSameSite(http.SameSiteNoneMode)
	}
	c.SetCookie(SessionCookieName, token, int(ttl.Seconds()), "/", "", !dev, true)
}

// clearSessionCookie expires the session cookie immediately.
func clearSessionCookie(c *gin.Context, dev bool) {
	if dev {
		c.SetSameSite(http.SameSiteLaxMode)
	} else {
		c.SetSameSite(http.SameSiteNoneMode)
	}
	c.SetCookie(SessionCookieName, "", -1, "/", "", !dev, true)
}
