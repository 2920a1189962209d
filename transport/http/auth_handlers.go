package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emptyinbox/emptyinbox/core"
	"github.com/emptyinbox/emptyinbox/service"
)

// AuthHandlers contains HTTP handlers for wallet auth and the account
// endpoints shared by both login methods.
type AuthHandlers struct {
	authService *service.AuthService
	sessions    *service.SessionManager
	dev         bool
}

// NewAuthHandlers creates new auth handlers.
func NewAuthHandlers(authService *service.AuthService, sessions *service.SessionManager, dev bool) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		sessions:    sessions,
		dev:         dev,
	}
}

// Challenge handles the wallet challenge request.
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	challenge, err := h.authService.CreateChallenge(c.Request.Context(), req.Address)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    challenge.Message,
		"nonce":      challenge.Nonce,
		"expires_at": challenge.ExpiresAt.Unix(),
	})
}

// Verify handles the signed challenge and logs the wallet in.
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req struct {
		Address   string `json:"address" binding:"required"`
		Message   string `json:"message" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	identity, err := h.authService.Verify(c.Request.Context(), req.Address, req.Message, req.Signature)
	if err != nil {
		respondError(c, err)
		return
	}

	setSessionCookie(c, identity.Session.Token, h.sessions.TTL(), h.dev)
	c.JSON(http.StatusOK, loginResponse(identity))
}

// Logout revokes the current session and clears the cookie.
func (h *AuthHandlers) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), identityFrom(c)); err != nil {
		respondError(c, err)
		return
	}

	clearSessionCookie(c, h.dev)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the authenticated account's profile.
func (h *AuthHandlers) Me(c *gin.Context) {
	profile, err := h.authService.Profile(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	payments := make([]gin.H, 0, len(profile.Payments))
	for _, p := range profile.Payments {
		payments = append(payments, gin.H{
			"payment_id":   p.ID,
			"amount_usdt":  p.AmountUSDT.String(),
			"quota":        p.QuotaPurchased,
			"tx_hash":      p.TxHash,
			"completed_at": p.CompletedAt,
		})
	}

	resp := gin.H{
		"account_id":  profile.Account.ID,
		"api_key":     profile.Account.APIKey,
		"inbox_quota": profile.Account.InboxQuota,
		"auth_method": string(profile.Method),
		"created_at":  profile.Account.CreatedAt,
		"login_time":  profile.Session.LoginTime,
		"expires_at":  profile.Session.ExpiresAt,
		"payments":    payments,
	}
	if profile.Account.Username != "" {
		resp["username"] = profile.Account.Username
	}
	c.JSON(http.StatusOK, resp)
}

// loginResponse is the body returned by every successful login path.
func loginResponse(identity *core.Identity) gin.H {
	resp := gin.H{
		"token":       identity.Session.Token,
		"account_id":  identity.Account.ID,
		"api_key":     identity.Account.APIKey,
		"inbox_quota": identity.Account.InboxQuota,
		"auth_method": string(identity.Method),
		"expires_at":  identity.Session.ExpiresAt,
	}
	if identity.Method == core.MethodWallet {
		resp["address"] = identity.Account.ID
	}
	if identity.Account.Username != "" {
		resp["username"] = identity.Account.Username
	}
	return resp
}
