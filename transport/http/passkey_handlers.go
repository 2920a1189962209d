package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/protocol"

	"github.com/emptyinbox/emptyinbox/service"
)

// PasskeyHandlers contains HTTP handlers for WebAuthn ceremonies.
type PasskeyHandlers struct {
	passkeyService *service.PasskeyService
	sessions       *service.SessionManager
	dev            bool
}

// NewPasskeyHandlers creates new passkey handlers.
func NewPasskeyHandlers(passkeyService *service.PasskeyService, sessions *service.SessionManager, dev bool) *PasskeyHandlers {
	return &PasskeyHandlers{
		passkeyService: passkeyService,
		sessions:       sessions,
		dev:            dev,
	}
}

// CheckUsername reports whether a username is taken and whether it
// already carries a passkey.
func (h *PasskeyHandlers) CheckUsername(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	status, err := h.passkeyService.CheckUsername(c.Request.Context(), req.Username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"exists": status.Exists, "has_passkey": status.HasPasskey})
}

// RegisterBegin starts a credential creation ceremony.
func (h *PasskeyHandlers) RegisterBegin(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	options, err := h.passkeyService.BeginRegistration(c.Request.Context(), req.Username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, options)
}

// RegisterComplete finishes a creation ceremony and logs the new
// credential's account in. The body is the credential response as the
// browser produced it, with a username field alongside.
func (h *PasskeyHandlers) RegisterComplete(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var req struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(body, &req); err != nil || req.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(body))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credential"})
		return
	}

	identity, err := h.passkeyService.FinishRegistration(c.Request.Context(), req.Username, parsed)
	if err != nil {
		respondError(c, err)
		return
	}

	setSessionCookie(c, identity.Session.Token, h.sessions.TTL(), h.dev)
	c.JSON(http.StatusOK, loginResponse(identity))
}

// AuthenticateBegin starts a usernameless assertion ceremony.
func (h *PasskeyHandlers) AuthenticateBegin(c *gin.Context) {
	options, err := h.passkeyService.BeginAuthentication(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, options)
}

// AuthenticateComplete finishes an assertion ceremony. The body is the
// credential response exactly as the browser produced it.
func (h *PasskeyHandlers) AuthenticateComplete(c *gin.Context) {
	parsed, err := protocol.ParseCredentialRequestResponseBody(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credential"})
		return
	}

	identity, err := h.passkeyService.FinishAuthentication(c.Request.Context(), parsed)
	if err != nil {
		respondError(c, err)
		return
	}

	setSessionCookie(c, identity.Session.Token, h.sessions.TTL(), h.dev)
	c.JSON(http.StatusOK, loginResponse(identity))
}
