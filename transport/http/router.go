package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emptyinbox/emptyinbox/service"
)

// RouterConfig carries everything the router wires together.
type RouterConfig struct {
	Auth      *service.AuthService
	Passkeys  *service.PasskeyService
	Sessions  *service.SessionManager
	Mailboxes *service.MailboxService
	Payments  *service.PaymentService

	IngestSecret string
	Dev          bool
}

// SetupRouter sets up the Gin router.
func SetupRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	authHandlers := NewAuthHandlers(cfg.Auth, cfg.Sessions, cfg.Dev)
	passkeyHandlers := NewPasskeyHandlers(cfg.Passkeys, cfg.Sessions, cfg.Dev)
	mailboxHandlers := NewMailboxHandlers(cfg.Mailboxes)
	paymentHandlers := NewPaymentHandlers(cfg.Payments)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/challenge", authHandlers.Challenge)
		auth.POST("/verify", authHandlers.Verify)
		auth.POST("/check-username", passkeyHandlers.CheckUsername)

		passkeys := auth.Group("/passkey")
		{
			passkeys.POST("/register/begin", passkeyHandlers.RegisterBegin)
			passkeys.POST("/register/complete", passkeyHandlers.RegisterComplete)
			passkeys.POST("/authenticate/begin", passkeyHandlers.AuthenticateBegin)
			passkeys.POST("/authenticate/complete", passkeyHandlers.AuthenticateComplete)
		}
	}

	// Routes requiring an authenticated identity
	authed := router.Group("/")
	authed.Use(AuthMiddleware(cfg.Sessions))
	{
		authed.GET("/auth/me", authHandlers.Me)
		authed.POST("/auth/logout", authHandlers.Logout)

		authed.POST("/inbox", mailboxHandlers.CreateInbox)
		authed.GET("/inboxes", mailboxHandlers.ListInboxes)
		authed.GET("/messages", mailboxHandlers.ListMessages)
		authed.GET("/message/:id", mailboxHandlers.GetMessage)

		authed.POST("/payments/create", paymentHandlers.Create)
		authed.POST("/payments/verify", paymentHandlers.Verify)
		authed.GET("/payments/status/:id", paymentHandlers.Status)
	}

	// Mail ingestion from the SMTP forwarder
	router.POST("/email", IngestMiddleware(cfg.IngestSecret), mailboxHandlers.Ingest)

	return router
}
