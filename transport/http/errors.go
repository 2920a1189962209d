package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emptyinbox/emptyinbox/core"
)

// respondError maps domain errors onto HTTP statuses. Anything outside
// the known set is a 500 with a generic body; internals never leak.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidAddress):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Ethereum address"})
	case errors.Is(err, core.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
	case errors.Is(err, core.ErrChallengeNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Challenge expired or not found"})
	case errors.Is(err, core.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Verification failed"})
	case errors.Is(err, core.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	case errors.Is(err, core.ErrQuotaExhausted):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "Inbox quota exhausted"})
	case errors.Is(err, core.ErrCredentialNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Credential not found"})
	case errors.Is(err, core.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
	case errors.Is(err, core.ErrAccountNotFound), errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, core.ErrPaymentExpired):
		c.JSON(http.StatusGone, gin.H{"error": "Payment expired"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
