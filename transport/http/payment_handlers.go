package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/emptyinbox/emptyinbox/core"
	"github.com/emptyinbox/emptyinbox/service"
)

// PaymentHandlers contains HTTP handlers for quota top-ups.
type PaymentHandlers struct {
	paymentService *service.PaymentService
}

// NewPaymentHandlers creates new payment handlers.
func NewPaymentHandlers(paymentService *service.PaymentService) *PaymentHandlers {
	return &PaymentHandlers{paymentService: paymentService}
}

// Create opens a pending payment request.
func (h *PaymentHandlers) Create(c *gin.Context) {
	var req struct {
		AmountUSDT decimal.Decimal `json:"amount_usdt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	payment, err := h.paymentService.Create(c.Request.Context(), identityFrom(c).Account.ID, req.AmountUSDT)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := paymentResponse(payment)
	resp["receiving_address"] = h.paymentService.ReceivingAddress()
	c.JSON(http.StatusCreated, resp)
}

// Status returns one of the account's payment requests.
func (h *PaymentHandlers) Status(c *gin.Context) {
	payment, err := h.paymentService.Get(c.Request.Context(), identityFrom(c).Account.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, paymentResponse(payment))
}

// Verify marks a payment as paid and credits the quota.
func (h *PaymentHandlers) Verify(c *gin.Context) {
	var req struct {
		PaymentID string `json:"payment_id" binding:"required"`
		TxHash    string `json:"tx_hash" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	payment, err := h.paymentService.Confirm(c.Request.Context(), identityFrom(c).Account.ID, req.PaymentID, req.TxHash)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, paymentResponse(payment))
}

func paymentResponse(p *core.Payment) gin.H {
	resp := gin.H{
		"payment_id":  p.ID,
		"amount_usdt": p.AmountUSDT.String(),
		"quota":       p.QuotaPurchased,
		"status":      string(p.Status),
		"created_at":  p.CreatedAt,
		"expires_at":  p.ExpiresAt,
	}
	if p.TxHash != "" {
		resp["tx_hash"] = p.TxHash
	}
	if p.CompletedAt != nil {
		resp["completed_at"] = p.CompletedAt
	}
	return resp
}
