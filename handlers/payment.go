package handlers

import (
	"net/http"

	"tourly/models"
	"tourly/services/payment"
	"tourly/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentHandler exposes the payment reconciler over HTTP.
type PaymentHandler struct {
	Service payment.ReconcilerService
	Logger  *zap.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc payment.ReconcilerService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{Service: svc, Logger: logger}
}

// InitiateCheckout handles POST /api/payments/checkout.
func (h *PaymentHandler) InitiateCheckout(c *gin.Context) {
	var input struct {
		BookingID string `json:"bookingId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	intent, err := h.Service.InitiateCheckout(c.Request.Context(), callerFrom(c), input.BookingID)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Checkout session ready",
		"checkoutUrl": intent.CheckoutURL,
		"sessionId":   intent.SessionID,
	})
}

// ConfirmCheckout handles POST /api/payments/confirm, the polling path used
// after the checkout redirect.
func (h *PaymentHandler) ConfirmCheckout(c *gin.Context) {
	var input struct {
		SessionID string `json:"sessionId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	pay, err := h.Service.ConfirmCheckout(c.Request.Context(), callerFrom(c), input.SessionID)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  pay.Status,
		"payment": pay,
	})
}

// ListPayments handles GET /api/payments.
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	var opts models.PageOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid pagination", err.Error())
		return
	}

	payments, total, err := h.Service.ListPayments(c.Request.Context(), callerFrom(c), opts)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	opts = opts.Normalize()
	c.JSON(http.StatusOK, gin.H{
		"meta":     models.PageMeta{Page: opts.Page, Limit: opts.Limit, Total: total},
		"payments": payments,
	})
}
