package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"tourly/services/payment"
	"tourly/utils"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// Stripe caps event payloads well below this; the limit only guards against
// garbage input.
const maxWebhookBody = 1 << 16

// WebhookHandler receives signed gateway notifications. Signature
// verification happens here, before the event reaches the reconciler.
type WebhookHandler struct {
	Service payment.ReconcilerService
	Secret  string
	Logger  *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(svc payment.ReconcilerService, secret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{Service: svc, Secret: secret, Logger: logger}
}

// HandleStripeWebhook handles POST /api/payments/webhook.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "failed to read webhook body", err.Error())
		return
	}

	event, err := webhook.ConstructEvent(body, c.GetHeader("Stripe-Signature"), h.Secret)
	if err != nil {
		h.Logger.Warn("webhook signature verification failed", zap.Error(err))
		utils.JSONError(c, http.StatusBadRequest, "invalid webhook signature", "")
		return
	}

	ev, err := h.toWebhookEvent(event)
	if err != nil {
		h.Logger.Warn("failed to decode webhook payload",
			zap.String("eventId", event.ID), zap.Error(err))
		utils.JSONError(c, http.StatusBadRequest, "malformed webhook payload", "")
		return
	}

	if err := h.Service.HandleWebhookEvent(c.Request.Context(), ev); err != nil {
		// Non-2xx makes the gateway redeliver; handling is idempotent.
		utils.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// toWebhookEvent flattens a verified Stripe event into the reconciler's
// event shape.
func (h *WebhookHandler) toWebhookEvent(event stripe.Event) (payment.WebhookEvent, error) {
	ev := payment.WebhookEvent{
		ID:   event.ID,
		Kind: payment.EventKind(string(event.Type)),
	}

	if strings.HasPrefix(string(event.Type), "payment_intent.") {
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return ev, err
		}
		ev.GatewayRef = intent.ID
		ev.BookingID = intent.Metadata[payment.MetaBookingID]
		ev.PaymentID = intent.Metadata[payment.MetaPaymentID]
		return ev, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return ev, err
	}
	ev.SessionID = sess.ID
	ev.BookingID = sess.Metadata[payment.MetaBookingID]
	ev.PaymentID = sess.Metadata[payment.MetaPaymentID]
	if sess.PaymentIntent != nil {
		ev.GatewayRef = sess.PaymentIntent.ID
	}
	return ev, nil
}
