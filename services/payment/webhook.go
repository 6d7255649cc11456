package payment

import (
	"context"
	"time"

	"tourly/models"
	"tourly/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// EventKind is the closed set of gateway webhook event types this core
// recognizes. Anything else routes to the explicit no-op branch.
type EventKind string

const (
	EventCheckoutCompleted  EventKind = "checkout.session.completed"
	EventCheckoutExpired    EventKind = "checkout.session.expired"
	EventAsyncPaymentFailed EventKind = "checkout.session.async_payment_failed"
	EventPaymentFailed      EventKind = "payment_intent.payment_failed"
)

// WebhookEvent is the already-verified gateway notification. Signature
// verification happens at the HTTP boundary before this type is built.
type WebhookEvent struct {
	ID         string
	Kind       EventKind
	SessionID  string
	BookingID  string
	PaymentID  string
	GatewayRef string
}

const eventDedupTTL = 48 * time.Hour

// EventLedger remembers which gateway event ids have been applied. It is an
// optimization only; the transaction preconditions stay the authoritative
// idempotency guard, so implementations may lose entries.
type EventLedger interface {
	// Record stores the event id and reports whether it was already present.
	Record(ctx context.Context, eventID string) (seen bool, err error)
	// Forget removes the event id so a redelivery is processed again.
	Forget(ctx context.Context, eventID string) error
}

type redisEventLedger struct {
	client *redis.Client
}

// NewRedisEventLedger backs the event ledger with a redis SETNX key per event.
func NewRedisEventLedger(client *redis.Client) EventLedger {
	return &redisEventLedger{client: client}
}

func (l *redisEventLedger) Record(ctx context.Context, eventID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, "webhook:event:"+eventID, 1, eventDedupTTL).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (l *redisEventLedger) Forget(ctx context.Context, eventID string) error {
	return l.client.Del(ctx, "webhook:event:"+eventID).Err()
}

// HandleWebhookEvent reconciles one gateway notification. Every branch is
// idempotent under at-least-once delivery: a duplicate event either hits the
// event ledger or fails the status precondition inside the transaction. When
// application fails, the ledger entry is released again so the gateway's
// redelivery retries the apply instead of being swallowed as a duplicate.
func (s *DefaultReconcilerService) HandleWebhookEvent(ctx context.Context, event WebhookEvent) error {
	if s.seenBefore(ctx, event.ID) {
		s.Logger.Info("duplicate webhook event ignored", zap.String("eventId", event.ID))
		return nil
	}

	var err error
	switch event.Kind {
	case EventCheckoutCompleted:
		err = s.applyCompleted(ctx, event)
	case EventCheckoutExpired, EventAsyncPaymentFailed, EventPaymentFailed:
		err = s.applyFailed(ctx, event)
	default:
		// Unrecognized kinds are acknowledged and ignored on purpose.
		s.Logger.Info("unhandled webhook event type",
			zap.String("eventId", event.ID), zap.String("type", string(event.Kind)))
		return nil
	}

	if err != nil {
		s.releaseEvent(ctx, event.ID)
	}
	return err
}

// applyCompleted marks the payment PAID and the booking COMPLETED. A booking
// no longer CONFIRMED indicates a race or stale event; that is logged and
// acknowledged rather than errored.
func (s *DefaultReconcilerService) applyCompleted(ctx context.Context, event WebhookEvent) error {
	if event.BookingID == "" || event.PaymentID == "" {
		s.Logger.Warn("completed event carries no booking metadata", zap.String("eventId", event.ID))
		return nil
	}

	booking, err := s.Bookings.GetByID(ctx, event.BookingID)
	if err != nil {
		return utils.WrapAppError(utils.CodeInternal, "failed to load booking", err)
	}
	if booking == nil {
		s.Logger.Warn("completed event references unknown booking",
			zap.String("eventId", event.ID), zap.String("bookingId", event.BookingID))
		return nil
	}
	if booking.Status != models.BookingConfirmed {
		s.Logger.Warn("completed event for booking not in CONFIRMED state, skipping",
			zap.String("bookingId", booking.ID), zap.String("status", string(booking.Status)))
		return nil
	}

	applied, err := s.Payments.MarkPaidWithBooking(ctx, event.PaymentID, event.BookingID, event.GatewayRef, time.Now())
	if err != nil {
		return utils.WrapAppError(utils.CodeInternal, "failed to reconcile payment", err)
	}
	if applied {
		s.Logger.Info("payment reconciled from webhook",
			zap.String("bookingId", event.BookingID), zap.String("paymentId", event.PaymentID))
	} else {
		s.Logger.Info("webhook reconcile skipped, records already settled",
			zap.String("bookingId", event.BookingID), zap.String("paymentId", event.PaymentID))
	}
	return nil
}

// applyFailed marks the payment FAILED. The booking stays CONFIRMED so the
// tourist can retry payment; it is never cancelled automatically.
func (s *DefaultReconcilerService) applyFailed(ctx context.Context, event WebhookEvent) error {
	if event.PaymentID == "" {
		s.Logger.Warn("failure event carries no payment metadata", zap.String("eventId", event.ID))
		return nil
	}

	pay, err := s.Payments.GetByID(ctx, event.PaymentID)
	if err != nil {
		return utils.WrapAppError(utils.CodeInternal, "failed to load payment", err)
	}
	if pay == nil {
		s.Logger.Warn("failure event references unknown payment",
			zap.String("eventId", event.ID), zap.String("paymentId", event.PaymentID))
		return nil
	}
	if pay.Status == models.PaymentPaid || pay.Status == models.PaymentCancelled {
		s.Logger.Info("failure event ignored for settled payment",
			zap.String("paymentId", pay.ID), zap.String("status", string(pay.Status)))
		return nil
	}

	if err := s.Payments.SetStatus(ctx, pay.ID, models.PaymentFailed); err != nil {
		return utils.WrapAppError(utils.CodeInternal, "failed to mark payment failed", err)
	}
	s.Logger.Info("payment failed, booking remains confirmed for retry",
		zap.String("bookingId", pay.BookingID), zap.String("paymentId", pay.ID))
	return nil
}

// seenBefore records the event id in the ledger and reports whether it was
// already there. The ledger being down degrades to the transaction
// preconditions.
func (s *DefaultReconcilerService) seenBefore(ctx context.Context, eventID string) bool {
	if s.Events == nil || eventID == "" {
		return false
	}
	seen, err := s.Events.Record(ctx, eventID)
	if err != nil {
		s.Logger.Warn("webhook event ledger unavailable", zap.Error(err))
		return false
	}
	return seen
}

// releaseEvent drops the dedup entry for an event whose application failed.
func (s *DefaultReconcilerService) releaseEvent(ctx context.Context, eventID string) {
	if s.Events == nil || eventID == "" {
		return
	}
	if err := s.Events.Forget(ctx, eventID); err != nil {
		s.Logger.Warn("failed to release webhook event for redelivery",
			zap.String("eventId", eventID), zap.Error(err))
	}
}
