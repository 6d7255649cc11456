package payment

import (
	"context"

	bookingRepo "tourly/database/repository/booking"
	listingRepo "tourly/database/repository/listing"
	paymentRepo "tourly/database/repository/payment"
	"tourly/models"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// CheckoutIntent is what the client needs to complete a hosted checkout.
type CheckoutIntent struct {
	CheckoutURL string `json:"checkoutUrl"`
	SessionID   string `json:"sessionId"`
}

// ReconcilerService bridges booking state to the payment gateway and
// reconciles asynchronous gateway results idempotently.
type ReconcilerService interface {
	InitiateCheckout(ctx context.Context, caller models.Caller, bookingID string) (*CheckoutIntent, error)
	ConfirmCheckout(ctx context.Context, caller models.Caller, sessionID string) (*models.Payment, error)
	HandleWebhookEvent(ctx context.Context, event WebhookEvent) error
	SweepSession(ctx context.Context, sessionID string) error
	ListPayments(ctx context.Context, caller models.Caller, opts models.PageOptions) ([]models.Payment, int64, error)
}

// DefaultReconcilerService implements ReconcilerService.
type DefaultReconcilerService struct {
	Bookings bookingRepo.BookingRepository
	Payments paymentRepo.PaymentRepository
	Listings listingRepo.ListingRepository
	Gateway  CheckoutGateway
	// Queue schedules delayed checkout sweeps; optional.
	Queue *asynq.Client
	// Events deduplicates webhook events under at-least-once delivery;
	// optional, the status preconditions stay authoritative.
	Events EventLedger
	Logger *zap.Logger

	FrontendURL string
}
