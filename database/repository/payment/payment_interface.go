package paymentRepo

import (
	"context"
	"time"

	"tourly/models"
)

// PaymentRepository defines the interface for payment data access.
type PaymentRepository interface {
	// GetByID retrieves a payment by its unique ID. Returns (nil, nil) when
	// no payment exists.
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	// GetByBookingID retrieves the payment linked to a booking, or (nil, nil).
	GetByBookingID(ctx context.Context, bookingID string) (*models.Payment, error)
	// AttachSession persists a new checkout session id (and our transaction
	// reference) on the payment after the gateway accepted session creation.
	// The write is preconditioned on the payment still carrying
	// prevSessionID, so two concurrent initiations cannot both attach; false
	// means another session won the race and nothing was written.
	AttachSession(ctx context.Context, paymentID, prevSessionID, sessionID, transactionID string) (bool, error)
	// SetStatus updates the payment status only. Used for FAILED on gateway
	// expiry and never touches the booking.
	SetStatus(ctx context.Context, paymentID string, status models.PaymentStatus) error
	// MarkPaidWithBooking atomically sets the payment PAID (recording the
	// gateway reference and timestamp) and the booking COMPLETED. The
	// transaction is preconditioned on payment not yet PAID and booking
	// still CONFIRMED; false means nothing was applied.
	MarkPaidWithBooking(ctx context.Context, paymentID, bookingID, gatewayRef string, paidAt time.Time) (bool, error)
	// List returns one page of payments matching the filter plus the total count.
	List(ctx context.Context, filter models.PaymentFilter, opts models.PageOptions) ([]models.Payment, int64, error)
}
