package booking

import (
	"context"

	bookingRepo "tourly/database/repository/booking"
	listingRepo "tourly/database/repository/listing"
	paymentRepo "tourly/database/repository/payment"
	"tourly/models"
	"tourly/services/payment"

	"go.uber.org/zap"
)

// CreateBookingInput is the client-supplied portion of a booking request.
// The total price is never part of it; it is computed server-side.
type CreateBookingInput struct {
	ListingID string `json:"listingId" binding:"required"`
	Date      string `json:"date" binding:"required"` // "YYYY-MM-DD"
	GroupSize int    `json:"groupSize" binding:"required"`
}

// LedgerService owns the booking state machine and its scheduling invariants.
type LedgerService interface {
	CreateBooking(ctx context.Context, caller models.Caller, in CreateBookingInput) (*models.Booking, error)
	ConfirmBooking(ctx context.Context, caller models.Caller, bookingID string) (*models.Booking, error)
	CancelBooking(ctx context.Context, caller models.Caller, bookingID string) (*models.Booking, error)
	GetBooking(ctx context.Context, caller models.Caller, bookingID string) (*models.Booking, error)
	ListBookings(ctx context.Context, caller models.Caller, filter models.BookingFilter, opts models.PageOptions) ([]models.Booking, int64, error)
}

// DefaultLedgerService implements LedgerService.
type DefaultLedgerService struct {
	Listings listingRepo.ListingRepository
	Bookings bookingRepo.BookingRepository
	Payments paymentRepo.PaymentRepository
	// Gateway invalidates open checkout sessions on cancellation,
	// best effort.
	Gateway payment.CheckoutGateway
	Logger  *zap.Logger
}
