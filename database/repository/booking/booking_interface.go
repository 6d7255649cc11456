package bookingRepo

import (
	"context"
	"errors"

	"tourly/models"
)

// ErrDateTaken signals that another PENDING or CONFIRMED booking already
// holds the same listing and date. Raised by the unique partial index, so
// concurrent creates race safely across server processes.
var ErrDateTaken = errors.New("listing is already booked for this date")

// BookingRepository defines the interface for booking data access.
type BookingRepository interface {
	// GetByID retrieves a booking by its unique ID. Returns (nil, nil) when
	// no booking exists.
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	// FindActiveByListingDate returns a PENDING or CONFIRMED booking for the
	// given listing and date, or (nil, nil).
	FindActiveByListingDate(ctx context.Context, listingID, date string) (*models.Booking, error)
	// CreateWithPayment persists the booking and its companion payment
	// placeholder in a single transaction; both succeed or both roll back.
	// Returns ErrDateTaken when the date-conflict index rejects the insert.
	CreateWithPayment(ctx context.Context, booking *models.Booking, payment *models.Payment) error
	// UpdateStatusIf transitions the booking to the target status only when
	// its current status is one of from. Returns false when the precondition
	// did not hold, which resolves concurrent mutations on one booking.
	UpdateStatusIf(ctx context.Context, id string, from []models.BookingStatus, to models.BookingStatus) (bool, error)
	// CancelWithPayment sets the booking CANCELLED and its payment CANCELLED
	// in a single transaction, preconditioned on the booking still being
	// PENDING or CONFIRMED. Returns false when the precondition failed.
	CancelWithPayment(ctx context.Context, bookingID, paymentID string) (bool, error)
	// List returns one page of bookings matching the filter plus the total count.
	List(ctx context.Context, filter models.BookingFilter, opts models.PageOptions) ([]models.Booking, int64, error)
}
