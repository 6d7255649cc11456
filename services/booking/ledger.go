package booking

import (
	"context"
	"errors"
	"time"

	bookingRepo "tourly/database/repository/booking"
	"tourly/models"
	"tourly/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// CreateBooking validates the request against the catalog, computes the
// total price server-side and persists the PENDING booking together with its
// UNPAID payment placeholder in one atomic unit.
func (s *DefaultLedgerService) CreateBooking(ctx context.Context, caller models.Caller, in CreateBookingInput) (*models.Booking, error) {
	if _, err := time.Parse(dateLayout, in.Date); err != nil {
		return nil, utils.NewAppError(utils.CodeInvalidInput, "date must be in YYYY-MM-DD format")
	}
	if in.GroupSize < 1 {
		return nil, utils.NewAppError(utils.CodeInvalidInput, "group size must be at least 1")
	}

	listing, err := s.Listings.GetByID(ctx, in.ListingID)
	if err != nil {
		return nil, utils.WrapAppError(utils.CodeInternal, "failed to load listing", err)
	}
	if listing == nil {
		return nil, utils.NewAppError(utils.CodeNotFound, "listing not found")
	}
	if !listing.IsActive {
		return nil, utils.NewAppError(utils.CodeInvalidState, "this tour is currently not available for booking")
	}
	if listing.GuideID == caller.ID {
		return nil, utils.NewAppError(utils.CodeForbidden, "you cannot book your own listing")
	}

	existing, err := s.Bookings.FindActiveByListingDate(ctx, in.ListingID, in.Date)
	if err != nil {
		return nil, utils.WrapAppError(utils.CodeInternal, "failed to check availability", err)
	}
	if existing != nil {
		return nil, utils.NewAppError(utils.CodeConflict, "this date is already booked or pending")
	}

	totalPrice := listing.Fee * float64(in.GroupSize)

	booking := &models.Booking{
		ID:         uuid.New().String(),
		ListingID:  listing.ID,
		TouristID:  caller.ID,
		GuideID:    listing.GuideID,
		Date:       in.Date,
		GroupSize:  in.GroupSize,
		TotalPrice: totalPrice,
		Status:     models.BookingPending,
	}
	payment := &models.Payment{
		ID:        uuid.New().String(),
		BookingID: booking.ID,
		TouristID: caller.ID,
		GuideID:   listing.GuideID,
		Amount:    totalPrice,
		Currency:  "usd",
		Status:    models.PaymentUnpaid,
		Method:    "stripe",
	}
	booking.PaymentID = payment.ID

	if err := s.Bookings.CreateWithPayment(ctx, booking, payment); err != nil {
		if errors.Is(err, bookingRepo.ErrDateTaken) {
			return nil, utils.NewAppError(utils.CodeConflict, "this date is already booked or pending")
		}
		return nil, utils.WrapAppError(utils.CodeInternal, "failed to create booking", err)
	}

	s.Logger.Info("booking created",
		zap.String("bookingId", booking.ID),
		zap.String("listingId", booking.ListingID),
		zap.String("date", booking.Date),
		zap.Float64("totalPrice", booking.TotalPrice),
	)
	return booking, nil
}

// ConfirmBooking flips a PENDING booking to CONFIRMED. Only the owning guide
// (or an admin) may confirm. Confirmation has no payment side effects; it
// only unlocks payment initiation.
func (s *DefaultLedgerService) ConfirmBooking(ctx context.Context, caller models.Caller, bookingID string) (*models.Booking, error) {
	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, utils.WrapAppError(utils.CodeInternal, "failed to load booking", err)
	}
	if booking == nil {
		return nil, utils.NewAppError(utils.CodeNotFound, "booking not found")
	}
	if booking.GuideID != caller.ID && !caller.IsAdmin() {
		return nil, utils.NewAppError(utils.CodeForbidden, "you can only confirm bookings for your own listings")
	}

	ok, err := s.Bookings.UpdateStatusIf(ctx, bookingID,
		[]models.BookingStatus{models.BookingPending}, models.BookingConfirmed)
	if err != nil {
		return nil, utils.WrapAppError(utils.CodeInternal, "failed to confirm booking", err)
	}
	if !ok {
		return nil, utils.NewAppError(utils.CodeInvalidState, "only pending bookings can be confirmed")
	}

	booking.Status = models.BookingConfirmed
	s.Logger.Info("booking confirmed", zap.String("bookingId", booking.ID), zap.String("guideId", caller.ID))
	return booking, nil
}

// CancelBooking cancels a PENDING or CONFIRMED booking. The tourist who made
// it, the owning guide, or an admin may cancel. Any open checkout session is
// invalidated best effort; failure to do so is logged, not fatal.
func (s *DefaultLedgerService) CancelBooking(ctx context.Context, caller models.Caller, bookingID string) (*models.Booking, error) {
	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, utils.WrapAppError(utils.CodeInternal, "failed to load booking", err)
	}
	if booking == nil {
		return nil, utils.NewAppError(utils.CodeNotFound, "booking not found")
	}
	if booking.TouristID != caller.ID && booking.GuideID != caller.ID && !caller.IsAdmin() {
		return nil, utils.NewAppError(utils.CodeForbidden, "you are not allowed to cancel this booking")
	}
	if booking.Status.Terminal() {
		return nil, utils.NewAppError(utils.CodeInvalidState, "booking is already settled and cannot be cancelled")
	}

	ok, err := s.Bookings.CancelWithPayment(ctx, booking.ID, booking.PaymentID)
	if err != nil {
		return nil, utils.WrapAppError(utils.CodeInternal, "failed to cancel booking", err)
	}
	if !ok {
		return nil, utils.NewAppError(utils.CodeInvalidState, "booking is no longer cancellable")
	}
	booking.Status = models.BookingCancelled

	s.expireOpenSession(ctx, booking)

	s.Logger.Info("booking cancelled", zap.String("bookingId", booking.ID), zap.String("callerId", caller.ID))
	return booking, nil
}

// expireOpenSession invalidates the checkout session attached to the
// booking's payment, if any. Failures are logged only.
func (s *DefaultLedgerService) expireOpenSession(ctx context.Context, booking *models.Booking) {
	if s.Gateway == nil {
		return
	}
	pay, err := s.Payments.GetByBookingID(ctx, booking.ID)
	if err != nil || pay == nil || pay.CheckoutSessionID == "" {
		return
	}
	if err := s.Gateway.ExpireSession(ctx, pay.CheckoutSessionID); err != nil {
		s.Logger.Warn("failed to expire checkout session",
			zap.String("bookingId", booking.ID),
			zap.String("sessionId", pay.CheckoutSessionID),
			zap.Error(err),
		)
	}
}

// GetBooking returns one booking, visible to its tourist, its guide, or an admin.
func (s *DefaultLedgerService) GetBooking(ctx context.Context, caller models.Caller, bookingID string) (*models.Booking, error) {
	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, utils.WrapAppError(utils.CodeInternal, "failed to load booking", err)
	}
	if booking == nil {
		return nil, utils.NewAppError(utils.CodeNotFound, "booking not found")
	}
	if booking.TouristID != caller.ID && booking.GuideID != caller.ID && !caller.IsAdmin() {
		return nil, utils.NewAppError(utils.CodeForbidden, "you are not allowed to view this booking")
	}
	return booking, nil
}

// ListBookings pages through bookings. Tourists see their own bookings,
// guides see bookings on their listings, admins see whatever the filter says.
func (s *DefaultLedgerService) ListBookings(ctx context.Context, caller models.Caller, filter models.BookingFilter, opts models.PageOptions) ([]models.Booking, int64, error) {
	switch caller.Role {
	case models.RoleTourist:
		filter.TouristID = caller.ID
	case models.RoleGuide:
		filter.GuideID = caller.ID
	case models.RoleAdmin:
		// unrestricted
	default:
		return nil, 0, utils.NewAppError(utils.CodeForbidden, "unknown role")
	}

	bookings, total, err := s.Bookings.List(ctx, filter, opts)
	if err != nil {
		return nil, 0, utils.WrapAppError(utils.CodeInternal, "failed to list bookings", err)
	}
	return bookings, total, nil
}
