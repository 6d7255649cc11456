package payment

import (
	"context"
	"fmt"
	"time"

	"tourly/cron"
	"tourly/models"
	"tourly/utils"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// gatewayTimeout bounds every call to the payment gateway. On timeout the
// local payment record is left unchanged and the caller gets a retryable
// error.
const gatewayTimeout = 10 * time.Second

// sessionLifetime is just under Stripe's 24h cap on checkout sessions.
const sessionLifetime = 23*time.Hour + 59*time.Minute

// InitiateCheckout opens (or re-returns) a hosted checkout session for a
// confirmed booking. Re-entry is idempotent: while a previous session is
// still open at the gateway, that session is returned instead of a new one.
func (s *DefaultReconcilerService) InitiateCheckout(ctx context.Context, caller models.Caller, bookingID string) (*CheckoutIntent, error) {
	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, utils.WrapAppError(utils.CodeInternal, "failed to load booking", err)
	}
	if booking == nil {
		return nil, utils.NewAppError(utils.CodeNotFound, "booking not found")
	}
	if booking.TouristID != caller.ID && !caller.IsAdmin() {
		return nil, utils.NewAppError(utils.CodeForbidden, "you can only pay for your own bookings")
	}
	if booking.Status != models.BookingConfirmed {
		return nil, utils.NewAppError(utils.CodeInvalidState, "booking is not in a payable state")
	}

	pay, err := s.Payments.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, utils.WrapAppError(utils.CodeInternal, "failed to load payment", err)
	}
	if pay == nil {
		return nil, utils.NewAppError(utils.CodeNotFound, "payment record not found for this booking")
	}
	if pay.Status == models.PaymentPaid {
		return nil, utils.NewAppError(utils.CodeAlreadyPaid, "booking already paid")
	}

	// Reuse a prior session while the gateway still reports it open.
	if pay.CheckoutSessionID != "" {
		gctx, cancel := context.WithTimeout(ctx, gatewayTimeout)
		sess, err := s.Gateway.RetrieveSession(gctx, pay.CheckoutSessionID)
		cancel()
		if err == nil {
			switch {
			case sess.Status == SessionOpen:
				return &CheckoutIntent{CheckoutURL: sess.URL, SessionID: sess.ID}, nil
			case sess.Paid:
				// The gateway collected funds before we reconciled; close
				// the window now instead of opening a duplicate session.
				if _, err := s.reconcilePaid(ctx, pay.ID, booking.ID, sess.Ref); err != nil {
					return nil, err
				}
				return nil, utils.NewAppError(utils.CodeAlreadyPaid, "booking already paid")
			}
			// expired: fall through and create a fresh session
		} else {
			s.Logger.Warn("failed to retrieve prior checkout session, creating a new one",
				zap.String("sessionId", pay.CheckoutSessionID), zap.Error(err))
		}
	}

	productName := "Tour booking"
	description := fmt.Sprintf("Booking for %s", booking.Date)
	if s.Listings != nil {
		if listing, err := s.Listings.GetByID(ctx, booking.ListingID); err == nil && listing != nil {
			productName = fmt.Sprintf("%s - Tour Booking", listing.Title)
		}
	}

	params := CreateSessionParams{
		Amount:      pay.Amount, // stored amount, never recomputed from the request
		Currency:    pay.Currency,
		ProductName: productName,
		Description: description,
		Metadata: map[string]string{
			MetaBookingID: booking.ID,
			MetaPaymentID: pay.ID,
			MetaUserID:    booking.TouristID,
		},
		SuccessURL: fmt.Sprintf("%s/dashboard/tourist/my-trips?payment=success&bookingId=%s", s.FrontendURL, booking.ID),
		CancelURL:  fmt.Sprintf("%s/tours/%s", s.FrontendURL, booking.ListingID),
		ExpiresAt:  time.Now().Add(sessionLifetime),
	}

	gctx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	sess, err := s.Gateway.CreateSession(gctx, params)
	cancel()
	if err != nil {
		return nil, utils.WrapAppError(utils.CodeGatewayUnavailable, "payment gateway is unavailable, please retry", err)
	}

	transactionID := pay.TransactionID
	if transactionID == "" {
		transactionID = uuid.New().String()
	}
	attached, err := s.Payments.AttachSession(ctx, pay.ID, pay.CheckoutSessionID, sess.ID, transactionID)
	if err != nil {
		return nil, utils.WrapAppError(utils.CodeInternal, "failed to record checkout session", err)
	}
	if !attached {
		// A concurrent initiation attached its session first. Discard ours
		// and hand the caller the winning session instead.
		s.discardSession(ctx, sess.ID)
		return s.winningIntent(ctx, pay.ID)
	}

	s.scheduleSweep(sess.ID)

	s.Logger.Info("checkout session created",
		zap.String("bookingId", booking.ID),
		zap.String("paymentId", pay.ID),
		zap.String("sessionId", sess.ID),
	)
	return &CheckoutIntent{CheckoutURL: sess.URL, SessionID: sess.ID}, nil
}

// discardSession expires a session that lost the attach race so the orphan
// can never collect funds. Best effort.
func (s *DefaultReconcilerService) discardSession(ctx context.Context, sessionID string) {
	gctx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()
	if err := s.Gateway.ExpireSession(gctx, sessionID); err != nil {
		s.Logger.Warn("failed to expire losing checkout session",
			zap.String("sessionId", sessionID), zap.Error(err))
	}
}

// winningIntent reloads the payment and returns the session a concurrent
// initiation attached to it.
func (s *DefaultReconcilerService) winningIntent(ctx context.Context, paymentID string) (*CheckoutIntent, error) {
	pay, err := s.Payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, utils.WrapAppError(utils.CodeInternal, "failed to reload payment", err)
	}
	if pay == nil || pay.CheckoutSessionID == "" {
		return nil, utils.NewAppError(utils.CodeConflict, "checkout is being initiated elsewhere, please retry")
	}

	gctx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	sess, err := s.Gateway.RetrieveSession(gctx, pay.CheckoutSessionID)
	cancel()
	if err != nil {
		return nil, utils.WrapAppError(utils.CodeGatewayUnavailable, "payment gateway is unavailable, please retry", err)
	}
	return &CheckoutIntent{CheckoutURL: sess.URL, SessionID: sess.ID}, nil
}

// ConfirmCheckout is the synchronous confirmation path used when the client
// polls after the checkout redirect. It trusts only the gateway's view of
// the session and is a safe no-op while the gateway reports it unpaid.
func (s *DefaultReconcilerService) ConfirmCheckout(ctx context.Context, caller models.Caller, sessionID string) (*models.Payment, error) {
	gctx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	sess, err := s.Gateway.RetrieveSession(gctx, sessionID)
	cancel()
	if err != nil {
		return nil, utils.WrapAppError(utils.CodeGatewayUnavailable, "payment gateway is unavailable, please retry", err)
	}

	bookingID := sess.Metadata[MetaBookingID]
	paymentID := sess.Metadata[MetaPaymentID]
	if bookingID == "" || paymentID == "" {
		return nil, utils.NewAppError(utils.CodeInvalidInput, "checkout session carries no booking metadata")
	}

	booking, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, utils.WrapAppError(utils.CodeInternal, "failed to load booking", err)
	}
	if booking == nil {
		return nil, utils.NewAppError(utils.CodeNotFound, "booking not found")
	}
	if booking.TouristID != caller.ID && !caller.IsAdmin() {
		return nil, utils.NewAppError(utils.CodeForbidden, "you can only confirm payments for your own bookings")
	}

	pay, err := s.Payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, utils.WrapAppError(utils.CodeInternal, "failed to load payment", err)
	}
	if pay == nil {
		return nil, utils.NewAppError(utils.CodeNotFound, "payment not found")
	}

	if !sess.Paid {
		// Gateway has not collected funds; report local state unchanged.
		return pay, nil
	}
	if pay.Status == models.PaymentPaid {
		return pay, nil
	}

	return s.reconcilePaid(ctx, pay.ID, bookingID, sess.Ref)
}

// reconcilePaid applies the paid outcome atomically across the payment and
// booking records and returns the refreshed payment.
func (s *DefaultReconcilerService) reconcilePaid(ctx context.Context, paymentID, bookingID, gatewayRef string) (*models.Payment, error) {
	applied, err := s.Payments.MarkPaidWithBooking(ctx, paymentID, bookingID, gatewayRef, time.Now())
	if err != nil {
		return nil, utils.WrapAppError(utils.CodeInternal, "failed to reconcile payment", err)
	}
	if !applied {
		s.Logger.Info("reconcile skipped, records already settled or stale",
			zap.String("paymentId", paymentID), zap.String("bookingId", bookingID))
	}

	pay, err := s.Payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, utils.WrapAppError(utils.CodeInternal, "failed to reload payment", err)
	}
	if pay == nil {
		return nil, utils.NewAppError(utils.CodeNotFound, "payment not found")
	}
	return pay, nil
}

// scheduleSweep enqueues a delayed task that re-checks the session after its
// expiry, catching webhooks that never arrived. Best effort.
func (s *DefaultReconcilerService) scheduleSweep(sessionID string) {
	if s.Queue == nil {
		return
	}
	task, err := cron.NewSweepTask(sessionID)
	if err != nil {
		s.Logger.Warn("failed to build sweep task", zap.Error(err))
		return
	}
	if _, err := s.Queue.Enqueue(task, asynq.ProcessIn(sessionLifetime+5*time.Minute)); err != nil {
		s.Logger.Warn("failed to schedule checkout sweep", zap.String("sessionId", sessionID), zap.Error(err))
	}
}

// SweepSession re-queries the gateway for a session whose webhook may have
// been lost and settles local state accordingly. Safe to run repeatedly.
func (s *DefaultReconcilerService) SweepSession(ctx context.Context, sessionID string) error {
	gctx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	sess, err := s.Gateway.RetrieveSession(gctx, sessionID)
	cancel()
	if err != nil {
		return utils.WrapAppError(utils.CodeGatewayUnavailable, "payment gateway is unavailable", err)
	}

	bookingID := sess.Metadata[MetaBookingID]
	paymentID := sess.Metadata[MetaPaymentID]
	if bookingID == "" || paymentID == "" {
		s.Logger.Warn("sweep found session without booking metadata", zap.String("sessionId", sessionID))
		return nil
	}

	if sess.Paid {
		_, err := s.reconcilePaid(ctx, paymentID, bookingID, sess.Ref)
		return err
	}
	if sess.Status != SessionExpired {
		return nil
	}

	pay, err := s.Payments.GetByID(ctx, paymentID)
	if err != nil {
		return utils.WrapAppError(utils.CodeInternal, "failed to load payment", err)
	}
	if pay == nil || pay.Status == models.PaymentPaid || pay.Status == models.PaymentCancelled {
		return nil
	}
	if err := s.Payments.SetStatus(ctx, paymentID, models.PaymentFailed); err != nil {
		return utils.WrapAppError(utils.CodeInternal, "failed to mark payment failed", err)
	}
	s.Logger.Info("sweep marked payment failed after session expiry",
		zap.String("paymentId", paymentID), zap.String("sessionId", sessionID))
	return nil
}

// ListPayments pages through payments visible to the caller: tourists see
// their own, guides see payments on their listings, admins see all.
func (s *DefaultReconcilerService) ListPayments(ctx context.Context, caller models.Caller, opts models.PageOptions) ([]models.Payment, int64, error) {
	var filter models.PaymentFilter
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

	payments, total, err := s.Payments.List(ctx, filter, opts)
	if err != nil {
		return nil, 0, utils.WrapAppError(utils.CodeInternal, "failed to list payments", err)
	}
	return payments, total, nil
}
