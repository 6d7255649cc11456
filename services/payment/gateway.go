package payment

import (
	"context"
	"time"
)

// Metadata keys attached to every hosted checkout session so asynchronous
// gateway callbacks can be correlated back to local records.
const (
	MetaBookingID = "bookingId"
	MetaPaymentID = "paymentId"
	MetaUserID    = "userId"
)

// SessionStatus is the gateway's view of a hosted checkout session.
type SessionStatus string

const (
	SessionOpen     SessionStatus = "open"
	SessionComplete SessionStatus = "complete"
	SessionExpired  SessionStatus = "expired"
)

// CheckoutSession is the gateway-side record of one payment attempt. Local
// state is never authoritative until the gateway confirms.
type CheckoutSession struct {
	ID       string
	URL      string
	Status   SessionStatus
	Paid     bool   // gateway collected the funds
	Ref      string // gateway payment/transaction reference
	Metadata map[string]string
}

// CreateSessionParams sizes a new hosted checkout session. The amount comes
// from the stored payment record, never from client input.
type CreateSessionParams struct {
	Amount      float64
	Currency    string
	ProductName string
	Description string
	Metadata    map[string]string
	SuccessURL  string
	CancelURL   string
	ExpiresAt   time.Time
}

// CheckoutGateway is the narrow capability interface over the hosted payment
// gateway. One implementation is constructed at process start and injected.
type CheckoutGateway interface {
	CreateSession(ctx context.Context, params CreateSessionParams) (*CheckoutSession, error)
	RetrieveSession(ctx context.Context, id string) (*CheckoutSession, error)
	ExpireSession(ctx context.Context, id string) error
}
