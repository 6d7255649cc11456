package models

import "time"

// PaymentStatus enumerates the payment lifecycle.
type PaymentStatus string

const (
	PaymentUnpaid    PaymentStatus = "UNPAID"
	PaymentPending   PaymentStatus = "PENDING"
	PaymentPaid      PaymentStatus = "PAID"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

// Payment is the monetary record tied 1:1 to a booking. The amount is fixed
// at booking-creation time and never taken from client input afterwards.
type Payment struct {
	ID        string `bson:"id" json:"id"`
	BookingID string `bson:"booking_id" json:"booking_id"`
	// Tourist and guide ids are denormalized from the booking so payment
	// listings do not need a join.
	TouristID     string        `bson:"tourist_id" json:"tourist_id"`
	GuideID       string        `bson:"guide_id" json:"guide_id"`
	Amount        float64       `bson:"amount" json:"amount"`
	Currency      string        `bson:"currency" json:"currency"`
	Status        PaymentStatus `bson:"status" json:"status"`
	Method        string        `bson:"method" json:"method"` // "stripe"
	TransactionID string        `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	// CheckoutSessionID references the hosted checkout session at the
	// gateway; the gateway record stays authoritative until reconciled.
	CheckoutSessionID string     `bson:"checkout_session_id,omitempty" json:"checkout_session_id,omitempty"`
	GatewayRef        string     `bson:"gateway_ref,omitempty" json:"gateway_ref,omitempty"` // payment intent / charge reference
	PaidAt            *time.Time `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	CreatedAt         time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `bson:"updated_at" json:"updated_at"`
}

// PaymentFilter narrows ListPayments queries. Zero fields are ignored.
type PaymentFilter struct {
	TouristID string
	GuideID   string
	Status    PaymentStatus
}
