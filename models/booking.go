package models

import "time"

// BookingStatus enumerates the booking lifecycle.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Terminal reports whether no further transition may leave this status.
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

// Booking represents a reservation of a guide's listing for one date.
type Booking struct {
	ID         string        `bson:"id" json:"id"`                   // Unique booking identifier (UUID)
	ListingID  string        `bson:"listing_id" json:"listing_id"`   // Listing being booked
	TouristID  string        `bson:"tourist_id" json:"tourist_id"`   // Tourist who made the booking
	GuideID    string        `bson:"guide_id" json:"guide_id"`       // Owning guide, derived from the listing
	Date       string        `bson:"date" json:"date"`               // Requested date in "YYYY-MM-DD" format
	GroupSize  int           `bson:"group_size" json:"group_size"`   // Number of people in the group
	TotalPrice float64       `bson:"total_price" json:"total_price"` // Computed server-side: fee x group size
	Status     BookingStatus `bson:"status" json:"status"`
	PaymentID  string        `bson:"payment_id" json:"payment_id"` // Companion payment record
	CreatedAt  time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `bson:"updated_at" json:"updated_at"`
}

// BookingFilter narrows ListBookings queries. Zero fields are ignored.
type BookingFilter struct {
	TouristID string
	GuideID   string
	ListingID string
	Status    BookingStatus
	DateFrom  string // inclusive, "YYYY-MM-DD"
}
