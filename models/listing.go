package models

// Listing is the read-side view of a bookable tour. Listing management lives
// in the catalog service; the booking core only reads price, owner and the
// active flag.
type Listing struct {
	ID       string  `bson:"id" json:"id"`
	GuideID  string  `bson:"guide_id" json:"guide_id"`
	Title    string  `bson:"title" json:"title"`
	City     string  `bson:"city,omitempty" json:"city,omitempty"`
	Fee      float64 `bson:"fee" json:"fee"` // price per person
	IsActive bool    `bson:"is_active" json:"is_active"`
}
