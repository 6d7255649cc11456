package listingRepo

import (
	"context"

	"tourly/models"
)

// ListingRepository is the read-side view of the catalog. The booking core
// never writes listings.
type ListingRepository interface {
	// GetByID retrieves a listing by its unique ID. Returns (nil, nil) when
	// no listing exists.
	GetByID(ctx context.Context, id string) (*models.Listing, error)
}
