package bookingRepo

import (
	"context"
	"fmt"

	"tourly/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// List returns one page of bookings matching the filter plus the total count.
func (r *MongoBookingRepo) List(ctx context.Context, filter models.BookingFilter, opts models.PageOptions) ([]models.Booking, int64, error) {
	opts = opts.Normalize()

	query := bson.M{}
	if filter.TouristID != "" {
		query["tourist_id"] = filter.TouristID
	}
	if filter.GuideID != "" {
		query["guide_id"] = filter.GuideID
	}
	if filter.ListingID != "" {
		query["listing_id"] = filter.ListingID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.DateFrom != "" {
		query["date"] = bson.M{"$gte": filter.DateFrom}
	}

	sortDir := -1
	if opts.SortOrder == "asc" {
		sortDir = 1
	}
	findOpts := options.Find().
		SetSort(bson.D{{Key: opts.SortBy, Value: sortDir}}).
		SetSkip(int64((opts.Page - 1) * opts.Limit)).
		SetLimit(int64(opts.Limit))

	cursor, err := r.bookingColl.Find(ctx, query, findOpts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	for cursor.Next(ctx) {
		var b models.Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, 0, fmt.Errorf("failed to decode booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, fmt.Errorf("booking cursor failed: %w", err)
	}

	total, err := r.bookingColl.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return bookings, total, nil
}
