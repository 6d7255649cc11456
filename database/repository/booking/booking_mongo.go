package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tourly/database"
	"tourly/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBookingRepo implements BookingRepository using MongoDB. It holds both
// the bookings and payments collections because booking and payment records
// for one booking form a single consistency unit.
type MongoBookingRepo struct {
	bookingColl *mongo.Collection
	paymentColl *mongo.Collection
}

// NewMongoBookingRepo creates a new instance of BookingRepository using MongoDB.
func NewMongoBookingRepo() BookingRepository {
	db := database.DB()
	repo := &MongoBookingRepo{
		bookingColl: db.Collection("bookings"),
		paymentColl: db.Collection("payments"),
	}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create booking indexes: %v\n", err)
	}
	return repo
}

// newContext creates a context with the given timeout.
func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// ensureIndexes creates indexes for fields frequently used in queries. The
// partial unique index on (listing_id, date) only covers PENDING and
// CONFIRMED bookings, so a cancelled date can be rebooked.
func (r *MongoBookingRepo) ensureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	bookingIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tourist_id", Value: 1}}},
		{Keys: bson.D{{Key: "guide_id", Value: 1}}},
		{
			Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"status": bson.M{"$in": []string{
						string(models.BookingPending),
						string(models.BookingConfirmed),
					}},
				}),
		},
	}
	if _, err := r.bookingColl.Indexes().CreateMany(ctx, bookingIndexes); err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}
	return nil
}

// GetByID retrieves a booking by its unique ID.
func (r *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.bookingColl.FindOne(ctx, bson.M{"id": id}).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch booking with id %s: %w", id, err)
	}
	return &booking, nil
}

// FindActiveByListingDate returns a PENDING or CONFIRMED booking holding the
// given listing and date.
func (r *MongoBookingRepo) FindActiveByListingDate(ctx context.Context, listingID, date string) (*models.Booking, error) {
	filter := bson.M{
		"listing_id": listingID,
		"date":       date,
		"status": bson.M{"$in": []string{
			string(models.BookingPending),
			string(models.BookingConfirmed),
		}},
	}
	var booking models.Booking
	if err := r.bookingColl.FindOne(ctx, filter).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check listing availability: %w", err)
	}
	return &booking, nil
}

// UpdateStatusIf transitions booking status only from one of the expected
// current statuses.
func (r *MongoBookingRepo) UpdateStatusIf(ctx context.Context, id string, from []models.BookingStatus, to models.BookingStatus) (bool, error) {
	statuses := make([]string, 0, len(from))
	for _, s := range from {
		statuses = append(statuses, string(s))
	}
	filter := bson.M{"id": id, "status": bson.M{"$in": statuses}}
	update := bson.M{"$set": bson.M{"status": to, "updated_at": time.Now()}}

	res, err := r.bookingColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to update booking %s status: %w", id, err)
	}
	return res.MatchedCount > 0, nil
}
