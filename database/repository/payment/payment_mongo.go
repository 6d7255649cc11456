package paymentRepo

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

// MongoPaymentRepo implements PaymentRepository using MongoDB. It holds the
// bookings collection as well because reconciliation writes both records in
// one transaction.
type MongoPaymentRepo struct {
	paymentColl *mongo.Collection
	bookingColl *mongo.Collection
}

// NewMongoPaymentRepo creates a new instance of PaymentRepository using MongoDB.
func NewMongoPaymentRepo() PaymentRepository {
	db := database.DB()
	repo := &MongoPaymentRepo{
		paymentColl: db.Collection("payments"),
		bookingColl: db.Collection("bookings"),
	}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create payment indexes: %v\n", err)
	}
	return repo
}

func (r *MongoPaymentRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "booking_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "checkout_session_id", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "tourist_id", Value: 1}}},
		{Keys: bson.D{{Key: "guide_id", Value: 1}}},
	}
	if _, err := r.paymentColl.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create payment indexes: %w", err)
	}
	return nil
}

// GetByID retrieves a payment by its unique ID.
func (r *MongoPaymentRepo) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.paymentColl.FindOne(ctx, bson.M{"id": id}).Decode(&payment); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch payment with id %s: %w", id, err)
	}
	return &payment, nil
}

// GetByBookingID retrieves the payment linked to a booking.
func (r *MongoPaymentRepo) GetByBookingID(ctx context.Context, bookingID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.paymentColl.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&payment); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch payment for booking %s: %w", bookingID, err)
	}
	return &payment, nil
}

// AttachSession persists a new checkout session id on the payment, but only
// while it still carries prevSessionID. The conditional filter serializes
// concurrent initiations on the database.
func (r *MongoPaymentRepo) AttachSession(ctx context.Context, paymentID, prevSessionID, sessionID, transactionID string) (bool, error) {
	filter := bson.M{"id": paymentID}
	if prevSessionID == "" {
		// Fresh payments have no checkout_session_id field at all.
		filter["checkout_session_id"] = bson.M{"$in": bson.A{"", nil}}
	} else {
		filter["checkout_session_id"] = prevSessionID
	}

	update := bson.M{"$set": bson.M{
		"checkout_session_id": sessionID,
		"transaction_id":      transactionID,
		"updated_at":          time.Now(),
	}}
	res, err := r.paymentColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to attach session to payment %s: %w", paymentID, err)
	}
	return res.MatchedCount == 1, nil
}

// SetStatus updates the payment status.
func (r *MongoPaymentRepo) SetStatus(ctx context.Context, paymentID string, status models.PaymentStatus) error {
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now()}}
	res, err := r.paymentColl.UpdateOne(ctx, bson.M{"id": paymentID}, update)
	if err != nil {
		return fmt.Errorf("failed to set payment %s status: %w", paymentID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("payment with id %s not found", paymentID)
	}
	return nil
}

// List returns one page of payments matching the filter plus the total count.
func (r *MongoPaymentRepo) List(ctx context.Context, filter models.PaymentFilter, opts models.PageOptions) ([]models.Payment, int64, error) {
	opts = opts.Normalize()

	query := bson.M{}
	if filter.TouristID != "" {
		query["tourist_id"] = filter.TouristID
	}
	if filter.GuideID != "" {
		query["guide_id"] = filter.GuideID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	sortDir := -1
	if opts.SortOrder == "asc" {
		sortDir = 1
	}
	findOpts := options.Find().
		SetSort(bson.D{{Key: opts.SortBy, Value: sortDir}}).
		SetSkip(int64((opts.Page - 1) * opts.Limit)).
		SetLimit(int64(opts.Limit))

	cursor, err := r.paymentColl.Find(ctx, query, findOpts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	defer cursor.Close(ctx)

	var payments []models.Payment
	for cursor.Next(ctx) {
		var p models.Payment
		if err := cursor.Decode(&p); err != nil {
			return nil, 0, fmt.Errorf("failed to decode payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, fmt.Errorf("payment cursor failed: %w", err)
	}

	total, err := r.paymentColl.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return payments, total, nil
}
