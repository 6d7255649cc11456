package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tourly/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// errPreconditionFailed aborts a transaction whose status precondition no
// longer holds; the caller reports it as a clean false, not a failure.
var errPreconditionFailed = errors.New("status precondition failed")

// withTxn runs fn inside a Mongo transaction, committing on success and
// aborting on any error. Transient transaction aborts are retried once.
func (r *MongoBookingRepo) withTxn(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	client := r.bookingColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	run := func() error {
		return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
			if err := sc.StartTransaction(); err != nil {
				return err
			}
			if err := fn(sc); err != nil {
				_ = sc.AbortTransaction(sc)
				return err
			}
			return sc.CommitTransaction(sc)
		})
	}

	err = run()
	if err != nil && isTransientTxnError(err) {
		err = run()
	}
	return err
}

func isTransientTxnError(err error) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return ce.HasErrorLabel("TransientTransactionError")
	}
	return false
}

// CreateWithPayment inserts the booking and its UNPAID payment placeholder
// atomically. A duplicate-key rejection from the (listing_id, date) partial
// index maps to ErrDateTaken.
func (r *MongoBookingRepo) CreateWithPayment(ctx context.Context, booking *models.Booking, payment *models.Payment) error {
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	payment.CreatedAt = now
	payment.UpdatedAt = now

	err := r.withTxn(ctx, func(sc mongo.SessionContext) error {
		if _, err := r.bookingColl.InsertOne(sc, booking); err != nil {
			return fmt.Errorf("insert booking failed: %w", err)
		}
		if _, err := r.paymentColl.InsertOne(sc, payment); err != nil {
			return fmt.Errorf("insert payment failed: %w", err)
		}
		return nil
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDateTaken
		}
		return fmt.Errorf("booking transaction failed: %w", err)
	}
	return nil
}

// CancelWithPayment sets the booking CANCELLED and its payment CANCELLED in
// one transaction. The booking update is preconditioned on the current
// status still being PENDING or CONFIRMED.
func (r *MongoBookingRepo) CancelWithPayment(ctx context.Context, bookingID, paymentID string) (bool, error) {
	now := time.Now()

	err := r.withTxn(ctx, func(sc mongo.SessionContext) error {
		filter := bson.M{
			"id": bookingID,
			"status": bson.M{"$in": []string{
				string(models.BookingPending),
				string(models.BookingConfirmed),
			}},
		}
		update := bson.M{"$set": bson.M{"status": models.BookingCancelled, "updated_at": now}}
		res, err := r.bookingColl.UpdateOne(sc, filter, update)
		if err != nil {
			return fmt.Errorf("cancel booking failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return errPreconditionFailed
		}

		payUpdate := bson.M{"$set": bson.M{"status": models.PaymentCancelled, "updated_at": now}}
		if _, err := r.paymentColl.UpdateOne(sc, bson.M{"id": paymentID}, payUpdate); err != nil {
			return fmt.Errorf("cancel payment failed: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errPreconditionFailed) {
			return false, nil
		}
		return false, fmt.Errorf("cancel transaction failed: %w", err)
	}
	return true, nil
}
