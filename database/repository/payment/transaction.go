package paymentRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tourly/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var errPreconditionFailed = errors.New("status precondition failed")

func (r *MongoPaymentRepo) withTxn(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	client := r.paymentColl.Database().Client()
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

// MarkPaidWithBooking reconciles a gateway-confirmed payment: payment goes
// PAID and the booking goes COMPLETED in one transaction. Both updates carry
// a status precondition so duplicate webhook deliveries and racing confirm
// polls apply the side effects at most once.
func (r *MongoPaymentRepo) MarkPaidWithBooking(ctx context.Context, paymentID, bookingID, gatewayRef string, paidAt time.Time) (bool, error) {
	err := r.withTxn(ctx, func(sc mongo.SessionContext) error {
		payFilter := bson.M{
			"id":     paymentID,
			"status": bson.M{"$ne": models.PaymentPaid},
		}
		payUpdate := bson.M{"$set": bson.M{
			"status":      models.PaymentPaid,
			"gateway_ref": gatewayRef,
			"paid_at":     paidAt,
			"updated_at":  time.Now(),
		}}
		payRes, err := r.paymentColl.UpdateOne(sc, payFilter, payUpdate)
		if err != nil {
			return fmt.Errorf("mark payment paid failed: %w", err)
		}
		if payRes.MatchedCount == 0 {
			return errPreconditionFailed
		}

		bookFilter := bson.M{
			"id":     bookingID,
			"status": models.BookingConfirmed,
		}
		bookUpdate := bson.M{"$set": bson.M{
			"status":     models.BookingCompleted,
			"updated_at": time.Now(),
		}}
		bookRes, err := r.bookingColl.UpdateOne(sc, bookFilter, bookUpdate)
		if err != nil {
			return fmt.Errorf("complete booking failed: %w", err)
		}
		if bookRes.MatchedCount == 0 {
			return errPreconditionFailed
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errPreconditionFailed) {
			return false, nil
		}
		return false, fmt.Errorf("reconcile transaction failed: %w", err)
	}
	return true, nil
}
