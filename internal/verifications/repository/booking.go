package repository

import (
	"context"
	"errors"
	"fmt"
	verrors "meetproof/internal/verifications/errors"
	"meetproof/pkg/config"
	mongotx "meetproof/pkg/db/mongo"
	"meetproof/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	BookingCollectionName      = "Bookings"
	VerificationCollectionName = "Verifications"
)

type mongoBookingRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type BookingRepository interface {
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	Update(ctx context.Context, id string, booking *model.Booking) (*mongo.UpdateResult, error)
	FindDisputed(ctx context.Context, now time.Time, limit int, offset int64) ([]*model.Booking, error)
	CountDisputed(ctx context.Context, now time.Time) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(BookingCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo.Client),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context unchanged
// with a no-op cancel function, as we cannot wrap SessionContext without breaking
// transaction semantics.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", verrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}

	var booking model.Booking
	err = r.collection.FindOne(ctx, filter).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, verrors.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) Update(ctx context.Context, id string, booking *model.Booking) (*mongo.UpdateResult, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", verrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}
	update := bson.M{
		"$set": bson.M{
			"status":                 booking.Status,
			"payment_status":         booking.PaymentStatus,
			"authorization_ref":      booking.AuthorizationRef,
			"transfer_ref":           booking.TransferRef,
			"cancelled_by":           booking.CancelledBy,
			"cancel_reason":          booking.CancelReason,
			"cancelled_at":           booking.CancelledAt,
			"admin_resolved":         booking.AdminResolved,
			"admin_resolution_type":  booking.AdminResolutionType,
			"admin_resolved_by":      booking.AdminResolvedBy,
			"admin_resolution_notes": booking.AdminResolutionNotes,
			"admin_resolved_at":      booking.AdminResolvedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	if result.MatchedCount == 0 {
		return nil, verrors.ErrBookingNotFound
	}

	return result, nil
}

func (r *mongoBookingRepository) FindDisputed(ctx context.Context, now time.Time, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := r.buildDisputedPipeline(now)
	pipeline = append(pipeline,
		bson.D{{Key: "$sort", Value: bson.D{{Key: "end_time", Value: 1}}}},
		bson.D{{Key: "$skip", Value: offset}},
		bson.D{{Key: "$limit", Value: int64(limit)}},
		bson.D{{Key: "$project", Value: bson.M{"verification": 0}}},
	)

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to find disputed bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode disputed bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) CountDisputed(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := append(r.buildDisputedPipeline(now),
		bson.D{{Key: "$count", Value: "total"}},
	)

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to count disputed bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err = cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("failed to decode disputed count: %w", err)
	}
	if len(results) == 0 {
		return 0, nil
	}

	return results[0].Total, nil
}

// buildDisputedPipeline selects bookings past their meeting window that still
// hold an authorization with no verified outcome: status confirmed or
// payment_held, an authorization ref present, end_time elapsed, and no
// verification record carrying a verified timestamp.
func (r *mongoBookingRepository) buildDisputedPipeline(now time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"status":            bson.M{"$in": []string{model.BookingConfirmed, model.BookingPaymentHeld}},
			"authorization_ref": bson.M{"$exists": true, "$ne": ""},
			"end_time":          bson.M{"$lt": now},
		}}},
		bson.D{{Key: "$lookup", Value: bson.M{
			"from": VerificationCollectionName,
			"let":  bson.M{"bid": bson.M{"$toString": "$_id"}},
			"pipeline": mongo.Pipeline{
				bson.D{{Key: "$match", Value: bson.M{
					"$expr": bson.M{"$eq": bson.A{"$booking_id", "$$bid"}},
				}}},
			},
			"as": "verification",
		}}},
		bson.D{{Key: "$match", Value: bson.M{
			"verification.verified_at": bson.M{"$exists": false},
		}}},
	}
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
