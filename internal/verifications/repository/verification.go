package repository

import (
	"context"
	"errors"
	"fmt"
	verrors "meetproof/internal/verifications/errors"
	"meetproof/pkg/config"
	"meetproof/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoVerificationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

type VerificationRepository interface {
	Create(ctx context.Context, record *model.VerificationRecord) error
	FindByBookingID(ctx context.Context, bookingID string) (*model.VerificationRecord, error)
	Update(ctx context.Context, id string, record *model.VerificationRecord) (*mongo.UpdateResult, error)
}

func NewMongoVerificationRepository(cfg *config.Config) VerificationRepository {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoVerificationRepository{
		cfg:        cfg,
		collection: db.Collection(VerificationCollectionName),
	}
}

func (r *mongoVerificationRepository) Create(ctx context.Context, record *model.VerificationRecord) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	record.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to create verification record: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		record.ID = oid.Hex()
	}
	return nil
}

func (r *mongoVerificationRepository) FindByBookingID(ctx context.Context, bookingID string) (*model.VerificationRecord, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"booking_id": bookingID}

	var record model.VerificationRecord
	err := r.collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, verrors.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to find verification record: %w", err)
	}

	return &record, nil
}

func (r *mongoVerificationRepository) Update(ctx context.Context, id string, record *model.VerificationRecord) (*mongo.UpdateResult, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", verrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}
	update := bson.M{
		"$set": bson.M{
			"requester_entered":   record.RequesterEntered,
			"provider_entered":    record.ProviderEntered,
			"requester_attempts":  record.RequesterAttempts,
			"provider_attempts":   record.ProviderAttempts,
			"requester_lat":       record.RequesterLat,
			"requester_lng":       record.RequesterLng,
			"provider_lat":        record.ProviderLat,
			"provider_lng":        record.ProviderLng,
			"requester_distance":  record.RequesterDistance,
			"provider_distance":   record.ProviderDistance,
			"verification_status": record.Status,
			"location_verified":   record.LocationVerified,
			"failure_reason":      record.FailureReason,
			"verified_at":         record.VerifiedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update verification record: %w", err)
	}

	if result.MatchedCount == 0 {
		return nil, verrors.ErrRecordNotFound
	}

	return result, nil
}
