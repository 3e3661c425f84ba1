package repository

import (
	"context"
	"meetproof/pkg/config"
	"meetproof/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// VerificationLockRepository provides operations for advisory locks
type VerificationLockRepository interface {
	Create(ctx context.Context, lock *model.VerificationLock) (*model.VerificationLock, error)
	Delete(ctx context.Context, lockID string) error
}

type mongoVerificationLockRepository struct {
	collection *mongo.Collection
}

func NewVerificationLockRepository(cfg *config.Config) VerificationLockRepository {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoVerificationLockRepository{
		collection: db.Collection("Verification_locks"),
	}
}

// Returns duplicate key error if lock already exists
func (r *mongoVerificationLockRepository) Create(ctx context.Context, lock *model.VerificationLock) (*model.VerificationLock, error) {
	lock.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, lock)
	if err != nil {
		return nil, err
	}

	return lock, nil
}

// Delete removes an advisory lock
func (r *mongoVerificationLockRepository) Delete(ctx context.Context, lockID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID})
	return err
}
