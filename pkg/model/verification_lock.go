package model

import "time"

// VerificationLock is an advisory lock serializing concurrent code
// submissions for the same booking. The unique _id doubles as the lock key.
type VerificationLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
