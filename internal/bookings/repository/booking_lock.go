package repository

import (
	"context"
	"fmt"

	bookingserrors "nestbook/internal/bookings/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BookingLockRepository guards a room for the duration of a transaction.
type BookingLockRepository interface {
	Acquire(ctx context.Context, roomID string) error
}

type mongoBookingLockRepository struct {
	collection *mongo.Collection
}

func NewBookingLockRepository(db *mongo.Database) BookingLockRepository {
	return &mongoBookingLockRepository{
		collection: db.Collection(LockCollectionName),
	}
}

// Acquire writes the room's guard document inside the caller's transaction. A
// second transaction writing the same document aborts with a write conflict, so
// only one check-then-insert per room can commit at a time. The document is never
// deleted; its version counts the writes made under it.
func (r *mongoBookingLockRepository) Acquire(ctx context.Context, roomID string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": lockID(roomID)},
		bson.M{
			"$inc":         bson.M{"version": 1},
			"$currentDate": bson.M{"updated_at": true},
		},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		// two first-time upserts raced on a room that had no guard yet
		return fmt.Errorf("%w: %v", bookingserrors.ErrContention, err)
	}
	if err != nil {
		return fmt.Errorf("failed to lock room %s: %w", roomID, err)
	}
	return nil
}

func lockID(roomID string) string {
	return "room:" + roomID
}
