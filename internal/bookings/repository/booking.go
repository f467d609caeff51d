package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "nestbook/internal/bookings/errors"
	"nestbook/pkg/config"
	mongotx "nestbook/pkg/db/mongo"
	"nestbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	fieldKind           = "kind"
	fieldUserID         = "user_id"
	fieldActive         = "not_canceled"
	fieldGuests         = "guests"
	fieldCreatedAt      = "created_at"
	fieldUpdatedAt      = "updated_at"
	fieldRoomID         = "stay.room_id"
	fieldCheckIn        = "stay.check_in"
	fieldCheckOut       = "stay.check_out"
	fieldExperienceID   = "visit.experience_id"
	fieldExperienceTime = "visit.experience_time"
)

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	locks      BookingLockRepository
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		locks:      NewBookingLockRepository(db),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout unless it carries a session. Inside a
// transaction the caller's deadline governs the whole unit of work.
func (r *mongoBookingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if mongo.SessionFromContext(ctx) != nil {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	doc := *booking
	doc.ID = ""
	doc.CreatedAt = doc.CreatedAt.UTC().Truncate(time.Millisecond)
	doc.UpdatedAt = doc.UpdatedAt.UTC().Truncate(time.Millisecond)

	result, err := r.collection.InsertOne(ctx, &doc)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
		noteCreated(ctx, booking)
	}
	booking.CreatedAt, booking.UpdatedAt = doc.CreatedAt, doc.UpdatedAt
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(booking.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, booking.ID)
	}

	set := bson.M{
		fieldGuests:    booking.Guests,
		fieldActive:    booking.Active,
		fieldUpdatedAt: booking.UpdatedAt.UTC().Truncate(time.Millisecond),
	}
	if booking.Stay != nil {
		set[fieldCheckIn] = booking.Stay.CheckIn
		set[fieldCheckOut] = booking.Stay.CheckOut
	}
	if booking.Visit != nil {
		set[fieldExperienceTime] = booking.Visit.ExperienceTime
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *mongoBookingRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if result.DeletedCount == 0 {
		return bookingserrors.ErrNotFound
	}
	return nil
}

func (r *mongoBookingRepository) FindOverlappingStays(ctx context.Context, roomID string, checkIn, checkOut model.Date, excludeID string) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		fieldKind:     model.KindRoom,
		fieldActive:   true,
		fieldRoomID:   roomID,
		fieldCheckIn:  bson.M{"$lte": checkOut},
		fieldCheckOut: bson.M{"$gte": checkIn},
	}
	if excludeID != "" {
		if oid, err := primitive.ObjectIDFromHex(excludeID); err == nil {
			filter["_id"] = bson.M{"$ne": oid}
		}
	}

	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: fieldCheckIn, Value: 1}}))
}

func (r *mongoBookingRepository) FindUpcomingStays(ctx context.Context, roomID string, after model.Date, page model.Page) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: fieldCheckIn, Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(page.Limit)).
		SetSkip(page.Offset)

	return r.find(ctx, upcomingStaysFilter(roomID, after), opts)
}

func (r *mongoBookingRepository) CountUpcomingStays(ctx context.Context, roomID string, after model.Date) (int64, error) {
	return r.count(ctx, upcomingStaysFilter(roomID, after))
}

func (r *mongoBookingRepository) FindUpcomingVisits(ctx context.Context, experienceID string, from time.Time, page model.Page) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: fieldExperienceTime, Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(page.Limit)).
		SetSkip(page.Offset)

	return r.find(ctx, upcomingVisitsFilter(experienceID, from), opts)
}

func (r *mongoBookingRepository) CountUpcomingVisits(ctx context.Context, experienceID string, from time.Time) (int64, error) {
	return r.count(ctx, upcomingVisitsFilter(experienceID, from))
}

func (r *mongoBookingRepository) FindByUser(ctx context.Context, userID string, page model.Page) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: fieldCreatedAt, Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(page.Limit)).
		SetSkip(page.Offset)

	return r.find(ctx, bson.M{fieldUserID: userID}, opts)
}

func (r *mongoBookingRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	return r.count(ctx, bson.M{fieldUserID: userID})
}

func (r *mongoBookingRepository) DetachListing(ctx context.Context, kind model.BookingKind, listingID string, at time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	field := fieldRoomID
	if kind == model.KindExperience {
		field = fieldExperienceID
	}

	result, err := r.collection.UpdateMany(ctx,
		bson.M{fieldKind: kind, field: listingID},
		bson.M{"$set": bson.M{
			field:          "",
			fieldUpdatedAt: at.UTC().Truncate(time.Millisecond),
		}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to detach listing: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *mongoBookingRepository) LockRoom(ctx context.Context, roomID string) error {
	if mongo.SessionFromContext(ctx) == nil {
		return fmt.Errorf("room lock requires a transaction")
	}
	return r.locks.Acquire(ctx, roomID)
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn TxFunc) error {
	ctx, rollback := trackCreated(ctx)
	err := r.txManager.ExecuteTransaction(ctx, mongotx.TransactionFunc(fn))
	if err != nil {
		rollback()
	}
	if err != nil && mongotx.IsTransientError(err) {
		return fmt.Errorf("%w: %v", bookingserrors.ErrContention, err)
	}
	return err
}

func (r *mongoBookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Booking, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) count(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func upcomingStaysFilter(roomID string, after model.Date) bson.M {
	return bson.M{
		fieldKind:    model.KindRoom,
		fieldActive:  true,
		fieldRoomID:  roomID,
		fieldCheckIn: bson.M{"$gt": after},
	}
}

func upcomingVisitsFilter(experienceID string, from time.Time) bson.M {
	return bson.M{
		fieldKind:           model.KindExperience,
		fieldActive:         true,
		fieldExperienceID:   experienceID,
		fieldExperienceTime: bson.M{"$gte": from},
	}
}
