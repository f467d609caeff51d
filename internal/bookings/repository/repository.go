package repository

import (
	"context"
	"time"

	"nestbook/pkg/model"
)

const (
	CollectionName     = "Bookings"
	LockCollectionName = "Booking_locks"
	TableName          = "bookings"
)

type TxFunc func(ctx context.Context) error

// BookingRepository is the reservation store. Every driver must give
// ExecuteTransaction + LockRoom the same guarantee: two units of work that lock the
// same room never both commit a write based on a stale availability read.
type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	// Update persists the mutable fields: dates or experience time, guests, active flag
	// and updated_at. The listing reference and owner are never written.
	Update(ctx context.Context, booking *model.Booking) error
	Delete(ctx context.Context, id string) error

	// FindOverlappingStays returns active, non-orphan room bookings on roomID with
	// check_in <= checkOut and check_out >= checkIn, skipping excludeID.
	FindOverlappingStays(ctx context.Context, roomID string, checkIn, checkOut model.Date, excludeID string) ([]*model.Booking, error)

	FindUpcomingStays(ctx context.Context, roomID string, after model.Date, page model.Page) ([]*model.Booking, error)
	CountUpcomingStays(ctx context.Context, roomID string, after model.Date) (int64, error)
	FindUpcomingVisits(ctx context.Context, experienceID string, from time.Time, page model.Page) ([]*model.Booking, error)
	CountUpcomingVisits(ctx context.Context, experienceID string, from time.Time) (int64, error)
	FindByUser(ctx context.Context, userID string, page model.Page) ([]*model.Booking, error)
	CountByUser(ctx context.Context, userID string) (int64, error)

	// DetachListing clears the listing reference of every booking on a deleted
	// listing and returns how many were touched.
	DetachListing(ctx context.Context, kind model.BookingKind, listingID string, at time.Time) (int64, error)

	// LockRoom serializes units of work on one room. Only valid inside ExecuteTransaction.
	LockRoom(ctx context.Context, roomID string) error
	ExecuteTransaction(ctx context.Context, fn TxFunc) error
}
