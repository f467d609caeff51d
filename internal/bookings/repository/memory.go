package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	bookingserrors "nestbook/internal/bookings/errors"
	"nestbook/pkg/model"

	"github.com/google/uuid"
)

type memTxKey struct{}

// memoryBookingRepository keeps bookings in process memory. Units of work are
// serialized by txMu and rolled back from a snapshot on error. Used for local runs
// and as the store behind service tests.
type memoryBookingRepository struct {
	txMu sync.Mutex

	mu       sync.RWMutex
	bookings map[string]*model.Booking
}

func NewMemoryBookingRepository() BookingRepository {
	return &memoryBookingRepository{bookings: make(map[string]*model.Booking)}
}

func (r *memoryBookingRepository) ExecuteTransaction(ctx context.Context, fn TxFunc) error {
	if inMemoryTx(ctx) {
		return fn(ctx)
	}

	r.txMu.Lock()
	defer r.txMu.Unlock()

	ctx, rollback := trackCreated(ctx)
	snapshot := r.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		r.mu.Lock()
		r.bookings = snapshot
		r.mu.Unlock()
		rollback()
		return err
	}
	return nil
}

// LockRoom is a no-op: txMu already serializes every unit of work.
func (r *memoryBookingRepository) LockRoom(ctx context.Context, roomID string) error {
	if !inMemoryTx(ctx) {
		return fmt.Errorf("room lock requires a transaction")
	}
	return nil
}

func (r *memoryBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return r.write(ctx, func() error {
		stored := booking.Clone()
		stored.ID = uuid.NewString()
		r.bookings[stored.ID] = stored
		booking.ID = stored.ID
		noteCreated(ctx, booking)
		return nil
	})
}

func (r *memoryBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return b.Clone(), nil
}

func (r *memoryBookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	if _, err := uuid.Parse(booking.ID); err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, booking.ID)
	}

	return r.write(ctx, func() error {
		stored, ok := r.bookings[booking.ID]
		if !ok {
			return bookingserrors.ErrNotFound
		}
		next := stored.Clone()
		if booking.Stay != nil && next.Stay != nil {
			next.Stay.CheckIn = booking.Stay.CheckIn
			next.Stay.CheckOut = booking.Stay.CheckOut
		}
		if booking.Visit != nil && next.Visit != nil {
			next.Visit.ExperienceTime = booking.Visit.ExperienceTime
		}
		next.Guests = booking.Guests
		next.Active = booking.Active
		next.UpdatedAt = booking.UpdatedAt
		r.bookings[booking.ID] = next
		return nil
	})
}

func (r *memoryBookingRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	return r.write(ctx, func() error {
		if _, ok := r.bookings[id]; !ok {
			return bookingserrors.ErrNotFound
		}
		delete(r.bookings, id)
		return nil
	})
}

func (r *memoryBookingRepository) FindOverlappingStays(ctx context.Context, roomID string, checkIn, checkOut model.Date, excludeID string) ([]*model.Booking, error) {
	out := r.filter(func(b *model.Booking) bool {
		return isActiveStayOn(b, roomID) &&
			b.ID != excludeID &&
			!b.Stay.CheckIn.After(checkOut) &&
			!b.Stay.CheckOut.Before(checkIn)
	})
	sortStays(out)
	return out, nil
}

func (r *memoryBookingRepository) FindUpcomingStays(ctx context.Context, roomID string, after model.Date, page model.Page) ([]*model.Booking, error) {
	out := r.filter(upcomingStay(roomID, after))
	sortStays(out)
	return paginate(out, page), nil
}

func (r *memoryBookingRepository) CountUpcomingStays(ctx context.Context, roomID string, after model.Date) (int64, error) {
	return int64(len(r.filter(upcomingStay(roomID, after)))), nil
}

func (r *memoryBookingRepository) FindUpcomingVisits(ctx context.Context, experienceID string, from time.Time, page model.Page) ([]*model.Booking, error) {
	out := r.filter(upcomingVisit(experienceID, from))
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Visit.ExperienceTime.Equal(out[j].Visit.ExperienceTime) {
			return out[i].Visit.ExperienceTime.Before(out[j].Visit.ExperienceTime)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, page), nil
}

func (r *memoryBookingRepository) CountUpcomingVisits(ctx context.Context, experienceID string, from time.Time) (int64, error) {
	return int64(len(r.filter(upcomingVisit(experienceID, from)))), nil
}

func (r *memoryBookingRepository) FindByUser(ctx context.Context, userID string, page model.Page) ([]*model.Booking, error) {
	out := r.filter(func(b *model.Booking) bool { return b.UserID == userID })
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return paginate(out, page), nil
}

func (r *memoryBookingRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	return int64(len(r.filter(func(b *model.Booking) bool { return b.UserID == userID }))), nil
}

func (r *memoryBookingRepository) DetachListing(ctx context.Context, kind model.BookingKind, listingID string, at time.Time) (int64, error) {
	var n int64
	err := r.write(ctx, func() error {
		for _, b := range r.bookings {
			switch {
			case kind == model.KindRoom && b.Stay != nil && b.Stay.RoomID == listingID:
				b.Stay.RoomID = ""
			case kind == model.KindExperience && b.Visit != nil && b.Visit.ExperienceID == listingID:
				b.Visit.ExperienceID = ""
			default:
				continue
			}
			b.UpdatedAt = at
			n++
		}
		return nil
	})
	return n, err
}

// write runs fn under the data lock, opening a transaction when the caller has none.
func (r *memoryBookingRepository) write(ctx context.Context, fn func() error) error {
	if !inMemoryTx(ctx) {
		return r.ExecuteTransaction(ctx, func(ctx context.Context) error {
			return r.write(ctx, fn)
		})
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn()
}

func (r *memoryBookingRepository) filter(keep func(*model.Booking) bool) []*model.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*model.Booking{}
	for _, b := range r.bookings {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	return out
}

func (r *memoryBookingRepository) snapshot() map[string]*model.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := make(map[string]*model.Booking, len(r.bookings))
	for id, b := range r.bookings {
		snap[id] = b.Clone()
	}
	return snap
}

func inMemoryTx(ctx context.Context) bool {
	v, _ := ctx.Value(memTxKey{}).(bool)
	return v
}

func isActiveStayOn(b *model.Booking, roomID string) bool {
	return b.Active && b.Kind == model.KindRoom && b.Stay != nil && roomID != "" && b.Stay.RoomID == roomID
}

func upcomingStay(roomID string, after model.Date) func(*model.Booking) bool {
	return func(b *model.Booking) bool {
		return isActiveStayOn(b, roomID) && b.Stay.CheckIn.After(after)
	}
}

func upcomingVisit(experienceID string, from time.Time) func(*model.Booking) bool {
	return func(b *model.Booking) bool {
		return b.Active && b.Kind == model.KindExperience && b.Visit != nil &&
			experienceID != "" && b.Visit.ExperienceID == experienceID &&
			!b.Visit.ExperienceTime.Before(from)
	}
}

func sortStays(out []*model.Booking) {
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Stay.CheckIn.Compare(out[j].Stay.CheckIn); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
}

func paginate(items []*model.Booking, page model.Page) []*model.Booking {
	if page.Offset >= int64(len(items)) {
		return []*model.Booking{}
	}
	items = items[page.Offset:]
	if page.Limit > 0 && page.Limit < len(items) {
		items = items[:page.Limit]
	}
	return items
}
