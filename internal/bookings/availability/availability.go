// Package availability decides whether a room is free for a date range.
//
// Two stays conflict when existing.CheckIn <= checkOut and existing.CheckOut >= checkIn.
// Both ends are inclusive, so a stay ending on the day another starts is a conflict:
// same-day turnover is not allowed.
package availability

import (
	"context"
	"fmt"
	"time"

	"nestbook/pkg/model"
)

// Overlaps reports whether an existing stay [existingIn, existingOut] conflicts with
// a requested stay [checkIn, checkOut].
func Overlaps(existingIn, existingOut, checkIn, checkOut model.Date) bool {
	return !existingIn.After(checkOut) && !existingOut.Before(checkIn)
}

// IsDateInPast compares d with the calendar date of now in loc. Today is not past.
func IsDateInPast(d model.Date, now time.Time, loc *time.Location) bool {
	return d.Before(model.DateOf(now, loc))
}

// IsInstantInPast compares full instants. now itself is not past.
func IsInstantInPast(t, now time.Time) bool {
	return t.Before(now)
}

// StayReader is the slice of the reservation store the checker needs.
type StayReader interface {
	FindOverlappingStays(ctx context.Context, roomID string, checkIn, checkOut model.Date, excludeID string) ([]*model.Booking, error)
}

type Checker struct {
	stays StayReader
}

func NewChecker(stays StayReader) *Checker {
	return &Checker{stays: stays}
}

// Conflicts returns the active stays on roomID that overlap [checkIn, checkOut],
// ignoring excludeID. Run it inside the same unit of work as the write it guards.
func (c *Checker) Conflicts(ctx context.Context, roomID string, checkIn, checkOut model.Date, excludeID string) ([]*model.Booking, error) {
	candidates, err := c.stays.FindOverlappingStays(ctx, roomID, checkIn, checkOut, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stays for room %s: %w", roomID, err)
	}

	conflicts := make([]*model.Booking, 0, len(candidates))
	for _, b := range candidates {
		if b.Stay == nil || !b.Active || b.ID == excludeID || b.Stay.RoomID != roomID {
			continue
		}
		if Overlaps(b.Stay.CheckIn, b.Stay.CheckOut, checkIn, checkOut) {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts, nil
}

func (c *Checker) IsRoomSlotFree(ctx context.Context, roomID string, checkIn, checkOut model.Date, excludeID string) (bool, error) {
	conflicts, err := c.Conflicts(ctx, roomID, checkIn, checkOut, excludeID)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}
