package repository

import (
	"context"
	"sync"

	"nestbook/pkg/model"
)

type createdKey struct{}

// createdSet remembers the bookings whose ids were assigned inside one unit of work.
type createdSet struct {
	mu       sync.Mutex
	bookings []*model.Booking
}

// trackCreated scopes ctx to a unit of work. The returned func forgets the ids
// handed out in it and must be called when the unit of work rolls back. Nested
// units share the outermost set and get a no-op.
func trackCreated(ctx context.Context) (context.Context, func()) {
	if _, ok := ctx.Value(createdKey{}).(*createdSet); ok {
		return ctx, func() {}
	}

	set := &createdSet{}
	return context.WithValue(ctx, createdKey{}, set), func() {
		set.mu.Lock()
		defer set.mu.Unlock()
		for _, b := range set.bookings {
			b.ID = ""
		}
	}
}

func noteCreated(ctx context.Context, b *model.Booking) {
	if set, ok := ctx.Value(createdKey{}).(*createdSet); ok {
		set.mu.Lock()
		set.bookings = append(set.bookings, b)
		set.mu.Unlock()
	}
}
