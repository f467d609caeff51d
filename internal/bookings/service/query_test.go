package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"nestbook/internal/bookings/repository"
	apperrors "nestbook/pkg/errors"
	"nestbook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkIns(bookings []*model.Booking) []string {
	out := make([]string, len(bookings))
	for i, b := range bookings {
		out[i] = b.Stay.CheckIn.String()
	}
	return out
}

func TestListUpcomingForRoom(t *testing.T) {
	f := newFixture(t)
	f.book(t, "u1", "r1", "2026-06-10", "2026-06-11") // starts today: not upcoming
	f.book(t, "u1", "r1", "2026-06-20", "2026-06-22")
	f.book(t, "u2", "r1", "2026-06-12", "2026-06-14")
	f.book(t, "u3", "r1", "2026-06-16", "2026-06-18")
	f.book(t, "u3", "r2", "2026-06-16", "2026-06-18")
	canceled := f.book(t, "u4", "r1", "2026-06-25", "2026-06-27")
	_, err := f.svc.Cancel(context.Background(), canceled.ID, "u4")
	require.NoError(t, err)

	items, total, err := f.query.ListUpcomingForRoom(context.Background(), "r1", model.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, []string{"2026-06-12", "2026-06-16", "2026-06-20"}, checkIns(items))

	items, total, err = f.query.ListUpcomingForRoom(context.Background(), "r1", model.Page{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, []string{"2026-06-16", "2026-06-20"}, checkIns(items))

	_, _, err = f.query.ListUpcomingForRoom(context.Background(), "nope", model.Page{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestListUpcomingForExperience(t *testing.T) {
	f := newFixture(t)
	soon := testNow.Add(time.Hour)
	later := testNow.Add(24 * time.Hour)

	for _, at := range []time.Time{later, soon} {
		_, err := f.svc.CreateExperienceBooking(context.Background(), &model.CreateExperienceBookingInput{
			ExperienceID: "e1", UserID: "u1", ExperienceTime: at, Guests: 1,
		})
		require.NoError(t, err)
	}

	items, total, err := f.query.ListUpcomingForExperience(context.Background(), "e1", model.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 2)
	assert.True(t, soon.Equal(items[0].Visit.ExperienceTime))

	f.clock.Set(soon)
	items, total, err = f.query.ListUpcomingForExperience(context.Background(), "e1", model.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total, "a visit starting now is still upcoming")

	f.clock.Set(soon.Add(time.Second))
	items, total, err = f.query.ListUpcomingForExperience(context.Background(), "e1", model.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.True(t, later.Equal(items[0].Visit.ExperienceTime))
}

func TestListForUser_NewestFirstIncludingCanceled(t *testing.T) {
	f := newFixture(t)
	first := f.book(t, "u1", "r1", "2026-06-12", "2026-06-14")
	f.clock.Advance(time.Minute)
	second := f.book(t, "u1", "r2", "2026-06-12", "2026-06-14")
	f.clock.Advance(time.Minute)
	third, err := f.svc.CreateExperienceBooking(context.Background(), &model.CreateExperienceBookingInput{
		ExperienceID: "e1", UserID: "u1", ExperienceTime: testNow.Add(time.Hour), Guests: 1,
	})
	require.NoError(t, err)
	f.book(t, "u2", "r1", "2026-06-20", "2026-06-22")

	_, err = f.svc.Cancel(context.Background(), first.ID, "u1")
	require.NoError(t, err)

	items, total, err := f.query.ListForUser(context.Background(), "u1", model.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 3)
	assert.Equal(t, []string{third.ID, second.ID, first.ID}, []string{items[0].ID, items[1].ID, items[2].ID})
	assert.False(t, items[2].Active)

	_, _, err = f.query.ListForUser(context.Background(), "", model.Page{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
}

func TestQuery_PageSizeIsClamped(t *testing.T) {
	f := newFixture(t)
	f.cfg.MaxPageSize = 2
	f.book(t, "u1", "r1", "2026-06-12", "2026-06-13")
	f.book(t, "u1", "r1", "2026-06-15", "2026-06-16")
	f.book(t, "u1", "r1", "2026-06-18", "2026-06-19")

	items, total, err := f.query.ListUpcomingForRoom(context.Background(), "r1", model.Page{Limit: 50})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, items, 2)
}

type failingCountRepo struct {
	repository.BookingRepository
}

func (failingCountRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	return 0, errors.New("socket closed")
}

func TestQuery_StoreFailureIsInternal(t *testing.T) {
	f := newFixtureWithRepo(t, failingCountRepo{repository.NewMemoryBookingRepository()})

	_, _, err := f.query.ListForUser(context.Background(), "u1", model.Page{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal))
}
