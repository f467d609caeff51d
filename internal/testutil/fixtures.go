package testutil

import (
	"time"

	"nestbook/pkg/model"
)

// BookingBuilder assembles bookings for store tests. Defaults to an active
// three-night stay on room "r1" for user "u1".
type BookingBuilder struct {
	b model.Booking
}

func NewRoomBookingBuilder() *BookingBuilder {
	at := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	b := model.NewRoomBooking("u1", "r1", model.NewDate(2026, 7, 1), model.NewDate(2026, 7, 4), 2)
	b.CreatedAt, b.UpdatedAt = at, at
	return &BookingBuilder{b: *b}
}

func NewExperienceBookingBuilder() *BookingBuilder {
	at := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	b := model.NewExperienceBooking("u1", "e1", time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC), 2)
	b.CreatedAt, b.UpdatedAt = at, at
	return &BookingBuilder{b: *b}
}

func (b *BookingBuilder) WithUser(id string) *BookingBuilder {
	b.b.UserID = id
	return b
}

func (b *BookingBuilder) WithRoom(id string) *BookingBuilder {
	b.b.Stay.RoomID = id
	return b
}

func (b *BookingBuilder) WithStay(checkIn, checkOut string) *BookingBuilder {
	b.b.Stay.CheckIn = model.MustParseDate(checkIn)
	b.b.Stay.CheckOut = model.MustParseDate(checkOut)
	return b
}

func (b *BookingBuilder) WithExperience(id string) *BookingBuilder {
	b.b.Visit.ExperienceID = id
	return b
}

func (b *BookingBuilder) At(t time.Time) *BookingBuilder {
	b.b.Visit.ExperienceTime = t.UTC()
	return b
}

func (b *BookingBuilder) Canceled() *BookingBuilder {
	b.b.Active = false
	return b
}

func (b *BookingBuilder) CreatedAt(t time.Time) *BookingBuilder {
	b.b.CreatedAt, b.b.UpdatedAt = t.UTC(), t.UTC()
	return b
}

func (b *BookingBuilder) Build() *model.Booking {
	return b.b.Clone()
}
