package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBooking_CheckVariant(t *testing.T) {
	at := time.Date(2031, 3, 4, 18, 0, 0, 0, time.UTC)
	ci, co := MustParseDate("2031-03-04"), MustParseDate("2031-03-06")

	tests := []struct {
		name    string
		booking *Booking
		wantErr error
	}{
		{"room", NewRoomBooking("u1", "r1", ci, co, 2), nil},
		{"experience", NewExperienceBooking("u1", "e1", at, 2), nil},
		{"neither", &Booking{Kind: KindRoom}, ErrMissingPayload},
		{"both", &Booking{Kind: KindRoom, Stay: &Stay{}, Visit: &Visit{}}, ErrAmbiguousPayload},
		{"room kind with visit", &Booking{Kind: KindRoom, Visit: &Visit{}}, ErrKindMismatch},
		{"experience kind with stay", &Booking{Kind: KindExperience, Stay: &Stay{}}, ErrKindMismatch},
		{"unknown kind", &Booking{Kind: "boats", Stay: &Stay{}}, ErrKindMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.booking.CheckVariant(), tt.wantErr)
		})
	}
}

func TestBooking_Orphan(t *testing.T) {
	b := NewRoomBooking("u1", "r1", MustParseDate("2031-03-04"), MustParseDate("2031-03-06"), 1)
	assert.False(t, b.IsOrphan())

	b.Stay.RoomID = ""
	assert.True(t, b.IsOrphan())
}

func TestBooking_CloneIsDeep(t *testing.T) {
	b := NewRoomBooking("u1", "r1", MustParseDate("2031-03-04"), MustParseDate("2031-03-06"), 1)
	c := b.Clone()
	c.Stay.CheckOut = MustParseDate("2031-03-10")

	assert.Equal(t, "2031-03-06", b.Stay.CheckOut.String())
}

func TestBooking_JSONIsFlat(t *testing.T) {
	b := NewRoomBooking("u1", "r1", MustParseDate("2031-03-04"), MustParseDate("2031-03-06"), 3)
	b.ID = "b1"

	data, err := json.Marshal(b)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "rooms", fields["kind"])
	assert.Equal(t, "r1", fields["room"])
	assert.Equal(t, "2031-03-04", fields["check_in"])
	assert.Equal(t, "2031-03-06", fields["check_out"])
	assert.Equal(t, true, fields["not_canceled"])
	assert.NotContains(t, fields, "experience_time")

	var back Booking
	require.NoError(t, json.Unmarshal(data, &back))
	require.NotNil(t, back.Stay)
	assert.Nil(t, back.Visit)
	assert.Equal(t, "r1", back.Stay.RoomID)
}

func TestBooking_Public(t *testing.T) {
	at := time.Date(2031, 3, 4, 18, 0, 0, 0, time.UTC)
	b := NewExperienceBooking("u1", "e1", at, 2)
	b.ID = "b1"

	p := b.Public()
	assert.Equal(t, "b1", p.ID)
	assert.Nil(t, p.CheckIn)
	require.NotNil(t, p.ExperienceTime)
	assert.True(t, p.ExperienceTime.Equal(at))

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "u1")
}

func TestBookingUpdate_Touches(t *testing.T) {
	d := MustParseDate("2031-03-04")
	at := time.Now()

	assert.True(t, (&BookingUpdate{}).IsEmpty())
	assert.True(t, (&BookingUpdate{CheckIn: &d}).TouchesStay())
	assert.False(t, (&BookingUpdate{CheckIn: &d}).TouchesVisit())
	assert.True(t, (&BookingUpdate{ExperienceTime: &at}).TouchesVisit())
}
