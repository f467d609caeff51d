package model

import (
	"encoding/json"
	"errors"
	"time"
)

type BookingKind string

const (
	KindRoom       BookingKind = "rooms"
	KindExperience BookingKind = "experiences"
)

func (k BookingKind) Valid() bool {
	return k == KindRoom || k == KindExperience
}

var (
	ErrMissingPayload   = errors.New("booking has no stay or visit payload")
	ErrAmbiguousPayload = errors.New("booking carries both stay and visit payloads")
	ErrKindMismatch     = errors.New("booking payload does not match its kind")
)

// Stay is the payload of a room booking. Dates are civil dates; CheckIn < CheckOut.
type Stay struct {
	RoomID   string `bson:"room_id"`
	CheckIn  Date   `bson:"check_in"`
	CheckOut Date   `bson:"check_out"`
}

// Visit is the payload of an experience booking.
type Visit struct {
	ExperienceID   string    `bson:"experience_id"`
	ExperienceTime time.Time `bson:"experience_time"`
}

// Booking is a reservation of either a room (Stay) or an experience (Visit).
// Exactly one payload is set and it matches Kind.
type Booking struct {
	ID        string      `bson:"_id,omitempty"`
	Kind      BookingKind `bson:"kind"`
	UserID    string      `bson:"user_id"`
	Stay      *Stay       `bson:"stay,omitempty"`
	Visit     *Visit      `bson:"visit,omitempty"`
	Guests    int         `bson:"guests"`
	Active    bool        `bson:"not_canceled"`
	CreatedAt time.Time   `bson:"created_at"`
	UpdatedAt time.Time   `bson:"updated_at"`
}

func NewRoomBooking(userID, roomID string, checkIn, checkOut Date, guests int) *Booking {
	return &Booking{
		Kind:   KindRoom,
		UserID: userID,
		Stay:   &Stay{RoomID: roomID, CheckIn: checkIn, CheckOut: checkOut},
		Guests: guests,
		Active: true,
	}
}

func NewExperienceBooking(userID, experienceID string, at time.Time, guests int) *Booking {
	return &Booking{
		Kind:   KindExperience,
		UserID: userID,
		Visit:  &Visit{ExperienceID: experienceID, ExperienceTime: at},
		Guests: guests,
		Active: true,
	}
}

// CheckVariant reports whether the payload matches the kind.
func (b *Booking) CheckVariant() error {
	switch {
	case !b.Kind.Valid():
		return ErrKindMismatch
	case b.Stay == nil && b.Visit == nil:
		return ErrMissingPayload
	case b.Stay != nil && b.Visit != nil:
		return ErrAmbiguousPayload
	case b.Kind == KindRoom && b.Stay == nil, b.Kind == KindExperience && b.Visit == nil:
		return ErrKindMismatch
	}
	return nil
}

// ListingID returns the room or experience the booking refers to. Empty when the
// listing was deleted.
func (b *Booking) ListingID() string {
	switch {
	case b.Stay != nil:
		return b.Stay.RoomID
	case b.Visit != nil:
		return b.Visit.ExperienceID
	}
	return ""
}

func (b *Booking) IsOrphan() bool {
	return b.ListingID() == ""
}

func (b *Booking) OwnedBy(userID string) bool {
	return userID != "" && b.UserID == userID
}

// Clone returns a deep copy.
func (b *Booking) Clone() *Booking {
	c := *b
	if b.Stay != nil {
		s := *b.Stay
		c.Stay = &s
	}
	if b.Visit != nil {
		v := *b.Visit
		c.Visit = &v
	}
	return &c
}

// bookingJSON is the flat owner-facing representation.
type bookingJSON struct {
	ID             string      `json:"id"`
	Kind           BookingKind `json:"kind"`
	UserID         string      `json:"user"`
	RoomID         *string     `json:"room,omitempty"`
	ExperienceID   *string     `json:"experience,omitempty"`
	CheckIn        *Date       `json:"check_in,omitempty"`
	CheckOut       *Date       `json:"check_out,omitempty"`
	ExperienceTime *time.Time  `json:"experience_time,omitempty"`
	Guests         int         `json:"guests"`
	Active         bool        `json:"not_canceled"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (b Booking) MarshalJSON() ([]byte, error) {
	out := bookingJSON{
		ID:        b.ID,
		Kind:      b.Kind,
		UserID:    b.UserID,
		Guests:    b.Guests,
		Active:    b.Active,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.Stay != nil {
		room, ci, co := b.Stay.RoomID, b.Stay.CheckIn, b.Stay.CheckOut
		out.RoomID, out.CheckIn, out.CheckOut = &room, &ci, &co
	}
	if b.Visit != nil {
		exp, at := b.Visit.ExperienceID, b.Visit.ExperienceTime
		out.ExperienceID, out.ExperienceTime = &exp, &at
	}
	return json.Marshal(out)
}

func (b *Booking) UnmarshalJSON(data []byte) error {
	var in bookingJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*b = Booking{
		ID:        in.ID,
		Kind:      in.Kind,
		UserID:    in.UserID,
		Guests:    in.Guests,
		Active:    in.Active,
		CreatedAt: in.CreatedAt,
		UpdatedAt: in.UpdatedAt,
	}
	switch in.Kind {
	case KindRoom:
		b.Stay = &Stay{}
		if in.RoomID != nil {
			b.Stay.RoomID = *in.RoomID
		}
		if in.CheckIn != nil {
			b.Stay.CheckIn = *in.CheckIn
		}
		if in.CheckOut != nil {
			b.Stay.CheckOut = *in.CheckOut
		}
	case KindExperience:
		b.Visit = &Visit{}
		if in.ExperienceID != nil {
			b.Visit.ExperienceID = *in.ExperienceID
		}
		if in.ExperienceTime != nil {
			b.Visit.ExperienceTime = *in.ExperienceTime
		}
	}
	return nil
}

// PublicBooking is what anyone may see of a booking on a listing's calendar.
type PublicBooking struct {
	ID             string     `json:"id"`
	CheckIn        *Date      `json:"check_in"`
	CheckOut       *Date      `json:"check_out"`
	ExperienceTime *time.Time `json:"experience_time"`
	Guests         int        `json:"guests"`
}

func (b *Booking) Public() PublicBooking {
	p := PublicBooking{ID: b.ID, Guests: b.Guests}
	if b.Stay != nil {
		ci, co := b.Stay.CheckIn, b.Stay.CheckOut
		p.CheckIn, p.CheckOut = &ci, &co
	}
	if b.Visit != nil {
		at := b.Visit.ExperienceTime
		p.ExperienceTime = &at
	}
	return p
}

func PublicBookings(bookings []*Booking) []PublicBooking {
	out := make([]PublicBooking, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, b.Public())
	}
	return out
}

// BookingUpdate carries a partial update. Nil fields are left unchanged.
type BookingUpdate struct {
	CheckIn        *Date      `json:"check_in,omitempty"`
	CheckOut       *Date      `json:"check_out,omitempty"`
	ExperienceTime *time.Time `json:"experience_time,omitempty"`
	Guests         *int       `json:"guests,omitempty" validate:"omitempty,min=1"`
}

func (u *BookingUpdate) IsEmpty() bool {
	return u.CheckIn == nil && u.CheckOut == nil && u.ExperienceTime == nil && u.Guests == nil
}

func (u *BookingUpdate) TouchesStay() bool {
	return u.CheckIn != nil || u.CheckOut != nil
}

func (u *BookingUpdate) TouchesVisit() bool {
	return u.ExperienceTime != nil
}
