package model

import "time"

// CreateRoomBookingInput is a request to book a room for [CheckIn, CheckOut].
// RoomID comes from the route and UserID from the caller's identity.
type CreateRoomBookingInput struct {
	RoomID   string `json:"-" validate:"required,max=64"`
	UserID   string `json:"-" validate:"required,max=64"`
	CheckIn  Date   `json:"check_in" validate:"required"`
	CheckOut Date   `json:"check_out" validate:"required"`
	Guests   int    `json:"guests" validate:"required,min=1"`
}

type CreateExperienceBookingInput struct {
	ExperienceID   string    `json:"-" validate:"required,max=64"`
	UserID         string    `json:"-" validate:"required,max=64"`
	ExperienceTime time.Time `json:"experience_time" validate:"required"`
	Guests         int       `json:"guests" validate:"required,min=1"`
}
