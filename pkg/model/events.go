package model

import "time"

const (
	EventBookingCreated  = "booking.created"
	EventBookingUpdated  = "booking.updated"
	EventBookingCanceled = "booking.canceled"
	EventBookingDeleted  = "booking.deleted"

	EventListingDeleted = "listing.deleted"
)

type BookingEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Booking    *Booking  `json:"booking"`
}

type ListingEvent struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Kind       BookingKind `json:"kind"`
	ListingID  string      `json:"listing_id"`
	OccurredAt time.Time   `json:"occurred_at"`
}
