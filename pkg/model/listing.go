package model

// Listing is the part of a room or experience this service needs to know about.
type Listing struct {
	ID      string      `json:"id"`
	Kind    BookingKind `json:"kind"`
	OwnerID string      `json:"owner_id"`
	Name    string      `json:"name,omitempty"`
}
