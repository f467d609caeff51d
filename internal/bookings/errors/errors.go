package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrListingNotFound = errors.New("listing not found")

	ErrPastDate = errors.New("date is in the past")

	ErrInvalidRange = errors.New("check_in must be before check_out")

	ErrSlotConflict = errors.New("dates overlap an existing booking")

	ErrPermission = errors.New("booking belongs to another user")

	ErrValidation = errors.New("invalid booking input")

	// ErrContention means the store aborted the unit of work because another
	// writer touched the same room. Nothing was written.
	ErrContention = errors.New("concurrent booking on the same listing")
)
