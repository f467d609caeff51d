package service

import (
	"context"
	"errors"
	"fmt"

	bookingserrors "nestbook/internal/bookings/errors"
	"nestbook/internal/bookings/validator"
	"nestbook/internal/listings"
	apperrors "nestbook/pkg/errors"
	"nestbook/pkg/model"
)

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Invalid booking input", verrs.Details()).WithCause(bookingserrors.ErrValidation)
	}
	return apperrors.Validation("Invalid booking input", map[string]any{"error": err.Error()}).
		WithCause(bookingserrors.ErrValidation)
}

func pastDateError(field string) error {
	return apperrors.PastDate(fmt.Sprintf("%s cannot be in the past", field)).
		WithDetails(map[string]any{"field": field}).
		WithCause(bookingserrors.ErrPastDate)
}

func invalidRangeError(checkIn, checkOut model.Date) error {
	return apperrors.InvalidRange("check_in must be before check_out").
		WithDetails(map[string]any{
			"check_in":  checkIn.String(),
			"check_out": checkOut.String(),
		}).
		WithCause(bookingserrors.ErrInvalidRange)
}

func slotConflictError(conflicts []*model.Booking) error {
	taken := make([]map[string]string, 0, len(conflicts))
	for _, b := range conflicts {
		taken = append(taken, map[string]string{
			"check_in":  b.Stay.CheckIn.String(),
			"check_out": b.Stay.CheckOut.String(),
		})
	}
	return apperrors.SlotConflict("Those dates are already taken").
		WithDetails(map[string]any{"conflicts": taken}).
		WithCause(bookingserrors.ErrSlotConflict)
}

func permissionError(id string) error {
	return apperrors.Forbidden("You can only change your own bookings").
		WithDetails(map[string]any{"id": id}).
		WithCause(bookingserrors.ErrPermission)
}

func notFoundError(id string, cause error) error {
	return apperrors.NotFoundWithID("Booking", id).WithCause(cause)
}

func lookupListing(ctx context.Context, dir listings.Directory, kind model.BookingKind, id string) error {
	if id == "" {
		return listingNotFound(kind, id)
	}
	if _, err := dir.Get(ctx, kind, id); err != nil {
		if errors.Is(err, listings.ErrNotFound) {
			return listingNotFound(kind, id)
		}
		return apperrors.Unavailable("Listings service").WithCause(err)
	}
	return nil
}

func listingNotFound(kind model.BookingKind, id string) error {
	resource := "Room"
	if kind == model.KindExperience {
		resource = "Experience"
	}
	return apperrors.NotFoundWithID(resource, id).WithCause(bookingserrors.ErrListingNotFound)
}
