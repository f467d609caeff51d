package service

import (
	"context"
	"errors"
	"time"

	"nestbook/internal/bookings/availability"
	bookingserrors "nestbook/internal/bookings/errors"
	"nestbook/internal/bookings/events"
	"nestbook/internal/bookings/repository"
	"nestbook/internal/bookings/validator"
	"nestbook/internal/listings"
	"nestbook/pkg/clock"
	"nestbook/pkg/config"
	apperrors "nestbook/pkg/errors"
	"nestbook/pkg/locale"
	"nestbook/pkg/model"
	"nestbook/pkg/obs"

	"go.opentelemetry.io/otel/attribute"
)

type BookingService interface {
	CreateRoomBooking(ctx context.Context, in *model.CreateRoomBookingInput) (*model.Booking, error)
	CreateExperienceBooking(ctx context.Context, in *model.CreateExperienceBookingInput) (*model.Booking, error)
	GetByID(ctx context.Context, id, callerID string) (*model.Booking, error)
	GetExperienceBooking(ctx context.Context, experienceID, bookingID string) (*model.Booking, error)
	Update(ctx context.Context, id, callerID string, update *model.BookingUpdate) (*model.Booking, error)
	Cancel(ctx context.Context, id, callerID string) (*model.Booking, error)
	Delete(ctx context.Context, id, callerID string) error
	CheckAvailability(ctx context.Context, roomID string, checkIn, checkOut model.Date) (bool, error)
	DetachListing(ctx context.Context, kind model.BookingKind, listingID string) (int64, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	checker   *availability.Checker
	listings  listings.Directory
	publisher events.Publisher
	validator *validator.BookingValidator
	clock     clock.Clock
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	checker *availability.Checker,
	directory listings.Directory,
	publisher events.Publisher,
	validator *validator.BookingValidator,
	clk clock.Clock,
	cfg *config.Config,
) BookingService {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &bookingService{
		repo:      repo,
		checker:   checker,
		listings:  directory,
		publisher: publisher,
		validator: validator,
		clock:     clk,
		cfg:       cfg,
	}
}

func (s *bookingService) CreateRoomBooking(ctx context.Context, in *model.CreateRoomBookingInput) (booking *model.Booking, err error) {
	ctx, span := obs.Start(ctx, "bookings.CreateRoomBooking", attribute.String("room_id", in.RoomID))
	defer func() { obs.End(span, err) }()

	if err := s.validator.ValidateRoomInput(in); err != nil {
		s.cfg.Log.Warn("Room booking validation failed", "room_id", in.RoomID, "error", err)
		return nil, validationError(err)
	}
	if err := lookupListing(ctx, s.listings, model.KindRoom, in.RoomID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := checkStay(in.CheckIn, in.CheckOut, now, s.location(ctx)); err != nil {
		return nil, err
	}

	booking = model.NewRoomBooking(in.UserID, in.RoomID, in.CheckIn, in.CheckOut, in.Guests)
	booking.CreatedAt, booking.UpdatedAt = now, now

	err = s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		if err := s.reserveRoom(ctx, in.RoomID, in.CheckIn, in.CheckOut, ""); err != nil {
			return err
		}
		return s.repo.Create(ctx, booking)
	})
	if err != nil {
		s.cfg.Log.Warn("Failed to create room booking",
			"room_id", in.RoomID,
			"check_in", in.CheckIn,
			"check_out", in.CheckOut,
			"error", err,
		)
		return nil, s.translate(err, "")
	}

	s.publish(ctx, model.EventBookingCreated, booking)
	s.cfg.Log.Info("Room booking created",
		"id", booking.ID,
		"room_id", in.RoomID,
		"user_id", in.UserID,
		"check_in", in.CheckIn,
		"check_out", in.CheckOut,
	)
	return booking, nil
}

func (s *bookingService) CreateExperienceBooking(ctx context.Context, in *model.CreateExperienceBookingInput) (booking *model.Booking, err error) {
	ctx, span := obs.Start(ctx, "bookings.CreateExperienceBooking", attribute.String("experience_id", in.ExperienceID))
	defer func() { obs.End(span, err) }()

	if err := s.validator.ValidateExperienceInput(in); err != nil {
		s.cfg.Log.Warn("Experience booking validation failed", "experience_id", in.ExperienceID, "error", err)
		return nil, validationError(err)
	}
	if err := lookupListing(ctx, s.listings, model.KindExperience, in.ExperienceID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if availability.IsInstantInPast(in.ExperienceTime, now) {
		return nil, pastDateError("experience_time")
	}

	booking = model.NewExperienceBooking(in.UserID, in.ExperienceID, in.ExperienceTime.UTC(), in.Guests)
	booking.CreatedAt, booking.UpdatedAt = now, now

	err = s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, booking)
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create experience booking", "experience_id", in.ExperienceID, "error", err)
		return nil, s.translate(err, "")
	}

	s.publish(ctx, model.EventBookingCreated, booking)
	s.cfg.Log.Info("Experience booking created",
		"id", booking.ID,
		"experience_id", in.ExperienceID,
		"user_id", in.UserID,
		"experience_time", booking.Visit.ExperienceTime,
	)
	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, id, callerID string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, id)
	}
	if !booking.OwnedBy(callerID) {
		return nil, permissionError(id)
	}
	return booking, nil
}

func (s *bookingService) GetExperienceBooking(ctx context.Context, experienceID, bookingID string) (*model.Booking, error) {
	if err := lookupListing(ctx, s.listings, model.KindExperience, experienceID); err != nil {
		return nil, err
	}

	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, s.translate(err, bookingID)
	}
	if booking.Kind != model.KindExperience || booking.ListingID() != experienceID {
		return nil, notFoundError(bookingID, bookingserrors.ErrNotFound)
	}
	return booking, nil
}

// Update applies a partial change. The booking is re-read inside the unit of work so
// a concurrent cancel or delete is never overwritten.
func (s *bookingService) Update(ctx context.Context, id, callerID string, update *model.BookingUpdate) (updated *model.Booking, err error) {
	ctx, span := obs.Start(ctx, "bookings.Update", attribute.String("booking_id", id))
	defer func() { obs.End(span, err) }()

	if update == nil {
		update = &model.BookingUpdate{}
	}
	now := s.clock.Now()
	loc := s.location(ctx)

	err = s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !existing.OwnedBy(callerID) {
			return permissionError(id)
		}
		if !existing.Active {
			return apperrors.Validation("Canceled bookings cannot be modified", map[string]any{"not_canceled": false}).
				WithCause(bookingserrors.ErrValidation)
		}
		if err := s.validator.ValidateUpdate(existing, update); err != nil {
			return validationError(err)
		}

		merged, err := mergeUpdate(existing, update, now, loc)
		if err != nil {
			return err
		}
		merged.UpdatedAt = now

		if stayMoved(existing, merged) && !merged.IsOrphan() {
			if err := s.reserveRoom(ctx, merged.Stay.RoomID, merged.Stay.CheckIn, merged.Stay.CheckOut, merged.ID); err != nil {
				return err
			}
		}
		if err := s.repo.Update(ctx, merged); err != nil {
			return err
		}
		updated = merged
		return nil
	})
	if err != nil {
		s.cfg.Log.Warn("Failed to update booking", "id", id, "error", err)
		return nil, s.translate(err, id)
	}

	s.publish(ctx, model.EventBookingUpdated, updated)
	s.cfg.Log.Info("Booking updated", "id", id, "kind", updated.Kind)
	return updated, nil
}

// Cancel is idempotent: canceling a canceled booking returns it unchanged.
func (s *bookingService) Cancel(ctx context.Context, id, callerID string) (canceled *model.Booking, err error) {
	ctx, span := obs.Start(ctx, "bookings.Cancel", attribute.String("booking_id", id))
	defer func() { obs.End(span, err) }()

	changed := false
	err = s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		booking, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !booking.OwnedBy(callerID) {
			return permissionError(id)
		}
		canceled = booking
		if !booking.Active {
			return nil
		}

		booking.Active = false
		booking.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, booking); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		s.cfg.Log.Warn("Failed to cancel booking", "id", id, "error", err)
		return nil, s.translate(err, id)
	}

	if changed {
		s.publish(ctx, model.EventBookingCanceled, canceled)
		s.cfg.Log.Info("Booking canceled", "id", id)
	}
	return canceled, nil
}

func (s *bookingService) Delete(ctx context.Context, id, callerID string) (err error) {
	ctx, span := obs.Start(ctx, "bookings.Delete", attribute.String("booking_id", id))
	defer func() { obs.End(span, err) }()

	var deleted *model.Booking
	err = s.repo.ExecuteTransaction(ctx, func(ctx context.Context) error {
		booking, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !booking.OwnedBy(callerID) {
			return permissionError(id)
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		deleted = booking
		return nil
	})
	if err != nil {
		s.cfg.Log.Warn("Failed to delete booking", "id", id, "error", err)
		return s.translate(err, id)
	}

	s.publish(ctx, model.EventBookingDeleted, deleted)
	s.cfg.Log.Info("Booking deleted", "id", id)
	return nil
}

// CheckAvailability is read-only and does not reject past dates.
func (s *bookingService) CheckAvailability(ctx context.Context, roomID string, checkIn, checkOut model.Date) (bool, error) {
	if checkIn.IsZero() || checkOut.IsZero() {
		return false, apperrors.Validation("check_in and check_out are required", map[string]any{
			"check_in":  checkIn.String(),
			"check_out": checkOut.String(),
		}).WithCause(bookingserrors.ErrValidation)
	}
	if err := lookupListing(ctx, s.listings, model.KindRoom, roomID); err != nil {
		return false, err
	}
	if !checkIn.Before(checkOut) {
		return false, invalidRangeError(checkIn, checkOut)
	}

	free, err := s.checker.IsRoomSlotFree(ctx, roomID, checkIn, checkOut, "")
	if err != nil {
		s.cfg.Log.Error("Failed to check availability", "room_id", roomID, "error", err)
		return false, apperrors.Internal("Failed to check availability", err)
	}
	return free, nil
}

func (s *bookingService) DetachListing(ctx context.Context, kind model.BookingKind, listingID string) (n int64, err error) {
	ctx, span := obs.Start(ctx, "bookings.DetachListing",
		attribute.String("kind", string(kind)),
		attribute.String("listing_id", listingID),
	)
	defer func() { obs.End(span, err) }()

	if !kind.Valid() || listingID == "" {
		return 0, apperrors.InvalidInput("listing kind and id are required")
	}

	n, err = s.repo.DetachListing(ctx, kind, listingID, s.clock.Now())
	if err != nil {
		s.cfg.Log.Error("Failed to detach listing", "kind", kind, "listing_id", listingID, "error", err)
		return 0, apperrors.Internal("Failed to detach listing", err)
	}
	s.cfg.Log.Info("Listing detached from bookings", "kind", kind, "listing_id", listingID, "bookings", n)
	return n, nil
}

// reserveRoom must run inside ExecuteTransaction: it takes the room lock and fails
// with a SlotConflict error when an active stay overlaps.
func (s *bookingService) reserveRoom(ctx context.Context, roomID string, checkIn, checkOut model.Date, excludeID string) error {
	if err := s.repo.LockRoom(ctx, roomID); err != nil {
		return err
	}
	conflicts, err := s.checker.Conflicts(ctx, roomID, checkIn, checkOut, excludeID)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return slotConflictError(conflicts)
	}
	return nil
}

func (s *bookingService) publish(ctx context.Context, eventType string, booking *model.Booking) {
	if err := s.publisher.Publish(ctx, eventType, booking); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event", "event", eventType, "id", booking.ID, "error", err)
	}
}

func (s *bookingService) location(ctx context.Context) *time.Location {
	return locale.FromContext(ctx, s.cfg.Location)
}

// translate maps store and domain errors to the API taxonomy. Errors that are
// already AppErrors pass through.
func (s *bookingService) translate(err error, id string) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, bookingserrors.ErrNotFound), errors.Is(err, bookingserrors.ErrInvalidID):
		return notFoundError(id, err)
	case errors.Is(err, bookingserrors.ErrContention):
		return apperrors.Contention("Another booking on this listing is in progress, please retry", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Timeout("Booking operation timed out").WithCause(err)
	default:
		s.cfg.Log.Error("Booking store failure", "id", id, "error", err)
		return apperrors.Internal("Failed to process booking", err)
	}
}

func checkStay(checkIn, checkOut model.Date, now time.Time, loc *time.Location) error {
	if availability.IsDateInPast(checkIn, now, loc) {
		return pastDateError("check_in")
	}
	if availability.IsDateInPast(checkOut, now, loc) {
		return pastDateError("check_out")
	}
	if !checkIn.Before(checkOut) {
		return invalidRangeError(checkIn, checkOut)
	}
	return nil
}

// mergeUpdate applies update to a copy of existing. Only supplied dates are checked
// against today; the range is checked on the merged values.
func mergeUpdate(existing *model.Booking, update *model.BookingUpdate, now time.Time, loc *time.Location) (*model.Booking, error) {
	merged := existing.Clone()

	switch merged.Kind {
	case model.KindRoom:
		if update.CheckIn != nil {
			if availability.IsDateInPast(*update.CheckIn, now, loc) {
				return nil, pastDateError("check_in")
			}
			merged.Stay.CheckIn = *update.CheckIn
		}
		if update.CheckOut != nil {
			if availability.IsDateInPast(*update.CheckOut, now, loc) {
				return nil, pastDateError("check_out")
			}
			merged.Stay.CheckOut = *update.CheckOut
		}
		if !merged.Stay.CheckIn.Before(merged.Stay.CheckOut) {
			return nil, invalidRangeError(merged.Stay.CheckIn, merged.Stay.CheckOut)
		}
	case model.KindExperience:
		if update.ExperienceTime != nil {
			if availability.IsInstantInPast(*update.ExperienceTime, now) {
				return nil, pastDateError("experience_time")
			}
			merged.Visit.ExperienceTime = update.ExperienceTime.UTC()
		}
	}

	if update.Guests != nil {
		merged.Guests = *update.Guests
	}
	return merged, nil
}

func stayMoved(before, after *model.Booking) bool {
	if before.Stay == nil || after.Stay == nil {
		return false
	}
	return !before.Stay.CheckIn.Equal(after.Stay.CheckIn) || !before.Stay.CheckOut.Equal(after.Stay.CheckOut)
}
