package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"nestbook/pkg/logger"
	"nestbook/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details renders the errors as field -> message for API responses.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

type BookingValidator struct {
	validate  *validator.Validate
	maxGuests int
	logger    *logger.Logger
}

func NewBookingValidator(log *logger.Logger, maxGuests int) *BookingValidator {
	v := validator.New()

	// Zero dates and instants must fail "required". Both resolve to strings.
	v.RegisterCustomTypeFunc(zeroAsNil, model.Date{}, time.Time{})
	v.RegisterTagNameFunc(jsonFieldName)

	log.Info("Booking validator initialized successfully", "max_guests", maxGuests)

	return &BookingValidator{
		validate:  v,
		maxGuests: maxGuests,
		logger:    log,
	}
}

func zeroAsNil(field reflect.Value) any {
	switch v := field.Interface().(type) {
	case model.Date:
		if v.IsZero() {
			return nil
		}
		return v.String()
	case time.Time:
		if v.IsZero() {
			return nil
		}
		// never hand a time.Time back: the validator would resolve it again
		return v.UTC().Format(time.RFC3339Nano)
	}
	return nil
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

func (v *BookingValidator) ValidateRoomInput(in *model.CreateRoomBookingInput) error {
	if err := v.check(in); err != nil {
		return err
	}
	return v.checkGuests(in.Guests)
}

func (v *BookingValidator) ValidateExperienceInput(in *model.CreateExperienceBookingInput) error {
	if err := v.check(in); err != nil {
		return err
	}
	return v.checkGuests(in.Guests)
}

// ValidateUpdate checks the shape of a partial update against the booking it targets.
// Date ordering and past checks are the service's job.
func (v *BookingValidator) ValidateUpdate(existing *model.Booking, update *model.BookingUpdate) error {
	if update.IsEmpty() {
		return ValidationErrors{{Field: "body", Message: "at least one field must be provided"}}
	}
	if err := v.check(update); err != nil {
		return err
	}

	var errs ValidationErrors
	if existing.Kind == model.KindRoom && update.TouchesVisit() {
		errs = append(errs, ValidationError{Field: "experience_time", Message: "experience_time cannot be set on a room booking"})
	}
	if existing.Kind == model.KindExperience && update.TouchesStay() {
		errs = append(errs, ValidationError{Field: "check_in", Message: "check_in/check_out cannot be set on an experience booking"})
	}
	if update.CheckIn != nil && update.CheckIn.IsZero() {
		errs = append(errs, ValidationError{Field: "check_in", Message: "check_in cannot be empty"})
	}
	if update.CheckOut != nil && update.CheckOut.IsZero() {
		errs = append(errs, ValidationError{Field: "check_out", Message: "check_out cannot be empty"})
	}
	if update.ExperienceTime != nil && update.ExperienceTime.IsZero() {
		errs = append(errs, ValidationError{Field: "experience_time", Message: "experience_time cannot be empty"})
	}
	if len(errs) > 0 {
		return errs
	}

	if update.Guests != nil {
		return v.checkGuests(*update.Guests)
	}
	return nil
}

func (v *BookingValidator) check(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *BookingValidator) checkGuests(guests int) error {
	if guests < 1 {
		return ValidationErrors{{Field: "guests", Message: "guests must be at least 1"}}
	}
	if guests > v.maxGuests {
		return ValidationErrors{{
			Field:   "guests",
			Message: fmt.Sprintf("guests must be at most %d", v.maxGuests),
		}}
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
