package validator

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"nestbook/pkg/logger"
	"nestbook/pkg/model"
)

func newTestValidator() *BookingValidator {
	return NewBookingValidator(logger.Nop(), 4)
}

func TestValidateRoomInput(t *testing.T) {
	v := newTestValidator()
	ci, co := model.MustParseDate("2031-01-10"), model.MustParseDate("2031-01-12")

	tests := []struct {
		name      string
		input     model.CreateRoomBookingInput
		wantErr   bool
		wantField string
	}{
		{
			name:  "valid",
			input: model.CreateRoomBookingInput{RoomID: "r1", UserID: "u1", CheckIn: ci, CheckOut: co, Guests: 2},
		},
		{
			name:      "missing check_in",
			input:     model.CreateRoomBookingInput{RoomID: "r1", UserID: "u1", CheckOut: co, Guests: 2},
			wantErr:   true,
			wantField: "check_in",
		},
		{
			name:      "missing check_out",
			input:     model.CreateRoomBookingInput{RoomID: "r1", UserID: "u1", CheckIn: ci, Guests: 2},
			wantErr:   true,
			wantField: "check_out",
		},
		{
			name:      "zero guests",
			input:     model.CreateRoomBookingInput{RoomID: "r1", UserID: "u1", CheckIn: ci, CheckOut: co},
			wantErr:   true,
			wantField: "guests",
		},
		{
			name:      "negative guests",
			input:     model.CreateRoomBookingInput{RoomID: "r1", UserID: "u1", CheckIn: ci, CheckOut: co, Guests: -1},
			wantErr:   true,
			wantField: "guests",
		},
		{
			name:      "too many guests",
			input:     model.CreateRoomBookingInput{RoomID: "r1", UserID: "u1", CheckIn: ci, CheckOut: co, Guests: 5},
			wantErr:   true,
			wantField: "guests",
		},
		{
			name:      "missing user",
			input:     model.CreateRoomBookingInput{RoomID: "r1", CheckIn: ci, CheckOut: co, Guests: 1},
			wantErr:   true,
			wantField: "UserID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateRoomInput(&tt.input)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %T: %v", err, err)
			}
			if _, ok := verrs.Details()[tt.wantField]; !ok {
				t.Errorf("expected error on %q, got %v", tt.wantField, verrs)
			}
		})
	}
}

func TestValidateExperienceInput(t *testing.T) {
	v := newTestValidator()
	at := time.Date(2031, 1, 10, 18, 0, 0, 0, time.UTC)

	if err := v.ValidateExperienceInput(&model.CreateExperienceBookingInput{ExperienceID: "e1", UserID: "u1", ExperienceTime: at, Guests: 1}); err != nil {
		t.Errorf("expected valid input, got %v", err)
	}

	err := v.ValidateExperienceInput(&model.CreateExperienceBookingInput{ExperienceID: "e1", UserID: "u1", Guests: 1})
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors for zero experience_time, got %v", err)
	}
	if _, ok := verrs.Details()["experience_time"]; !ok {
		t.Errorf("expected experience_time error, got %v", verrs)
	}
}

func TestValidateUpdate(t *testing.T) {
	v := newTestValidator()
	room := model.NewRoomBooking("u1", "r1", model.MustParseDate("2031-01-10"), model.MustParseDate("2031-01-12"), 1)
	exp := model.NewExperienceBooking("u1", "e1", time.Date(2031, 1, 10, 18, 0, 0, 0, time.UTC), 1)

	d := model.MustParseDate("2031-01-11")
	at := time.Date(2031, 1, 11, 18, 0, 0, 0, time.UTC)
	two, zero, many := 2, 0, 9

	tests := []struct {
		name     string
		existing *model.Booking
		update   model.BookingUpdate
		wantErr  bool
	}{
		{"empty update", room, model.BookingUpdate{}, true},
		{"room dates", room, model.BookingUpdate{CheckIn: &d}, false},
		{"room guests", room, model.BookingUpdate{Guests: &two}, false},
		{"room with experience_time", room, model.BookingUpdate{ExperienceTime: &at}, true},
		{"experience with dates", exp, model.BookingUpdate{CheckOut: &d}, true},
		{"experience time", exp, model.BookingUpdate{ExperienceTime: &at}, false},
		{"zero guests", exp, model.BookingUpdate{Guests: &zero}, true},
		{"too many guests", exp, model.BookingUpdate{Guests: &many}, true},
		{"zero date", room, model.BookingUpdate{CheckIn: &model.Date{}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateUpdate(tt.existing, &tt.update)
			if tt.wantErr && err == nil {
				t.Errorf("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestZeroAsNil_ResolvesToString(t *testing.T) {
	at := time.Date(2031, 1, 10, 18, 0, 0, 0, time.FixedZone("X", 3600))

	if got := zeroAsNil(reflect.ValueOf(at)); got != "2031-01-10T17:00:00Z" {
		t.Errorf("zeroAsNil(time) = %#v", got)
	}
	if got := zeroAsNil(reflect.ValueOf(model.MustParseDate("2031-01-10"))); got != "2031-01-10" {
		t.Errorf("zeroAsNil(date) = %#v", got)
	}
	if got := zeroAsNil(reflect.ValueOf(time.Time{})); got != nil {
		t.Errorf("zeroAsNil(zero time) = %#v", got)
	}
}

func TestValidate_InstantsReturn(t *testing.T) {
	v := newTestValidator()
	at := time.Now().Add(time.Hour)
	room := model.NewRoomBooking("u1", "r1", model.MustParseDate("2031-01-10"), model.MustParseDate("2031-01-12"), 1)
	exp := model.NewExperienceBooking("u1", "e1", at, 1)

	done := make(chan [3]error, 1)
	go func() {
		done <- [3]error{
			v.ValidateExperienceInput(&model.CreateExperienceBookingInput{ExperienceID: "e1", UserID: "u1", ExperienceTime: at, Guests: 2}),
			v.ValidateUpdate(exp, &model.BookingUpdate{ExperienceTime: &at}),
			v.ValidateUpdate(room, &model.BookingUpdate{ExperienceTime: &at}),
		}
	}()

	select {
	case errs := <-done:
		if errs[0] != nil {
			t.Errorf("valid experience input: %v", errs[0])
		}
		if errs[1] != nil {
			t.Errorf("experience time update: %v", errs[1])
		}
		var verrs ValidationErrors
		if !errors.As(errs[2], &verrs) {
			t.Errorf("experience_time on a room booking should be a ValidationErrors, got %v", errs[2])
		}
	case <-time.After(3 * time.Second):
		t.Fatal("validation of an experience time did not return")
	}
}
