package handler

import (
	"encoding/json"
	"net/http"

	"nestbook/internal/bookings/service"
	"nestbook/pkg/auth"
	"nestbook/pkg/config"
	apperrors "nestbook/pkg/errors"
	httputil "nestbook/pkg/http"
	"nestbook/pkg/logger"
	"nestbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type AvailabilityResponse struct {
	OK bool `json:"ok"`
}

type BookingHandler struct {
	bookings service.BookingService
	queries  service.QueryService
	cfg      *config.Config
	log      *logger.Logger
}

func NewBookingHandler(bookings service.BookingService, queries service.QueryService, cfg *config.Config) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		queries:  queries,
		cfg:      cfg,
		log:      cfg.Log,
	}
}

func (h *BookingHandler) CreateRoomBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := h.requireUser(w, r, "CreateRoomBooking")
	if !ok {
		return
	}

	var in model.CreateRoomBookingInput
	if !h.decode(w, r, "CreateRoomBooking", &in) {
		return
	}
	in.RoomID = ps.ByName("id")
	in.UserID = userID

	booking, err := h.bookings.CreateRoomBooking(r.Context(), &in)
	if err != nil {
		h.writeError(w, r, "CreateRoomBooking", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateRoomBooking", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) ListRoomBookings(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	page, err := httputil.ExtractPage(r, h.cfg)
	if err != nil {
		h.writeError(w, r, "ListRoomBookings", err)
		return
	}

	bookings, total, err := h.queries.ListUpcomingForRoom(r.Context(), ps.ByName("id"), page)
	if err != nil {
		h.writeError(w, r, "ListRoomBookings", err)
		return
	}

	if err := httputil.WritePaginated(w, model.PublicBookings(bookings), total, page.Limit, page.Offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListRoomBookings", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) CheckRoomAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	query := r.URL.Query()

	checkIn, err := parseOptionalDate(query.Get("check_in"), "check_in")
	if err != nil {
		h.writeError(w, r, "CheckRoomAvailability", err)
		return
	}
	checkOut, err := parseOptionalDate(query.Get("check_out"), "check_out")
	if err != nil {
		h.writeError(w, r, "CheckRoomAvailability", err)
		return
	}

	free, err := h.bookings.CheckAvailability(r.Context(), ps.ByName("id"), checkIn, checkOut)
	if err != nil {
		h.writeError(w, r, "CheckRoomAvailability", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, AvailabilityResponse{OK: free}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "CheckRoomAvailability", "operation", "WriteJSON", "error", err)
	}
}

func (h *BookingHandler) CreateExperienceBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := h.requireUser(w, r, "CreateExperienceBooking")
	if !ok {
		return
	}

	var in model.CreateExperienceBookingInput
	if !h.decode(w, r, "CreateExperienceBooking", &in) {
		return
	}
	in.ExperienceID = ps.ByName("id")
	in.UserID = userID

	booking, err := h.bookings.CreateExperienceBooking(r.Context(), &in)
	if err != nil {
		h.writeError(w, r, "CreateExperienceBooking", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateExperienceBooking", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) ListExperienceBookings(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	page, err := httputil.ExtractPage(r, h.cfg)
	if err != nil {
		h.writeError(w, r, "ListExperienceBookings", err)
		return
	}

	bookings, total, err := h.queries.ListUpcomingForExperience(r.Context(), ps.ByName("id"), page)
	if err != nil {
		h.writeError(w, r, "ListExperienceBookings", err)
		return
	}

	if err := httputil.WritePaginated(w, model.PublicBookings(bookings), total, page.Limit, page.Offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListExperienceBookings", "operation", "WritePaginated", "error", err)
	}
}

// GetExperienceBooking is public and returns the calendar projection only.
func (h *BookingHandler) GetExperienceBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.bookings.GetExperienceBooking(r.Context(), ps.ByName("id"), ps.ByName("booking_id"))
	if err != nil {
		h.writeError(w, r, "GetExperienceBooking", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking.Public()); err != nil {
		h.log.Error("failed to write success response", "handler", "GetExperienceBooking", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) UpdateExperienceBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if _, err := h.bookings.GetExperienceBooking(r.Context(), ps.ByName("id"), ps.ByName("booking_id")); err != nil {
		h.writeError(w, r, "UpdateExperienceBooking", err)
		return
	}
	h.update(w, r, "UpdateExperienceBooking", ps.ByName("booking_id"))
}

func (h *BookingHandler) DeleteExperienceBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if _, err := h.bookings.GetExperienceBooking(r.Context(), ps.ByName("id"), ps.ByName("booking_id")); err != nil {
		h.writeError(w, r, "DeleteExperienceBooking", err)
		return
	}
	h.delete(w, r, "DeleteExperienceBooking", ps.ByName("booking_id"))
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := h.requireUser(w, r, "GetByID")
	if !ok {
		return
	}

	booking, err := h.bookings.GetByID(r.Context(), ps.ByName("id"), userID)
	if err != nil {
		h.writeError(w, r, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.update(w, r, "Update", ps.ByName("id"))
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.delete(w, r, "Delete", ps.ByName("id"))
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := h.requireUser(w, r, "ListMine")
	if !ok {
		return
	}

	page, err := httputil.ExtractPage(r, h.cfg)
	if err != nil {
		h.writeError(w, r, "ListMine", err)
		return
	}

	bookings, total, err := h.queries.ListForUser(r.Context(), userID, page)
	if err != nil {
		h.writeError(w, r, "ListMine", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, page.Limit, page.Offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListMine", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := h.requireUser(w, r, "Cancel")
	if !ok {
		return
	}

	booking, err := h.bookings.Cancel(r.Context(), ps.ByName("id"), userID)
	if err != nil {
		h.writeError(w, r, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) update(w http.ResponseWriter, r *http.Request, name, id string) {
	userID, ok := h.requireUser(w, r, name)
	if !ok {
		return
	}

	var update model.BookingUpdate
	if !h.decode(w, r, name, &update) {
		return
	}

	booking, err := h.bookings.Update(r.Context(), id, userID, &update)
	if err != nil {
		h.writeError(w, r, name, err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", name, "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) delete(w http.ResponseWriter, r *http.Request, name, id string) {
	userID, ok := h.requireUser(w, r, name)
	if !ok {
		return
	}

	if err := h.bookings.Delete(r.Context(), id, userID); err != nil {
		h.writeError(w, r, name, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) requireUser(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		h.writeError(w, r, name, apperrors.Unauthorized("Authentication required"))
		return "", false
	}
	return userID, true
}

func (h *BookingHandler) decode(w http.ResponseWriter, r *http.Request, name string, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.FromContext(r.Context(), h.log).Warn("Invalid request body", "handler", name, "error", err)
		h.writeError(w, r, name, apperrors.InvalidInput("Invalid request body"))
		return false
	}
	return true
}

func (h *BookingHandler) writeError(w http.ResponseWriter, r *http.Request, name string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		logger.FromContext(r.Context(), h.log).Error("failed to write error response", "handler", name, "operation", "WriteError", "error", writeErr)
	}
}

func parseOptionalDate(s, field string) (model.Date, error) {
	if s == "" {
		return model.Date{}, nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return model.Date{}, apperrors.InvalidInput("invalid " + field + " parameter: " + s)
	}
	return d, nil
}
