package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nestbook/internal/bookings/availability"
	"nestbook/internal/bookings/events"
	"nestbook/internal/bookings/repository"
	"nestbook/internal/bookings/service"
	"nestbook/internal/bookings/validator"
	"nestbook/internal/listings"
	"nestbook/pkg/auth"
	"nestbook/pkg/clock"
	"nestbook/pkg/config"
	"nestbook/pkg/logger"
	"nestbook/pkg/middleware"
	"nestbook/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

type testServer struct {
	handler http.Handler
	events  *events.Recorder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Log:             logger.Nop(),
		Location:        time.UTC,
		MaxGuests:       16,
		DefaultPageSize: 10,
		MaxPageSize:     100,
	}
	repo := repository.NewMemoryBookingRepository()
	clk := clock.NewManual(testNow)
	dir := listings.NewStatic(
		model.Listing{ID: "r1", Kind: model.KindRoom},
		model.Listing{ID: "e1", Kind: model.KindExperience},
		model.Listing{ID: "e2", Kind: model.KindExperience},
	)
	rec := events.NewRecorder()

	bookings := service.NewBookingService(repo, availability.NewChecker(repo), dir, rec,
		validator.NewBookingValidator(cfg.Log, cfg.MaxGuests), clk, cfg)
	queries := service.NewQueryService(repo, dir, clk, cfg)

	router := httprouter.New()
	NewBookingHandler(bookings, queries, cfg).RegisterRoutes(router)

	var h http.Handler = router
	h = middleware.Timezone(cfg.Log)(h)
	h = middleware.Authenticate(nil, cfg.Log)(h)
	return &testServer{handler: h, events: rec}
}

type response struct {
	code int
	body map[string]any
}

func (s *testServer) do(t *testing.T, method, path, user, body string) response {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set(auth.HeaderUserID, user)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	out := response{code: rec.Code}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out.body), rec.Body.String())
	}
	return out
}

func (r response) data() map[string]any {
	d, _ := r.body["data"].(map[string]any)
	return d
}

func (r response) list() []any {
	l, _ := r.body["data"].([]any)
	return l
}

func (s *testServer) createStay(t *testing.T, user, room, checkIn, checkOut string) string {
	t.Helper()
	res := s.do(t, http.MethodPost, "/api/v1/rooms/"+room+"/bookings", user,
		`{"check_in":"`+checkIn+`","check_out":"`+checkOut+`","guests":2}`)
	require.Equal(t, http.StatusCreated, res.code, res.body)
	return res.data()["id"].(string)
}

func TestCreateRoomBooking(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		user     string
		room     string
		body     string
		wantCode int
		wantErr  string
	}{
		{
			name:     "created",
			user:     "u1",
			room:     "r1",
			body:     `{"check_in":"2026-07-01","check_out":"2026-07-04","guests":2}`,
			wantCode: http.StatusCreated,
		},
		{
			name:     "anonymous",
			room:     "r1",
			body:     `{"check_in":"2026-08-01","check_out":"2026-08-04","guests":2}`,
			wantCode: http.StatusUnauthorized,
			wantErr:  "UNAUTHORIZED",
		},
		{
			name:     "overlap",
			user:     "u2",
			room:     "r1",
			body:     `{"check_in":"2026-07-04","check_out":"2026-07-06","guests":1}`,
			wantCode: http.StatusConflict,
			wantErr:  "SLOT_CONFLICT",
		},
		{
			name:     "past",
			user:     "u2",
			room:     "r1",
			body:     `{"check_in":"2026-06-01","check_out":"2026-06-03","guests":1}`,
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "PAST_DATE",
		},
		{
			name:     "inverted range",
			user:     "u2",
			room:     "r1",
			body:     `{"check_in":"2026-09-05","check_out":"2026-09-01","guests":1}`,
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "INVALID_RANGE",
		},
		{
			name:     "unknown room",
			user:     "u2",
			room:     "nope",
			body:     `{"check_in":"2026-09-01","check_out":"2026-09-03","guests":1}`,
			wantCode: http.StatusNotFound,
			wantErr:  "NOT_FOUND",
		},
		{
			name:     "malformed date",
			user:     "u2",
			room:     "r1",
			body:     `{"check_in":"July 1st","check_out":"2026-09-03","guests":1}`,
			wantCode: http.StatusBadRequest,
			wantErr:  "INVALID_INPUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.do(t, http.MethodPost, "/api/v1/rooms/"+tt.room+"/bookings", tt.user, tt.body)
			assert.Equal(t, tt.wantCode, res.code, res.body)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, res.body["code"])
			}
		})
	}

	created := s.events.Types()
	assert.Equal(t, []string{model.EventBookingCreated}, created)
}

func TestCreateRoomBooking_ResponseShape(t *testing.T) {
	s := newTestServer(t)

	res := s.do(t, http.MethodPost, "/api/v1/rooms/r1/bookings", "u1",
		`{"check_in":"2026-07-01","check_out":"2026-07-04","guests":3}`)
	require.Equal(t, http.StatusCreated, res.code)

	d := res.data()
	assert.NotEmpty(t, d["id"])
	assert.Equal(t, "rooms", d["kind"])
	assert.Equal(t, "u1", d["user"])
	assert.Equal(t, "r1", d["room"])
	assert.Equal(t, "2026-07-01", d["check_in"])
	assert.Equal(t, "2026-07-04", d["check_out"])
	assert.Equal(t, float64(3), d["guests"])
	assert.Equal(t, true, d["not_canceled"])
}

func TestListRoomBookings_PublicProjection(t *testing.T) {
	s := newTestServer(t)
	s.createStay(t, "u1", "r1", "2026-07-10", "2026-07-12")
	s.createStay(t, "u2", "r1", "2026-07-01", "2026-07-03")

	res := s.do(t, http.MethodGet, "/api/v1/rooms/r1/bookings", "", "")
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, float64(2), res.body["total_count"])

	items := res.list()
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "2026-07-01", first["check_in"])
	assert.NotContains(t, first, "user")

	res = s.do(t, http.MethodGet, "/api/v1/rooms/r1/bookings?limit=1&page=2", "", "")
	require.Equal(t, http.StatusOK, res.code)
	require.Len(t, res.list(), 1)
	assert.Equal(t, "2026-07-10", res.list()[0].(map[string]any)["check_in"])

	res = s.do(t, http.MethodGet, "/api/v1/rooms/r1/bookings?limit=abc", "", "")
	assert.Equal(t, http.StatusBadRequest, res.code)
}

func TestCheckRoomAvailability(t *testing.T) {
	s := newTestServer(t)
	s.createStay(t, "u1", "r1", "2026-07-10", "2026-07-12")

	tests := []struct {
		query    string
		wantCode int
		wantOK   bool
	}{
		{"check_in=2026-07-01&check_out=2026-07-05", http.StatusOK, true},
		{"check_in=2026-07-12&check_out=2026-07-14", http.StatusOK, false},
		{"check_in=2026-07-01&check_out=2026-07-10", http.StatusOK, false},
		{"check_in=2026-07-05&check_out=2026-07-01", http.StatusUnprocessableEntity, false},
		{"check_in=bad&check_out=2026-07-01", http.StatusBadRequest, false},
		{"check_in=2026-07-05", http.StatusUnprocessableEntity, false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res := s.do(t, http.MethodGet, "/api/v1/rooms/r1/bookings/check?"+tt.query, "", "")
			assert.Equal(t, tt.wantCode, res.code, res.body)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, tt.wantOK, res.body["ok"])
			}
		})
	}
}

func TestOwnerRoutes(t *testing.T) {
	s := newTestServer(t)
	id := s.createStay(t, "u1", "r1", "2026-07-10", "2026-07-12")
	path := "/api/v1/bookings/id/" + id

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, path, "", "").code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, path, "u2", "").code)

	res := s.do(t, http.MethodGet, path, "u1", "")
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, id, res.data()["id"])

	res = s.do(t, http.MethodPatch, path, "u1", `{"check_out":"2026-07-15","guests":4}`)
	require.Equal(t, http.StatusOK, res.code, res.body)
	assert.Equal(t, "2026-07-15", res.data()["check_out"])
	assert.Equal(t, float64(4), res.data()["guests"])

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, path, "u2", "").code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, path, "u1", "").code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, path, "u1", "").code)
}

func TestMyBookingsAndCancel(t *testing.T) {
	s := newTestServer(t)
	id := s.createStay(t, "u1", "r1", "2026-07-10", "2026-07-12")
	s.createStay(t, "u2", "r1", "2026-08-10", "2026-08-12")

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/me/bookings", "", "").code)

	res := s.do(t, http.MethodPost, "/api/v1/me/bookings/"+id+"/cancel", "u2", "")
	assert.Equal(t, http.StatusForbidden, res.code)

	res = s.do(t, http.MethodPost, "/api/v1/me/bookings/"+id+"/cancel", "u1", "")
	require.Equal(t, http.StatusOK, res.code, res.body)
	assert.Equal(t, false, res.data()["not_canceled"])

	res = s.do(t, http.MethodGet, "/api/v1/me/bookings", "u1", "")
	require.Equal(t, http.StatusOK, res.code)
	require.Len(t, res.list(), 1)
	assert.Equal(t, false, res.list()[0].(map[string]any)["not_canceled"])

	res = s.do(t, http.MethodGet, "/api/v1/rooms/r1/bookings/check?check_in=2026-07-10&check_out=2026-07-12", "", "")
	assert.Equal(t, true, res.body["ok"])
}

func TestExperienceRoutes(t *testing.T) {
	s := newTestServer(t)

	res := s.do(t, http.MethodPost, "/api/v1/experiences/e1/bookings", "u1",
		`{"experience_time":"2026-07-01T09:00:00Z","guests":2}`)
	require.Equal(t, http.StatusCreated, res.code, res.body)
	id := res.data()["id"].(string)

	res = s.do(t, http.MethodPost, "/api/v1/experiences/e1/bookings", "u2",
		`{"experience_time":"2026-07-01T09:00:00Z","guests":2}`)
	require.Equal(t, http.StatusCreated, res.code, "experiences have no overlap rule")

	res = s.do(t, http.MethodGet, "/api/v1/experiences/e1/bookings", "", "")
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, float64(2), res.body["total_count"])

	res = s.do(t, http.MethodGet, "/api/v1/experiences/e1/bookings/"+id, "", "")
	require.Equal(t, http.StatusOK, res.code)
	assert.Equal(t, id, res.data()["id"])
	assert.NotContains(t, res.data(), "user")

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/experiences/e2/bookings/"+id, "", "").code)

	res = s.do(t, http.MethodPut, "/api/v1/experiences/e1/bookings/"+id, "u1", `{"guests":5}`)
	require.Equal(t, http.StatusOK, res.code, res.body)
	assert.Equal(t, float64(5), res.data()["guests"])

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, "/api/v1/experiences/e1/bookings/"+id, "u2", "").code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/v1/experiences/e2/bookings/"+id, "u1", "").code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/experiences/e1/bookings/"+id, "u1", "").code)

	res = s.do(t, http.MethodPost, "/api/v1/experiences/e1/bookings", "u1",
		`{"experience_time":"2026-06-01T09:00:00Z","guests":2}`)
	assert.Equal(t, http.StatusUnprocessableEntity, res.code)
	assert.Equal(t, "PAST_DATE", res.body["code"])
}

func TestTimezoneShiftsToday(t *testing.T) {
	s := newTestServer(t)

	// 2026-06-10T12:00Z is already 2026-06-11 in Kiritimati (UTC+14).
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms/r1/bookings",
		strings.NewReader(`{"check_in":"2026-06-10","check_out":"2026-06-12","guests":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.HeaderUserID, "u1")
	req.Header.Set("X-Timezone", "Pacific/Kiritimati")

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	res := s.do(t, http.MethodPost, "/api/v1/rooms/r1/bookings", "u1",
		`{"check_in":"2026-06-10","check_out":"2026-06-12","guests":1}`)
	assert.Equal(t, http.StatusCreated, res.code)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		ping     error
		wantCode int
		want     string
	}{
		{"health", "/health", errors.New("down"), http.StatusOK, "ok"},
		{"ready", "/ready", nil, http.StatusOK, "ready"},
		{"not ready", "/ready", errors.New("down"), http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := httprouter.New()
			NewHealthHandler(pingerFunc(func(context.Context) error { return tt.ping }), logger.Nop()).RegisterRoutes(router)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var body HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body.Status)
		})
	}
}
