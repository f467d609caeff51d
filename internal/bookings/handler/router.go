package handler

import "github.com/julienschmidt/httprouter"

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/rooms/:id/bookings", h.ListRoomBookings)
	router.POST("/api/v1/rooms/:id/bookings", h.CreateRoomBooking)
	router.GET("/api/v1/rooms/:id/bookings/check", h.CheckRoomAvailability)

	router.GET("/api/v1/experiences/:id/bookings", h.ListExperienceBookings)
	router.POST("/api/v1/experiences/:id/bookings", h.CreateExperienceBooking)
	router.GET("/api/v1/experiences/:id/bookings/:booking_id", h.GetExperienceBooking)
	router.PUT("/api/v1/experiences/:id/bookings/:booking_id", h.UpdateExperienceBooking)
	router.PATCH("/api/v1/experiences/:id/bookings/:booking_id", h.UpdateExperienceBooking)
	router.DELETE("/api/v1/experiences/:id/bookings/:booking_id", h.DeleteExperienceBooking)

	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.PUT("/api/v1/bookings/id/:id", h.Update)
	router.PATCH("/api/v1/bookings/id/:id", h.Update)
	router.DELETE("/api/v1/bookings/id/:id", h.Delete)

	router.GET("/api/v1/me/bookings", h.ListMine)
	router.POST("/api/v1/me/bookings/:id/cancel", h.Cancel)
}
