package handlers

import (
	"net/http"

	"github.com/diagnosis/hotel-frontdesk/pkg/response"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/domain"
)

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBookingRequest
	if !decode(w, r, &req) {
		return
	}

	booking, err := h.bookingService.Create(r.Context(), actorID(r), &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, domain.CreateBookingResponse{
		Message:   domain.MsgBookingCreated,
		BookingID: booking.ID,
		Guest:     booking.Guest,
		Room:      booking.Room,
	})
}

func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookingService.List(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, bookings)
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid booking ID")
	if !ok {
		return
	}

	booking, err := h.bookingService.Get(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, booking)
}

func (h *Handlers) ExtendBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid booking ID")
	if !ok {
		return
	}

	var req domain.ExtendBookingRequest
	if !decode(w, r, &req) {
		return
	}

	updated, err := h.bookingService.Extend(r.Context(), actorID(r), id, &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, domain.ExtendBookingResponse{
		Message:        domain.MsgStayExtended,
		UpdatedBooking: updated,
	})
}
