package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	mw "github.com/diagnosis/hotel-frontdesk/pkg/middleware"
	"github.com/diagnosis/hotel-frontdesk/pkg/response"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/service"
)

const maxBodyBytes = 8 << 20

type Handlers struct {
	bookingService service.BookingService
	roomService    service.RoomService
}

func New(bookingService service.BookingService, roomService service.RoomService) *Handlers {
	return &Handlers{
		bookingService: bookingService,
		roomService:    roomService,
	}
}

// Routes mounts every front-desk endpoint behind requireUser. idempotent wraps
// booking creation only.
func (h *Handlers) Routes(r chi.Router, requireUser, idempotent func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireUser)

		r.Route("/bookings", func(r chi.Router) {
			r.With(idempotent).Post("/", h.CreateBooking)
			r.Get("/", h.ListBookings)
			r.Get("/{id}", h.GetBooking)
			r.Put("/extend/{id}", h.ExtendBooking)
		})

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", h.ListRooms)
			r.Post("/", h.CreateRoom)
			r.Get("/available", h.AvailableRooms)
			r.Get("/stats", h.RoomStats)
			r.Get("/occupied", h.OccupiedRooms)
			r.Get("/{id}", h.GetRoom)
			r.Put("/{id}", h.UpdateRoom)
			r.Delete("/{id}", h.DeleteRoom)
		})

		r.Get("/guests", h.ListGuests)
	})
}

// decode reads a JSON body into dst, writing 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.InvalidJSON(w)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, message string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, message)
		return 0, false
	}
	return id, true
}

func actorID(r *http.Request) int64 {
	if c, ok := mw.ClaimsFrom(r.Context()); ok {
		return c.Sub
	}
	return 0
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
