package handlers

import (
	"net/http"

	"github.com/diagnosis/hotel-frontdesk/pkg/response"
	"github.com/diagnosis/hotel-frontdesk/services/bookings/internal/domain"
)

func (h *Handlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.roomService.List(r.Context())
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, rooms)
}

func (h *Handlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateRoomRequest
	if !decode(w, r, &req) {
		return
	}

	room, err := h.roomService.Create(r.Context(), actorID(r), &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, room)
}

func (h *Handlers) GetRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid room ID")
	if !ok {
		return
	}

	room, err := h.roomService.Get(r.Context(), id)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, room)
}

func (h *Handlers) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid room ID")
	if !ok {
		return
	}

	var req domain.UpdateRoomRequest
	if !decode(w, r, &req) {
		return
	}

	room, err := h.roomService.Update(r.Context(), actorID(r), id, &req)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, room)
}

func (h *Handlers) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Invalid room ID")
	if !ok {
		return
	}

	if err := h.roomService.Delete(r.Context(), actorID(r), id); err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, response.Message{Message: domain.MsgRoomDeleted})
}

// AvailableRooms handles GET /rooms/available?checkIn=&checkOut=
func (h *Handlers) AvailableRooms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rooms, err := h.roomService.Available(r.Context(), q.Get("checkIn"), q.Get("checkOut"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, rooms)
}

func (h *Handlers) RoomStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.roomService.Stats(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, stats)
}

func (h *Handlers) OccupiedRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.roomService.Occupied(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, rooms)
}

func (h *Handlers) ListGuests(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	guests, err := h.roomService.ListGuests(r.Context(), limit, offset)
	if err != nil {
		response.Error(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, guests)
}
