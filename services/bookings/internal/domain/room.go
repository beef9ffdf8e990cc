package domain

import (
	"strings"
	"time"
)

type RoomStatus string

const (
	RoomAvailable RoomStatus = "available"
	RoomOccupied  RoomStatus = "occupied"
)

// Room.Status is computed from today's bookings when a room is read. It is
// never stored and never consulted for availability decisions.
type Room struct {
	ID        int64      `json:"id"`
	Number    string     `json:"number"`
	Type      string     `json:"type"`
	Price     float64    `json:"price"`
	Status    RoomStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type CreateRoomRequest struct {
	Number string   `json:"number"`
	Type   string   `json:"type"`
	Price  *float64 `json:"price"`
}

func (r *CreateRoomRequest) Normalize() {
	r.Number = strings.TrimSpace(r.Number)
	r.Type = strings.TrimSpace(r.Type)
}

func (r *CreateRoomRequest) Validate() string {
	if r.Number == "" || r.Type == "" || r.Price == nil {
		return MsgAllFieldsRequired
	}
	if *r.Price < 0 {
		return MsgPriceNegative
	}
	return ""
}

type UpdateRoomRequest struct {
	Number *string  `json:"number,omitempty"`
	Type   *string  `json:"type,omitempty"`
	Price  *float64 `json:"price,omitempty"`
}

func (r *UpdateRoomRequest) Normalize() {
	if r.Number != nil {
		v := strings.TrimSpace(*r.Number)
		r.Number = &v
	}
	if r.Type != nil {
		v := strings.TrimSpace(*r.Type)
		r.Type = &v
	}
}

func (r *UpdateRoomRequest) Validate() string {
	if r.Number == nil && r.Type == nil && r.Price == nil {
		return MsgNothingToUpdate
	}
	if (r.Number != nil && *r.Number == "") || (r.Type != nil && *r.Type == "") {
		return MsgAllFieldsRequired
	}
	if r.Price != nil && *r.Price < 0 {
		return MsgPriceNegative
	}
	return ""
}

type RoomStats struct {
	Total     int `json:"total"`
	Occupied  int `json:"occupied"`
	Available int `json:"available"`
}

const (
	MsgPriceNegative     = "Price must not be negative"
	MsgNothingToUpdate   = "No fields to update"
	MsgRoomNumberTaken   = "Room number already exists"
	MsgRoomHasBookings   = "Room has current or upcoming bookings"
	MsgRoomDeleted       = "Room deleted"
	MsgBothDatesRequired = "Need both dates"
)
