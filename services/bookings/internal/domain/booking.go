package domain

import (
	"strings"
	"time"
)

type Guest struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	IDProofURL string    `json:"idProofUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Booking struct {
	ID        int64     `json:"id"`
	GuestID   int64     `json:"guestId"`
	RoomID    int64     `json:"roomId"`
	CheckIn   time.Time `json:"checkIn"`
	CheckOut  time.Time `json:"checkOut"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Resolved on read; nil when only the booking row was loaded.
	Guest *Guest `json:"guest,omitempty"`
	Room  *Room  `json:"room,omitempty"`
}

type CreateBookingRequest struct {
	GuestName    string `json:"guestName"`
	Phone        string `json:"phone"`
	IDProof      string `json:"idProof"`
	RoomNumber   string `json:"roomNumber"`
	CheckInDate  string `json:"checkInDate"`
	CheckOutDate string `json:"checkOutDate"`
}

func (r *CreateBookingRequest) Normalize() {
	r.GuestName = strings.TrimSpace(r.GuestName)
	r.Phone = strings.TrimSpace(r.Phone)
	r.IDProof = strings.TrimSpace(r.IDProof)
	r.RoomNumber = strings.TrimSpace(r.RoomNumber)
	r.CheckInDate = strings.TrimSpace(r.CheckInDate)
	r.CheckOutDate = strings.TrimSpace(r.CheckOutDate)
}

// HasRequiredFields reports whether every field is present after Normalize.
func (r *CreateBookingRequest) HasRequiredFields() bool {
	return r.GuestName != "" && r.Phone != "" && r.IDProof != "" &&
		r.RoomNumber != "" && r.CheckInDate != "" && r.CheckOutDate != ""
}

type CreateBookingResponse struct {
	Message   string `json:"message"`
	BookingID int64  `json:"bookingId"`
	Guest     *Guest `json:"guest"`
	Room      *Room  `json:"room"`
}

type ExtendBookingRequest struct {
	NewCheckOutDate string `json:"newCheckOutDate"`
}

type ExtendBookingResponse struct {
	Message        string   `json:"message"`
	UpdatedBooking *Booking `json:"updatedBooking"`
}

// Business messages returned to clients
const (
	MsgAllFieldsRequired   = "All fields are required"
	MsgRoomNotFound        = "Room not found"
	MsgBookingNotFound     = "Booking not found"
	MsgRoomBooked          = "Room is already booked for those dates"
	MsgRoomBookedExtension = "Room is already booked during the extended period"
	MsgNewCheckOutRequired = "New check-out date required"
	MsgCheckOutNotLater    = "New check-out must be after current check-out"
	MsgCheckOutBeforeIn    = "Check-out must be after check-in"
	MsgInvalidDate         = "Dates must be YYYY-MM-DD or RFC 3339 timestamps"
	MsgBookingCreated      = "Booking successful"
	MsgStayExtended        = "Stay extended successfully"
)
