package model

import (
	"time"
)

// Booking assigns one user to one room. The owning user never changes after
// creation; only the room reference may be reassigned, and only by the owner.
type Booking struct {
	ID        int64     `json:"id" bson:"_id"`
	UserID    int64     `json:"userId" bson:"user_id"`
	RoomID    int64     `json:"roomId" bson:"room_id"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// BookingWithRoom is the view returned to the booking owner: the surrogate id
// plus the full room record, nothing else.
type BookingWithRoom struct {
	ID   int64 `json:"id"`
	Room Room  `json:"Room"`
}

// BookingRequest is the body of POST /booking and PUT /booking/:bookingId.
type BookingRequest struct {
	RoomID int64 `json:"roomId" validate:"required,min=1"`
}

// BookingResponse carries the surrogate id of a created or changed booking.
type BookingResponse struct {
	BookingID int64 `json:"bookingId"`
}
