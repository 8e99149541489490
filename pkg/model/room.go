package model

import (
	"time"
)

// Room is hotel inventory owned by another subsystem; this service only reads
// it. Capacity is the maximum number of simultaneous bookings.
type Room struct {
	ID        int64     `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Capacity  int       `json:"capacity" bson:"capacity"`
	HotelID   int64     `json:"hotelId" bson:"hotel_id"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// Hotel is reference data; rooms point at it via HotelID.
type Hotel struct {
	ID    int64  `json:"id" bson:"_id"`
	Name  string `json:"name" bson:"name"`
	Image string `json:"image" bson:"image"`
}
