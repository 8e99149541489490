package model

import (
	"time"
)

// Ticket statuses as issued by the ticketing subsystem.
const (
	TicketReserved = "RESERVED"
	TicketPaid     = "PAID"
)

// TicketType describes what a ticket entitles its holder to.
type TicketType struct {
	Name          string `json:"name" bson:"name"`
	IsRemote      bool   `json:"isRemote" bson:"is_remote"`
	IncludesHotel bool   `json:"includesHotel" bson:"includes_hotel"`
}

// Ticket links a user to an event through an enrollment. A user may hold
// several tickets across enrollments; lodging eligibility is decided over the
// whole set.
type Ticket struct {
	ID           int64      `json:"id" bson:"_id"`
	EnrollmentID int64      `json:"enrollmentId" bson:"enrollment_id"`
	UserID       int64      `json:"userId" bson:"user_id"`
	Status       string     `json:"status" bson:"status"`
	TicketType   TicketType `json:"TicketType" bson:"ticket_type"`
	CreatedAt    time.Time  `json:"createdAt" bson:"created_at"`
}
