package errors

import "errors"

// Eligibility failures. Each gate blocks booking on its own; the order they
// are reported in follows the check order, not severity.
var (
	ErrNoTicket      = errors.New("no ticket found for user")
	ErrRemoteTicket  = errors.New("remote ticket does not include lodging")
	ErrNoHotelTicket = errors.New("no ticket includes hotel accommodation")
	ErrTicketNotPaid = errors.New("ticket has not been paid")
)

// Capacity failures.
var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room is at full capacity")
)

// Ownership failures. The two are distinguished internally for logging but
// collapse to the same external outcome so booking ids cannot be probed.
var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrNotOwner        = errors.New("booking does not belong to user")
)
