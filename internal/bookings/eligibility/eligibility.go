// Package eligibility decides whether a user's tickets entitle them to book
// a hotel room at all. It is a pure decision over the supplied tickets; the
// caller resolves them from the store.
package eligibility

import (
	bookingserrors "roomdesk/internal/bookings/errors"
	"roomdesk/pkg/model"
)

// Check runs the four booking gates over all of the user's tickets:
//
//   - at least one ticket must exist,
//   - no ticket may be remote (remote attendance never includes lodging),
//   - at least one ticket must include hotel accommodation,
//   - every ticket must be paid.
//
// Any failing gate blocks booking; the gates are checked in that order.
func Check(tickets []model.Ticket) error {
	if len(tickets) == 0 {
		return bookingserrors.ErrNoTicket
	}

	for _, t := range tickets {
		if t.TicketType.IsRemote {
			return bookingserrors.ErrRemoteTicket
		}
	}

	includesHotel := false
	for _, t := range tickets {
		if t.TicketType.IncludesHotel {
			includesHotel = true
			break
		}
	}
	if !includesHotel {
		return bookingserrors.ErrNoHotelTicket
	}

	for _, t := range tickets {
		if t.Status != model.TicketPaid {
			return bookingserrors.ErrTicketNotPaid
		}
	}

	return nil
}
