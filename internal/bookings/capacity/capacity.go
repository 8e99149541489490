// Package capacity guards rooms against overbooking. The comparison is
// inclusive: a room holding exactly Capacity bookings rejects the next one,
// and a capacity of zero rejects everything.
package capacity

import (
	bookingserrors "roomdesk/internal/bookings/errors"
	"roomdesk/pkg/model"
)

// Check reports whether one more booking fits into the room given its current
// booking count. The count must be read under the same lock or transaction
// that performs the subsequent write, or the answer is stale by the time it
// is used.
func Check(room *model.Room, bookingCount int64) error {
	if room == nil {
		return bookingserrors.ErrRoomNotFound
	}
	if bookingCount >= int64(room.Capacity) {
		return bookingserrors.ErrRoomFull
	}
	return nil
}
