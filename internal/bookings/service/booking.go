package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"roomdesk/internal/bookings/capacity"
	"roomdesk/internal/bookings/eligibility"
	bookingserrors "roomdesk/internal/bookings/errors"
	"roomdesk/internal/bookings/events"
	"roomdesk/internal/bookings/repository"
	"roomdesk/pkg/config"
	apperrors "roomdesk/pkg/errors"
	"roomdesk/pkg/model"
)

// The same message covers "no such booking" and "not the caller's booking"
// so booking ids cannot be probed through the change endpoint.
const msgBookingNotAccessible = "Booking does not exist or does not belong to the user"

const (
	lockRetryInterval = 20 * time.Millisecond
	lockRetryAttempts = 50
)

type BookingService interface {
	Get(ctx context.Context, userID int64) (*model.BookingWithRoom, error)
	Create(ctx context.Context, userID, roomID int64) (int64, error)
	ChangeRoom(ctx context.Context, userID, bookingID, roomID int64) (int64, error)
}

type bookingService struct {
	bookings  repository.BookingRepository
	rooms     repository.RoomRepository
	tickets   repository.TicketRepository
	locks     repository.RoomLockRepository
	publisher events.Publisher
	cfg       *config.Config
}

func NewBookingService(
	bookings repository.BookingRepository,
	rooms repository.RoomRepository,
	tickets repository.TicketRepository,
	locks repository.RoomLockRepository,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		bookings:  bookings,
		rooms:     rooms,
		tickets:   tickets,
		locks:     locks,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *bookingService) Get(ctx context.Context, userID int64) (*model.BookingWithRoom, error) {
	booking, err := s.bookings.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrBookingNotFound) {
			return nil, apperrors.NotFound("Booking")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	room, err := s.rooms.FindByID(ctx, booking.RoomID)
	if err != nil {
		// The booking exists, so a missing room means the store is
		// inconsistent, not that the caller asked for something absent.
		return nil, apperrors.Internal("Failed to load booked room", err)
	}

	return &model.BookingWithRoom{ID: booking.ID, Room: *room}, nil
}

func (s *bookingService) Create(ctx context.Context, userID, roomID int64) (int64, error) {
	tickets, err := s.tickets.FindByUser(ctx, userID)
	if err != nil {
		return 0, apperrors.Internal("Failed to resolve user tickets", err)
	}

	if err := eligibility.Check(tickets); err != nil {
		s.cfg.Log.Warn("Booking eligibility rejected",
			"user_id", userID,
			"reason", err,
		)
		if errors.Is(err, bookingserrors.ErrNoTicket) {
			return 0, apperrors.NotFound("Ticket")
		}
		return 0, apperrors.Forbidden("User is not eligible to book a room", err)
	}

	lockID, err := s.acquireRoomLock(ctx, roomID)
	if err != nil {
		return 0, err
	}
	defer s.releaseRoomLock(ctx, lockID)

	var booking model.Booking
	err = s.bookings.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.checkRoomCapacity(sessCtx, roomID); err != nil {
			return err
		}

		id, err := s.bookings.Insert(sessCtx, userID, roomID)
		if err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}

		booking = model.Booking{
			ID:        id,
			UserID:    userID,
			RoomID:    roomID,
			CreatedAt: time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking",
			"user_id", userID,
			"room_id", roomID,
			"error", err,
		)
		return 0, err
	}

	s.cfg.Log.Info("Booking created successfully",
		"booking_id", booking.ID,
		"user_id", userID,
		"room_id", roomID,
	)

	if err := s.publisher.BookingCreated(ctx, booking); err != nil {
		s.cfg.Log.Warn("Failed to publish booking created event",
			"booking_id", booking.ID,
			"error", err,
		)
	}

	return booking.ID, nil
}

func (s *bookingService) ChangeRoom(ctx context.Context, userID, bookingID, roomID int64) (int64, error) {
	owner, err := s.bookings.FindOwner(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrBookingNotFound) {
			s.cfg.Log.Warn("Booking change rejected",
				"user_id", userID,
				"booking_id", bookingID,
				"reason", bookingserrors.ErrBookingNotFound,
			)
			return 0, apperrors.Forbidden(msgBookingNotAccessible, bookingserrors.ErrBookingNotFound)
		}
		return 0, apperrors.Internal("Failed to resolve booking", err)
	}
	if owner != userID {
		s.cfg.Log.Warn("Booking change rejected",
			"user_id", userID,
			"booking_id", bookingID,
			"reason", bookingserrors.ErrNotOwner,
		)
		return 0, apperrors.Forbidden(msgBookingNotAccessible, bookingserrors.ErrNotOwner)
	}

	// Eligibility is deliberately not re-checked here: a user holding a
	// valid booking may move rooms even if their ticket state has since
	// changed.

	lockID, err := s.acquireRoomLock(ctx, roomID)
	if err != nil {
		return 0, err
	}
	defer s.releaseRoomLock(ctx, lockID)

	var previous *model.Booking
	err = s.bookings.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.checkRoomCapacity(sessCtx, roomID); err != nil {
			return err
		}

		previous, err = s.bookings.UpdateRoom(sessCtx, bookingID, roomID)
		if err != nil {
			return apperrors.Internal("Failed to change booking room", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to change booking room",
			"user_id", userID,
			"booking_id", bookingID,
			"room_id", roomID,
			"error", err,
		)
		return 0, err
	}

	s.cfg.Log.Info("Booking room changed successfully",
		"booking_id", bookingID,
		"user_id", userID,
		"room_id", roomID,
		"previous_room_id", previous.RoomID,
	)

	changed := *previous
	changed.RoomID = roomID
	changed.UpdatedAt = time.Now().UTC()
	if err := s.publisher.BookingRoomChanged(ctx, changed, previous.RoomID); err != nil {
		s.cfg.Log.Warn("Failed to publish booking room changed event",
			"booking_id", bookingID,
			"error", err,
		)
	}

	return bookingID, nil
}

// checkRoomCapacity resolves the room and its current booking count and runs
// the capacity guard. Must run inside the room-lock-plus-transaction window
// so the count cannot go stale before the following write commits.
func (s *bookingService) checkRoomCapacity(ctx context.Context, roomID int64) error {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrRoomNotFound) {
			return apperrors.NotFound("Room")
		}
		return apperrors.Internal("Failed to resolve room", err)
	}

	count, err := s.bookings.CountByRoom(ctx, roomID)
	if err != nil {
		return apperrors.Internal("Failed to count room bookings", err)
	}

	if err := capacity.Check(room, count); err != nil {
		s.cfg.Log.Warn("Room capacity rejected booking",
			"room_id", roomID,
			"capacity", room.Capacity,
			"booking_count", count,
		)
		return apperrors.Forbidden("Room is already at full capacity", err)
	}

	return nil
}

// acquireRoomLock takes the room's advisory lock, retrying briefly while
// another request holds it so ordinary contention serializes instead of
// erroring. Gives up with a conflict once the retry budget is spent.
func (s *bookingService) acquireRoomLock(ctx context.Context, roomID int64) (string, error) {
	lockID := fmt.Sprintf("room_lock_%d", roomID)

	for attempt := 0; ; attempt++ {
		lock := &model.RoomLock{
			ID:        lockID,
			ExpiresAt: time.Now().Add(s.cfg.RoomLockTTL),
		}

		_, err := s.locks.Create(ctx, lock)
		if err == nil {
			return lockID, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Internal("Failed to acquire room lock", err)
		}
		if attempt >= lockRetryAttempts {
			return "", apperrors.Conflict("Room is busy with another booking request. Please try again.")
		}

		select {
		case <-ctx.Done():
			return "", apperrors.Internal("Request ended while waiting for room lock", ctx.Err())
		case <-time.After(lockRetryInterval):
		}
	}
}

func (s *bookingService) releaseRoomLock(ctx context.Context, lockID string) {
	if err := s.locks.Delete(ctx, lockID); err != nil {
		s.cfg.Log.Warn("Failed to release room lock", "lock_id", lockID, "error", err)
	}
}
