// Package events announces booking changes to downstream consumers over
// Kafka. Publishing is best-effort: a booking that committed to the store is
// never rolled back because the broker was down.
package events

import (
	"context"
	"strconv"
	"time"

	"roomdesk/pkg/kafka"
	"roomdesk/pkg/logger"
	"roomdesk/pkg/model"
)

const (
	EventBookingCreated     = "booking.created"
	EventBookingRoomChanged = "booking.room_changed"

	schemaVersion = "1"
	source        = "bookings"
)

// Publisher emits booking lifecycle events.
type Publisher interface {
	BookingCreated(ctx context.Context, booking model.Booking) error
	BookingRoomChanged(ctx context.Context, booking model.Booking, previousRoomID int64) error
}

type bookingCreatedPayload struct {
	BookingID int64     `json:"bookingId"`
	UserID    int64     `json:"userId"`
	RoomID    int64     `json:"roomId"`
	CreatedAt time.Time `json:"createdAt"`
}

type bookingRoomChangedPayload struct {
	BookingID      int64     `json:"bookingId"`
	UserID         int64     `json:"userId"`
	RoomID         int64     `json:"roomId"`
	PreviousRoomID int64     `json:"previousRoomId"`
	ChangedAt      time.Time `json:"changedAt"`
}

type kafkaPublisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, log *logger.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		log:      log,
	}
}

func (p *kafkaPublisher) BookingCreated(ctx context.Context, booking model.Booking) error {
	msg := kafka.NewMessage().
		WithKey(strconv.FormatInt(booking.ID, 10)).
		WithEventType(EventBookingCreated).
		WithSource(source).
		WithSchemaVersion(schemaVersion).
		WithValue(bookingCreatedPayload{
			BookingID: booking.ID,
			UserID:    booking.UserID,
			RoomID:    booking.RoomID,
			CreatedAt: booking.CreatedAt,
		}).
		Build()

	return p.producer.Publish(ctx, msg)
}

func (p *kafkaPublisher) BookingRoomChanged(ctx context.Context, booking model.Booking, previousRoomID int64) error {
	msg := kafka.NewMessage().
		WithKey(strconv.FormatInt(booking.ID, 10)).
		WithEventType(EventBookingRoomChanged).
		WithSource(source).
		WithSchemaVersion(schemaVersion).
		WithValue(bookingRoomChangedPayload{
			BookingID:      booking.ID,
			UserID:         booking.UserID,
			RoomID:         booking.RoomID,
			PreviousRoomID: previousRoomID,
			ChangedAt:      booking.UpdatedAt,
		}).
		Build()

	return p.producer.Publish(ctx, msg)
}

// NoopPublisher is wired when booking events are disabled.
type NoopPublisher struct{}

func (NoopPublisher) BookingCreated(context.Context, model.Booking) error { return nil }

func (NoopPublisher) BookingRoomChanged(context.Context, model.Booking, int64) error { return nil }
