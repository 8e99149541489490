package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bookingserrors "roomdesk/internal/bookings/errors"
	"roomdesk/pkg/config"
	mongotx "roomdesk/pkg/db/mongo"
	"roomdesk/pkg/model"
)

const (
	BookingCollection  = "Bookings"
	countersCollection = "Counters"
	bookingSequence    = "bookings"
)

type BookingRepository interface {
	FindByUser(ctx context.Context, userID int64) (*model.Booking, error)
	FindOwner(ctx context.Context, bookingID int64) (int64, error)
	CountByRoom(ctx context.Context, roomID int64) (int64, error)
	Insert(ctx context.Context, userID, roomID int64) (int64, error)
	UpdateRoom(ctx context.Context, bookingID, roomID int64) (*model.Booking, error)
	EnsureIndexes(ctx context.Context) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	counters   *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(BookingCollection),
		counters:   db.Collection(countersCollection),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout unless already inside a
// transaction; a SessionContext cannot be wrapped without breaking
// transaction semantics.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			return context.WithTimeout(ctx, remaining)
		}
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoBookingRepository) FindByUser(ctx context.Context, userID int64) (*model.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	// A user owns at most one active booking; first match is the booking.
	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to find booking by user: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindOwner(ctx context.Context, bookingID int64) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.FindOne().SetProjection(bson.M{"user_id": 1})

	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"_id": bookingID}, opts).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, bookingserrors.ErrBookingNotFound
		}
		return 0, fmt.Errorf("failed to find booking owner: %w", err)
	}

	return booking.UserID, nil
}

func (r *mongoBookingRepository) CountByRoom(ctx context.Context, roomID int64) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"room_id": roomID})
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings for room: %w", err)
	}

	return count, nil
}

func (r *mongoBookingRepository) Insert(ctx context.Context, userID, roomID int64) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	id, err := r.nextID(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	booking := model.Booking{
		ID:        id,
		UserID:    userID,
		RoomID:    roomID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := r.collection.InsertOne(ctx, booking); err != nil {
		return 0, fmt.Errorf("failed to insert booking: %w", err)
	}

	return id, nil
}

// UpdateRoom reassigns the booking's room and returns the document as it was
// before the update, so callers can see the room the booking moved away from.
func (r *mongoBookingRepository) UpdateRoom(ctx context.Context, bookingID, roomID int64) (*model.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"room_id":    roomID,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var previous model.Booking
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": bookingID}, update, opts).Decode(&previous)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to update booking room: %w", err)
	}

	return &previous, nil
}

func (r *mongoBookingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "room_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}
	return nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

// nextID hands out surrogate booking ids from an atomic counter document.
// Ids stay numeric because the external contract exposes them as numbers.
func (r *mongoBookingRepository) nextID(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": bookingSequence},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate booking id: %w", err)
	}

	return counter.Seq, nil
}
