package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"roomdesk/pkg/config"
	"roomdesk/pkg/model"
)

const TicketCollection = "Tickets"

// TicketRepository reads tickets issued by the ticketing subsystem. A user may
// hold tickets from several enrollments; eligibility is decided over all of
// them.
type TicketRepository interface {
	FindByUser(ctx context.Context, userID int64) ([]model.Ticket, error)
}

type mongoTicketRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoTicketRepository(cfg *config.Config) TicketRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTicketRepository{
		cfg:        cfg,
		collection: db.Collection(TicketCollection),
	}
}

func (r *mongoTicketRepository) FindByUser(ctx context.Context, userID int64) ([]model.Ticket, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to find tickets: %w", err)
	}
	defer cursor.Close(ctx)

	var tickets []model.Ticket
	if err = cursor.All(ctx, &tickets); err != nil {
		return nil, fmt.Errorf("failed to decode tickets: %w", err)
	}

	return tickets, nil
}
