package main

import (
	"context"
	"time"

	"roomdesk/internal/bookings/events"
	"roomdesk/internal/bookings/handler"
	"roomdesk/internal/bookings/repository"
	"roomdesk/internal/bookings/service"
	"roomdesk/internal/bookings/validator"
	"roomdesk/pkg/app"
	"roomdesk/pkg/config"
	"roomdesk/pkg/kafka"
	kafka_config "roomdesk/pkg/kafka/config"
	"roomdesk/pkg/middleware"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Bookings service")

	bookingService := initServices(cfg)
	bookingHandler := handler.NewBookingHandler(
		bookingService,
		validator.NewBookingValidator(cfg.Log),
		middleware.Authenticate([]byte(cfg.JWTSecret)),
		cfg.Log,
	)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(bookingHandler)
	serverApp.Run()
}

func initServices(cfg *config.Config) service.BookingService {
	bookingRepo := repository.NewMongoBookingRepository(cfg)
	roomRepo := repository.NewMongoRoomRepository(cfg)
	ticketRepo := repository.NewMongoTicketRepository(cfg)
	lockRepo := repository.NewRoomLockRepository(cfg)

	ensureIndexes(cfg, bookingRepo, lockRepo)

	bookingService := service.NewBookingService(
		bookingRepo,
		roomRepo,
		ticketRepo,
		lockRepo,
		initPublisher(cfg),
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}

func ensureIndexes(cfg *config.Config, bookingRepo repository.BookingRepository, lockRepo repository.RoomLockRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := bookingRepo.EnsureIndexes(ctx); err != nil {
		cfg.Log.Fatal("Failed to ensure booking indexes", "error", err)
	}
	if err := lockRepo.EnsureIndexes(ctx); err != nil {
		cfg.Log.Fatal("Failed to ensure room lock indexes", "error", err)
	}
}

func initPublisher(cfg *config.Config) events.Publisher {
	if !cfg.BookingEventsEnabled {
		cfg.Log.Info("Booking events disabled")
		return events.NoopPublisher{}
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingEventsTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	cfg.Log.Info("Booking events enabled",
		"topic", cfg.BookingEventsTopic,
		"brokers", kafkaCfg.Brokers,
	)
	return events.NewKafkaPublisher(producer, cfg.Log)
}
