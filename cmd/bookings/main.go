package main

import (
	"context"

	"nestbook/internal/bookings/availability"
	"nestbook/internal/bookings/events"
	"nestbook/internal/bookings/handler"
	"nestbook/internal/bookings/repository"
	"nestbook/internal/bookings/service"
	"nestbook/internal/bookings/validator"
	"nestbook/internal/listings"
	"nestbook/pkg/app"
	"nestbook/pkg/auth"
	"nestbook/pkg/clock"
	"nestbook/pkg/config"
	"nestbook/pkg/kafka"
	kafkaconfig "nestbook/pkg/kafka/config"
	kafkamiddleware "nestbook/pkg/kafka/middleware"
	"nestbook/pkg/middleware"
	"nestbook/pkg/obs"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetStore()

	shutdownTracer, err := obs.InitTracer(context.Background(), ServiceName, cfg.OtelEndpoint, cfg.OtelEnabled)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize tracing", "error", err)
	}

	cfg.Log.Info("Starting Bookings service")
	repo, err := repository.NewBookingRepository(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize booking store", "error", err)
	}

	publisher, producer := initPublisher(cfg)
	directory := listings.NewHTTPDirectory(cfg.ListingsServiceURL, cfg.ListingsTimeout,
		listings.WithHeaders(func(ctx context.Context) map[string]string {
			return map[string]string{middleware.RequestIDHeader: middleware.RequestID(ctx)}
		}),
	)
	clk := clock.NewSystem()

	bookingService := service.NewBookingService(
		repo,
		availability.NewChecker(repo),
		directory,
		publisher,
		validator.NewBookingValidator(cfg.Log, cfg.MaxGuests),
		clk,
		cfg,
	)
	queryService := service.NewQueryService(repo, directory, clk, cfg)
	cfg.Log.Info("Booking service initialized", "store", cfg.StoreDriver)

	var verifier *auth.Verifier
	if cfg.JWTSecret != "" {
		verifier = auth.NewVerifier(cfg.JWTSecret)
	}

	serverApp := app.NewApplication(
		cfg,
		handler.NewBookingHandler(bookingService, queryService, cfg),
		handler.NewHealthHandler(cfg.Client, cfg.Log),
		verifier,
	)
	if producer != nil {
		serverApp.OnShutdown("kafka-producer", func(context.Context) error { return producer.Close() })
	}
	serverApp.OnShutdown("tracer", shutdownTracer)
	serverApp.Run()
}

// initPublisher returns the Kafka publisher when enabled, otherwise a no-op.
func initPublisher(cfg *config.Config) (events.Publisher, *kafka.Producer) {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled, booking events will not be published")
		return events.NewNoopPublisher(), nil
	}

	kcfg, err := kafkaconfig.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kcfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kcfg, cfg.BookingEventsTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafkamiddleware.LoggingProducerMiddleware(cfg.Log))

	return events.NewKafkaPublisher(producer, clock.NewSystem().Now, middleware.RequestID), producer
}
