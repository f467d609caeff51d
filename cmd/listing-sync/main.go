package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"nestbook/internal/bookings/availability"
	"nestbook/internal/bookings/events"
	"nestbook/internal/bookings/repository"
	"nestbook/internal/bookings/service"
	"nestbook/internal/bookings/validator"
	"nestbook/internal/listings"
	"nestbook/pkg/config"
	"nestbook/pkg/kafka"
	kafkaconfig "nestbook/pkg/kafka/config"
	kafkamiddleware "nestbook/pkg/kafka/middleware"
	"nestbook/pkg/obs"
)

const ServiceName = "listing-sync"

// listing-sync consumes listing deletions and detaches the affected bookings.
func main() {
	cfg := config.Load(ServiceName)
	cfg.SetStore()
	defer cfg.GracefulShutdown()

	if cfg.StoreDriver == config.StoreMemory {
		cfg.Log.Warn("listing-sync on the memory store only affects this process")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, ServiceName, cfg.OtelEndpoint, cfg.OtelEnabled)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize tracing", "error", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			cfg.Log.Error("Tracer shutdown failed", "error", err)
		}
	}()

	repo, err := repository.NewBookingRepository(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize booking store", "error", err)
	}
	bookingService := service.NewBookingService(
		repo,
		availability.NewChecker(repo),
		listings.NewHTTPDirectory(cfg.ListingsServiceURL, cfg.ListingsTimeout),
		nil,
		validator.NewBookingValidator(cfg.Log, cfg.MaxGuests),
		nil,
		cfg,
	)

	kcfg, err := kafkaconfig.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kcfg.LogConfiguration(cfg.Log.Info)

	consumer, err := kafka.NewConsumer(kcfg, cfg.ListingEventsTopic, cfg.ListingSyncGroupID,
		events.NewListingDeletedHandler(bookingService, cfg.Log), cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafkamiddleware.LoggingConsumerMiddleware(cfg.Log))
	defer func() {
		if err := consumer.Close(); err != nil {
			cfg.Log.Error("Consumer close failed", "error", err)
		}
	}()

	cfg.Log.Info("Listing sync started", "topic", cfg.ListingEventsTopic, "group_id", cfg.ListingSyncGroupID)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Listing sync stopped with error", "error", err)
		return
	}
	cfg.Log.Info("Listing sync stopped")
}
