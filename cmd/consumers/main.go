package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"turnstile/cmd/consumers/jobs"
	"turnstile/internal/config"
	"turnstile/internal/consumers"
	"turnstile/internal/logger"
)

func main() {
	cfg := config.Load()

	logger.Init(cfg.LogLevel, cfg.LogFormat)

	// Override NATS client ID for consumers
	cfg.NATS.ClientID = "turnstile-consumers"

	consumerService, err := consumers.NewConsumerService(cfg)
	if err != nil {
		log.Fatalf("Failed to create consumer service: %v", err)
	}

	if err := consumerService.Start(); err != nil {
		log.Fatalf("Failed to start consumers: %v", err)
	}

	// Run the reservation expiry sweep alongside the subscribers
	expiryJob := jobs.NewReservationExpiryJob(
		consumerService.Reservations(),
		consumerService.Inventory(),
		cfg.Reservation.SweepInterval,
	)
	jobCtx, jobCancel := context.WithCancel(context.Background())
	expiryJob.Start(jobCtx)

	log.Println("Consumers service started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down consumers service...")

	jobCancel()
	expiryJob.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := consumerService.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Consumers service stopped")
}
