package consumers

import (
	"context"
	"log/slog"

	"turnstile/internal/cache"
	"turnstile/internal/config"
	"turnstile/internal/database"
	"turnstile/internal/messaging"
	"turnstile/internal/models"
	"turnstile/internal/repository"
	"turnstile/internal/service"
)

type ConsumerService struct {
	db        *database.DB
	nats      *messaging.NATSClient
	valkey    *cache.ValkeyClient
	repos     *repository.Repositories
	inventory *service.InventoryService
	handlers  *Handlers
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	// Connect to NATS
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	// Connect to Valkey cache; the expiry sweep invalidates category
	// listings when it restores stock, so run degraded without it
	valkeyClient, err := cache.NewValkeyClient()
	if err != nil {
		slog.Warn("Valkey unavailable, expiry sweep will not invalidate cache", "error", err)
		valkeyClient = nil
	}

	// Create repositories
	repos := repository.NewRepositories(db)

	// The sweep reuses the ledger service so releases publish events and
	// invalidate cache exactly like API-initiated ones
	inventoryService := service.NewInventoryService(repos.Inventory, natsClient, valkeyClient, cfg.Reservation.TTL)

	return &ConsumerService{
		db:        db,
		nats:      natsClient,
		valkey:    valkeyClient,
		repos:     repos,
		inventory: inventoryService,
		handlers:  NewHandlers(),
	}, nil
}

// Reservations exposes the reservation repository for job wiring
func (cs *ConsumerService) Reservations() *repository.ReservationRepository {
	return cs.repos.Reservations
}

// Inventory exposes the ledger service for job wiring
func (cs *ConsumerService) Inventory() *service.InventoryService {
	return cs.inventory
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	// Subscribe to reservation lifecycle events
	_, err := cs.nats.SubscribeQueue(models.EventReservationCreated, "consumers", cs.handlers.HandleReservationCreated)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue(models.EventReservationConfirmed, "consumers", cs.handlers.HandleReservationConfirmed)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue(models.EventReservationReleased, "consumers", cs.handlers.HandleReservationReleased)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue(models.EventReservationExpired, "consumers", cs.handlers.HandleReservationExpired)
	if err != nil {
		return err
	}

	// Subscribe to queue lifecycle events
	_, err = cs.nats.SubscribeQueue(models.EventQueueAdmitted, "consumers", cs.handlers.HandleQueueAdmitted)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue(models.EventQueueAbandoned, "consumers", cs.handlers.HandleQueueAbandoned)
	if err != nil {
		return err
	}

	slog.Info("All consumers started successfully")
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.valkey != nil {
		if err := cs.valkey.Close(); err != nil {
			slog.Error("Error closing Valkey connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
