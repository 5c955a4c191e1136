package service

import (
	"time"

	"turnstile/internal/cache"
	"turnstile/internal/external"
	"turnstile/internal/messaging"
	"turnstile/internal/queue"
	"turnstile/internal/repository"
	"turnstile/internal/search"
)

type Services struct {
	Events    *EventService
	Inventory *InventoryService
	Bookings  *BookingService
}

func NewServices(
	repos *repository.Repositories,
	qc *queue.Controller,
	natsClient *messaging.NATSClient,
	es *search.ElasticsearchClient,
	valkeyClient *cache.ValkeyClient,
	ticketingClient *external.TicketingClient,
	notificationClient *external.NotificationClient,
	reservationTTL time.Duration,
	downstreamTimeout time.Duration,
) *Services {
	eventService := NewEventService(repos.Events, repos.Inventory, es)
	inventoryService := NewInventoryService(repos.Inventory, natsClient, valkeyClient, reservationTTL)
	bookingService := NewBookingService(inventoryService, qc, ticketingClient, notificationClient, repos.Events, natsClient, downstreamTimeout)

	return &Services{
		Events:    eventService,
		Inventory: inventoryService,
		Bookings:  bookingService,
	}
}
