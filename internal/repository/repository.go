package repository

import (
	"turnstile/internal/database"
)

type Repositories struct {
	Events       *EventRepository
	Inventory    *InventoryRepository
	Reservations *ReservationRepository
}

func NewRepositories(db *database.DB) *Repositories {
	reservations := NewReservationRepository(db)
	return &Repositories{
		Events:       NewEventRepository(db),
		Inventory:    NewInventoryRepository(db, reservations),
		Reservations: reservations,
	}
}
