package models

import (
	"time"
)

// Event represents a sellable event in the catalog
type Event struct {
	ID            int64     `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Description   *string   `json:"description" db:"description"`
	Type          string    `json:"type" db:"type"`
	DatetimeStart time.Time `json:"datetime_start" db:"datetime_start"`
	Venue         string    `json:"venue" db:"venue"`
	Artist        string    `json:"artist" db:"artist"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// EventCategory is a priced, capacity-bounded ticket tier for one event.
// Remaining is only ever mutated through the inventory ledger's conditional
// decrement/increment, never by a plain read-modify-write.
type EventCategory struct {
	EventID       int64     `json:"event_id" db:"event_id"`
	Category      string    `json:"category" db:"category"`
	UnitPrice     int64     `json:"unit_price" db:"unit_price"`
	TotalCapacity int       `json:"total_capacity" db:"total_capacity"`
	Remaining     int       `json:"remaining" db:"remaining"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Reservation states
const (
	ReservationPending   = "PENDING"
	ReservationConfirmed = "CONFIRMED"
	ReservationReleased  = "RELEASED"
	ReservationExpired   = "EXPIRED"
)

// ReservationRecord tracks one logical reservation keyed by its idempotency
// token. Exactly one record exists per token; inventory is decremented when
// the record is created and restored when it leaves PENDING for RELEASED or
// EXPIRED.
type ReservationRecord struct {
	Token     string    `json:"token" db:"token"`
	EventID   int64     `json:"event_id" db:"event_id"`
	Category  string    `json:"category" db:"category"`
	ClientID  string    `json:"client_id" db:"client_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	State     string    `json:"state" db:"state"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// IsTerminal reports whether the reservation can no longer change state.
func (r *ReservationRecord) IsTerminal() bool {
	return r.State == ReservationConfirmed || r.State == ReservationReleased || r.State == ReservationExpired
}

// Queue entry states
const (
	QueueWaiting   = "WAITING"
	QueueAdmitted  = "ADMITTED"
	QueueCompleted = "COMPLETED"
	QueueAbandoned = "ABANDONED"
)

// QueueEntry is one client's place in an event's waiting room. JoinSequence
// is assigned from a per-event monotonic counter and alone defines FIFO
// order; wall-clock time is never used for ordering.
type QueueEntry struct {
	ClientID          string     `json:"client_id"`
	EventID           int64      `json:"event_id"`
	JoinSequence      int64      `json:"join_sequence"`
	State             string     `json:"state"`
	JoinedAt          time.Time  `json:"joined_at"`
	AdmittedAt        *time.Time `json:"admitted_at,omitempty"`
	AdmissionDeadline *time.Time `json:"admission_deadline,omitempty"`
}
