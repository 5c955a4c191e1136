package models

import "time"

// NATS Event Types
const (
	EventQueueAdmitted        = "queue.admitted"
	EventQueueAbandoned       = "queue.abandoned"
	EventReservationCreated   = "reservation.created"
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationReleased  = "reservation.released"
	EventReservationExpired   = "reservation.expired"
)

// QueueAdmittedEvent is published when a waiting client gets a purchase slot
type QueueAdmittedEvent struct {
	ClientID          string    `json:"client_id"`
	EventID           int64     `json:"event_id"`
	JoinSequence      int64     `json:"join_sequence"`
	AdmissionDeadline time.Time `json:"admission_deadline"`
	Timestamp         time.Time `json:"timestamp"`
}

// QueueAbandonedEvent is published when an entry leaves without completing,
// either explicitly or by missing its admission deadline
type QueueAbandonedEvent struct {
	ClientID  string    `json:"client_id"`
	EventID   int64     `json:"event_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// ReservationCreatedEvent is published when stock is first held for a token
type ReservationCreatedEvent struct {
	Token     string    `json:"token"`
	EventID   int64     `json:"event_id"`
	Category  string    `json:"category"`
	ClientID  string    `json:"client_id"`
	Quantity  int       `json:"quantity"`
	Timestamp time.Time `json:"timestamp"`
}

// ReservationConfirmedEvent is published after a purchase completes
type ReservationConfirmedEvent struct {
	Token      string    `json:"token"`
	EventID    int64     `json:"event_id"`
	EventTitle string    `json:"event_title"`
	Category   string    `json:"category"`
	ClientID   string    `json:"client_id"`
	Quantity   int       `json:"quantity"`
	TotalPrice int64     `json:"total_price"`
	TicketIDs  []string  `json:"ticket_ids"`
	Timestamp  time.Time `json:"timestamp"`
}

// ReservationReleasedEvent is published when a pending hold is rolled back
// and its stock restored
type ReservationReleasedEvent struct {
	Token     string    `json:"token"`
	EventID   int64     `json:"event_id"`
	Category  string    `json:"category"`
	Quantity  int       `json:"quantity"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// ReservationExpiredEvent is published by the expiry sweep when a pending
// hold outlives its TTL
type ReservationExpiredEvent struct {
	Token     string    `json:"token"`
	EventID   int64     `json:"event_id"`
	Category  string    `json:"category"`
	Quantity  int       `json:"quantity"`
	Timestamp time.Time `json:"timestamp"`
}
