package consumers

import (
	"encoding/json"
	"log/slog"

	"turnstile/internal/models"

	"github.com/nats-io/stan.go"
)

// Handlers consume reservation and queue lifecycle events for the audit
// trail. The purchase path does not depend on any of this; a lost message
// costs observability, not correctness.
type Handlers struct{}

func NewHandlers() *Handlers {
	return &Handlers{}
}

func (h *Handlers) HandleReservationCreated(msg *stan.Msg) {
	var event models.ReservationCreatedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Error("Failed to decode reservation created event", "error", err)
		return
	}

	slog.Info("Reservation created",
		"token", event.Token,
		"event_id", event.EventID,
		"category", event.Category,
		"client_id", event.ClientID,
		"quantity", event.Quantity)
}

func (h *Handlers) HandleReservationConfirmed(msg *stan.Msg) {
	var event models.ReservationConfirmedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Error("Failed to decode reservation confirmed event", "error", err)
		return
	}

	slog.Info("Reservation confirmed",
		"token", event.Token,
		"event_id", event.EventID,
		"client_id", event.ClientID,
		"quantity", event.Quantity,
		"total_price", event.TotalPrice,
		"tickets", len(event.TicketIDs))
}

func (h *Handlers) HandleReservationReleased(msg *stan.Msg) {
	var event models.ReservationReleasedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Error("Failed to decode reservation released event", "error", err)
		return
	}

	slog.Info("Reservation released",
		"token", event.Token,
		"event_id", event.EventID,
		"category", event.Category,
		"quantity", event.Quantity,
		"reason", event.Reason)
}

func (h *Handlers) HandleReservationExpired(msg *stan.Msg) {
	var event models.ReservationExpiredEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Error("Failed to decode reservation expired event", "error", err)
		return
	}

	slog.Info("Reservation expired",
		"token", event.Token,
		"event_id", event.EventID,
		"category", event.Category,
		"quantity", event.Quantity)
}

func (h *Handlers) HandleQueueAdmitted(msg *stan.Msg) {
	var event models.QueueAdmittedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Error("Failed to decode queue admitted event", "error", err)
		return
	}

	slog.Info("Client admitted",
		"event_id", event.EventID,
		"client_id", event.ClientID,
		"join_sequence", event.JoinSequence,
		"deadline", event.AdmissionDeadline)
}

func (h *Handlers) HandleQueueAbandoned(msg *stan.Msg) {
	var event models.QueueAbandonedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		slog.Error("Failed to decode queue abandoned event", "error", err)
		return
	}

	slog.Info("Queue entry abandoned",
		"event_id", event.EventID,
		"client_id", event.ClientID,
		"reason", event.Reason)
}
