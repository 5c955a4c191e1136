package models

import "time"

// CategorySpec describes one ticket tier at event creation time
type CategorySpec struct {
	Category      string `json:"category" binding:"required"`
	UnitPrice     int64  `json:"unit_price" binding:"required"`
	TotalCapacity int    `json:"total_capacity" binding:"required"`
}

// CreateEventRequest creates an event plus its ticket categories
type CreateEventRequest struct {
	Title         string         `json:"title" binding:"required"`
	Description   *string        `json:"description,omitempty"`
	Type          string         `json:"type"`
	DatetimeStart time.Time      `json:"datetime_start" binding:"required"`
	Venue         string         `json:"venue"`
	Artist        string         `json:"artist"`
	Categories    []CategorySpec `json:"categories" binding:"required,dive"`
}

// CreateEventResponse is returned on event creation
type CreateEventResponse struct {
	ID int64 `json:"id"`
}

// ListEventsResponseItem is one element of the event list
type ListEventsResponseItem struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Venue         string    `json:"venue"`
	Artist        string    `json:"artist"`
	DatetimeStart time.Time `json:"datetime_start"`
}

// ListEventsResponse is a page of events
type ListEventsResponse []ListEventsResponseItem

// ListCategoriesResponseItem is one ticket tier with live availability
type ListCategoriesResponseItem struct {
	Category      string `json:"category"`
	UnitPrice     int64  `json:"unit_price"`
	TotalCapacity int    `json:"total_capacity"`
	Remaining     int    `json:"remaining"`
}

// ListCategoriesResponse lists the tiers of one event
type ListCategoriesResponse []ListCategoriesResponseItem

// JoinQueueRequest enters a client into an event's waiting room
type JoinQueueRequest struct {
	EventID  int64  `json:"event_id" binding:"required"`
	ClientID string `json:"client_id" binding:"required"`
}

// JoinQueueResponse reports the assigned place in line
type JoinQueueResponse struct {
	EventID      int64 `json:"event_id"`
	JoinSequence int64 `json:"join_sequence"`
	Position     int   `json:"position"`
}

// QueueStatusResponse is the client's current queue state. Position is
// recomputed on every call, so a reconnecting client resynchronizes by
// polling this instead of replaying missed pushes.
type QueueStatusResponse struct {
	EventID           int64      `json:"event_id"`
	State             string     `json:"state"`
	Position          int        `json:"position,omitempty"`
	AdmissionDeadline *time.Time `json:"admission_deadline,omitempty"`
}

// LeaveQueueRequest abandons a waiting or admitted entry
type LeaveQueueRequest struct {
	EventID  int64  `json:"event_id" binding:"required"`
	ClientID string `json:"client_id" binding:"required"`
}

// PurchaseRequest buys tickets for an admitted client
type PurchaseRequest struct {
	ClientID string `json:"client_id" binding:"required"`
	EventID  int64  `json:"event_id" binding:"required"`
	Category string `json:"category" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

// PurchaseResponse is returned when tickets were issued
type PurchaseResponse struct {
	ReservationToken string   `json:"reservation_token"`
	TicketIDs        []string `json:"ticket_ids"`
	TotalPrice       int64    `json:"total_price"`
}

// Purchase rejection reasons
const (
	RejectNotAdmitted        = "NOT_ADMITTED"
	RejectSoldOut            = "SOLD_OUT"
	RejectReservationExpired = "RESERVATION_EXPIRED"
	RejectDownstreamFailure  = "DOWNSTREAM_FAILURE"
)

// RejectionResponse explains why a purchase was not completed. Recoverable
// reasons are safe to retry with the same request.
type RejectionResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// AdjustCapacityRequest changes a category's total capacity by Delta.
// Shrinking below sold-or-held stock is refused by the ledger.
type AdjustCapacityRequest struct {
	EventID  int64  `json:"event_id" binding:"required"`
	Category string `json:"category" binding:"required"`
	Delta    int    `json:"delta" binding:"required"`
}

// BookingSummary is passed to the receipt collaborator after a confirmed
// purchase
type BookingSummary struct {
	ReservationToken string    `json:"reservation_token"`
	EventID          int64     `json:"event_id"`
	EventTitle       string    `json:"event_title"`
	Category         string    `json:"category"`
	Quantity         int       `json:"quantity"`
	TotalPrice       int64     `json:"total_price"`
	TicketIDs        []string  `json:"ticket_ids"`
	PurchasedAt      time.Time `json:"purchased_at"`
}
