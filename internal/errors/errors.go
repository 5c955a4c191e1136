package errors

import "errors"

// Typed outcomes surfaced by the inventory ledger and reservation log.
// Callers branch on these with errors.Is instead of parsing messages.
var (
	ErrInsufficientStock = errors.New("insufficient stock for requested quantity")
	ErrAlreadyReserved   = errors.New("idempotency token already has a reservation")
	ErrNotFound          = errors.New("reservation not found")
	ErrAlreadyTerminal   = errors.New("reservation is already in a terminal state")
	ErrConflict          = errors.New("concurrent state transition conflict")
)

// Queue controller outcomes.
var (
	ErrAlreadyQueued = errors.New("client already has an active queue entry for this event")
	ErrNotQueued     = errors.New("client has no active queue entry for this event")
	ErrNotAdmitted   = errors.New("client is not admitted to the purchase window")
)

// Orchestrator outcomes.
var (
	ErrDownstream         = errors.New("downstream collaborator failure")
	ErrReservationExpired = errors.New("reservation already expired or released")
)

var ErrEventNotFound = errors.New("event not found")
