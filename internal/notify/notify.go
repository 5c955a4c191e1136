// Package notify carries queue state changes to waiting clients. Delivery is
// best-effort and at-most-once per distinct change: a missed push is only UX
// staleness, because the queue position is always recomputable on demand.
package notify

import "time"

// Notification kinds
const (
	KindPositionUpdate = "position_update"
	KindAdmitted       = "admitted"
)

// Notification is a single push to one client
type Notification struct {
	Kind              string     `json:"kind"`
	EventID           int64      `json:"event_id"`
	Position          int        `json:"position,omitempty"`
	AdmissionDeadline *time.Time `json:"admission_deadline,omitempty"`
}

// Channel pushes notifications toward a client session. Implementations must
// not block the caller and must not retry failed pushes.
type Channel interface {
	Push(clientID string, n Notification)
}

// NopChannel discards all notifications. Used in tests and when no push
// transport is configured.
type NopChannel struct{}

func (NopChannel) Push(string, Notification) {}
