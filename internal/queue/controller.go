package queue

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	apperrors "turnstile/internal/errors"
	"turnstile/internal/metrics"
	"turnstile/internal/models"
	"turnstile/internal/notify"
)

// Config tunes the waiting room
type Config struct {
	// MaxConcurrentBuyers bounds the active window per event
	MaxConcurrentBuyers int
	// AdmissionTTL is how long an admitted client may hold its slot
	AdmissionTTL time.Duration
	// TickInterval drives deadline sweeps and re-admission
	TickInterval time.Duration
}

// Publisher emits queue lifecycle events; satisfied by the NATS client.
type Publisher interface {
	Publish(subject string, data interface{}) error
}

type entry struct {
	models.QueueEntry
	// lastNotifiedPos keeps pushes at-most-once per distinct position change
	lastNotifiedPos int
}

// lifecycleEvent is a queue event collected under the lock and published
// after it is released; stan publishes block until the server acks, which
// must never stall the waiting room.
type lifecycleEvent struct {
	subject string
	data    interface{}
}

// eventQueue holds one event's waiting room. Each event has its own lock and
// its own sequence counter, so queues for different events never contend.
type eventQueue struct {
	mu      sync.Mutex
	nextSeq int64
	entries map[string]*entry
	waiting []*entry
	active  map[string]*entry
}

// Controller admits waiting clients into the purchase flow in strict FIFO
// order by join sequence, holding the active window at or under the
// configured bound. It exclusively owns all queue entry state.
type Controller struct {
	mu     sync.RWMutex
	events map[int64]*eventQueue

	cfg      Config
	notifier notify.Channel
	pub      Publisher

	now func() time.Time

	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

func NewController(cfg Config, notifier notify.Channel, pub Publisher) *Controller {
	if notifier == nil {
		notifier = notify.NopChannel{}
	}
	return &Controller{
		events:   make(map[int64]*eventQueue),
		cfg:      cfg,
		notifier: notifier,
		pub:      pub,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

func (c *Controller) queueFor(eventID int64) *eventQueue {
	c.mu.RLock()
	q, ok := c.events[eventID]
	c.mu.RUnlock()
	if ok {
		return q
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if q, ok = c.events[eventID]; ok {
		return q
	}
	q = &eventQueue{
		entries: make(map[string]*entry),
		active:  make(map[string]*entry),
	}
	c.events[eventID] = q
	return q
}

// Join enters a client into an event's queue and returns the entry with its
// current position. A client with a non-terminal entry cannot join twice.
func (c *Controller) Join(eventID int64, clientID string) (*models.QueueEntry, int, error) {
	q := c.queueFor(eventID)

	q.mu.Lock()

	if _, ok := q.entries[clientID]; ok {
		q.mu.Unlock()
		return nil, 0, apperrors.ErrAlreadyQueued
	}

	q.nextSeq++
	e := &entry{
		QueueEntry: models.QueueEntry{
			ClientID:     clientID,
			EventID:      eventID,
			JoinSequence: q.nextSeq,
			State:        models.QueueWaiting,
			JoinedAt:     c.now(),
		},
	}
	q.entries[clientID] = e
	q.waiting = append(q.waiting, e)

	var pending []lifecycleEvent
	c.tryAdmitLocked(eventID, q, &pending)
	c.updateGaugesLocked(eventID, q)

	snapshot := e.QueueEntry
	position := c.positionLocked(q, e)
	q.mu.Unlock()

	c.publishAll(pending)
	return &snapshot, position, nil
}

// positionLocked recomputes the 1-based position: waiting entries with a
// strictly smaller join sequence, plus one. Derived, never stored, so it
// self-corrects as entries ahead leave.
func (c *Controller) positionLocked(q *eventQueue, e *entry) int {
	if e.State != models.QueueWaiting {
		return 0
	}
	pos := 1
	for _, other := range q.waiting {
		if other.JoinSequence < e.JoinSequence {
			pos++
		}
	}
	return pos
}

// Status reports the client's entry state and recomputed position.
func (c *Controller) Status(eventID int64, clientID string) (*models.QueueStatusResponse, error) {
	q := c.queueFor(eventID)

	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[clientID]
	if !ok {
		return nil, apperrors.ErrNotQueued
	}

	resp := &models.QueueStatusResponse{
		EventID: eventID,
		State:   e.State,
	}
	if e.State == models.QueueWaiting {
		resp.Position = c.positionLocked(q, e)
	}
	if e.State == models.QueueAdmitted {
		resp.AdmissionDeadline = e.AdmissionDeadline
	}
	return resp, nil
}

// IsAdmitted reports whether the client currently holds a purchase slot.
func (c *Controller) IsAdmitted(eventID int64, clientID string) bool {
	q := c.queueFor(eventID)

	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[clientID]
	return ok && e.State == models.QueueAdmitted
}

// Leave abandons the client's entry and frees any held slot.
func (c *Controller) Leave(eventID int64, clientID string) error {
	q := c.queueFor(eventID)

	q.mu.Lock()

	e, ok := q.entries[clientID]
	if !ok {
		q.mu.Unlock()
		return apperrors.ErrNotQueued
	}

	var pending []lifecycleEvent
	c.removeLocked(eventID, q, e, models.QueueAbandoned, "client left", &pending)
	c.tryAdmitLocked(eventID, q, &pending)
	c.notifyPositionsLocked(q)
	c.updateGaugesLocked(eventID, q)
	q.mu.Unlock()

	c.publishAll(pending)
	return nil
}

// Complete marks an admitted client's purchase as finished, freeing its slot
// and admitting the next waiting client.
func (c *Controller) Complete(eventID int64, clientID string) error {
	q := c.queueFor(eventID)

	q.mu.Lock()

	e, ok := q.entries[clientID]
	if !ok || e.State != models.QueueAdmitted {
		q.mu.Unlock()
		return apperrors.ErrNotAdmitted
	}

	e.State = models.QueueCompleted
	delete(q.active, clientID)
	delete(q.entries, clientID)
	metrics.AdmissionsTotal.WithLabelValues("completed").Inc()

	var pending []lifecycleEvent
	c.tryAdmitLocked(eventID, q, &pending)
	c.notifyPositionsLocked(q)
	c.updateGaugesLocked(eventID, q)
	q.mu.Unlock()

	c.publishAll(pending)
	return nil
}

// removeLocked takes an entry out of the queue structures and archives it.
func (c *Controller) removeLocked(eventID int64, q *eventQueue, e *entry, state, reason string, pending *[]lifecycleEvent) {
	switch e.State {
	case models.QueueWaiting:
		for i, other := range q.waiting {
			if other == e {
				q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
				break
			}
		}
	case models.QueueAdmitted:
		delete(q.active, e.ClientID)
	}

	e.State = state
	delete(q.entries, e.ClientID)

	if state == models.QueueAbandoned {
		metrics.AdmissionsTotal.WithLabelValues("abandoned").Inc()
		*pending = append(*pending, lifecycleEvent{models.EventQueueAbandoned, models.QueueAbandonedEvent{
			ClientID:  e.ClientID,
			EventID:   eventID,
			Reason:    reason,
			Timestamp: c.now(),
		}})
	}
}

// tryAdmitLocked fills free window slots in join-sequence order. No entry is
// admitted while an earlier one is still waiting.
func (c *Controller) tryAdmitLocked(eventID int64, q *eventQueue, pending *[]lifecycleEvent) {
	for len(q.active) < c.cfg.MaxConcurrentBuyers && len(q.waiting) > 0 {
		e := q.waiting[0]
		q.waiting = q.waiting[1:]

		now := c.now()
		deadline := now.Add(c.cfg.AdmissionTTL)
		e.State = models.QueueAdmitted
		e.AdmittedAt = &now
		e.AdmissionDeadline = &deadline
		q.active[e.ClientID] = e

		c.notifier.Push(e.ClientID, notify.Notification{
			Kind:              notify.KindAdmitted,
			EventID:           eventID,
			AdmissionDeadline: &deadline,
		})
		*pending = append(*pending, lifecycleEvent{models.EventQueueAdmitted, models.QueueAdmittedEvent{
			ClientID:          e.ClientID,
			EventID:           eventID,
			JoinSequence:      e.JoinSequence,
			AdmissionDeadline: deadline,
			Timestamp:         now,
		}})

		slog.Info("Admitted client to purchase window",
			"event_id", eventID,
			"client_id", e.ClientID,
			"join_sequence", e.JoinSequence,
			"deadline", deadline)
	}
}

// notifyPositionsLocked pushes position updates to waiting clients whose
// position actually changed since the last push.
func (c *Controller) notifyPositionsLocked(q *eventQueue) {
	for i, e := range q.waiting {
		pos := i + 1
		if e.lastNotifiedPos == pos {
			continue
		}
		e.lastNotifiedPos = pos
		c.notifier.Push(e.ClientID, notify.Notification{
			Kind:     notify.KindPositionUpdate,
			EventID:  e.EventID,
			Position: pos,
		})
	}
}

func (c *Controller) updateGaugesLocked(eventID int64, q *eventQueue) {
	label := strconv.FormatInt(eventID, 10)
	metrics.QueueDepth.WithLabelValues(label).Set(float64(len(q.waiting)))
	metrics.ActiveWindow.WithLabelValues(label).Set(float64(len(q.active)))
}

// publishAll emits collected lifecycle events. Called with no locks held.
func (c *Controller) publishAll(pending []lifecycleEvent) {
	if c.pub == nil {
		return
	}
	for _, ev := range pending {
		if err := c.pub.Publish(ev.subject, ev.data); err != nil {
			slog.Debug("Failed to publish queue event", "error", err, "subject", ev.subject)
		}
	}
}

// Tick sweeps admitted entries past their deadline, abandons them and
// admits the next waiting clients.
func (c *Controller) Tick() {
	c.mu.RLock()
	queues := make(map[int64]*eventQueue, len(c.events))
	for id, q := range c.events {
		queues[id] = q
	}
	c.mu.RUnlock()

	now := c.now()
	for eventID, q := range queues {
		q.mu.Lock()

		var expired []*entry
		for _, e := range q.active {
			if e.AdmissionDeadline != nil && now.After(*e.AdmissionDeadline) {
				expired = append(expired, e)
			}
		}
		var pending []lifecycleEvent
		for _, e := range expired {
			slog.Info("Admission deadline passed, abandoning entry",
				"event_id", eventID,
				"client_id", e.ClientID,
				"deadline", *e.AdmissionDeadline)
			c.removeLocked(eventID, q, e, models.QueueAbandoned, "admission deadline passed", &pending)
		}

		if len(expired) > 0 {
			c.tryAdmitLocked(eventID, q, &pending)
		}
		c.notifyPositionsLocked(q)
		c.updateGaugesLocked(eventID, q)

		q.mu.Unlock()

		c.publishAll(pending)
	}
}

// Start runs the periodic deadline sweep until the context ends or Stop is
// called.
func (c *Controller) Start(ctx context.Context) {
	slog.Info("Starting queue controller sweep",
		"tick_interval", c.cfg.TickInterval,
		"admission_ttl", c.cfg.AdmissionTTL,
		"max_concurrent_buyers", c.cfg.MaxConcurrentBuyers)

	c.ticker = time.NewTicker(c.cfg.TickInterval)

	go func() {
		for {
			select {
			case <-c.ticker.C:
				c.Tick()
			case <-ctx.Done():
				slog.Info("Queue controller sweep stopped")
				return
			case <-c.done:
				slog.Info("Queue controller sweep stopped")
				return
			}
		}
	}()
}

// Stop halts the periodic sweep. Safe to call more than once.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		if c.ticker != nil {
			c.ticker.Stop()
		}
		close(c.done)
	})
}
