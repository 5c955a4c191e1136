package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "turnstile/internal/errors"
	"turnstile/internal/repository"
	"turnstile/internal/service"
)

// ReservationExpiryJob releases pending reservations whose TTL elapsed,
// restoring their stock. It goes through the ledger's compare-and-set path,
// so a purchase confirming concurrently always wins or loses cleanly; stock
// is restored exactly once either way.
type ReservationExpiryJob struct {
	reservations *repository.ReservationRepository
	inventory    *service.InventoryService
	interval     time.Duration
	ticker       *time.Ticker
	done         chan bool
}

func NewReservationExpiryJob(reservations *repository.ReservationRepository, inventory *service.InventoryService, interval time.Duration) *ReservationExpiryJob {
	return &ReservationExpiryJob{
		reservations: reservations,
		inventory:    inventory,
		interval:     interval,
		done:         make(chan bool),
	}
}

// Start begins the periodic sweep
func (j *ReservationExpiryJob) Start(ctx context.Context) {
	slog.Info("Starting reservation expiry job", "sweep_interval", j.interval)

	j.ticker = time.NewTicker(j.interval)

	go j.sweep(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.sweep(ctx)
			case <-j.done:
				slog.Info("Reservation expiry job stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the job
func (j *ReservationExpiryJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *ReservationExpiryJob) sweep(ctx context.Context) {
	expired, err := j.reservations.ListExpiredPending(ctx, time.Now())
	if err != nil {
		slog.Error("Failed to list expired reservations", "error", err)
		return
	}

	if len(expired) == 0 {
		return
	}

	slog.Info("Found expired reservations to release", "count", len(expired))

	for _, rec := range expired {
		err := j.inventory.Expire(ctx, rec.Token)
		if err != nil {
			// A concurrent confirm or release already resolved this hold
			if errors.Is(err, apperrors.ErrAlreadyTerminal) || errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			slog.Error("Failed to expire reservation",
				"error", err,
				"token", rec.Token,
				"event_id", rec.EventID)
			continue
		}

		slog.Info("Expired reservation released",
			"token", rec.Token,
			"event_id", rec.EventID,
			"category", rec.Category,
			"quantity", rec.Quantity,
			"held_for", time.Since(rec.CreatedAt).String())
	}
}
