package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"turnstile/internal/cache"
	apperrors "turnstile/internal/errors"
	"turnstile/internal/logger"
	"turnstile/internal/metrics"
	"turnstile/internal/models"
)

// LedgerStore is the storage contract behind the inventory ledger. Reserve
// and Release are atomic: the stock change and the reservation record change
// land together or not at all.
type LedgerStore interface {
	Reserve(ctx context.Context, rec *models.ReservationRecord) error
	Confirm(ctx context.Context, token string) error
	Release(ctx context.Context, token, next string) (*models.ReservationRecord, error)
	Get(ctx context.Context, token string) (*models.ReservationRecord, error)
	GetCategory(ctx context.Context, eventID int64, category string) (*models.EventCategory, error)
	ListCategories(ctx context.Context, eventID int64) ([]models.EventCategory, error)
	AdjustCapacity(ctx context.Context, eventID int64, category string, delta int) error
}

type eventPublisher interface {
	Publish(subject string, data interface{}) error
}

// InventoryService is the inventory ledger: the single source of truth for
// remaining stock. UI-facing availability is a read-through cache
// invalidated by outcomes here, never a place stock is computed.
type InventoryService struct {
	store  LedgerStore
	nats   eventPublisher
	valkey *cache.ValkeyClient

	reservationTTL time.Duration
}

func NewInventoryService(store LedgerStore, nats eventPublisher, valkey *cache.ValkeyClient, reservationTTL time.Duration) *InventoryService {
	return &InventoryService{
		store:          store,
		nats:           nats,
		valkey:         valkey,
		reservationTTL: reservationTTL,
	}
}

// Reserve holds quantity units for the token. Replaying a token returns the
// existing record without touching stock. Returns ErrInsufficientStock when
// remaining < quantity.
func (s *InventoryService) Reserve(ctx context.Context, eventID int64, category, clientID string, quantity int, token string) (*models.ReservationRecord, error) {
	now := time.Now()
	rec := &models.ReservationRecord{
		Token:     token,
		EventID:   eventID,
		Category:  category,
		ClientID:  clientID,
		Quantity:  quantity,
		State:     models.ReservationPending,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.reservationTTL),
	}

	err := s.store.Reserve(ctx, rec)
	switch {
	case err == nil:
		metrics.ReservationsTotal.WithLabelValues(metrics.OutcomeReserved).Inc()
		s.invalidate(ctx, eventID)
		s.publish(ctx, models.EventReservationCreated, models.ReservationCreatedEvent{
			Token:     token,
			EventID:   eventID,
			Category:  category,
			ClientID:  clientID,
			Quantity:  quantity,
			Timestamp: now,
		})
		return rec, nil

	case errors.Is(err, apperrors.ErrAlreadyReserved):
		// Idempotent replay: hand back whatever the token already holds
		existing, getErr := s.store.Get(ctx, token)
		if getErr != nil {
			return nil, fmt.Errorf("failed to load existing reservation: %w", getErr)
		}
		if existing == nil {
			return nil, apperrors.ErrConflict
		}
		metrics.ReservationsTotal.WithLabelValues(metrics.OutcomeReplayed).Inc()
		return existing, nil

	case errors.Is(err, apperrors.ErrInsufficientStock):
		metrics.ReservationsTotal.WithLabelValues(metrics.OutcomeInsufficientStock).Inc()
		return nil, err

	default:
		return nil, fmt.Errorf("failed to reserve stock: %w", err)
	}
}

// Confirm finalizes a pending reservation. Stock already left the pool at
// reserve time, so only the record state changes. Confirming an already
// confirmed token is a no-op.
func (s *InventoryService) Confirm(ctx context.Context, token string) error {
	err := s.store.Confirm(ctx, token)
	if err == nil {
		metrics.ReservationsTotal.WithLabelValues(metrics.OutcomeConfirmed).Inc()
		return nil
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	if errors.Is(err, apperrors.ErrConflict) {
		rec, getErr := s.store.Get(ctx, token)
		if getErr != nil {
			return getErr
		}
		if rec != nil && rec.State == models.ReservationConfirmed {
			return nil
		}
		return apperrors.ErrAlreadyTerminal
	}
	return fmt.Errorf("failed to confirm reservation: %w", err)
}

// Release rolls back a pending reservation and restores its stock exactly
// once. Confirmed reservations are never released here; refunds are a
// separate business flow.
func (s *InventoryService) Release(ctx context.Context, token, reason string) error {
	return s.releaseAs(ctx, token, models.ReservationReleased, reason)
}

// Expire is the sweep-job variant of Release for reservations past their TTL.
func (s *InventoryService) Expire(ctx context.Context, token string) error {
	return s.releaseAs(ctx, token, models.ReservationExpired, "reservation TTL elapsed")
}

func (s *InventoryService) releaseAs(ctx context.Context, token, next, reason string) error {
	rec, err := s.store.Release(ctx, token, next)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrAlreadyTerminal) {
			return err
		}
		return fmt.Errorf("failed to release reservation: %w", err)
	}

	s.invalidate(ctx, rec.EventID)

	if next == models.ReservationExpired {
		metrics.ReservationsTotal.WithLabelValues(metrics.OutcomeExpired).Inc()
		s.publish(ctx, models.EventReservationExpired, models.ReservationExpiredEvent{
			Token:     token,
			EventID:   rec.EventID,
			Category:  rec.Category,
			Quantity:  rec.Quantity,
			Timestamp: time.Now(),
		})
	} else {
		metrics.ReservationsTotal.WithLabelValues(metrics.OutcomeReleased).Inc()
		s.publish(ctx, models.EventReservationReleased, models.ReservationReleasedEvent{
			Token:     token,
			EventID:   rec.EventID,
			Category:  rec.Category,
			Quantity:  rec.Quantity,
			Reason:    reason,
			Timestamp: time.Now(),
		})
	}

	return nil
}

func (s *InventoryService) GetCategory(ctx context.Context, eventID int64, category string) (*models.EventCategory, error) {
	return s.store.GetCategory(ctx, eventID, category)
}

func (s *InventoryService) ListCategories(ctx context.Context, eventID int64) ([]models.EventCategory, error) {
	return s.store.ListCategories(ctx, eventID)
}

// AdjustCapacity applies an admin capacity change through the ledger's
// conditional path; it never bypasses the atomic stock accounting.
func (s *InventoryService) AdjustCapacity(ctx context.Context, eventID int64, category string, delta int) error {
	if err := s.store.AdjustCapacity(ctx, eventID, category, delta); err != nil {
		return err
	}
	s.invalidate(ctx, eventID)
	return nil
}

func (s *InventoryService) invalidate(ctx context.Context, eventID int64) {
	if s.valkey != nil {
		s.valkey.InvalidateCategories(ctx, eventID)
	}
}

func (s *InventoryService) publish(ctx context.Context, subject string, data interface{}) {
	if s.nats == nil {
		return
	}
	if err := s.nats.Publish(subject, data); err != nil {
		logger.WithContext(ctx).Error("Failed to publish reservation event",
			"error", err,
			"event_type", subject)
	}
}
