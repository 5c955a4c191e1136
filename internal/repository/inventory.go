package repository

import (
	"context"
	"database/sql"
	"fmt"

	"turnstile/internal/database"
	apperrors "turnstile/internal/errors"
	"turnstile/internal/models"
)

// InventoryRepository owns the per-(event, category) ticket counts. Every
// stock change is a single conditional UPDATE, so two concurrent reserves
// for the last unit can never both succeed; there is no read-then-write
// anywhere in this file.
type InventoryRepository struct {
	db           *database.DB
	reservations *ReservationRepository
}

func NewInventoryRepository(db *database.DB, reservations *ReservationRepository) *InventoryRepository {
	return &InventoryRepository{db: db, reservations: reservations}
}

// Reserve atomically decrements remaining and records the pending
// reservation in one transaction. Returns ErrAlreadyReserved when the token
// already has a record (the caller re-reads for idempotent replay),
// ErrInsufficientStock when remaining < quantity, ErrEventNotFound for an
// unknown category.
func (r *InventoryRepository) Reserve(ctx context.Context, rec *models.ReservationRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reserve transaction: %w", err)
	}
	defer tx.Rollback()

	inserted, err := r.reservations.PutIfAbsentTx(ctx, tx, rec)
	if err != nil {
		return fmt.Errorf("failed to record reservation: %w", err)
	}
	if !inserted {
		return apperrors.ErrAlreadyReserved
	}

	decrement := `
		UPDATE event_categories
		SET remaining = remaining - $1, updated_at = NOW()
		WHERE event_id = $2 AND category = $3 AND remaining >= $1`

	res, err := tx.ExecContext(ctx, decrement, rec.Quantity, rec.EventID, rec.Category)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Rolled back either way; find out which failure to report
		var exists bool
		check := `SELECT EXISTS (SELECT 1 FROM event_categories WHERE event_id = $1 AND category = $2)`
		if err := tx.QueryRowContext(ctx, check, rec.EventID, rec.Category).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return apperrors.ErrEventNotFound
		}
		return apperrors.ErrInsufficientStock
	}

	return tx.Commit()
}

// Confirm moves a pending reservation to CONFIRMED. Stock was already
// decremented at reserve time, so no inventory change happens here.
func (r *InventoryRepository) Confirm(ctx context.Context, token string) error {
	return r.reservations.Transition(ctx, token, models.ReservationPending, models.ReservationConfirmed)
}

// Get returns the reservation record for token, or nil when absent.
func (r *InventoryRepository) Get(ctx context.Context, token string) (*models.ReservationRecord, error) {
	return r.reservations.Get(ctx, token)
}

// Release moves a pending reservation to next (RELEASED or EXPIRED) and
// restores its quantity to the category, in one transaction. Confirmed
// records are never released through this path.
func (r *InventoryRepository) Release(ctx context.Context, token, next string) (*models.ReservationRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin release transaction: %w", err)
	}
	defer tx.Rollback()

	update := `
		UPDATE reservations SET state = $1, updated_at = NOW()
		WHERE token = $2 AND state = 'PENDING'
		RETURNING ` + reservationColumns

	rec, err := scanReservation(tx.QueryRowContext(ctx, update, next, token))
	if err == sql.ErrNoRows {
		existing, getErr := r.reservations.Get(ctx, token)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil {
			return nil, apperrors.ErrNotFound
		}
		return existing, apperrors.ErrAlreadyTerminal
	}
	if err != nil {
		return nil, fmt.Errorf("failed to release reservation: %w", err)
	}

	restore := `
		UPDATE event_categories
		SET remaining = remaining + $1, updated_at = NOW()
		WHERE event_id = $2 AND category = $3`

	if _, err := tx.ExecContext(ctx, restore, rec.Quantity, rec.EventID, rec.Category); err != nil {
		return nil, fmt.Errorf("failed to restore stock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *InventoryRepository) GetCategory(ctx context.Context, eventID int64, category string) (*models.EventCategory, error) {
	ec := &models.EventCategory{}
	query := `
		SELECT event_id, category, unit_price, total_capacity, remaining, created_at, updated_at
		FROM event_categories
		WHERE event_id = $1 AND category = $2`

	err := r.db.QueryRowContext(ctx, query, eventID, category).Scan(
		&ec.EventID,
		&ec.Category,
		&ec.UnitPrice,
		&ec.TotalCapacity,
		&ec.Remaining,
		&ec.CreatedAt,
		&ec.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return ec, err
}

func (r *InventoryRepository) ListCategories(ctx context.Context, eventID int64) ([]models.EventCategory, error) {
	query := `
		SELECT event_id, category, unit_price, total_capacity, remaining, created_at, updated_at
		FROM event_categories
		WHERE event_id = $1
		ORDER BY unit_price`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.EventCategory
	for rows.Next() {
		var ec models.EventCategory
		err := rows.Scan(
			&ec.EventID,
			&ec.Category,
			&ec.UnitPrice,
			&ec.TotalCapacity,
			&ec.Remaining,
			&ec.CreatedAt,
			&ec.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		categories = append(categories, ec)
	}

	return categories, rows.Err()
}

// CreateCategories seeds the ticket tiers of a new event with
// remaining = total_capacity
func (r *InventoryRepository) CreateCategories(ctx context.Context, eventID int64, specs []models.CategorySpec) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO event_categories (event_id, category, unit_price, total_capacity, remaining)
		VALUES ($1, $2, $3, $4, $4)`

	for _, spec := range specs {
		if _, err := tx.ExecContext(ctx, query, eventID, spec.Category, spec.UnitPrice, spec.TotalCapacity); err != nil {
			return fmt.Errorf("failed to create category %q: %w", spec.Category, err)
		}
	}

	return tx.Commit()
}

// AdjustCapacity applies an externally authorized capacity change through
// the same conditional path as reserve/release. Shrinking is refused when it
// would cut into sold or held stock.
func (r *InventoryRepository) AdjustCapacity(ctx context.Context, eventID int64, category string, delta int) error {
	var query string
	if delta >= 0 {
		query = `
			UPDATE event_categories
			SET total_capacity = total_capacity + $1, remaining = remaining + $1, updated_at = NOW()
			WHERE event_id = $2 AND category = $3`
	} else {
		query = `
			UPDATE event_categories
			SET total_capacity = total_capacity + $1, remaining = remaining + $1, updated_at = NOW()
			WHERE event_id = $2 AND category = $3 AND remaining >= -$1`
	}

	res, err := r.db.ExecContext(ctx, query, delta, eventID, category)
	if err != nil {
		return fmt.Errorf("failed to adjust capacity: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		ec, getErr := r.GetCategory(ctx, eventID, category)
		if getErr != nil {
			return getErr
		}
		if ec == nil {
			return apperrors.ErrEventNotFound
		}
		return apperrors.ErrInsufficientStock
	}

	return nil
}
