package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"turnstile/internal/database"
	apperrors "turnstile/internal/errors"
	"turnstile/internal/models"
)

// ReservationRepository is the reservation log: a durable map from
// idempotency token to reservation record. State changes go through
// Transition, a compare-and-set, so concurrent movers conflict instead of
// overwriting each other.
type ReservationRepository struct {
	db *database.DB
}

func NewReservationRepository(db *database.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

const reservationColumns = `token, event_id, category, client_id, quantity, state, created_at, updated_at, expires_at`

func scanReservation(row interface{ Scan(...interface{}) error }) (*models.ReservationRecord, error) {
	rec := &models.ReservationRecord{}
	err := row.Scan(
		&rec.Token,
		&rec.EventID,
		&rec.Category,
		&rec.ClientID,
		&rec.Quantity,
		&rec.State,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&rec.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *ReservationRepository) Get(ctx context.Context, token string) (*models.ReservationRecord, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE token = $1`

	rec, err := scanReservation(r.db.QueryRowContext(ctx, query, token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// PutIfAbsentTx inserts the record inside the caller's transaction. Returns
// false without error if the token already exists.
func (r *ReservationRepository) PutIfAbsentTx(ctx context.Context, tx *sql.Tx, rec *models.ReservationRecord) (bool, error) {
	query := `
		INSERT INTO reservations (token, event_id, category, client_id, quantity, state, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (token) DO NOTHING`

	res, err := tx.ExecContext(ctx, query,
		rec.Token, rec.EventID, rec.Category, rec.ClientID, rec.Quantity, rec.State, rec.ExpiresAt)
	if err != nil {
		return false, err
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return inserted > 0, nil
}

// Transition moves a record from expected to next state. A conflict means a
// concurrent caller already moved it; the caller must re-read and react
// rather than overwrite.
func (r *ReservationRepository) Transition(ctx context.Context, token, expected, next string) error {
	query := `UPDATE reservations SET state = $1, updated_at = NOW() WHERE token = $2 AND state = $3`

	res, err := r.db.ExecContext(ctx, query, next, token, expected)
	if err != nil {
		return fmt.Errorf("failed to transition reservation: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	rec, err := r.Get(ctx, token)
	if err != nil {
		return err
	}
	if rec == nil {
		return apperrors.ErrNotFound
	}
	return apperrors.ErrConflict
}

// ListExpiredPending returns pending reservations whose TTL elapsed before
// cutoff. The sweep job releases them through the ledger's CAS path.
func (r *ReservationRepository) ListExpiredPending(ctx context.Context, cutoff time.Time) ([]models.ReservationRecord, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE state = 'PENDING' AND expires_at < $1`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ReservationRecord
	for rows.Next() {
		rec, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}
