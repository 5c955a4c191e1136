package repository

import (
	"context"
	"database/sql"
	"fmt"

	"turnstile/internal/database"
	"turnstile/internal/models"
)

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (title, description, type, datetime_start, venue, artist)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		event.Title,
		event.Description,
		event.Type,
		event.DatetimeStart,
		event.Venue,
		event.Artist,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)

	return err
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	event := &models.Event{}
	query := `
		SELECT id, title, description, type, datetime_start, venue, artist, created_at, updated_at
		FROM events
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Type,
		&event.DatetimeStart,
		&event.Venue,
		&event.Artist,
		&event.CreatedAt,
		&event.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return event, err
}

// List is the database fallback for catalog browsing when the search index
// is unavailable. Text matching here is plain ILIKE; ranked search lives in
// the Elasticsearch client.
func (r *EventRepository) List(ctx context.Context, query string, page, pageSize int) ([]models.Event, error) {
	var args []interface{}
	argIndex := 1

	sqlQuery := `
		SELECT id, title, description, type, datetime_start, venue, artist, created_at, updated_at
		FROM events
		WHERE 1=1`

	if query != "" {
		sqlQuery += fmt.Sprintf(" AND (title ILIKE $%d OR artist ILIKE $%d)", argIndex, argIndex)
		args = append(args, "%"+query+"%")
		argIndex++
	}

	sqlQuery += " ORDER BY id"

	if page > 0 && pageSize > 0 {
		offset := (page - 1) * pageSize
		sqlQuery += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, pageSize, offset)
	}

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		err := rows.Scan(
			&event.ID,
			&event.Title,
			&event.Description,
			&event.Type,
			&event.DatetimeStart,
			&event.Venue,
			&event.Artist,
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
