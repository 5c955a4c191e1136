package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createEventsTable,
		createEventCategoriesTable,
		createReservationsTable,
		createReservationsExpiryIndex,
		createEventsDateIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id SERIAL PRIMARY KEY,
    title VARCHAR(500) NOT NULL,
    description TEXT,
    type VARCHAR(50) NOT NULL DEFAULT 'concert',
    datetime_start TIMESTAMP NOT NULL,
    venue VARCHAR(255) NOT NULL DEFAULT '',
    artist VARCHAR(255) NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);`

const createEventCategoriesTable = `
CREATE TABLE IF NOT EXISTS event_categories (
    event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    category VARCHAR(100) NOT NULL,
    unit_price BIGINT NOT NULL,
    total_capacity INTEGER NOT NULL,
    remaining INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    PRIMARY KEY (event_id, category),
    CHECK (remaining >= 0),
    CHECK (remaining <= total_capacity)
);`

const createReservationsTable = `
CREATE TABLE IF NOT EXISTS reservations (
    token UUID PRIMARY KEY,
    event_id INTEGER NOT NULL,
    category VARCHAR(100) NOT NULL,
    client_id VARCHAR(255) NOT NULL,
    quantity INTEGER NOT NULL,
    state VARCHAR(20) NOT NULL DEFAULT 'PENDING',
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMP NOT NULL,

    FOREIGN KEY (event_id, category) REFERENCES event_categories(event_id, category) ON DELETE CASCADE,
    CHECK (quantity > 0),
    CHECK (state IN ('PENDING', 'CONFIRMED', 'RELEASED', 'EXPIRED'))
);`

const createReservationsExpiryIndex = `
CREATE INDEX IF NOT EXISTS reservations_pending_expiry_idx
ON reservations (expires_at) WHERE state = 'PENDING';`

const createEventsDateIndex = `
CREATE INDEX IF NOT EXISTS events_datetime_start_date_idx
ON events (DATE(datetime_start));`
