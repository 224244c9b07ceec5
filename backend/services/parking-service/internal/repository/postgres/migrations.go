package postgres

import (
	"context"
	"database/sql"

	libdb "parkspot/backend/libs/db"
)

// Schema holds the idempotent DDL for the parking service.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS parking_lots (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		price_per_hour NUMERIC(10, 2) NOT NULL CHECK (price_per_hour > 0),
		total_spots INTEGER NOT NULL CHECK (total_spots > 0),
		occupied_spots INTEGER NOT NULL DEFAULT 0,
		type TEXT NOT NULL DEFAULT 'both' CHECK (type IN ('car', 'bike', 'both')),
		status TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'full')),
		deleted_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT parking_lots_occupancy_bounds CHECK (occupied_spots >= 0 AND occupied_spots <= total_spots)
	)`,
	`CREATE TABLE IF NOT EXISTS parking_sessions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		lot_id BIGINT NOT NULL REFERENCES parking_lots (id),
		vehicle_type TEXT NOT NULL CHECK (vehicle_type IN ('car', 'bike')),
		slots INTEGER NOT NULL DEFAULT 1 CHECK (slots > 0),
		price_per_hour NUMERIC(10, 2) NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ,
		total_amount NUMERIC(12, 2) NOT NULL DEFAULT 0 CHECK (total_amount >= 0),
		status TEXT NOT NULL CHECK (status IN ('booked', 'active', 'completed', 'cancelled')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + openSessionIndex + `
		ON parking_sessions (user_id) WHERE status IN ('booked', 'active')`,
	`CREATE INDEX IF NOT EXISTS parking_sessions_lot_status_idx ON parking_sessions (lot_id, status)`,
	`CREATE INDEX IF NOT EXISTS parking_sessions_user_created_idx ON parking_sessions (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS parking_sessions_booked_end_idx ON parking_sessions (end_time) WHERE status = 'booked'`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('checkin', 'checkout', 'info')),
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		lot_id BIGINT,
		session_id BIGINT,
		amount NUMERIC(12, 2),
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_user_unread_idx ON notifications (user_id, is_read, created_at DESC)`,
}

// Migrate creates the schema when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	return libdb.Migrate(ctx, db, Schema)
}
