package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parkspot/backend/services/parking-service/internal/models"
	"parkspot/backend/services/parking-service/internal/repository"
)

const sessionColumns = `s.id, s.user_id, s.lot_id, s.vehicle_type, s.slots, s.price_per_hour, s.start_time, s.end_time, s.total_amount, s.status, s.created_at, s.updated_at`

// SessionRepository handles persistence of parking sessions.
type SessionRepository struct {
	q Querier
}

// NewSessionRepository returns repository.
func NewSessionRepository(q Querier) *SessionRepository {
	return &SessionRepository{q: q}
}

func scanSession(row rowScanner, extra ...any) (*models.Session, error) {
	var s models.Session
	dest := []any{
		&s.ID,
		&s.UserID,
		&s.LotID,
		&s.VehicleType,
		&s.Slots,
		&s.PricePerHour,
		&s.StartTime,
		&s.EndTime,
		&s.TotalAmount,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a session. A second open session for the same user fails with
// repository.ErrOpenSessionExists.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	query := `
		INSERT INTO parking_sessions AS s (user_id, lot_id, vehicle_type, slots, price_per_hour, start_time, end_time, total_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING ` + sessionColumns
	created, err := scanSession(r.q.QueryRowContext(ctx, query,
		session.UserID,
		session.LotID,
		session.VehicleType,
		session.Slots,
		session.PricePerHour,
		session.StartTime,
		session.EndTime,
		session.TotalAmount,
		session.Status,
	))
	if err != nil {
		return nil, fmt.Errorf("SessionRepository.Create: %w", classify(err))
	}
	return created, nil
}

// GetByID returns a session by id.
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions s WHERE s.id = $1`
	session, err := scanSession(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("SessionRepository.GetByID: %w", classify(err))
	}
	return session, nil
}

// FindOpenByUser returns the user's booked or active session.
func (r *SessionRepository) FindOpenByUser(ctx context.Context, userID int64) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM parking_sessions s
		WHERE s.user_id = $1 AND s.status IN ('booked', 'active')
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT 1`
	session, err := scanSession(r.q.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("SessionRepository.FindOpenByUser: %w", classify(err))
	}
	return session, nil
}

// FindLatestBooked returns the most recently created booking for user at lot.
func (r *SessionRepository) FindLatestBooked(ctx context.Context, userID, lotID int64) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM parking_sessions s
		WHERE s.user_id = $1 AND s.lot_id = $2 AND s.status = 'booked'
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT 1`
	session, err := scanSession(r.q.QueryRowContext(ctx, query, userID, lotID))
	if err != nil {
		return nil, fmt.Errorf("SessionRepository.FindLatestBooked: %w", classify(err))
	}
	return session, nil
}

// FindActive returns the user's active session, at lotID when non-zero.
func (r *SessionRepository) FindActive(ctx context.Context, userID, lotID int64) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM parking_sessions s
		WHERE s.user_id = $1 AND s.status = 'active' AND ($2::bigint = 0 OR s.lot_id = $2::bigint)
		ORDER BY s.start_time DESC, s.id DESC
		LIMIT 1`
	session, err := scanSession(r.q.QueryRowContext(ctx, query, userID, lotID))
	if err != nil {
		return nil, fmt.Errorf("SessionRepository.FindActive: %w", classify(err))
	}
	return session, nil
}

// Activate moves a booked session to active.
func (r *SessionRepository) Activate(ctx context.Context, id int64, at time.Time) (*models.Session, error) {
	query := `
		UPDATE parking_sessions AS s
		SET status = 'active', start_time = $2, updated_at = NOW()
		WHERE s.id = $1 AND s.status = 'booked'
		RETURNING ` + sessionColumns
	return r.transition(ctx, "Activate", query, id, at)
}

// Complete finalizes an active session with its end time and charge.
func (r *SessionRepository) Complete(ctx context.Context, id int64, at time.Time, amount float64) (*models.Session, error) {
	query := `
		UPDATE parking_sessions AS s
		SET status = 'completed', end_time = $2, total_amount = $3, updated_at = NOW()
		WHERE s.id = $1 AND s.status = 'active'
		RETURNING ` + sessionColumns
	return r.transition(ctx, "Complete", query, id, at, amount)
}

// Cancel moves a booked session to cancelled.
func (r *SessionRepository) Cancel(ctx context.Context, id int64, at time.Time) (*models.Session, error) {
	query := `
		UPDATE parking_sessions AS s
		SET status = 'cancelled', updated_at = $2
		WHERE s.id = $1 AND s.status = 'booked'
		RETURNING ` + sessionColumns
	return r.transition(ctx, "Cancel", query, id, at)
}

// transition runs a compare-and-set update; zero rows means the session moved on or never existed.
func (r *SessionRepository) transition(ctx context.Context, op, query string, args ...any) (*models.Session, error) {
	session, err := scanSession(r.q.QueryRowContext(ctx, query, args...))
	if err == nil {
		return session, nil
	}
	err = classify(err)
	if errors.Is(err, repository.ErrNotFound) {
		if _, getErr := r.GetByID(ctx, args[0].(int64)); getErr == nil {
			err = repository.ErrStaleState
		}
	}
	return nil, fmt.Errorf("SessionRepository.%s: %w", op, err)
}

// ListByUser returns last N sessions for user with the lot name attached.
func (r *SessionRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT ` + sessionColumns + `, l.name
		FROM parking_sessions s
		JOIN parking_lots l ON l.id = s.lot_id
		WHERE s.user_id = $1
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT $2`
	return r.listWithLot(ctx, "ListByUser", query, userID, limit)
}

// ListActive returns currently active sessions.
func (r *SessionRepository) ListActive(ctx context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT ` + sessionColumns + `, l.name
		FROM parking_sessions s
		JOIN parking_lots l ON l.id = s.lot_id
		WHERE s.status = 'active'
		ORDER BY s.start_time DESC, s.id DESC
		LIMIT $1`
	return r.listWithLot(ctx, "ListActive", query, limit)
}

// ListExpiredBookings returns bookings whose requested end is before the cutoff.
func (r *SessionRepository) ListExpiredBookings(ctx context.Context, before time.Time, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + sessionColumns + `
		FROM parking_sessions s
		WHERE s.status = 'booked' AND s.end_time IS NOT NULL AND s.end_time < $1
		ORDER BY s.end_time, s.id
		LIMIT $2`
	rows, err := r.q.QueryContext(ctx, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("SessionRepository.ListExpiredBookings: %w", classify(err))
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("SessionRepository.ListExpiredBookings: %w", classify(err))
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SessionRepository.ListExpiredBookings: %w", classify(err))
	}
	return sessions, nil
}

func (r *SessionRepository) listWithLot(ctx context.Context, op, query string, args ...any) ([]models.Session, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("SessionRepository.%s: %w", op, classify(err))
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		var lotName string
		s, err := scanSession(rows, &lotName)
		if err != nil {
			return nil, fmt.Errorf("SessionRepository.%s: %w", op, classify(err))
		}
		s.Lot = &models.LotSummary{ID: s.LotID, Name: lotName}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("SessionRepository.%s: %w", op, classify(err))
	}
	return sessions, nil
}
