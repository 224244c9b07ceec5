package postgres

import (
	"context"
	"errors"
	"fmt"

	"parkspot/backend/services/parking-service/internal/models"
	"parkspot/backend/services/parking-service/internal/repository"
)

const lotColumns = `id, name, lat, lon, price_per_hour, total_spots, occupied_spots, type, status, created_at, updated_at`

// LotRepository handles persistence of parking lots.
type LotRepository struct {
	q Querier
}

// NewLotRepository returns repository.
func NewLotRepository(q Querier) *LotRepository {
	return &LotRepository{q: q}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLot(row rowScanner) (*models.Lot, error) {
	var l models.Lot
	if err := row.Scan(
		&l.ID,
		&l.Name,
		&l.Lat,
		&l.Lon,
		&l.PricePerHour,
		&l.TotalSpots,
		&l.OccupiedSpots,
		&l.Type,
		&l.Status,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &l, nil
}

// GetByID returns a non-deleted lot.
func (r *LotRepository) GetByID(ctx context.Context, id int64) (*models.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM parking_lots WHERE id = $1 AND deleted_at IS NULL`
	lot, err := scanLot(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("LotRepository.GetByID: %w", classify(err))
	}
	return lot, nil
}

// List returns all non-deleted lots in creation order.
func (r *LotRepository) List(ctx context.Context) ([]models.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM parking_lots WHERE deleted_at IS NULL ORDER BY created_at, id`
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("LotRepository.List: %w", classify(err))
	}
	defer rows.Close()

	lots := make([]models.Lot, 0)
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("LotRepository.List: %w", classify(err))
		}
		lots = append(lots, *lot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("LotRepository.List: %w", classify(err))
	}
	return lots, nil
}

// AdjustOccupancy applies delta in a single statement so concurrent adjustments never
// lose updates. The counter clamps at zero and status follows the new count.
func (r *LotRepository) AdjustOccupancy(ctx context.Context, id int64, delta int) (*models.Lot, error) {
	if delta == 0 {
		return r.GetByID(ctx, id)
	}

	query := `
		UPDATE parking_lots
		SET occupied_spots = GREATEST(occupied_spots + $2::int, 0),
		    status = CASE WHEN GREATEST(occupied_spots + $2::int, 0) >= total_spots THEN 'full' ELSE 'available' END,
		    updated_at = NOW()
		WHERE id = $1
		  AND ($2::int <= 0 OR (deleted_at IS NULL AND occupied_spots + $2::int <= total_spots))
		RETURNING ` + lotColumns
	lot, err := scanLot(r.q.QueryRowContext(ctx, query, id, delta))
	if err == nil {
		return lot, nil
	}

	err = classify(err)
	if errors.Is(err, repository.ErrNotFound) && delta > 0 {
		exists, existsErr := r.exists(ctx, id)
		if existsErr != nil {
			return nil, fmt.Errorf("LotRepository.AdjustOccupancy: %w", existsErr)
		}
		if exists {
			err = repository.ErrInsufficientCapacity
		}
	}
	return nil, fmt.Errorf("LotRepository.AdjustOccupancy: %w", err)
}

// AvailableSlots returns free capacity of a lot.
func (r *LotRepository) AvailableSlots(ctx context.Context, id int64) (int, error) {
	const query = `SELECT GREATEST(total_spots - occupied_spots, 0) FROM parking_lots WHERE id = $1 AND deleted_at IS NULL`
	var free int
	if err := r.q.QueryRowContext(ctx, query, id).Scan(&free); err != nil {
		return 0, fmt.Errorf("LotRepository.AvailableSlots: %w", classify(err))
	}
	return free, nil
}

// Create inserts an empty lot.
func (r *LotRepository) Create(ctx context.Context, lot *models.Lot) (*models.Lot, error) {
	query := `
		INSERT INTO parking_lots (name, lat, lon, price_per_hour, total_spots, occupied_spots, type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, 'available', NOW(), NOW())
		RETURNING ` + lotColumns
	created, err := scanLot(r.q.QueryRowContext(ctx, query,
		lot.Name,
		lot.Lat,
		lot.Lon,
		lot.PricePerHour,
		lot.TotalSpots,
		lot.Type,
	))
	if err != nil {
		return nil, fmt.Errorf("LotRepository.Create: %w", classify(err))
	}
	return created, nil
}

// Update edits lot attributes. Capacity may not drop below current occupancy.
func (r *LotRepository) Update(ctx context.Context, lot *models.Lot) (*models.Lot, error) {
	query := `
		UPDATE parking_lots
		SET name = $2,
		    lat = $3,
		    lon = $4,
		    price_per_hour = $5,
		    total_spots = $6,
		    type = $7,
		    status = CASE WHEN occupied_spots >= $6 THEN 'full' ELSE 'available' END,
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND occupied_spots <= $6
		RETURNING ` + lotColumns
	updated, err := scanLot(r.q.QueryRowContext(ctx, query,
		lot.ID,
		lot.Name,
		lot.Lat,
		lot.Lon,
		lot.PricePerHour,
		lot.TotalSpots,
		lot.Type,
	))
	if err == nil {
		return updated, nil
	}
	return nil, fmt.Errorf("LotRepository.Update: %w", r.missingOrInUse(ctx, lot.ID, classify(err)))
}

// Delete soft-deletes a lot that holds no booked or active sessions.
func (r *LotRepository) Delete(ctx context.Context, lotID int64) error {
	const query = `
		UPDATE parking_lots
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1
		  AND deleted_at IS NULL
		  AND occupied_spots = 0
		  AND NOT EXISTS (
		      SELECT 1 FROM parking_sessions
		      WHERE lot_id = $1 AND status IN ('booked', 'active')
		  )
	`
	result, err := r.q.ExecContext(ctx, query, lotID)
	if err != nil {
		return fmt.Errorf("LotRepository.Delete: %w", classify(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("LotRepository.Delete: %w", classify(err))
	}
	if affected == 0 {
		return fmt.Errorf("LotRepository.Delete: %w", r.missingOrInUse(ctx, lotID, repository.ErrNotFound))
	}
	return nil
}

func (r *LotRepository) exists(ctx context.Context, lotID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM parking_lots WHERE id = $1 AND deleted_at IS NULL)`
	var ok bool
	if err := r.q.QueryRowContext(ctx, query, lotID).Scan(&ok); err != nil {
		return false, classify(err)
	}
	return ok, nil
}

// missingOrInUse turns a zero-row conditional write into ErrNotFound or ErrLotInUse.
func (r *LotRepository) missingOrInUse(ctx context.Context, lotID int64, err error) error {
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	exists, existsErr := r.exists(ctx, lotID)
	if existsErr != nil {
		return existsErr
	}
	if exists {
		return repository.ErrLotInUse
	}
	return repository.ErrNotFound
}
