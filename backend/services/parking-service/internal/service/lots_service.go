package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"parkspot/backend/services/parking-service/internal/geo"
	"parkspot/backend/services/parking-service/internal/metrics"
	"parkspot/backend/services/parking-service/internal/models"
	"parkspot/backend/services/parking-service/internal/repository"
)

// LotsService serves lot discovery and administration.
type LotsService struct {
	store   repository.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// Column limits of parking_lots: price_per_hour NUMERIC(10,2), total_spots INTEGER.
const (
	maxPriceCents = 99999999_99
	maxTotalSpots = math.MaxInt32
)

// LotInput carries editable lot attributes.
type LotInput struct {
	Name         string
	Lat          float64
	Lon          float64
	PricePerHour float64
	TotalSpots   int
	Type         models.LotType
}

// NewLotsService builds service.
func NewLotsService(store repository.Store, m *metrics.Metrics, logger *zap.Logger) *LotsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LotsService{store: store, metrics: m, logger: logger}
}

// List returns lots in creation order, or ranked by distance when origin is given.
func (s *LotsService) List(ctx context.Context, origin *geo.Point) ([]models.LotView, error) {
	if origin != nil {
		if err := origin.Validate(); err != nil {
			return nil, validation("lat must be within [-90, 90] and lon within [-180, 180]")
		}
	}

	lots, err := s.store.Lots().List(ctx)
	if err != nil {
		return nil, translate(err, "")
	}

	views := make([]models.LotView, 0, len(lots))
	if origin == nil {
		for _, lot := range lots {
			views = append(views, models.NewLotView(lot))
		}
		return views, nil
	}

	points := make([]geo.Point, len(lots))
	for i, lot := range lots {
		points[i] = geo.Point{Lat: lot.Lat, Lon: lot.Lon}
	}
	for _, ranked := range geo.RankByDistance(*origin, points) {
		view := models.NewLotView(lots[ranked.Index])
		distance := ranked.DistanceKm
		view.DistanceKm = &distance
		views = append(views, view)
	}
	return views, nil
}

// Get returns one lot.
func (s *LotsService) Get(ctx context.Context, id int64) (*models.LotView, error) {
	lot, err := s.store.Lots().GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, "parking lot not found")
	}
	view := models.NewLotView(*lot)
	return &view, nil
}

// AvailableSlots returns the free capacity of a lot.
func (s *LotsService) AvailableSlots(ctx context.Context, id int64) (int, error) {
	free, err := s.store.Lots().AvailableSlots(ctx, id)
	if err != nil {
		return 0, translate(err, "parking lot not found")
	}
	return free, nil
}

// Create adds a lot.
func (s *LotsService) Create(ctx context.Context, in LotInput) (*models.LotView, error) {
	in, err := normalizeLot(in)
	if err != nil {
		return nil, err
	}
	lot, err := s.store.Lots().Create(ctx, &models.Lot{
		Name:         in.Name,
		Lat:          in.Lat,
		Lon:          in.Lon,
		PricePerHour: in.PricePerHour,
		TotalSpots:   in.TotalSpots,
		Type:         in.Type,
	})
	if err != nil {
		return nil, translate(err, "")
	}
	s.metrics.Occupancy(lot)
	s.logger.Info("parking lot created", zap.Int64("lot_id", lot.ID), zap.String("name", lot.Name))
	view := models.NewLotView(*lot)
	return &view, nil
}

// Update edits a lot. Running sessions keep the price captured when they began.
func (s *LotsService) Update(ctx context.Context, id int64, in LotInput) (*models.LotView, error) {
	in, err := normalizeLot(in)
	if err != nil {
		return nil, err
	}
	lot, err := s.store.Lots().Update(ctx, &models.Lot{
		ID:           id,
		Name:         in.Name,
		Lat:          in.Lat,
		Lon:          in.Lon,
		PricePerHour: in.PricePerHour,
		TotalSpots:   in.TotalSpots,
		Type:         in.Type,
	})
	if err != nil {
		translated := translate(err, "parking lot not found")
		if errors.Is(translated, ErrConflict) {
			return nil, newError(ErrConflict, "totalSpots cannot be lower than occupied spots", err)
		}
		return nil, translated
	}
	s.metrics.Occupancy(lot)
	s.logger.Info("parking lot updated", zap.Int64("lot_id", lot.ID))
	view := models.NewLotView(*lot)
	return &view, nil
}

// Delete retires a lot. Lots holding booked or active sessions cannot be deleted.
func (s *LotsService) Delete(ctx context.Context, id int64) error {
	if err := s.store.Lots().Delete(ctx, id); err != nil {
		return translate(err, "parking lot not found")
	}
	s.logger.Info("parking lot deleted", zap.Int64("lot_id", id))
	return nil
}

// normalizeLot validates in and rounds the price to whole cents.
func normalizeLot(in LotInput) (LotInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Type == "" {
		in.Type = models.LotTypeBoth
	}
	cents := math.Round(in.PricePerHour * 100)
	switch {
	case in.Name == "":
		return in, validation("name is required")
	case (geo.Point{Lat: in.Lat, Lon: in.Lon}).Validate() != nil:
		return in, validation("lat must be within [-90, 90] and lon within [-180, 180]")
	case math.IsNaN(cents) || cents < 1:
		return in, validation("pricePerHour must be at least 0.01")
	case cents > maxPriceCents:
		return in, validation("pricePerHour must not exceed 99999999.99")
	case in.TotalSpots <= 0:
		return in, validation("totalSpots must be positive")
	case in.TotalSpots > maxTotalSpots:
		return in, validation(fmt.Sprintf("totalSpots must not exceed %d", maxTotalSpots))
	case !in.Type.Valid():
		return in, validation(fmt.Sprintf("type %q must be car, bike or both", in.Type))
	}
	in.PricePerHour = cents / 100
	return in, nil
}
