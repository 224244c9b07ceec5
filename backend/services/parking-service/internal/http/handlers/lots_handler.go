package handlers

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"parkspot/backend/services/parking-service/internal/geo"
	"parkspot/backend/services/parking-service/internal/models"
	"parkspot/backend/services/parking-service/internal/service"
)

// LotsService is the lot registry used by HTTP handlers.
type LotsService interface {
	List(ctx context.Context, origin *geo.Point) ([]models.LotView, error)
	Get(ctx context.Context, id int64) (*models.LotView, error)
	AvailableSlots(ctx context.Context, id int64) (int, error)
	Create(ctx context.Context, in service.LotInput) (*models.LotView, error)
	Update(ctx context.Context, id int64, in service.LotInput) (*models.LotView, error)
	Delete(ctx context.Context, id int64) error
}

// LotsHandler serves lot discovery.
type LotsHandler struct {
	svc    LotsService
	logger *zap.Logger
}

// NewLotsHandler builds handler set.
func NewLotsHandler(svc LotsService, logger *zap.Logger) *LotsHandler {
	return &LotsHandler{svc: svc, logger: logger}
}

// List handles GET /api/parking/lots?lat=&lon=.
func (h *LotsHandler) List(w http.ResponseWriter, r *http.Request) {
	origin, ok := parseOrigin(w, r)
	if !ok {
		return
	}
	lots, err := h.svc.List(r.Context(), origin)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, lots, "")
}

// Get handles GET /api/parking/lots/{id}.
func (h *LotsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	lot, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, lot, "")
}

// Availability handles GET /api/parking/lots/{id}/availability.
func (h *LotsHandler) Availability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	free, err := h.svc.AvailableSlots(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, map[string]interface{}{"parkingLotId": id, "availableSlots": free}, "")
}

// parseOrigin reads lat/lon. Neither means no origin; exactly one or a non-number is rejected.
func parseOrigin(w http.ResponseWriter, r *http.Request) (*geo.Point, bool) {
	query := r.URL.Query()
	rawLat, rawLon := query.Get("lat"), query.Get("lon")
	if rawLat == "" && rawLon == "" {
		return nil, true
	}
	lat, latErr := strconv.ParseFloat(rawLat, 64)
	lon, lonErr := strconv.ParseFloat(rawLon, 64)
	if latErr != nil || lonErr != nil {
		writeError(w, http.StatusBadRequest, "lat and lon must be provided together as numbers")
		return nil, false
	}
	return &geo.Point{Lat: lat, Lon: lon}, true
}
