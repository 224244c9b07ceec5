package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"parkspot/backend/services/parking-service/internal/models"
	"parkspot/backend/services/parking-service/internal/service"
)

// AdminLotsHandler serves lot administration for superadmins.
type AdminLotsHandler struct {
	svc    LotsService
	logger *zap.Logger
}

// NewAdminLotsHandler builds handler set.
func NewAdminLotsHandler(svc LotsService, logger *zap.Logger) *AdminLotsHandler {
	return &AdminLotsHandler{svc: svc, logger: logger}
}

type lotRequest struct {
	Name         string         `json:"name"`
	Lat          float64        `json:"lat"`
	Lon          float64        `json:"lon"`
	PricePerHour float64        `json:"pricePerHour"`
	TotalSpots   int            `json:"totalSpots"`
	Type         models.LotType `json:"type"`
}

func (req lotRequest) input() service.LotInput {
	return service.LotInput{
		Name:         req.Name,
		Lat:          req.Lat,
		Lon:          req.Lon,
		PricePerHour: req.PricePerHour,
		TotalSpots:   req.TotalSpots,
		Type:         req.Type,
	}
}

// List handles GET /api/admin/lots.
func (h *AdminLotsHandler) List(w http.ResponseWriter, r *http.Request) {
	lots, err := h.svc.List(r.Context(), nil)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, lots, "")
}

// Create handles POST /api/admin/lots.
func (h *AdminLotsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req lotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	lot, err := h.svc.Create(r.Context(), req.input())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, lot, "Parking lot created")
}

// Update handles PUT /api/admin/lots/{id}.
func (h *AdminLotsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req lotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	lot, err := h.svc.Update(r.Context(), id, req.input())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, lot, "Parking lot updated")
}

// Delete handles DELETE /api/admin/lots/{id}.
func (h *AdminLotsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, nil, "Parking lot deleted")
}
