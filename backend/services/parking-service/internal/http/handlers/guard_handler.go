package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"parkspot/backend/services/parking-service/internal/models"
	"parkspot/backend/services/parking-service/internal/service"
)

// GuardHandler serves gate operations. Routes are restricted to gate operators by the router.
type GuardHandler struct {
	svc    SessionsService
	logger *zap.Logger
}

// NewGuardHandler builds handler set.
func NewGuardHandler(svc SessionsService, logger *zap.Logger) *GuardHandler {
	return &GuardHandler{svc: svc, logger: logger}
}

type gateRequest struct {
	UserID      int64              `json:"userId"`
	LotID       int64              `json:"parkingLotId"`
	VehicleType models.VehicleType `json:"vehicleType"`
}

func (req gateRequest) input() service.GateInput {
	return service.GateInput{UserID: req.UserID, LotID: req.LotID, VehicleType: req.VehicleType}
}

// Entry handles POST /api/parking/guard/entry.
func (h *GuardHandler) Entry(w http.ResponseWriter, r *http.Request) {
	var req gateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.svc.GuardEntry(r.Context(), req.input())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, session, "Entry recorded")
}

// Exit handles POST /api/parking/guard/exit.
func (h *GuardHandler) Exit(w http.ResponseWriter, r *http.Request) {
	var req gateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.svc.GuardExit(r.Context(), req.input())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, session, "Exit recorded")
}

// ActiveSessions handles GET /api/parking/guard/active-sessions.
func (h *GuardHandler) ActiveSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.ActiveSessions(r.Context(), queryLimit(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	writeData(w, http.StatusOK, map[string]interface{}{"sessions": sessions}, "")
}
