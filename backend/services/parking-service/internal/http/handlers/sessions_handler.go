package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"parkspot/backend/services/parking-service/internal/models"
	"parkspot/backend/services/parking-service/internal/service"
)

// SessionsService is the session lifecycle used by HTTP handlers.
type SessionsService interface {
	StartSession(ctx context.Context, in service.StartSessionInput) (*models.Session, error)
	Book(ctx context.Context, in service.BookInput) (*models.Session, error)
	GuardEntry(ctx context.Context, in service.GateInput) (*models.Session, error)
	GuardExit(ctx context.Context, in service.GateInput) (*models.Session, error)
	CompleteSession(ctx context.Context, userID int64) (*models.Session, error)
	CancelBooking(ctx context.Context, userID int64) (*models.Session, error)
	ActiveSession(ctx context.Context, userID int64) (*models.Session, error)
	History(ctx context.Context, userID int64, limit int) ([]models.Session, error)
	ActiveSessions(ctx context.Context, limit int) ([]models.Session, error)
}

// SessionsHandler serves the driver-facing session endpoints.
type SessionsHandler struct {
	svc    SessionsService
	logger *zap.Logger
}

// NewSessionsHandler builds handler set.
func NewSessionsHandler(svc SessionsService, logger *zap.Logger) *SessionsHandler {
	return &SessionsHandler{svc: svc, logger: logger}
}

type startSessionRequest struct {
	LotID       int64              `json:"parkingLotId"`
	VehicleType models.VehicleType `json:"vehicleType"`
}

type bookRequest struct {
	LotID       int64              `json:"parkingLotId"`
	VehicleType models.VehicleType `json:"vehicleType"`
	Slots       int                `json:"slots"`
	StartTime   time.Time          `json:"startTime"`
	EndTime     time.Time          `json:"endTime"`
}

// StartSession handles POST /api/parking/start-session.
func (h *SessionsHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}
	var req startSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.svc.StartSession(r.Context(), service.StartSessionInput{
		UserID:      identity.UserID,
		LotID:       req.LotID,
		VehicleType: req.VehicleType,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, session, "Parking session started")
}

// Book handles POST /api/parking/book.
func (h *SessionsHandler) Book(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}
	var req bookRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.svc.Book(r.Context(), service.BookInput{
		UserID:      identity.UserID,
		LotID:       req.LotID,
		VehicleType: req.VehicleType,
		Slots:       req.Slots,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, session, "Booking confirmed")
}

// CompleteSession handles POST /api/parking/complete-session.
func (h *SessionsHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}
	session, err := h.svc.CompleteSession(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, session, "Parking session completed")
}

// CancelBooking handles POST /api/parking/cancel-booking.
func (h *SessionsHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}
	session, err := h.svc.CancelBooking(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, session, "Booking cancelled")
}

// ActiveSession handles GET /api/parking/active-session. Data is null when nothing is open.
func (h *SessionsHandler) ActiveSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}
	session, err := h.svc.ActiveSession(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, session, "")
}

// History handles GET /api/parking/bookings.
func (h *SessionsHandler) History(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}
	sessions, err := h.svc.History(r.Context(), identity.UserID, queryLimit(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	writeData(w, http.StatusOK, sessions, "")
}
