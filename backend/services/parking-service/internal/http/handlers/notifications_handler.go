package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"parkspot/backend/services/parking-service/internal/models"
)

// NotificationsService is the inbox used by HTTP handlers.
type NotificationsService interface {
	List(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
}

// NotificationsHandler serves the caller's inbox.
type NotificationsHandler struct {
	svc    NotificationsService
	logger *zap.Logger
}

// NewNotificationsHandler builds handler set.
func NewNotificationsHandler(svc NotificationsService, logger *zap.Logger) *NotificationsHandler {
	return &NotificationsHandler{svc: svc, logger: logger}
}

// List handles GET /api/notifications?unread=true.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"
	items, err := h.svc.List(r.Context(), identity.UserID, unreadOnly, queryLimit(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []models.Notification{}
	}
	writeData(w, http.StatusOK, items, "")
}

// MarkRead handles POST /api/notifications/{id}/read.
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.MarkRead(r.Context(), identity.UserID, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, nil, "Notification marked as read")
}

// MarkAllRead handles POST /api/notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}
	updated, err := h.svc.MarkAllRead(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, map[string]int64{"updated": updated}, "All notifications marked as read")
}
