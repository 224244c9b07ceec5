package service

import (
	"context"

	"parkspot/backend/services/parking-service/internal/models"
	"parkspot/backend/services/parking-service/internal/repository"
)

// NotificationsService exposes the user's inbox.
type NotificationsService struct {
	store repository.Store
}

// NewNotificationsService builds service.
func NewNotificationsService(store repository.Store) *NotificationsService {
	return &NotificationsService{store: store}
}

// List returns the newest notifications of the user.
func (s *NotificationsService) List(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultHistoryLimit
	}
	items, err := s.store.Notifications().ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, translate(err, "")
	}
	return items, nil
}

// MarkRead flags one notification as read.
func (s *NotificationsService) MarkRead(ctx context.Context, userID, id int64) error {
	if id <= 0 {
		return validation("notification id is required")
	}
	return translate(s.store.Notifications().MarkRead(ctx, userID, id), "notification not found")
}

// MarkAllRead flags all of the user's notifications as read.
func (s *NotificationsService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	n, err := s.store.Notifications().MarkAllRead(ctx, userID)
	if err != nil {
		return 0, translate(err, "")
	}
	return n, nil
}
