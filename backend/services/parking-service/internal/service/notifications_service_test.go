package service

import (
	"context"
	"errors"
	"testing"

	"parkspot/backend/services/parking-service/internal/models"
)

func TestNotificationsInbox(t *testing.T) {
	store := newMemStore()
	svc := NewNotificationsService(store)
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three"} {
		if _, err := store.Notifications().Create(ctx, &models.Notification{UserID: 1, Type: models.NotificationInfo, Title: title}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	other, _ := store.Notifications().Create(ctx, &models.Notification{UserID: 2, Type: models.NotificationInfo, Title: "other"})

	items, err := svc.List(ctx, 1, false, 0)
	if err != nil || len(items) != 3 || items[0].Title != "three" {
		t.Fatalf("unexpected inbox %+v %v", items, err)
	}

	if err := svc.MarkRead(ctx, 1, items[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if err := svc.MarkRead(ctx, 1, other.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign notifications are not visible, got %v", err)
	}
	if err := svc.MarkRead(ctx, 1, 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	unread, _ := svc.List(ctx, 1, true, 0)
	if len(unread) != 2 {
		t.Fatalf("expected 2 unread, got %d", len(unread))
	}
	changed, err := svc.MarkAllRead(ctx, 1)
	if err != nil || changed != 2 {
		t.Fatalf("expected 2 changed, got %d %v", changed, err)
	}
}
