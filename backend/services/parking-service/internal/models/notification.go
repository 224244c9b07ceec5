package models

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// NotificationType categorises user notifications.
type NotificationType string

const (
	NotificationCheckIn  NotificationType = "checkin"
	NotificationCheckOut NotificationType = "checkout"
	NotificationInfo     NotificationType = "info"
)

// NotificationMetadata links a notification to the entities it describes.
type NotificationMetadata struct {
	LotID     null.Int   `json:"parkingLotId"`
	SessionID null.Int   `json:"sessionId"`
	Amount    null.Float `json:"amount"`
}

// Notification is a user-facing message about a session event.
type Notification struct {
	ID        int64                `db:"id" json:"id"`
	UserID    int64                `db:"user_id" json:"userId"`
	Type      NotificationType     `db:"type" json:"type"`
	Title     string               `db:"title" json:"title"`
	Message   string               `db:"message" json:"message"`
	Metadata  NotificationMetadata `json:"metadata"`
	IsRead    bool                 `db:"is_read" json:"isRead"`
	CreatedAt time.Time            `db:"created_at" json:"createdAt"`
}
