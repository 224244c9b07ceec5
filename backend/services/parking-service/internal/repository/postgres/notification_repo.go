package postgres

import (
	"context"
	"fmt"

	"parkspot/backend/services/parking-service/internal/models"
	"parkspot/backend/services/parking-service/internal/repository"
)

const notificationColumns = `id, user_id, type, title, message, lot_id, session_id, amount, is_read, created_at`

// NotificationRepository persists user notifications.
type NotificationRepository struct {
	q Querier
}

// NewNotificationRepository returns repository.
func NewNotificationRepository(q Querier) *NotificationRepository {
	return &NotificationRepository{q: q}
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var n models.Notification
	if err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.Title,
		&n.Message,
		&n.Metadata.LotID,
		&n.Metadata.SessionID,
		&n.Metadata.Amount,
		&n.IsRead,
		&n.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &n, nil
}

// Create stores a notification.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	query := `
		INSERT INTO notifications (user_id, type, title, message, lot_id, session_id, amount, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, NOW())
		RETURNING ` + notificationColumns
	created, err := scanNotification(r.q.QueryRowContext(ctx, query,
		n.UserID,
		n.Type,
		n.Title,
		n.Message,
		n.Metadata.LotID,
		n.Metadata.SessionID,
		n.Metadata.Amount,
	))
	if err != nil {
		return nil, fmt.Errorf("NotificationRepository.Create: %w", classify(err))
	}
	return created, nil
}

// ListByUser returns newest notifications first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 AND (NOT $2::boolean OR is_read = FALSE)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`
	rows, err := r.q.QueryContext(ctx, query, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("NotificationRepository.ListByUser: %w", classify(err))
	}
	defer rows.Close()

	out := make([]models.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("NotificationRepository.ListByUser: %w", classify(err))
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("NotificationRepository.ListByUser: %w", classify(err))
	}
	return out, nil
}

// MarkRead flags one of the user's notifications as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id int64) error {
	const query = `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`
	result, err := r.q.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("NotificationRepository.MarkRead: %w", classify(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("NotificationRepository.MarkRead: %w", classify(err))
	}
	if affected == 0 {
		return fmt.Errorf("NotificationRepository.MarkRead: %w", repository.ErrNotFound)
	}
	return nil
}

// MarkAllRead flags every unread notification of the user and returns how many changed.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	const query = `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`
	result, err := r.q.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("NotificationRepository.MarkAllRead: %w", classify(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("NotificationRepository.MarkAllRead: %w", classify(err))
	}
	return affected, nil
}
