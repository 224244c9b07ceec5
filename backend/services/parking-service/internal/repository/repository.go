// Package repository declares the persistence contracts for lots, sessions and notifications.
// Implementations live in driver subpackages.
package repository

import (
	"context"
	"errors"
	"time"

	"parkspot/backend/services/parking-service/internal/models"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrOpenSessionExists indicates the user already holds a booked or active session.
	ErrOpenSessionExists = errors.New("open session already exists")
	// ErrInsufficientCapacity indicates a reservation would exceed lot capacity.
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	// ErrStaleState indicates a compare-and-set transition found the row in another state.
	ErrStaleState = errors.New("state changed concurrently")
	// ErrLotInUse indicates a lot still has open sessions, or an edit would drop capacity below occupancy.
	ErrLotInUse = errors.New("lot in use")
	// ErrInvalidValue indicates a value the schema rejects: a CHECK violation or an out-of-range number.
	ErrInvalidValue = errors.New("invalid value")
	// ErrTransient indicates a retryable storage failure.
	ErrTransient = errors.New("transient storage failure")
)

// LotRepository persists lots and their occupancy counters.
type LotRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Lot, error)
	List(ctx context.Context) ([]models.Lot, error)
	// AdjustOccupancy applies delta atomically, clamping at zero and recomputing status.
	// Positive deltas fail with ErrInsufficientCapacity when they would exceed total spots.
	AdjustOccupancy(ctx context.Context, id int64, delta int) (*models.Lot, error)
	AvailableSlots(ctx context.Context, id int64) (int, error)
	Create(ctx context.Context, lot *models.Lot) (*models.Lot, error)
	Update(ctx context.Context, lot *models.Lot) (*models.Lot, error)
	Delete(ctx context.Context, id int64) error
}

// SessionRepository persists parking sessions. Sessions are never deleted.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) (*models.Session, error)
	GetByID(ctx context.Context, id int64) (*models.Session, error)
	FindOpenByUser(ctx context.Context, userID int64) (*models.Session, error)
	FindLatestBooked(ctx context.Context, userID, lotID int64) (*models.Session, error)
	// FindActive returns the user's active session, restricted to lotID when it is non-zero.
	FindActive(ctx context.Context, userID, lotID int64) (*models.Session, error)
	Activate(ctx context.Context, id int64, at time.Time) (*models.Session, error)
	Complete(ctx context.Context, id int64, at time.Time, amount float64) (*models.Session, error)
	Cancel(ctx context.Context, id int64, at time.Time) (*models.Session, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.Session, error)
	ListActive(ctx context.Context, limit int) ([]models.Session, error)
	ListExpiredBookings(ctx context.Context, before time.Time, limit int) ([]models.Session, error)
}

// NotificationRepository persists user notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
	ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories interface {
	Lots() LotRepository
	Sessions() SessionRepository
	Notifications() NotificationRepository
}

// Store is the entry point for persistence. WithinTx runs fn against repositories
// sharing one transaction; fn's error rolls everything back.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(Repositories) error) error
}
