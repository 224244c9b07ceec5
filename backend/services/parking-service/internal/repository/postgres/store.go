// Package postgres implements the repository contracts on PostgreSQL via pgx/stdlib.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"parkspot/backend/services/parking-service/internal/repository"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repos struct {
	q Querier
}

func (r repos) Lots() repository.LotRepository { return NewLotRepository(r.q) }

func (r repos) Sessions() repository.SessionRepository { return NewSessionRepository(r.q) }

func (r repos) Notifications() repository.NotificationRepository {
	return NewNotificationRepository(r.q)
}

// Store binds repositories to a connection pool.
type Store struct {
	repos
	db *sql.DB
}

// NewStore returns a Store over db.
func NewStore(db *sql.DB) *Store {
	return &Store{repos: repos{q: db}, db: db}
}

// WithinTx runs fn inside a read-committed transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("Store.WithinTx: begin: %w", classify(err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(repos{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Store.WithinTx: commit: %w", classify(err))
	}
	return nil
}

var _ repository.Store = (*Store)(nil)
