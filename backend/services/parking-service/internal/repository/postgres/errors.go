package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"parkspot/backend/services/parking-service/internal/repository"
)

const openSessionIndex = "parking_sessions_one_open_per_user"

// classify maps driver errors onto repository sentinels, keeping the cause in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505" && pgErr.ConstraintName == openSessionIndex:
			return fmt.Errorf("%w: %w", repository.ErrOpenSessionExists, err)
		case pgErr.Code == "23514", pgErr.Code == "22003", pgErr.Code == "22001":
			return fmt.Errorf("%w: %w", repository.ErrInvalidValue, err)
		case pgErr.Code == "40001", pgErr.Code == "40P01", pgErr.Code == "55P03", pgErr.Code == "57014":
			return fmt.Errorf("%w: %w", repository.ErrTransient, err)
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "53"):
			return fmt.Errorf("%w: %w", repository.ErrTransient, err)
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", repository.ErrTransient, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", repository.ErrTransient, err)
	}
	return err
}
