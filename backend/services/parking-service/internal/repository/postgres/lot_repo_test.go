package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"parkspot/backend/services/parking-service/internal/models"
	"parkspot/backend/services/parking-service/internal/repository"
)

var mockNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// squash collapses runs of whitespace so statements match regardless of indentation.
func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// containsSQL matches when the executed statement contains every expected fragment.
// Fragments are separated by " ... ".
var containsSQL = sqlmock.QueryMatcherFunc(func(expected, actual string) error {
	got := squash(actual)
	for _, fragment := range strings.Split(expected, " ... ") {
		if !strings.Contains(got, squash(fragment)) {
			return fmt.Errorf("statement %q does not contain %q", got, fragment)
		}
	}
	return nil
})

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(containsSQL))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return NewStore(db), mock
}

func lotRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "lat", "lon", "price_per_hour", "total_spots", "occupied_spots",
		"type", "status", "created_at", "updated_at",
	})
}

func lotRow(rows *sqlmock.Rows, id int64, total, occupied int, status string) *sqlmock.Rows {
	return rows.AddRow(id, "Durbar Marg", 27.71, 85.32, 50.0, total, occupied, "both", status, mockNow, mockNow)
}

func TestAdjustOccupancyIsOneConditionalUpdate(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`UPDATE parking_lots ... SET occupied_spots = GREATEST(occupied_spots + $2::int, 0) ... ` +
		`status = CASE WHEN GREATEST(occupied_spots + $2::int, 0) >= total_spots THEN 'full' ELSE 'available' END ... ` +
		`WHERE id = $1 AND ($2::int <= 0 OR (deleted_at IS NULL AND occupied_spots + $2::int <= total_spots))`).
		WithArgs(int64(7), 1).
		WillReturnRows(lotRow(lotRows(), 7, 1, 1, "full"))

	lot, err := store.Lots().AdjustOccupancy(context.Background(), 7, 1)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if lot.OccupiedSpots != 1 || lot.Status != models.LotStatusFull {
		t.Fatalf("unexpected lot %+v", lot)
	}
}

func TestAdjustOccupancyTellsCapacityFromMissing(t *testing.T) {
	cases := []struct {
		name   string
		exists bool
		want   error
	}{
		{"full lot", true, repository.ErrInsufficientCapacity},
		{"missing lot", false, repository.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, mock := newMock(t)
			mock.ExpectQuery(`UPDATE parking_lots`).
				WithArgs(int64(3), 2).
				WillReturnRows(lotRows())
			mock.ExpectQuery(`SELECT EXISTS (SELECT 1 FROM parking_lots WHERE id = $1 AND deleted_at IS NULL)`).
				WithArgs(int64(3)).
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tc.exists))

			_, err := store.Lots().AdjustOccupancy(context.Background(), 3, 2)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAdjustOccupancyReleaseSkipsCapacityCheck(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(`UPDATE parking_lots`).
		WithArgs(int64(3), -2).
		WillReturnRows(lotRows())

	_, err := store.Lots().AdjustOccupancy(context.Background(), 3, -2)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAdjustOccupancyZeroDeltaReadsLot(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(`FROM parking_lots WHERE id = $1 AND deleted_at IS NULL`).
		WithArgs(int64(4)).
		WillReturnRows(lotRow(lotRows(), 4, 5, 2, "available"))

	lot, err := store.Lots().AdjustOccupancy(context.Background(), 4, 0)
	if err != nil || lot.OccupiedSpots != 2 {
		t.Fatalf("unexpected %+v %v", lot, err)
	}
}

func TestAdjustOccupancyTransientFailure(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(`UPDATE parking_lots`).
		WithArgs(int64(3), 1).
		WillReturnError(&pgconn.PgError{Code: "40001"})

	_, err := store.Lots().AdjustOccupancy(context.Background(), 3, 1)
	if !errors.Is(err, repository.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestDeleteLotGuardsOpenSessions(t *testing.T) {
	store, mock := newMock(t)
	deleteSQL := `UPDATE parking_lots SET deleted_at = NOW() ... AND occupied_spots = 0 ... ` +
		`NOT EXISTS ( SELECT 1 FROM parking_sessions WHERE lot_id = $1 AND status IN ('booked', 'active') )`

	mock.ExpectExec(deleteSQL).WithArgs(int64(9)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	if err := store.Lots().Delete(context.Background(), 9); !errors.Is(err, repository.ErrLotInUse) {
		t.Fatalf("expected lot in use, got %v", err)
	}

	mock.ExpectExec(deleteSQL).WithArgs(int64(10)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	if err := store.Lots().Delete(context.Background(), 10); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	mock.ExpectExec(deleteSQL).WithArgs(int64(11)).WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.Lots().Delete(context.Background(), 11); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestUpdateLotBelowOccupancyIsInUse(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(`UPDATE parking_lots ... WHERE id = $1 AND deleted_at IS NULL AND occupied_spots <= $6`).
		WithArgs(int64(5), "Busy", 1.0, 2.0, 50.0, 2, models.LotTypeBoth).
		WillReturnRows(lotRows())
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := store.Lots().Update(context.Background(), &models.Lot{
		ID: 5, Name: "Busy", Lat: 1, Lon: 2, PricePerHour: 50, TotalSpots: 2, Type: models.LotTypeBoth,
	})
	if !errors.Is(err, repository.ErrLotInUse) {
		t.Fatalf("expected lot in use, got %v", err)
	}
}
