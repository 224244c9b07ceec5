package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"parkspot/backend/services/parking-service/internal/repository"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", sql.ErrNoRows, repository.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", sql.ErrNoRows), repository.ErrNotFound},
		{"open session unique", &pgconn.PgError{Code: "23505", ConstraintName: openSessionIndex}, repository.ErrOpenSessionExists},
		{"serialization", &pgconn.PgError{Code: "40001"}, repository.ErrTransient},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, repository.ErrTransient},
		{"connection", &pgconn.PgError{Code: "08006"}, repository.ErrTransient},
		{"deadline", context.DeadlineExceeded, repository.ErrTransient},
		{"check violation", &pgconn.PgError{Code: "23514", ConstraintName: "parking_lots_price_per_hour_check"}, repository.ErrInvalidValue},
		{"numeric overflow", &pgconn.PgError{Code: "22003"}, repository.ErrInvalidValue},
	}
	for _, tc := range cases {
		got := classify(tc.in)
		if !errors.Is(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestClassifyKeepsUnknownErrors(t *testing.T) {
	other := &pgconn.PgError{Code: "23505", ConstraintName: "parking_lots_pkey"}
	got := classify(other)
	if errors.Is(got, repository.ErrOpenSessionExists) || errors.Is(got, repository.ErrTransient) {
		t.Fatalf("unrelated unique violation must not be reclassified: %v", got)
	}
	if classify(nil) != nil {
		t.Fatal("nil stays nil")
	}
	deadline := classify(context.DeadlineExceeded)
	if !errors.Is(deadline, context.DeadlineExceeded) {
		t.Fatal("cause must stay in the chain")
	}
}
