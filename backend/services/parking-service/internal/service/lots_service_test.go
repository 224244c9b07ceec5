package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"parkspot/backend/services/parking-service/internal/geo"
	"parkspot/backend/services/parking-service/internal/models"
)

func newLotsFixture() (*memStore, *LotsService) {
	store := newMemStore()
	return store, NewLotsService(store, nil, nil)
}

func TestListLotsCreationOrderWithoutOrigin(t *testing.T) {
	_, svc := newLotsFixture()
	ctx := context.Background()
	for _, name := range []string{"first", "second", "third"} {
		if _, err := svc.Create(ctx, LotInput{Name: name, Lat: 27.7, Lon: 85.3, PricePerHour: 50, TotalSpots: 10}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	views, err := svc.List(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 3 || views[0].Name != "first" || views[2].Name != "third" {
		t.Fatalf("unexpected order %+v", views)
	}
	for _, v := range views {
		if v.DistanceKm != nil {
			t.Fatal("distance must be omitted without an origin")
		}
		if v.AvailableSlots != 10 || v.Type != models.LotTypeBoth {
			t.Fatalf("unexpected projection %+v", v)
		}
	}
}

func TestListLotsRankedByDistance(t *testing.T) {
	_, svc := newLotsFixture()
	ctx := context.Background()
	inputs := []LotInput{
		{Name: "pokhara", Lat: 28.2096, Lon: 83.9856, PricePerHour: 30, TotalSpots: 5},
		{Name: "thamel", Lat: 27.7154, Lon: 85.3123, PricePerHour: 60, TotalSpots: 5},
		{Name: "patan", Lat: 27.6727, Lon: 85.3250, PricePerHour: 40, TotalSpots: 5},
	}
	for _, in := range inputs {
		if _, err := svc.Create(ctx, in); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	origin := geo.Point{Lat: 27.7172, Lon: 85.3240}
	views, err := svc.List(ctx, &origin)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"thamel", "patan", "pokhara"}
	for i, name := range want {
		if views[i].Name != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, views[i].Name)
		}
		if views[i].DistanceKm == nil {
			t.Fatalf("%s: missing distance", name)
		}
	}
	if *views[0].DistanceKm > *views[1].DistanceKm || *views[1].DistanceKm > *views[2].DistanceKm {
		t.Fatal("distances must ascend")
	}
}

func TestListLotsRejectsInvalidOrigin(t *testing.T) {
	_, svc := newLotsFixture()
	if _, err := svc.List(context.Background(), &geo.Point{Lat: 120, Lon: 0}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateLotValidation(t *testing.T) {
	_, svc := newLotsFixture()
	cases := map[string]LotInput{
		"name":           {Lat: 1, Lon: 1, PricePerHour: 1, TotalSpots: 1},
		"price":          {Name: "x", Lat: 1, Lon: 1, TotalSpots: 1},
		"spots":          {Name: "x", Lat: 1, Lon: 1, PricePerHour: 1},
		"coord":          {Name: "x", Lat: 100, Lon: 1, PricePerHour: 1, TotalSpots: 1},
		"type":           {Name: "x", Lat: 1, Lon: 1, PricePerHour: 1, TotalSpots: 1, Type: "truck"},
		"sub-cent price": {Name: "x", Lat: 1, Lon: 1, PricePerHour: 0.001, TotalSpots: 1},
		"price overflow": {Name: "x", Lat: 1, Lon: 1, PricePerHour: 1e8, TotalSpots: 1},
		"spots overflow": {Name: "x", Lat: 1, Lon: 1, PricePerHour: 1, TotalSpots: math.MaxInt32 + 1},
		"negative price": {Name: "x", Lat: 1, Lon: 1, PricePerHour: -5, TotalSpots: 1},
	}
	for name, in := range cases {
		if _, err := svc.Create(context.Background(), in); !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestCreateLotRoundsPriceToCents(t *testing.T) {
	_, svc := newLotsFixture()
	lot, err := svc.Create(context.Background(), LotInput{Name: "Sundhara", Lat: 27.7, Lon: 85.31, PricePerHour: 19.999, TotalSpots: 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if lot.PricePerHour != 20 {
		t.Fatalf("expected price rounded to 20, got %v", lot.PricePerHour)
	}

	top, err := svc.Create(context.Background(), LotInput{Name: "Top", Lat: 1, Lon: 1, PricePerHour: 99999999.99, TotalSpots: 1})
	if err != nil {
		t.Fatalf("largest storable price must be accepted: %v", err)
	}
	if top.PricePerHour != 99999999.99 {
		t.Fatalf("unexpected price %v", top.PricePerHour)
	}
}

func TestUpdateLotCannotShrinkBelowOccupancy(t *testing.T) {
	store, svc := newLotsFixture()
	lot := store.addLot("busy", 5, 4, 50, models.LotTypeBoth)

	_, err := svc.Update(context.Background(), lot.ID, LotInput{Name: "busy", Lat: 1, Lon: 1, PricePerHour: 50, TotalSpots: 3})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	updated, err := svc.Update(context.Background(), lot.ID, LotInput{Name: "busy", Lat: 1, Lon: 1, PricePerHour: 50, TotalSpots: 4})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != models.LotStatusFull || updated.AvailableSlots != 0 {
		t.Fatalf("expected full lot after shrinking to occupancy, got %+v", updated)
	}

	if _, err := svc.Update(context.Background(), 404, LotInput{Name: "x", Lat: 1, Lon: 1, PricePerHour: 1, TotalSpots: 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteLotWithOpenSessions(t *testing.T) {
	store, svc := newLotsFixture()
	sessions := NewSessionsService(SessionsDeps{Store: store})
	lot := store.addLot("busy", 5, 0, 50, models.LotTypeBoth)
	ctx := context.Background()

	if _, err := sessions.StartSession(ctx, StartSessionInput{UserID: 1, LotID: lot.ID, VehicleType: models.VehicleCar}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := svc.Delete(ctx, lot.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict while occupied, got %v", err)
	}

	if _, err := sessions.CompleteSession(ctx, 1); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := svc.Delete(ctx, lot.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, lot.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted lot must not resolve, got %v", err)
	}
	if _, err := sessions.StartSession(ctx, StartSessionInput{UserID: 2, LotID: lot.ID, VehicleType: models.VehicleCar}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("sessions cannot start at deleted lot, got %v", err)
	}
}

func TestAvailableSlots(t *testing.T) {
	store, svc := newLotsFixture()
	lot := store.addLot("x", 5, 3, 50, models.LotTypeBoth)
	free, err := svc.AvailableSlots(context.Background(), lot.ID)
	if err != nil || free != 2 {
		t.Fatalf("expected 2 free, got %d %v", free, err)
	}
	if _, err := svc.AvailableSlots(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
