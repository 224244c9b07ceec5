package models

import "time"

// LotType restricts which vehicles a lot accepts.
type LotType string

const (
	LotTypeCar  LotType = "car"
	LotTypeBike LotType = "bike"
	LotTypeBoth LotType = "both"
)

// Valid reports whether t is a known lot type.
func (t LotType) Valid() bool {
	switch t {
	case LotTypeCar, LotTypeBike, LotTypeBoth:
		return true
	}
	return false
}

// Accepts reports whether a vehicle of type v may park in a lot of type t.
func (t LotType) Accepts(v VehicleType) bool {
	if !v.Valid() {
		return false
	}
	return t == LotTypeBoth || string(t) == string(v)
}

// LotStatus is derived from occupancy.
type LotStatus string

const (
	LotStatusAvailable LotStatus = "available"
	LotStatusFull      LotStatus = "full"
)

// StatusFor derives the status for the given occupancy.
func StatusFor(occupied, total int) LotStatus {
	if occupied >= total {
		return LotStatusFull
	}
	return LotStatusAvailable
}

// Lot is a physical parking facility.
type Lot struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Lat           float64   `db:"lat" json:"lat"`
	Lon           float64   `db:"lon" json:"lon"`
	PricePerHour  float64   `db:"price_per_hour" json:"pricePerHour"`
	TotalSpots    int       `db:"total_spots" json:"totalSpots"`
	OccupiedSpots int       `db:"occupied_spots" json:"occupiedSpots"`
	Type          LotType   `db:"type" json:"type"`
	Status        LotStatus `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// AvailableSlots returns free capacity, never negative.
func (l Lot) AvailableSlots() int {
	if free := l.TotalSpots - l.OccupiedSpots; free > 0 {
		return free
	}
	return 0
}

// LotView is the API projection of a lot.
type LotView struct {
	Lot
	AvailableSlots int      `json:"availableSlots"`
	DistanceKm     *float64 `json:"distanceKm,omitempty"`
}

// NewLotView builds a projection without distance.
func NewLotView(l Lot) LotView {
	return LotView{Lot: l, AvailableSlots: l.AvailableSlots()}
}

// LotSummary is embedded in session history.
type LotSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
