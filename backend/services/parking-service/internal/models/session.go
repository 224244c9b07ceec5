package models

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// VehicleType of a parked vehicle.
type VehicleType string

const (
	VehicleCar  VehicleType = "car"
	VehicleBike VehicleType = "bike"
)

// Valid reports whether v is a known vehicle type.
func (v VehicleType) Valid() bool {
	return v == VehicleCar || v == VehicleBike
}

// SessionStatus is the lifecycle state of a parking session.
type SessionStatus string

const (
	SessionBooked    SessionStatus = "booked"
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// Open reports whether the session still holds capacity.
func (s SessionStatus) Open() bool {
	return s == SessionBooked || s == SessionActive
}

// Session is a driver's use of a lot: a reservation, a visit in progress, or a finished visit.
// For bookings EndTime holds the requested end until completion overwrites it.
type Session struct {
	ID           int64         `db:"id" json:"id"`
	UserID       int64         `db:"user_id" json:"userId"`
	LotID        int64         `db:"lot_id" json:"parkingLotId"`
	VehicleType  VehicleType   `db:"vehicle_type" json:"vehicleType"`
	Slots        int           `db:"slots" json:"slots"`
	PricePerHour float64       `db:"price_per_hour" json:"pricePerHour"`
	StartTime    time.Time     `db:"start_time" json:"startTime"`
	EndTime      null.Time     `db:"end_time" json:"endTime"`
	TotalAmount  float64       `db:"total_amount" json:"totalAmount"`
	Status       SessionStatus `db:"status" json:"status"`
	CreatedAt    time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updatedAt"`
	Lot          *LotSummary   `db:"-" json:"parkingLot,omitempty"`
}
