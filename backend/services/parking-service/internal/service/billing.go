package service

import (
	"math"
	"time"
)

// BilledHours rounds the stay up to whole hours with a one hour minimum.
func BilledHours(start, end time.Time) int {
	elapsed := end.Sub(start)
	if elapsed <= 0 {
		return 1
	}
	hours := int(elapsed / time.Hour)
	if elapsed%time.Hour != 0 {
		hours++
	}
	if hours < 1 {
		return 1
	}
	return hours
}

// Charge returns the amount due for a stay at pricePerHour, rounded to cents.
func Charge(start, end time.Time, pricePerHour float64) float64 {
	amount := float64(BilledHours(start, end)) * pricePerHour
	return math.Round(amount*100) / 100
}
