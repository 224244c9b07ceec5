// Package geo ranks parking lots by great-circle distance.
package geo

import (
	"errors"
	"math"
	"sort"
)

// EarthRadiusKm is the mean Earth radius used for haversine distances.
const EarthRadiusKm = 6371.0

// ErrInvalidPoint reports coordinates outside the valid range.
var ErrInvalidPoint = errors.New("geo: coordinates out of range")

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Validate checks latitude and longitude bounds.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return ErrInvalidPoint
	}
	return nil
}

// DistanceKm returns the haversine distance between a and b in kilometres.
func DistanceKm(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Ranked pairs an element index with its distance from the origin.
type Ranked struct {
	Index      int
	DistanceKm float64
}

// RankByDistance orders points by ascending distance from origin.
// Equal distances keep their input order.
func RankByDistance(origin Point, points []Point) []Ranked {
	out := make([]Ranked, len(points))
	for i, p := range points {
		out[i] = Ranked{Index: i, DistanceKm: DistanceKm(origin, p)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
