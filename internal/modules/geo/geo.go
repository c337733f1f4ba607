// Package geo contains pure geographic computation helpers: great-circle
// distance, radius containment and the charter travel-distance breakdown.
package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"charterhub/internal/apperr"
	"charterhub/internal/types"
)

const earthRadiusKm = 6371.0

// haversineKm returns the unrounded great-circle distance in kilometres between
// two points specified in decimal degrees.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// DistanceKm is the haversine distance between a and b, rounded to 2 decimals.
func DistanceKm(a, b types.Point) float64 {
	return Round2(haversineKm(a.Lat, a.Lng, b.Lat, b.Lng))
}

func WithinRadius(center, p types.Point, radiusKm float64) bool {
	return DistanceKm(center, p) <= radiusKm
}

// TravelDistances is the charter's full run: origin to pickup, then pickup to destination.
type TravelDistances struct {
	ToPickup      float64 `json:"charter_to_pickup"`
	ToDestination float64 `json:"pickup_to_destination"`
	Total         float64 `json:"total"`
}

// Travel computes each leg and the total, every figure independently rounded to 2 decimals.
func Travel(origin, pickup, destination types.Point) TravelDistances {
	toPickup := DistanceKm(origin, pickup)
	toDestination := DistanceKm(pickup, destination)
	return TravelDistances{
		ToPickup:      Round2(toPickup),
		ToDestination: Round2(toDestination),
		Total:         Round2(toPickup + toDestination),
	}
}

// ParseCoordinate parses a decimal-degree string.
func ParseCoordinate(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, apperr.Validation(fmt.Sprintf("invalid coordinate: %q", v))
	}
	return f, nil
}

// ParsePoint parses and range-checks a latitude/longitude string pair.
func ParsePoint(lat, lng string) (types.Point, error) {
	la, err := ParseCoordinate(lat)
	if err != nil {
		return types.Point{}, err
	}
	lo, err := ParseCoordinate(lng)
	if err != nil {
		return types.Point{}, err
	}
	p := types.Point{Lat: la, Lng: lo}
	if err := Validate(p); err != nil {
		return types.Point{}, err
	}
	return p, nil
}

func Validate(p types.Point) error {
	if p.Lat < -90 || p.Lat > 90 {
		return apperr.Validation(fmt.Sprintf("latitude out of range: %v", p.Lat))
	}
	if p.Lng < -180 || p.Lng > 180 {
		return apperr.Validation(fmt.Sprintf("longitude out of range: %v", p.Lng))
	}
	return nil
}

// SortByDistance performs an insertion sort (fine for small N) on any slice
// where each element exposes a distance via the accessor function. Equal
// distances keep their input order.
func SortByDistance[T any](items []T, dist func(T) float64) {
	for i := 1; i < len(items); i++ {
		key := items[i]
		j := i - 1
		for j >= 0 && dist(items[j]) > dist(key) {
			items[j+1] = items[j]
			j--
		}
		items[j+1] = key
	}
}
