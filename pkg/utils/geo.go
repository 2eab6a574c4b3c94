package utils

import (
	"fmt"
	"math"
)

const earthRadiusKm = 6371.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// HaversineKm returns the great-circle distance between a and b in kilometers.
func HaversineKm(a, b Point) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// FormatDistance renders a distance for display: metres under 1 km, one
// decimal under 10 km, whole kilometres beyond that.
func FormatDistance(km float64) string {
	if math.IsNaN(km) || math.IsInf(km, 0) || km < 0 {
		return ""
	}
	if km < 1 {
		metres := math.Round(km * 1000)
		if metres < 1000 {
			return fmt.Sprintf("%d m", int(metres))
		}
	}
	if km < 10 {
		return fmt.Sprintf("%.1f km", RoundTo(km, 1))
	}
	return fmt.Sprintf("%d km", int(math.Round(km)))
}

// RoundTo rounds value to the given number of decimal places, half away from zero.
func RoundTo(value float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(value*p) / p
}

// ValidCoordinates reports whether lat/lon are within the WGS84 range.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 &&
		!math.IsNaN(lat) && !math.IsNaN(lon)
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
