package entities

import (
	"strings"
	"time"
)

// Salon represents a bookable salon listing
type Salon struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Image       string    `json:"image" db:"image"`
	Description string    `json:"description" db:"description"`
	Rating      float64   `json:"rating" db:"rating"`
	RatingCount int       `json:"rating_count" db:"rating_count"`
	Location    Location  `json:"location" db:"-"`
	Specialties []string  `json:"specialties" db:"specialties"`
	PriceLevel  int       `json:"price_level" db:"price_level"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Location represents where a salon is. Latitude/Longitude are nil when the
// salon has not been geocoded.
type Location struct {
	Address   string   `json:"address" db:"address"`
	City      string   `json:"city" db:"city"`
	Latitude  *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude"`
}

// HasCoordinates reports whether the location can be used for distance sorting.
func (l Location) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// HasSpecialty reports whether the salon lists the given specialty (case-insensitive).
func (s *Salon) HasSpecialty(specialty string) bool {
	for _, sp := range s.Specialties {
		if strings.EqualFold(strings.TrimSpace(sp), strings.TrimSpace(specialty)) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, used for history snapshots.
func (s *Salon) Clone() *Salon {
	if s == nil {
		return nil
	}
	c := *s
	if s.Specialties != nil {
		c.Specialties = append([]string(nil), s.Specialties...)
	}
	if s.Location.Latitude != nil {
		lat := *s.Location.Latitude
		c.Location.Latitude = &lat
	}
	if s.Location.Longitude != nil {
		lon := *s.Location.Longitude
		c.Location.Longitude = &lon
	}
	return &c
}

// SalonListing is a salon as returned by search, with the distance from the
// caller when a position was supplied.
type SalonListing struct {
	*Salon
	DistanceKm    *float64 `json:"distance_km,omitempty"`
	DistanceLabel string   `json:"distance_label,omitempty"`
}

// RatingSummary is the rolled-up rating of a salon.
type RatingSummary struct {
	SalonID string  `json:"salon_id,omitempty"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}
