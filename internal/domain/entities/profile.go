package entities

import "time"

// Profile holds the public details of a user shown next to their reviews
type Profile struct {
	UserID       string    `json:"user_id" db:"user_id"`
	Name         string    `json:"name" db:"name"`
	ProfileImage string    `json:"profile_image,omitempty" db:"profile_image"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
