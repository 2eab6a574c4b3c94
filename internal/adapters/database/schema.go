package database

import (
	"context"
	"fmt"

	"github.com/zatekoja/salonbooking/backend/internal/infrastructure/clients/postgres"
)

// EnsureSchema creates the tables the adapters use. Safe to call on every start.
func EnsureSchema(ctx context.Context, client *postgres.Client) error {
	if _, err := client.DB().ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS salons (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    image TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    rating NUMERIC(2,1) NOT NULL DEFAULT 0,
    rating_count INTEGER NOT NULL DEFAULT 0,
    address TEXT NOT NULL DEFAULT '',
    city TEXT NOT NULL DEFAULT '',
    latitude DOUBLE PRECISION,
    longitude DOUBLE PRECISION,
    specialties TEXT[] NOT NULL DEFAULT '{}',
    price_level SMALLINT NOT NULL DEFAULT 2 CHECK (price_level BETWEEN 1 AND 4),
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_salons_active_rating ON salons(is_active, rating DESC);
CREATE INDEX IF NOT EXISTS idx_salons_specialties ON salons USING GIN (specialties);

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS profiles (
    user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    name TEXT NOT NULL DEFAULT '',
    profile_image TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS reviews (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    salon_id TEXT NOT NULL REFERENCES salons(id) ON DELETE CASCADE,
    rating SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 5),
    comment TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (salon_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_reviews_salon_created ON reviews(salon_id, created_at, id);
`
