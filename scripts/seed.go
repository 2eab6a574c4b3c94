package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/salonbooking/backend/internal/adapters/providers/mail"
	"github.com/zatekoja/salonbooking/backend/internal/application/services"
	"github.com/zatekoja/salonbooking/backend/internal/bootstrap"
	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/infrastructure/observability"
	"github.com/zatekoja/salonbooking/backend/pkg/config"
	apperrors "github.com/zatekoja/salonbooking/backend/pkg/errors"
)

const seedPassword = "Seed!Passw0rd"

type seedSalon struct {
	name        string
	description string
	address     string
	city        string
	lat, lon    float64
	specialties []string
	priceLevel  int
}

var salons = []seedSalon{
	{"Glow Studio", "Natural hair care and protective styles.", "12 Admiralty Way, Lekki", "Lagos", 6.4433, 3.4735, []string{"braids", "natural hair"}, 2},
	{"Crown & Comb", "Barbering and beard grooming.", "4 Awolowo Road, Ikoyi", "Lagos", 6.4541, 3.4316, []string{"barbering", "beard"}, 1},
	{"Polished Nail Bar", "Manicures, pedicures and nail art.", "27 Adeola Odeku, Victoria Island", "Lagos", 6.4302, 3.4215, []string{"nails"}, 3},
	{"Serenity Spa", "Massages, facials and full-day packages.", "Plot 5 Aminu Kano Crescent, Wuse II", "Abuja", 9.0765, 7.4686, []string{"spa", "facials", "massage"}, 4},
	{"Color Lab", "Colour correction and balayage.", "9 Allen Avenue, Ikeja", "Lagos", 6.6018, 3.3515, []string{"color", "cuts"}, 3},
	// not geocoded yet; sorts last by distance
	{"Mobile Braids by Tolu", "Home visits across the mainland.", "", "Lagos", 0, 0, []string{"braids"}, 1},
}

var reviewers = []struct{ email, name string }{
	{"ada@example.com", "Ada"},
	{"tunde@example.com", "Tunde"},
	{"zainab@example.com", "Zainab"},
}

var comments = []string{
	"Friendly staff and they finished right on time.",
	"Great result, a little pricey but worth it.",
	"Clean space and the stylist really listened.",
	"Booking was easy and I will definitely be back.",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	observability.InitLogger("salon-seed", cfg.Environment)

	ctx := context.Background()
	core, err := bootstrap.New(ctx, cfg, bootstrap.Options{Search: true})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect")
	}
	defer core.Close()

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		if _, err := core.Postgres.DB().ExecContext(ctx, `TRUNCATE TABLE reviews, profiles, users, salons CASCADE`); err != nil {
			log.Fatal().Err(err).Msg("Failed to truncate tables")
		}
	}

	auth := services.NewAuthService(core.Users, core.Profiles, mail.NewLogMailer(log.Logger), services.AuthSettings{
		JWTSecret: cfg.Auth.JWTSecret,
	})

	var userIDs []string
	for _, r := range reviewers {
		user, err := auth.SignUp(ctx, r.email, seedPassword, r.name)
		if apperrors.Is(err, apperrors.ErrorTypeConflict) {
			existing, err := core.Users.GetByEmail(ctx, r.email)
			if err != nil {
				log.Fatal().Err(err).Str("email", r.email).Msg("Failed to load existing user")
			}
			user = existing
		} else if err != nil {
			log.Fatal().Err(err).Str("email", r.email).Msg("Failed to create user")
		}
		userIDs = append(userIDs, user.ID)
	}

	now := time.Now().UTC()
	for i, s := range salons {
		salon := &entities.Salon{
			ID:          uuid.New().String(),
			Name:        s.name,
			Description: s.description,
			Location:    entities.Location{Address: s.address, City: s.city},
			Specialties: s.specialties,
			PriceLevel:  s.priceLevel,
			IsActive:    true,
			CreatedAt:   now.Add(-time.Duration(len(salons)-i) * 24 * time.Hour),
			UpdatedAt:   now,
		}
		if s.lat != 0 || s.lon != 0 {
			lat, lon := s.lat, s.lon
			salon.Location.Latitude = &lat
			salon.Location.Longitude = &lon
		}
		if err := core.Salons.Create(ctx, salon); err != nil {
			log.Fatal().Err(err).Str("salon", s.name).Msg("Failed to create salon")
		}

		for j, userID := range userIDs {
			if (i+j)%4 == 3 {
				continue
			}
			_, err := core.ReviewService.Submit(ctx, &entities.Review{
				SalonID: salon.ID,
				UserID:  userID,
				Rating:  3 + (i+j)%3,
				Comment: comments[(i+j)%len(comments)],
			})
			if err != nil {
				log.Warn().Err(err).Str("salon", s.name).Msg("Failed to add review")
			}
		}
		log.Info().Str("salon", s.name).Msg("Seeded salon")
	}

	if core.Index != nil {
		indexed, err := core.SalonService.Reindex(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to index seeded salons")
		} else {
			log.Info().Int("salons", indexed).Msg("Indexed seeded salons")
		}
	}

	log.Info().Str("password", seedPassword).Msg("Seeding complete; reviewer accounts share this password")
}
