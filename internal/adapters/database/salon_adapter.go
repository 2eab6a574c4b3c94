package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/repositories"
	"github.com/zatekoja/salonbooking/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/salonbooking/backend/pkg/errors"
)

const salonsTable = "salons"

var salonColumns = []interface{}{
	"id", "name", "image", "description", "rating", "rating_count",
	"address", "city", "latitude", "longitude", "specialties",
	"price_level", "is_active", "created_at", "updated_at",
}

// SalonAdapter implements the SalonRepository interface
type SalonAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSalonAdapter creates a new salon adapter
func NewSalonAdapter(client *postgres.Client) repositories.SalonRepository {
	return &SalonAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

func salonRecord(salon *entities.Salon) goqu.Record {
	specialties := salon.Specialties
	if specialties == nil {
		specialties = []string{}
	}
	return goqu.Record{
		"id":           salon.ID,
		"name":         salon.Name,
		"image":        salon.Image,
		"description":  salon.Description,
		"rating":       salon.Rating,
		"rating_count": salon.RatingCount,
		"address":      salon.Location.Address,
		"city":         salon.Location.City,
		"latitude":     nullFloat(salon.Location.Latitude),
		"longitude":    nullFloat(salon.Location.Longitude),
		"specialties":  pq.Array(specialties),
		"price_level":  salon.PriceLevel,
		"is_active":    salon.IsActive,
		"created_at":   salon.CreatedAt,
		"updated_at":   salon.UpdatedAt,
	}
}

// Create creates a new salon
func (a *SalonAdapter) Create(ctx context.Context, salon *entities.Salon) error {
	query, args, err := a.db.Insert(salonsTable).Rows(salonRecord(salon)).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build salon insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("salon with id %s already exists", salon.ID))
		}
		return apperrors.NewInternalError("failed to create salon", err)
	}
	return nil
}

// GetByID retrieves an active salon by ID
func (a *SalonAdapter) GetByID(ctx context.Context, id string) (*entities.Salon, error) {
	query, args, err := a.db.From(salonsTable).
		Select(salonColumns...).
		Where(goqu.Ex{"id": id, "is_active": true}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build salon query", err)
	}

	salon, err := scanSalon(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("salon with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get salon", err)
	}
	return salon, nil
}

// GetByIDs retrieves multiple salons by their IDs, in no particular order
func (a *SalonAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Salon, error) {
	if len(ids) == 0 {
		return []*entities.Salon{}, nil
	}

	query, args, err := a.db.From(salonsTable).
		Select(salonColumns...).
		Where(goqu.Ex{"id": ids, "is_active": true}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build salon query", err)
	}

	return a.query(ctx, query, args)
}

// Update updates a salon's editable fields
func (a *SalonAdapter) Update(ctx context.Context, salon *entities.Salon) error {
	salon.UpdatedAt = time.Now().UTC()

	record := salonRecord(salon)
	delete(record, "id")
	delete(record, "created_at")
	delete(record, "rating")
	delete(record, "rating_count")
	delete(record, "is_active")

	return a.exec(ctx, a.db.Update(salonsTable).
		Set(record).
		Where(goqu.Ex{"id": salon.ID, "is_active": true}), salon.ID, "update salon")
}

// UpdateRating writes the cached rating rollup of a salon
func (a *SalonAdapter) UpdateRating(ctx context.Context, salonID string, average float64, count int) error {
	return a.exec(ctx, a.db.Update(salonsTable).
		Set(goqu.Record{
			"rating":       average,
			"rating_count": count,
			"updated_at":   time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": salonID}), salonID, "update salon rating")
}

// Delete deletes a salon (soft delete)
func (a *SalonAdapter) Delete(ctx context.Context, id string) error {
	return a.exec(ctx, a.db.Update(salonsTable).
		Set(goqu.Record{"is_active": false, "updated_at": time.Now().UTC()}).
		Where(goqu.Ex{"id": id, "is_active": true}), id, "delete salon")
}

// Restore re-activates a salon and resets its editable fields to the given
// snapshot. The rating rollup is kept: reviews may have changed since.
func (a *SalonAdapter) Restore(ctx context.Context, salon *entities.Salon) error {
	salon.IsActive = true
	salon.UpdatedAt = time.Now().UTC()

	record := salonRecord(salon)
	delete(record, "id")
	delete(record, "created_at")
	delete(record, "rating")
	delete(record, "rating_count")

	return a.exec(ctx, a.db.Update(salonsTable).
		Set(record).
		Where(goqu.Ex{"id": salon.ID}), salon.ID, "restore salon")
}

// List retrieves one page of salons with filters
func (a *SalonAdapter) List(ctx context.Context, filter repositories.SalonFilter) ([]*entities.Salon, error) {
	ds := a.filtered(filter).Select(salonColumns...).Order(salonOrder(filter)...)

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build salon list query", err)
	}

	return a.query(ctx, query, args)
}

// Count returns the number of salons matching the filter
func (a *SalonAdapter) Count(ctx context.Context, filter repositories.SalonFilter) (int, error) {
	query, args, err := a.filtered(filter).Select(goqu.COUNT("*")).ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build salon count query", err)
	}

	var total int
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, apperrors.NewInternalError("failed to count salons", err)
	}
	return total, nil
}

func (a *SalonAdapter) filtered(filter repositories.SalonFilter) *goqu.SelectDataset {
	ds := a.db.From(salonsTable)

	if !filter.IncludeAll {
		ds = ds.Where(goqu.C("is_active").IsTrue())
	}

	switch {
	case filter.IDs == nil:
	case len(filter.IDs) == 0:
		ds = ds.Where(goqu.L("FALSE"))
	default:
		ds = ds.Where(goqu.Ex{"id": filter.IDs})
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		ds = ds.Where(goqu.Or(
			goqu.C("name").ILike(pattern),
			goqu.C("city").ILike(pattern),
			goqu.L("array_to_string(specialties, ' ') ILIKE ?", pattern),
		))
	}

	if len(filter.Specialties) > 0 {
		ds = ds.Where(goqu.L("specialties && ?::text[]", pq.Array(normalizeSpecialties(filter.Specialties))))
	}

	if filter.MinRating > 0 {
		ds = ds.Where(goqu.C("rating").Gte(filter.MinRating))
	}

	if filter.MaxPriceLevel > 0 {
		ds = ds.Where(goqu.C("price_level").Lte(filter.MaxPriceLevel))
	}
	return ds
}

// salonOrder always ends on id so that pages never overlap
func salonOrder(filter repositories.SalonFilter) []exp.OrderedExpression {
	lowerName := goqu.L("lower(?)", goqu.C("name"))
	byRating := []exp.OrderedExpression{
		goqu.C("rating").Desc(),
		goqu.C("rating_count").Desc(),
		lowerName.Asc(),
		goqu.C("id").Asc(),
	}

	switch filter.Sort {
	case repositories.SalonSortDistance:
		if filter.Near != nil {
			return append([]exp.OrderedExpression{distanceKm(filter.Near).Asc().NullsLast()}, byRating...)
		}
	case repositories.SalonSortName:
		return []exp.OrderedExpression{lowerName.Asc(), goqu.C("id").Asc()}
	case repositories.SalonSortNewest:
		return append([]exp.OrderedExpression{goqu.C("created_at").Desc()}, byRating...)
	}
	return byRating
}

// distanceKm is the haversine distance from origin. It is NULL for salons
// without coordinates.
func distanceKm(origin *entities.Position) exp.LiteralExpression {
	return goqu.L(
		`6371 * 2 * asin(sqrt(power(sin(radians("latitude" - ?) / 2), 2) + `+
			`cos(radians(?)) * cos(radians("latitude")) * power(sin(radians("longitude" - ?) / 2), 2)))`,
		origin.Latitude, origin.Latitude, origin.Longitude,
	)
}

func (a *SalonAdapter) query(ctx context.Context, query string, args []interface{}) ([]*entities.Salon, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list salons", err)
	}
	defer rows.Close()

	salons := []*entities.Salon{}
	for rows.Next() {
		salon, err := scanSalon(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan salon", err)
		}
		salons = append(salons, salon)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating salons", err)
	}
	return salons, nil
}

func (a *SalonAdapter) exec(ctx context.Context, ds *goqu.UpdateDataset, id, op string) error {
	query, args, err := ds.ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build query to "+op, err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to "+op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("salon with id %s not found", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSalon(row rowScanner) (*entities.Salon, error) {
	salon := &entities.Salon{}
	var lat, lon sql.NullFloat64

	err := row.Scan(
		&salon.ID,
		&salon.Name,
		&salon.Image,
		&salon.Description,
		&salon.Rating,
		&salon.RatingCount,
		&salon.Location.Address,
		&salon.Location.City,
		&lat,
		&lon,
		pq.Array(&salon.Specialties),
		&salon.PriceLevel,
		&salon.IsActive,
		&salon.CreatedAt,
		&salon.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid {
		salon.Location.Latitude = &lat.Float64
	}
	if lon.Valid {
		salon.Location.Longitude = &lon.Float64
	}
	return salon, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func normalizeSpecialties(specialties []string) []string {
	out := make([]string, 0, len(specialties))
	for _, s := range specialties {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
