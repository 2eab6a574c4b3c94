package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/repositories"
	tsclient "github.com/zatekoja/salonbooking/backend/internal/infrastructure/clients/typesense"
)

const (
	collectionName = "salons"
	queryFields    = "name,city,specialties,description"
	maxPerPage     = 250 // Typesense rejects larger pages
)

// TypesenseAdapter implements salon search using Typesense
type TypesenseAdapter struct {
	client *tsclient.Client
}

var _ repositories.SalonSearchRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// InitSchema ensures the collection exists
func (a *TypesenseAdapter) InitSchema(ctx context.Context) error {
	if _, err := a.client.Client().Collection(collectionName).Retrieve(ctx); err == nil {
		return nil
	}

	schema := &api.CollectionSchema{
		Name: collectionName,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "name", Type: "string"},
			{Name: "description", Type: "string", Optional: pointer.True()},
			{Name: "city", Type: "string", Facet: pointer.True()},
			{Name: "specialties", Type: "string[]", Facet: pointer.True()},
			{Name: "price_level", Type: "int32", Facet: pointer.True()},
			{Name: "is_active", Type: "bool"},
			{Name: "location", Type: "geopoint", Optional: pointer.True()},
			{Name: "rating", Type: "float"},
			{Name: "rating_count", Type: "int32"},
			{Name: "created_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("rating"),
	}

	if _, err := a.client.Client().Collections().Create(ctx, schema); err != nil {
		return fmt.Errorf("failed to create typesense collection: %w", err)
	}
	return nil
}

// DropSchema deletes the collection. A missing collection is not an error.
func (a *TypesenseAdapter) DropSchema(ctx context.Context) error {
	_, err := a.client.Client().Collection(collectionName).Delete(ctx)
	var httpErr *typesense.HTTPError
	if errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to drop typesense collection: %w", err)
	}
	return nil
}

// Index upserts a salon document
func (a *TypesenseAdapter) Index(ctx context.Context, salon *entities.Salon) error {
	if _, err := a.client.Client().Collection(collectionName).Documents().Upsert(ctx, salonDocument(salon)); err != nil {
		return fmt.Errorf("failed to index salon %s: %w", salon.ID, err)
	}
	return nil
}

// Delete removes a salon from the index. Missing documents are ignored.
func (a *TypesenseAdapter) Delete(ctx context.Context, id string) error {
	_, err := a.client.Client().Collection(collectionName).Document(id).Delete(ctx)
	var httpErr *typesense.HTTPError
	if errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete salon from index: %w", err)
	}
	return nil
}

// SearchIDs returns the IDs of every matching salon in relevance order,
// fetching as many pages as the result needs
func (a *TypesenseAdapter) SearchIDs(ctx context.Context, filter repositories.SalonFilter) ([]string, error) {
	documents := a.client.Client().Collection(collectionName).Documents()

	ids := []string{}
	for page := 1; ; page++ {
		result, err := documents.Search(ctx, buildSearchParams(filter, page))
		if err != nil {
			return nil, fmt.Errorf("failed to search salons: %w", err)
		}

		hits := hitIDs(result)
		ids = append(ids, hits...)

		found := 0
		if result.Found != nil {
			found = *result.Found
		}
		if len(hits) < maxPerPage || len(ids) >= found {
			return ids, nil
		}
	}
}

func hitIDs(result *api.SearchResult) []string {
	ids := []string{}
	if result == nil || result.Hits == nil {
		return ids
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		if id, ok := (*hit.Document)["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func salonDocument(salon *entities.Salon) map[string]interface{} {
	specialties := salon.Specialties
	if specialties == nil {
		specialties = []string{}
	}
	doc := map[string]interface{}{
		"id":           salon.ID,
		"name":         salon.Name,
		"description":  salon.Description,
		"city":         salon.Location.City,
		"specialties":  specialties,
		"price_level":  salon.PriceLevel,
		"is_active":    salon.IsActive,
		"rating":       salon.Rating,
		"rating_count": salon.RatingCount,
		"created_at":   salon.CreatedAt.Unix(),
	}
	if salon.Location.HasCoordinates() {
		doc["location"] = []float64{*salon.Location.Latitude, *salon.Location.Longitude}
	}
	return doc
}

func buildSearchParams(filter repositories.SalonFilter, page int) *api.SearchCollectionParams {
	q := strings.TrimSpace(filter.Query)
	if q == "" {
		q = "*"
	}

	return &api.SearchCollectionParams{
		Q:             pointer.String(q),
		QueryBy:       pointer.String(queryFields),
		FilterBy:      pointer.String(buildFilterBy(filter)),
		SortBy:        pointer.String("_text_match:desc,rating:desc,rating_count:desc"),
		IncludeFields: pointer.String("id"),
		Page:          pointer.Int(page),
		PerPage:       pointer.Int(maxPerPage),
	}
}

func buildFilterBy(filter repositories.SalonFilter) string {
	clauses := []string{}
	if !filter.IncludeAll {
		clauses = append(clauses, "is_active:=true")
	}

	specs := make([]string, 0, len(filter.Specialties))
	for _, s := range filter.Specialties {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			specs = append(specs, "`"+strings.ReplaceAll(s, "`", "")+"`")
		}
	}
	if len(specs) > 0 {
		clauses = append(clauses, fmt.Sprintf("specialties:=[%s]", strings.Join(specs, ",")))
	}

	if filter.MinRating > 0 {
		clauses = append(clauses, fmt.Sprintf("rating:>=%g", filter.MinRating))
	}
	if filter.MaxPriceLevel > 0 {
		clauses = append(clauses, fmt.Sprintf("price_level:<=%d", filter.MaxPriceLevel))
	}
	return strings.Join(clauses, " && ")
}
