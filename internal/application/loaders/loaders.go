package loaders

import (
	"context"
	"net/http"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/zatekoja/salonbooking/backend/internal/domain/entities"
	"github.com/zatekoja/salonbooking/backend/internal/domain/repositories"
)

type ctxKey string

const loadersKey ctxKey = "dataloaders"

// batchWait is how long a loader collects keys before issuing one query
const batchWait = 2 * time.Millisecond

// Loaders holds the per-request batching loaders
type Loaders struct {
	ProfileLoader *dataloader.Loader[string, *entities.Profile]
}

// NewLoaders creates a fresh set of loaders. Loaders cache results, so a set
// must not outlive a single request.
func NewLoaders(profileRepo repositories.ProfileRepository) *Loaders {
	return &Loaders{
		ProfileLoader: dataloader.NewBatchedLoader(
			func(ctx context.Context, keys []string) []*dataloader.Result[*entities.Profile] {
				results := make([]*dataloader.Result[*entities.Profile], len(keys))
				profiles, err := profileRepo.GetByUserIDs(ctx, keys)

				byUser := make(map[string]*entities.Profile, len(profiles))
				if err == nil {
					for _, p := range profiles {
						byUser[p.UserID] = p
					}
				}

				// a user without a profile loads as nil, not as an error
				for i, key := range keys {
					if err != nil {
						results[i] = &dataloader.Result[*entities.Profile]{Error: err}
					} else {
						results[i] = &dataloader.Result[*entities.Profile]{Data: byUser[key]}
					}
				}
				return results
			},
			dataloader.WithWait[string, *entities.Profile](batchWait),
		),
	}
}

// LoadProfiles resolves the profiles of several users in one batch. Missing
// profiles are absent from the returned map.
func (l *Loaders) LoadProfiles(ctx context.Context, userIDs []string) (map[string]*entities.Profile, error) {
	profiles, errs := l.ProfileLoader.LoadMany(ctx, userIDs)()
	out := make(map[string]*entities.Profile, len(userIDs))
	for i, id := range userIDs {
		if i < len(errs) && errs[i] != nil {
			return nil, errs[i]
		}
		if i < len(profiles) && profiles[i] != nil {
			out[id] = profiles[i]
		}
	}
	return out, nil
}

// For returns the loaders attached to ctx, or nil
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey).(*Loaders)
	return l
}

// WithLoaders returns a new context with the loaders attached
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}

// Middleware attaches a fresh set of loaders to every request
func Middleware(profileRepo repositories.ProfileRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLoaders(r.Context(), NewLoaders(profileRepo))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
