package listingRepo

import (
	"context"
	"encoding/json"
	"time"

	"tourly/models"

	"github.com/go-redis/redis/v8"
)

// listingCacheTTL bounds how long a deactivated listing can still look
// bookable from the cache.
const listingCacheTTL = 5 * time.Minute

// kvStore is the subset of the redis client the cache uses.
type kvStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedListingRepo wraps a ListingRepository with a redis read cache.
// Listings are written by the catalog service and read hot on every booking
// request; cache failures fall through to the inner repository.
type CachedListingRepo struct {
	inner ListingRepository
	store kvStore
}

// NewCachedListingRepo creates a read-through cache around inner.
func NewCachedListingRepo(inner ListingRepository, store kvStore) ListingRepository {
	return &CachedListingRepo{inner: inner, store: store}
}

func listingKey(id string) string {
	return "listing:" + id
}

// GetByID returns the cached listing when present, otherwise loads it from
// the inner repository and caches the result. Absent listings are not cached.
func (r *CachedListingRepo) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	if raw, err := r.store.Get(ctx, listingKey(id)).Result(); err == nil {
		var listing models.Listing
		if json.Unmarshal([]byte(raw), &listing) == nil {
			return &listing, nil
		}
	}

	listing, err := r.inner.GetByID(ctx, id)
	if err != nil || listing == nil {
		return listing, err
	}

	if buf, err := json.Marshal(listing); err == nil {
		r.store.Set(ctx, listingKey(id), buf, listingCacheTTL)
	}
	return listing, nil
}
