package sqlstore

import (
	"context"
	"fmt"
	"net/url"

	"github.com/goliatone/go-cerm/core"
	"github.com/goliatone/go-cerm/ratelimit"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const rateLimitStateCacheKeyPrefix = "go-cerm::ratelimit_state::v1"

// CachedRateLimitStateStore fronts the SQL store with the shared cache
// service. The gate runs before every outbound vendor call, so reads must
// not cost a query each time; upserts write through and drop the cached
// entry for that bucket.
type CachedRateLimitStateStore struct {
	base  ratelimit.StateStore
	cache repositorycache.CacheService
}

func NewCachedRateLimitStateStore(
	base ratelimit.StateStore,
	cacheService repositorycache.CacheService,
) (*CachedRateLimitStateStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base rate-limit state store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: rate-limit cache service is required")
	}
	return &CachedRateLimitStateStore{base: base, cache: cacheService}, nil
}

// RateLimitStateCacheKey is the deterministic cache key contract:
// go-cerm::ratelimit_state::v1::<environment>::<bucket>, each segment
// URL-path escaped after key normalization.
func RateLimitStateCacheKey(key core.RateLimitKey) (string, error) {
	normalized := normalizeRateLimitKey(key)
	if err := validateRateLimitKey(normalized); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s::%s::%s",
		rateLimitStateCacheKeyPrefix,
		url.PathEscape(normalized.Environment),
		url.PathEscape(normalized.Bucket),
	), nil
}

func (s *CachedRateLimitStateStore) Get(ctx context.Context, key core.RateLimitKey) (ratelimit.State, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return ratelimit.State{}, fmt.Errorf("sqlstore: cached rate-limit state store is not configured")
	}
	normalized := normalizeRateLimitKey(key)
	cacheKey, err := RateLimitStateCacheKey(normalized)
	if err != nil {
		return ratelimit.State{}, err
	}

	fetch := func(ctx context.Context) (ratelimit.State, error) {
		state, err := s.base.Get(ctx, normalized)
		if err != nil {
			return ratelimit.State{}, err
		}
		return cloneRateLimitState(state), nil
	}
	state, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, fetch)
	if err != nil {
		return ratelimit.State{}, err
	}
	return cloneRateLimitState(state), nil
}

func (s *CachedRateLimitStateStore) Upsert(ctx context.Context, state ratelimit.State) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached rate-limit state store is not configured")
	}
	state.Key = normalizeRateLimitKey(state.Key)
	cacheKey, err := RateLimitStateCacheKey(state.Key)
	if err != nil {
		return err
	}
	if err := s.base.Upsert(ctx, cloneRateLimitState(state)); err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

// cloneRateLimitState copies the state deeply enough that cached entries
// and callers never share pointers or maps.
func cloneRateLimitState(state ratelimit.State) ratelimit.State {
	cloned := state
	cloned.Key = normalizeRateLimitKey(state.Key)
	cloned.Metadata = copyAnyMap(state.Metadata)
	cloned.ResetAt = utcTimePointer(state.ResetAt)
	cloned.ThrottledUntil = utcTimePointer(state.ThrottledUntil)
	if state.RetryAfter != nil {
		value := *state.RetryAfter
		cloned.RetryAfter = &value
	}
	return cloned
}

var _ ratelimit.StateStore = (*CachedRateLimitStateStore)(nil)
