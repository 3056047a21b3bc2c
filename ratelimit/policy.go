package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-cerm/core"
	goerrors "github.com/goliatone/go-errors"
)

var ErrStateNotFound = errors.New("ratelimit: state not found")

// State is the learned throttle posture for one {environment, bucket}
// pair. One CERM install talks to a single vendor host per environment,
// so the six API-family buckets are the only fan-out dimension.
type State struct {
	Key            core.RateLimitKey
	Limit          int
	Remaining      int
	ResetAt        *time.Time
	RetryAfter     *time.Duration
	ThrottledUntil *time.Time
	LastStatus     int
	Attempts       int
	UpdatedAt      time.Time
	Metadata       map[string]any
}

type StateStore interface {
	Get(ctx context.Context, key core.RateLimitKey) (State, error)
	Upsert(ctx context.Context, state State) error
}

// ThrottledError reports a refused call and how long the caller should
// wait before retrying the bucket.
type ThrottledError struct {
	Environment string
	Bucket      string
	RetryAfter  time.Duration
}

func (e ThrottledError) Error() string {
	return fmt.Sprintf("ratelimit: bucket %s/%s throttled for %s", e.Environment, e.Bucket, e.RetryAfter)
}

// ToClientError wraps the refusal in the envelope client callers see.
func (e ThrottledError) ToClientError() *goerrors.Error {
	metadata := map[string]any{
		"environment": e.Environment,
		"bucket":      e.Bucket,
	}
	if e.RetryAfter > 0 {
		metadata["retry_after_ms"] = e.RetryAfter.Milliseconds()
	}
	return goerrors.New(e.Error(), goerrors.CategoryRateLimit).
		WithCode(http.StatusTooManyRequests).
		WithTextCode(core.ClientErrorRateLimited).
		WithMetadata(metadata)
}

// AdaptivePolicy refuses calls into a bucket that sits inside a known
// throttle window and learns new windows from every vendor response. It
// never retries on the caller's behalf; it only declines calls that are
// already doomed.
type AdaptivePolicy struct {
	Store          StateStore
	Now            func() time.Time
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func NewAdaptivePolicy(store StateStore) *AdaptivePolicy {
	return &AdaptivePolicy{
		Store:          store,
		Now:            func() time.Time { return time.Now().UTC() },
		InitialBackoff: time.Second,
		MaxBackoff:     time.Minute,
	}
}

func (p *AdaptivePolicy) BeforeCall(ctx context.Context, key core.RateLimitKey) error {
	if p == nil || p.Store == nil {
		return nil
	}
	key = canonicalKey(key)
	state, err := p.Store.Get(ctx, key)
	if errors.Is(err, ErrStateNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if wait, blocked := remainingWindow(state, p.now()); blocked {
		return ThrottledError{Environment: key.Environment, Bucket: key.Bucket, RetryAfter: wait}
	}
	return nil
}

func (p *AdaptivePolicy) AfterCall(ctx context.Context, key core.RateLimitKey, res core.ResponseMeta) error {
	if p == nil || p.Store == nil {
		return nil
	}
	key = canonicalKey(key)
	now := p.now()

	state, err := p.Store.Get(ctx, key)
	if errors.Is(err, ErrStateNotFound) {
		state = State{Key: key}
	} else if err != nil {
		return err
	}

	limits := readVendorLimits(res.Headers)
	if limits.limit != nil {
		state.Limit = *limits.limit
	}
	if limits.remaining != nil {
		state.Remaining = *limits.remaining
	}
	if limits.resetAt != nil {
		state.ResetAt = limits.resetAt
	}

	state.LastStatus = res.StatusCode
	state.UpdatedAt = now
	merged := make(map[string]any, len(state.Metadata)+len(res.Metadata))
	for k, v := range state.Metadata {
		merged[k] = v
	}
	for k, v := range res.Metadata {
		merged[k] = v
	}
	state.Metadata = merged

	hint, hasHint := retryHint(res)
	state.RetryAfter = nil
	if hasHint {
		state.RetryAfter = &hint
	}

	sawLimits := limits.limit != nil || limits.remaining != nil || limits.resetAt != nil || hasHint
	exhausted := res.StatusCode < http.StatusInternalServerError && state.Remaining == 0 && sawLimits
	if res.StatusCode == http.StatusTooManyRequests || exhausted {
		state.Attempts++
		delay := hint
		if !hasHint {
			delay = p.backoff(state.Attempts)
		}
		until := now.Add(delay)
		state.ThrottledUntil = &until
	} else {
		state.Attempts = 0
		state.ThrottledUntil = nil
	}

	return p.Store.Upsert(ctx, state)
}

func (p *AdaptivePolicy) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

// backoff doubles per consecutive throttled response, starting at
// InitialBackoff and capped at MaxBackoff.
func (p *AdaptivePolicy) backoff(attempt int) time.Duration {
	initial := p.InitialBackoff
	if initial <= 0 {
		initial = time.Second
	}
	ceiling := p.MaxBackoff
	if ceiling <= 0 {
		ceiling = time.Minute
	}
	delay := initial
	for i := 1; i < attempt && delay < ceiling; i++ {
		delay *= 2
	}
	if delay > ceiling {
		return ceiling
	}
	return delay
}

// remainingWindow reports how much of an active throttle window is left.
// A bucket with zero remaining quota stays blocked until its reset time
// even when no explicit window was recorded.
func remainingWindow(state State, now time.Time) (time.Duration, bool) {
	if state.ThrottledUntil != nil && now.Before(*state.ThrottledUntil) {
		return state.ThrottledUntil.Sub(now), true
	}
	if state.Remaining == 0 && state.ResetAt != nil && now.Before(*state.ResetAt) {
		return state.ResetAt.Sub(now), true
	}
	return 0, false
}

type vendorLimits struct {
	limit     *int
	remaining *int
	resetAt   *time.Time
}

// readVendorLimits folds the X-RateLimit-* response headers in one pass.
// Header names compare case-insensitively; unparseable values are ignored.
func readVendorLimits(headers map[string]string) vendorLimits {
	var out vendorLimits
	for name, raw := range headers {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "x-ratelimit-limit":
			if parsed, err := strconv.Atoi(value); err == nil {
				out.limit = &parsed
			}
		case "x-ratelimit-remaining":
			if parsed, err := strconv.Atoi(value); err == nil {
				out.remaining = &parsed
			}
		case "x-ratelimit-reset":
			if unix, err := strconv.ParseInt(value, 10, 64); err == nil && unix > 0 {
				at := time.Unix(unix, 0).UTC()
				out.resetAt = &at
			}
		}
	}
	return out
}

// retryHint prefers the Retry-After duration the transport already folded
// into the response meta; a bare seconds header is still accepted for
// callers that hand over raw headers. HTTP-date values are folded
// upstream by core.NewResponseMeta.
func retryHint(res core.ResponseMeta) (time.Duration, bool) {
	if res.RetryAfter != nil && *res.RetryAfter > 0 {
		return *res.RetryAfter, true
	}
	for name, value := range res.Headers {
		if !strings.EqualFold(strings.TrimSpace(name), "retry-after") {
			continue
		}
		if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second, true
		}
		return 0, false
	}
	return 0, false
}

func canonicalKey(key core.RateLimitKey) core.RateLimitKey {
	return core.RateLimitKey{
		Environment: strings.ToLower(strings.TrimSpace(key.Environment)),
		Bucket:      strings.ToLower(strings.TrimSpace(key.Bucket)),
	}
}

// MemoryStateStore keeps throttle state in process, keyed by the
// canonical {environment, bucket} pair. Tests and the devkit use it;
// production installs persist state through store/sql so windows
// survive restarts.
type MemoryStateStore struct {
	mu    sync.RWMutex
	items map[core.RateLimitKey]State
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{items: map[core.RateLimitKey]State{}}
}

func (s *MemoryStateStore) Get(_ context.Context, key core.RateLimitKey) (State, error) {
	if s == nil {
		return State{}, fmt.Errorf("ratelimit: state store is nil")
	}
	s.mu.RLock()
	state, ok := s.items[canonicalKey(key)]
	s.mu.RUnlock()
	if !ok {
		return State{}, ErrStateNotFound
	}
	state.Metadata = cloneMetadata(state.Metadata)
	return state, nil
}

func (s *MemoryStateStore) Upsert(_ context.Context, state State) error {
	if s == nil {
		return fmt.Errorf("ratelimit: state store is nil")
	}
	state.Key = canonicalKey(state.Key)
	state.Metadata = cloneMetadata(state.Metadata)
	s.mu.Lock()
	s.items[state.Key] = state
	s.mu.Unlock()
	return nil
}

func cloneMetadata(metadata map[string]any) map[string]any {
	cloned := make(map[string]any, len(metadata))
	for key, value := range metadata {
		cloned[key] = value
	}
	return cloned
}

var _ core.RateLimitPolicy = (*AdaptivePolicy)(nil)
