package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-cerm/core"
	"github.com/goliatone/go-cerm/ratelimit"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RateLimitStateStore persists one row per {environment, bucket} so a
// throttle window learned by one process is honored by every process
// talking to the same vendor host.
type RateLimitStateStore struct {
	db   *bun.DB
	repo repository.Repository[*rateLimitStateRecord]
}

func NewRateLimitStateStore(db *bun.DB) (*RateLimitStateStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*rateLimitStateRecord](db, rateLimitStateHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid rate-limit state repository wiring: %w", err)
		}
	}
	return &RateLimitStateStore{db: db, repo: repo}, nil
}

func (s *RateLimitStateStore) Get(ctx context.Context, key core.RateLimitKey) (ratelimit.State, error) {
	if s == nil || s.db == nil {
		return ratelimit.State{}, fmt.Errorf("sqlstore: rate-limit state store is not configured")
	}
	key = normalizeRateLimitKey(key)
	if err := validateRateLimitKey(key); err != nil {
		return ratelimit.State{}, err
	}

	record, err := selectRateLimitState(ctx, s.db, key)
	if err != nil {
		return ratelimit.State{}, err
	}
	if record == nil {
		return ratelimit.State{}, ratelimit.ErrStateNotFound
	}
	return record.toDomain(), nil
}

func (s *RateLimitStateStore) Upsert(ctx context.Context, state ratelimit.State) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: rate-limit state store is not configured")
	}
	state.Key = normalizeRateLimitKey(state.Key)
	if err := validateRateLimitKey(state.Key); err != nil {
		return err
	}
	if state.UpdatedAt.IsZero() {
		state.UpdatedAt = time.Now().UTC()
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := selectRateLimitState(ctx, tx, state.Key)
		if err != nil {
			return err
		}
		record := recordFromState(state, existing)
		if existing == nil {
			_, err = tx.NewInsert().Model(record).Exec(ctx)
			return err
		}
		_, err = tx.NewUpdate().Model(record).Where("id = ?", record.ID).Exec(ctx)
		return err
	})
}

// selectRateLimitState works against *bun.DB and bun.Tx alike; a missing
// row comes back as nil, nil.
func selectRateLimitState(ctx context.Context, db bun.IDB, key core.RateLimitKey) (*rateLimitStateRecord, error) {
	record := &rateLimitStateRecord{}
	err := db.NewSelect().
		Model(record).
		Where("?TableAlias.environment = ?", key.Environment).
		Where("?TableAlias.bucket = ?", key.Bucket).
		OrderExpr("?TableAlias.updated_at DESC").
		Limit(1).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func recordFromState(state ratelimit.State, existing *rateLimitStateRecord) *rateLimitStateRecord {
	record := existing
	if record == nil {
		record = &rateLimitStateRecord{
			ID:        uuid.NewString(),
			CreatedAt: state.UpdatedAt.UTC(),
		}
	}
	record.Environment = state.Key.Environment
	record.Bucket = state.Key.Bucket
	record.Limit = state.Limit
	record.Remaining = state.Remaining
	record.Attempts = state.Attempts
	record.LastStatus = state.LastStatus
	record.Metadata = copyAnyMap(state.Metadata)
	record.UpdatedAt = state.UpdatedAt.UTC()
	record.ResetAt = utcTimePointer(state.ResetAt)
	record.ThrottledUntil = utcTimePointer(state.ThrottledUntil)
	record.RetryAfter = wholeSecondsPointer(state.RetryAfter)
	return record
}

func (r *rateLimitStateRecord) toDomain() ratelimit.State {
	if r == nil {
		return ratelimit.State{}
	}
	state := ratelimit.State{
		Key: core.RateLimitKey{
			Environment: r.Environment,
			Bucket:      r.Bucket,
		},
		Limit:          r.Limit,
		Remaining:      r.Remaining,
		Attempts:       r.Attempts,
		LastStatus:     r.LastStatus,
		UpdatedAt:      r.UpdatedAt,
		Metadata:       copyAnyMap(r.Metadata),
		ResetAt:        utcTimePointer(r.ResetAt),
		ThrottledUntil: utcTimePointer(r.ThrottledUntil),
	}
	if r.RetryAfter != nil && *r.RetryAfter > 0 {
		value := time.Duration(*r.RetryAfter) * time.Second
		state.RetryAfter = &value
	}
	return state
}

func normalizeRateLimitKey(key core.RateLimitKey) core.RateLimitKey {
	return core.RateLimitKey{
		Environment: strings.TrimSpace(strings.ToLower(key.Environment)),
		Bucket:      strings.TrimSpace(strings.ToLower(key.Bucket)),
	}
}

func validateRateLimitKey(key core.RateLimitKey) error {
	if strings.TrimSpace(key.Environment) == "" {
		return fmt.Errorf("sqlstore: rate-limit environment is required")
	}
	if strings.TrimSpace(key.Bucket) == "" {
		return fmt.Errorf("sqlstore: rate-limit bucket is required")
	}
	return nil
}

func utcTimePointer(input *time.Time) *time.Time {
	if input == nil {
		return nil
	}
	value := input.UTC()
	return &value
}

// wholeSecondsPointer rounds sub-second hints up so a short window is
// never persisted as zero.
func wholeSecondsPointer(input *time.Duration) *int {
	if input == nil || *input <= 0 {
		return nil
	}
	seconds := int(input.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return &seconds
}

var _ ratelimit.StateStore = (*RateLimitStateStore)(nil)
