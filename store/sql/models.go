package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type tokenRecord struct {
	bun.BaseModel `bun:"table:cerm_tokens,alias:ct"`

	ID                string     `bun:"id,pk"`
	Environment       string     `bun:"environment,notnull"`
	Version           int        `bun:"version,notnull"`
	EncryptedPayload  []byte     `bun:"encrypted_payload,notnull"`
	TokenType         string     `bun:"token_type,notnull"`
	ExpiresAt         *time.Time `bun:"expires_at,nullzero"`
	Status            string     `bun:"status,notnull"`
	RevocationReason  string     `bun:"revocation_reason,notnull"`
	EncryptionKeyID   string     `bun:"encryption_key_id,notnull"`
	EncryptionVersion int        `bun:"encryption_version,notnull"`
	CreatedAt         time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type activityEntryRecord struct {
	bun.BaseModel `bun:"table:cerm_activity_entries,alias:cae"`

	ID          string         `bun:"id,pk"`
	Environment string         `bun:"environment,notnull"`
	Operation   string         `bun:"operation,notnull"`
	Status      string         `bun:"status,notnull"`
	StatusCode  int            `bun:"status_code,notnull"`
	DurationMS  int64          `bun:"duration_ms,notnull"`
	Metadata    map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt   time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type rateLimitStateRecord struct {
	bun.BaseModel `bun:"table:cerm_rate_limit_states,alias:crls"`

	ID             string         `bun:"id,pk"`
	Environment    string         `bun:"environment,notnull"`
	Bucket         string         `bun:"bucket,notnull"`
	Limit          int            `bun:"rate_limit,notnull"`
	Remaining      int            `bun:"remaining,notnull"`
	ResetAt        *time.Time     `bun:"reset_at,nullzero"`
	RetryAfter     *int           `bun:"retry_after_seconds,nullzero"`
	ThrottledUntil *time.Time     `bun:"throttled_until,nullzero"`
	Attempts       int            `bun:"attempts"`
	LastStatus     int            `bun:"last_status"`
	Metadata       map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt      time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
