package core

import (
	"context"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type TransportRequest struct {
	Method      string
	URL         string
	Headers     map[string]string
	Query       map[string]string
	Body        []byte
	Metadata    map[string]any
	Timeout     time.Duration
	Idempotency string
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

// Token is the bearer credential issued by the vendor token endpoint.
// ExpiresAt already folds in the configured expiry skew; a token is served
// from cache only while the current instant is before it.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int64
	ExpiresAt   time.Time
}

func (t Token) Valid(now time.Time) bool {
	if strings.TrimSpace(t.AccessToken) == "" {
		return false
	}
	if t.ExpiresAt.IsZero() {
		return false
	}
	return now.Before(t.ExpiresAt)
}

// TokenSource hands out a valid access token, fetching a fresh one when the
// cached slot is empty or expired. Invalidate discards the cached token so
// the next call fetches again.
type TokenSource interface {
	Token(ctx context.Context) (Token, error)
	Invalidate()
}

type RateLimitKey struct {
	Environment string
	Bucket      string
}

type ResponseMeta struct {
	StatusCode int
	Headers    map[string]string
	RetryAfter *time.Duration
	Metadata   map[string]any
}

type RateLimitPolicy interface {
	BeforeCall(ctx context.Context, key RateLimitKey) error
	AfterCall(ctx context.Context, key RateLimitKey, res ResponseMeta) error
}

type SaveTokenInput struct {
	Environment       string
	EncryptedPayload  []byte
	TokenType         string
	ExpiresAt         *time.Time
	Status            TokenStatus
	EncryptionKeyID   string
	EncryptionVersion int
}

// TokenStore persists versioned snapshots of issued tokens, one active row
// per environment.
type TokenStore interface {
	SaveNewVersion(ctx context.Context, in SaveTokenInput) (TokenRecord, error)
	GetActiveByEnvironment(ctx context.Context, environment string) (TokenRecord, error)
	RevokeActive(ctx context.Context, environment string, reason string) error
}

type ActivityFilter struct {
	Environment string
	Operation   string
	Status      ActivityStatus
	From        *time.Time
	To          *time.Time
	Page        int
	PerPage     int
}

type ActivityPage struct {
	Items   []ActivityEntry
	Page    int
	PerPage int
	Total   int
	HasNext bool
}

type ActivitySink interface {
	Record(ctx context.Context, entry ActivityEntry) error
	List(ctx context.Context, filter ActivityFilter) (ActivityPage, error)
}

type StoreProvider interface {
	TokenStore() TokenStore
	ActivityStore() ActivitySink
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type SecretProvider interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

// Job ids the client enqueues for background execution.
const (
	JobValidateAddress  = "cerm.validate_address"
	JobSubmitSalesOrder = "cerm.salesorder.submit"
)

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

type CommandMessage interface {
	Type() string
}

type CommandDispatcher interface {
	Dispatch(ctx context.Context, msg any) error
}
