package core

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type transportScript struct {
	res TransportResponse
	err error
}

type scriptedTransport struct {
	mu       sync.Mutex
	scripts  []transportScript
	requests []TransportRequest
}

func (t *scriptedTransport) Kind() string { return "scripted" }

func (t *scriptedTransport) Do(_ context.Context, req TransportRequest) (TransportResponse, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, req)
	if len(t.scripts) == 0 {
		return TransportResponse{StatusCode: 200}, nil
	}
	index := len(t.requests) - 1
	if index >= len(t.scripts) {
		index = len(t.scripts) - 1
	}
	return t.scripts[index].res, t.scripts[index].err
}

func (t *scriptedTransport) calls() []TransportRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]TransportRequest(nil), t.requests...)
}

func jsonResponse(statusCode int, body string) TransportResponse {
	return TransportResponse{
		StatusCode: statusCode,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(body),
	}
}

type stubTokenSource struct {
	token       Token
	err         error
	calls       int
	invalidated int
}

func newStubTokenSource() *stubTokenSource {
	return &stubTokenSource{token: Token{
		AccessToken: "tok_abc",
		TokenType:   "bearer",
		ExpiresAt:   time.Now().UTC().Add(time.Hour),
	}}
}

func (s *stubTokenSource) Token(context.Context) (Token, error) {
	s.calls++
	if s.err != nil {
		return Token{}, s.err
	}
	return s.token, nil
}

func (s *stubTokenSource) Invalidate() { s.invalidated++ }

type memoryActivitySink struct {
	entries   []ActivityEntry
	recordErr error
	listErr   error
}

func (s *memoryActivitySink) Record(_ context.Context, entry ActivityEntry) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memoryActivitySink) List(context.Context, ActivityFilter) (ActivityPage, error) {
	if s.listErr != nil {
		return ActivityPage{}, s.listErr
	}
	items := append([]ActivityEntry(nil), s.entries...)
	return ActivityPage{Items: items, Page: 1, PerPage: len(items), Total: len(items)}, nil
}

type stubTokenStore struct {
	revokedEnv    string
	revokedReason string
	revokeErr     error
}

func (s *stubTokenStore) SaveNewVersion(_ context.Context, in SaveTokenInput) (TokenRecord, error) {
	return TokenRecord{Environment: in.Environment, Version: 1, Status: TokenStatusActive}, nil
}

func (s *stubTokenStore) GetActiveByEnvironment(context.Context, string) (TokenRecord, error) {
	return TokenRecord{}, ErrTokenNotFound
}

func (s *stubTokenStore) RevokeActive(_ context.Context, environment string, reason string) error {
	if s.revokeErr != nil {
		return s.revokeErr
	}
	s.revokedEnv = environment
	s.revokedReason = reason
	return nil
}

type stubRateLimitPolicy struct {
	beforeErr   error
	beforeCalls int
	afterMetas  []ResponseMeta
}

func (p *stubRateLimitPolicy) BeforeCall(context.Context, RateLimitKey) error {
	p.beforeCalls++
	return p.beforeErr
}

func (p *stubRateLimitPolicy) AfterCall(_ context.Context, _ RateLimitKey, res ResponseMeta) error {
	p.afterMetas = append(p.afterMetas, res)
	return nil
}

type stubJobEnqueuer struct {
	last *JobExecutionMessage
	err  error
}

func (e *stubJobEnqueuer) Enqueue(_ context.Context, msg *JobExecutionMessage) error {
	if e.err != nil {
		return e.err
	}
	e.last = msg
	return nil
}

var (
	_ TransportAdapter = (*scriptedTransport)(nil)
	_ TokenSource      = (*stubTokenSource)(nil)
	_ ActivitySink     = (*memoryActivitySink)(nil)
	_ TokenStore       = (*stubTokenStore)(nil)
	_ RateLimitPolicy  = (*stubRateLimitPolicy)(nil)
	_ JobEnqueuer      = (*stubJobEnqueuer)(nil)
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Environments[EnvironmentTest] = EnvironmentConfig{
		BaseURL:    "https://customer.cerm.example",
		HostHeader: "customer.cerm.example",
	}
	cfg.Credentials = CredentialsConfig{
		ClientID:     "client_1",
		ClientSecret: "secret_1",
		Username:     "api_user",
		Password:     "api_pass",
	}
	return cfg
}

func newTestClient(t *testing.T, transport *scriptedTransport, options ...Option) *Client {
	t.Helper()
	base := []Option{
		WithTransport(transport),
		WithTokenSource(newStubTokenSource()),
	}
	client, err := NewClient(testConfig(), append(base, options...)...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClient_RequiresTransport(t *testing.T) {
	_, err := NewClient(testConfig(), WithTokenSource(newStubTokenSource()))
	if err == nil {
		t.Fatalf("expected error without transport adapter")
	}
	if !strings.Contains(err.Error(), "transport adapter is required") {
		t.Fatalf("expected transport requirement message, got %q", err.Error())
	}
}

func TestNewClient_RequiresTokenSource(t *testing.T) {
	_, err := NewClient(testConfig(), WithTransport(&scriptedTransport{}))
	if err == nil {
		t.Fatalf("expected error without token source")
	}
	if !strings.Contains(err.Error(), "token source is required") {
		t.Fatalf("expected token source requirement message, got %q", err.Error())
	}
}

func TestNewClient_RejectsIncompleteConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Credentials.Password = ""
	_, err := NewClient(cfg,
		WithTransport(&scriptedTransport{}),
		WithTokenSource(newStubTokenSource()),
	)
	if err == nil {
		t.Fatalf("expected config validation error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.TextCode != ClientErrorBadInput {
		t.Fatalf("expected %s, got %q", ClientErrorBadInput, richErr.TextCode)
	}
}

func TestClient_InvokeAttachesBearerTokenAndTimeout(t *testing.T) {
	transport := &scriptedTransport{scripts: []transportScript{
		{res: jsonResponse(200, `[{"AddressID":"412"}]`)},
	}}
	client := newTestClient(t, transport)

	if _, err := client.FetchAddressID(context.Background(), AddressQuery{
		CustomerID: "C100",
		PostalCode: "9000",
		Street:     "Main Street 1",
		City:       "Ghent",
		CountryID:  "BE",
	}); err != nil {
		t.Fatalf("fetch address id: %v", err)
	}

	requests := transport.calls()
	if len(requests) != 1 {
		t.Fatalf("expected 1 transport call, got %d", len(requests))
	}
	if got := requests[0].Headers["Authorization"]; got != "Bearer tok_abc" {
		t.Fatalf("expected bearer header, got %q", got)
	}
	if requests[0].Timeout != DefaultRequestTimeout {
		t.Fatalf("expected default request timeout, got %s", requests[0].Timeout)
	}
}

func TestClient_InvokeSurfacesTokenSourceFailure(t *testing.T) {
	transport := &scriptedTransport{}
	source := newStubTokenSource()
	source.err = goerrors.New("token endpoint rejected credentials", goerrors.CategoryAuth)
	client := newTestClient(t, transport, WithTokenSource(source))

	_, err := client.GetAddress(context.Background(), "412")
	if err == nil {
		t.Fatalf("expected token failure to surface")
	}
	if !IsAuthFailure(err) {
		t.Fatalf("expected auth failure classification, got %v", err)
	}
	if len(transport.calls()) != 0 {
		t.Fatalf("expected no transport call after token failure")
	}
}

func TestClient_RateLimitGateBlocksCall(t *testing.T) {
	transport := &scriptedTransport{}
	policy := &stubRateLimitPolicy{
		beforeErr: goerrors.New("bucket custom-api is rate limited", goerrors.CategoryRateLimit),
	}
	client := newTestClient(t, transport, WithRateLimitPolicy(policy))

	_, err := client.FetchAddressID(context.Background(), AddressQuery{
		CustomerID: "C100",
		PostalCode: "9000",
		Street:     "Main Street 1",
		City:       "Ghent",
		CountryID:  "BE",
	})
	if err == nil {
		t.Fatalf("expected rate limit gate to block call")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != ClientErrorRateLimited {
		t.Fatalf("expected %s, got %v", ClientErrorRateLimited, err)
	}
	if policy.beforeCalls != 1 {
		t.Fatalf("expected one gate check, got %d", policy.beforeCalls)
	}
	if len(transport.calls()) != 0 {
		t.Fatalf("expected blocked call to skip transport")
	}
}

func TestClient_RateLimitFoldSeesRetryAfter(t *testing.T) {
	res := jsonResponse(200, `[{"AddressID":"412"}]`)
	res.Headers["Retry-After"] = "7"
	transport := &scriptedTransport{scripts: []transportScript{{res: res}}}
	policy := &stubRateLimitPolicy{}
	client := newTestClient(t, transport, WithRateLimitPolicy(policy))

	if _, err := client.FetchAddressID(context.Background(), AddressQuery{
		CustomerID: "C100",
		PostalCode: "9000",
		Street:     "Main Street 1",
		City:       "Ghent",
		CountryID:  "BE",
	}); err != nil {
		t.Fatalf("fetch address id: %v", err)
	}

	if len(policy.afterMetas) != 1 {
		t.Fatalf("expected one after-call fold, got %d", len(policy.afterMetas))
	}
	meta := policy.afterMetas[0]
	if meta.StatusCode != 200 {
		t.Fatalf("expected folded status 200, got %d", meta.StatusCode)
	}
	if meta.RetryAfter == nil || *meta.RetryAfter != 7*time.Second {
		t.Fatalf("expected Retry-After fold of 7s, got %#v", meta.RetryAfter)
	}
}

func TestClient_InvalidateTokenDropsCacheAndRevokesSnapshot(t *testing.T) {
	source := newStubTokenSource()
	store := &stubTokenStore{}
	client := newTestClient(t, &scriptedTransport{},
		WithTokenSource(source),
		WithTokenStore(store),
	)

	if err := client.InvalidateToken(context.Background()); err != nil {
		t.Fatalf("invalidate token: %v", err)
	}
	if source.invalidated != 1 {
		t.Fatalf("expected cache invalidation, got %d", source.invalidated)
	}
	if store.revokedEnv != EnvironmentTest || store.revokedReason != "invalidated" {
		t.Fatalf("expected revoke of active snapshot, got %q/%q", store.revokedEnv, store.revokedReason)
	}
}

func TestClient_InvalidateTokenIgnoresMissingSnapshot(t *testing.T) {
	source := newStubTokenSource()
	store := &stubTokenStore{revokeErr: ErrTokenNotFound}
	client := newTestClient(t, &scriptedTransport{},
		WithTokenSource(source),
		WithTokenStore(store),
	)

	if err := client.InvalidateToken(context.Background()); err != nil {
		t.Fatalf("expected missing snapshot to be ignored, got %v", err)
	}
	if source.invalidated != 1 {
		t.Fatalf("expected cache invalidation even without a stored token")
	}
}

func TestClient_ListActivityRequiresSink(t *testing.T) {
	client := newTestClient(t, &scriptedTransport{})
	_, err := client.ListActivity(context.Background(), ActivityFilter{})
	if err == nil {
		t.Fatalf("expected error without activity sink")
	}
	if !strings.Contains(err.Error(), "activity sink is not configured") {
		t.Fatalf("unexpected error message: %q", err.Error())
	}
}

func TestClient_ListActivityReadsBackEntries(t *testing.T) {
	sink := &memoryActivitySink{entries: []ActivityEntry{
		{ID: "act_1", Environment: EnvironmentTest, Operation: "create_address", Status: ActivityStatusOK},
	}}
	client := newTestClient(t, &scriptedTransport{}, WithActivitySink(sink))

	page, err := client.ListActivity(context.Background(), ActivityFilter{Environment: EnvironmentTest})
	if err != nil {
		t.Fatalf("list activity: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].Operation != "create_address" {
		t.Fatalf("unexpected activity page: %#v", page)
	}
}

func TestClient_QueueValidateAddress(t *testing.T) {
	enqueuer := &stubJobEnqueuer{}
	client := newTestClient(t, &scriptedTransport{}, WithJobEnqueuer(enqueuer))

	err := client.QueueValidateAddress(context.Background(), AddressQuery{
		CustomerID: " C100 ",
		PostalCode: "9000",
		Street:     "Main Street 1",
		City:       "Ghent",
		CountryID:  "BE",
	})
	if err != nil {
		t.Fatalf("queue validate address: %v", err)
	}
	if enqueuer.last == nil || enqueuer.last.JobID != JobValidateAddress {
		t.Fatalf("expected %q job message, got %#v", JobValidateAddress, enqueuer.last)
	}
	if enqueuer.last.Parameters["customer_id"] != "C100" {
		t.Fatalf("expected trimmed customer id parameter, got %#v", enqueuer.last.Parameters["customer_id"])
	}
	if enqueuer.last.Parameters["country_id"] != "BE" {
		t.Fatalf("expected country id parameter, got %#v", enqueuer.last.Parameters["country_id"])
	}
}

func TestClient_QueueValidateAddressRequiresEnqueuer(t *testing.T) {
	client := newTestClient(t, &scriptedTransport{})
	err := client.QueueValidateAddress(context.Background(), AddressQuery{
		CustomerID: "C100",
		PostalCode: "9000",
		Street:     "Main Street 1",
		City:       "Ghent",
		CountryID:  "BE",
	})
	if err == nil {
		t.Fatalf("expected error without job enqueuer")
	}
	if !strings.Contains(err.Error(), "job enqueuer is not configured") {
		t.Fatalf("unexpected error message: %q", err.Error())
	}
}
