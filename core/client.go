package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// TransportFactory builds the transport adapter for a resolved config.
// Installed by the composition root so core stays free of HTTP wiring.
type TransportFactory func(cfg Config) (TransportAdapter, error)

// TokenSourceDeps carries the collaborators a token source factory may
// use: the resolved config, the transport the client will call through,
// and the optional persistence hook pieces.
type TokenSourceDeps struct {
	Config          Config
	Transport       TransportAdapter
	TokenStore      TokenStore
	SecretProvider  SecretProvider
	RateLimitPolicy RateLimitPolicy
	Logger          Logger
	Now             func() time.Time
}

type TokenSourceFactory func(deps TokenSourceDeps) (TokenSource, error)

// Client is the typed CERM API client. All operations fetch a bearer
// token from the token source per call and go through the transport
// adapter; callers never pass tokens around.
type Client struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	secretProvider    SecretProvider
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	transport         TransportAdapter
	tokenSource       TokenSource
	tokenStore        TokenStore
	activitySink      ActivitySink
	rateLimitPolicy   RateLimitPolicy
	jobEnqueuer       JobEnqueuer
	now               func() time.Time
}

type ClientDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	SecretProvider    SecretProvider
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	Transport         TransportAdapter
	TokenSource       TokenSource
	TokenStore        TokenStore
	ActivitySink      ActivitySink
	RateLimitPolicy   RateLimitPolicy
	JobEnqueuer       JobEnqueuer
}

func NewClient(cfg Config, options ...Option) (*Client, error) {
	builder := defaultClientBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("cerm", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("cerm"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if (builder.tokenStore == nil || builder.activitySink == nil) && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			storeProvider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if storeProvider != nil {
				if builder.tokenStore == nil {
					builder.tokenStore = storeProvider.TokenStore()
				}
				if builder.activitySink == nil {
					builder.activitySink = storeProvider.ActivityStore()
				}
			}
		} else if storeProvider, ok := builder.repositoryFactory.(StoreProvider); ok {
			if builder.tokenStore == nil {
				builder.tokenStore = storeProvider.TokenStore()
			}
			if builder.activitySink == nil {
				builder.activitySink = storeProvider.ActivityStore()
			}
		}
	}

	if builder.transport == nil && builder.transportFactory != nil {
		adapter, buildErr := builder.transportFactory(finalConfig)
		if buildErr != nil {
			return nil, mapBuildError(builder.errorMapper, buildErr)
		}
		builder.transport = adapter
	}
	if builder.tokenSource == nil && builder.tokenSourceFactory != nil {
		source, buildErr := builder.tokenSourceFactory(TokenSourceDeps{
			Config:          finalConfig,
			Transport:       builder.transport,
			TokenStore:      builder.tokenStore,
			SecretProvider:  builder.secretProvider,
			RateLimitPolicy: builder.rateLimitPolicy,
			Logger:          logger,
			Now:             builder.now,
		})
		if buildErr != nil {
			return nil, mapBuildError(builder.errorMapper, buildErr)
		}
		builder.tokenSource = source
	}
	if builder.transport == nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: transport adapter is required"))
	}
	if builder.tokenSource == nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: token source is required"))
	}

	return &Client{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		secretProvider:    builder.secretProvider,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		transport:         builder.transport,
		tokenSource:       builder.tokenSource,
		tokenStore:        builder.tokenStore,
		activitySink:      builder.activitySink,
		rateLimitPolicy:   builder.rateLimitPolicy,
		jobEnqueuer:       builder.jobEnqueuer,
		now:               builder.now,
	}, nil
}

func Setup(cfg Config, options ...Option) (*Client, error) {
	return NewClient(cfg, options...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (c *Client) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.config
}

func (c *Client) Dependencies() ClientDependencies {
	if c == nil {
		return ClientDependencies{}
	}
	return ClientDependencies{
		Logger:            c.logger,
		LoggerProvider:    c.loggerProvider,
		MetricsRecorder:   c.metricsRecorder,
		ErrorFactory:      c.errorFactory,
		ErrorMapper:       c.errorMapper,
		SecretProvider:    c.secretProvider,
		PersistenceClient: c.persistenceClient,
		RepositoryFactory: c.repositoryFactory,
		ConfigProvider:    c.configProvider,
		OptionsResolver:   c.optionsResolver,
		Transport:         c.transport,
		TokenSource:       c.tokenSource,
		TokenStore:        c.tokenStore,
		ActivitySink:      c.activitySink,
		RateLimitPolicy:   c.rateLimitPolicy,
		JobEnqueuer:       c.jobEnqueuer,
	}
}

func (c *Client) Environment() string {
	return NormalizeEnvironmentName(c.Config().Environment)
}

// InvalidateToken drops the cached token so the next operation fetches a
// fresh one, and revokes the persisted active snapshot when a token store
// is wired.
func (c *Client) InvalidateToken(ctx context.Context) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"environment": c.Environment(),
	}
	defer func() {
		c.observeOperation(ctx, startedAt, "invalidate_token", err, fields)
	}()

	if c == nil || c.tokenSource == nil {
		err = c.mapError(fmt.Errorf("core: token source is not configured"))
		return err
	}
	c.tokenSource.Invalidate()
	if c.tokenStore != nil {
		if revokeErr := c.tokenStore.RevokeActive(ctx, c.Environment(), "invalidated"); revokeErr != nil && !errors.Is(revokeErr, ErrTokenNotFound) {
			err = c.mapError(revokeErr)
			return err
		}
	}
	return nil
}

// ListActivity reads back recorded operation audit entries.
func (c *Client) ListActivity(ctx context.Context, filter ActivityFilter) (page ActivityPage, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"environment": c.Environment(),
	}
	defer func() {
		c.observeOperation(ctx, startedAt, "list_activity", err, fields)
	}()

	if c == nil || c.activitySink == nil {
		err = c.mapError(fmt.Errorf("core: activity sink is not configured"))
		return ActivityPage{}, err
	}
	page, err = c.activitySink.List(ctx, filter)
	if err != nil {
		err = c.mapError(err)
		return ActivityPage{}, err
	}
	return page, nil
}

// QueueValidateAddress enqueues a bidirectional validation for background
// execution. Requires a job enqueuer.
func (c *Client) QueueValidateAddress(ctx context.Context, query AddressQuery) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"environment": c.Environment(),
		"customer_id": strings.TrimSpace(query.CustomerID),
	}
	defer func() {
		c.observeOperation(ctx, startedAt, "queue_validate_address", err, fields)
	}()

	if c == nil || c.jobEnqueuer == nil {
		err = c.mapError(fmt.Errorf("core: job enqueuer is not configured"))
		return err
	}
	if err = query.Validate(); err != nil {
		err = c.mapError(err)
		return err
	}
	message := &JobExecutionMessage{
		JobID: JobValidateAddress,
		Parameters: map[string]any{
			"customer_id": strings.TrimSpace(query.CustomerID),
			"postal_code": strings.TrimSpace(query.PostalCode),
			"street":      strings.TrimSpace(query.Street),
			"city":        strings.TrimSpace(query.City),
			"country_id":  strings.TrimSpace(query.CountryID),
		},
	}
	if err = c.jobEnqueuer.Enqueue(ctx, message); err != nil {
		err = c.mapError(err)
		return err
	}
	return nil
}

// invoke runs one authenticated vendor call: token, rate limit gate,
// transport round trip, rate limit fold.
func (c *Client) invoke(ctx context.Context, bucket string, req TransportRequest) (TransportResponse, error) {
	if c == nil {
		return TransportResponse{}, newClientError("client is not initialized", goerrors.CategoryInternal, ClientErrorInternal)
	}
	if c.transport == nil {
		return TransportResponse{}, newClientError("transport adapter is not configured", goerrors.CategoryInternal, ClientErrorInternal)
	}
	if c.tokenSource == nil {
		return TransportResponse{}, newClientError("token source is not configured", goerrors.CategoryInternal, ClientErrorInternal)
	}

	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return TransportResponse{}, c.mapError(err)
	}

	headers := map[string]string{}
	for key, value := range req.Headers {
		headers[key] = value
	}
	headers["Authorization"] = "Bearer " + strings.TrimSpace(token.AccessToken)
	req.Headers = headers
	if req.Timeout <= 0 {
		req.Timeout = c.config.HTTP.RequestTimeout
	}

	key := RateLimitKey{Environment: c.Environment(), Bucket: bucket}
	if c.rateLimitPolicy != nil {
		if gateErr := c.rateLimitPolicy.BeforeCall(ctx, key); gateErr != nil {
			return TransportResponse{}, c.mapError(gateErr)
		}
	}
	res, err := c.transport.Do(ctx, req)
	if err != nil {
		return TransportResponse{}, c.mapError(err)
	}
	if c.rateLimitPolicy != nil {
		if foldErr := c.rateLimitPolicy.AfterCall(ctx, key, NewResponseMeta(res)); foldErr != nil {
			return TransportResponse{}, c.mapError(foldErr)
		}
	}
	return res, nil
}

func (c *Client) mapError(err error) error {
	if err == nil {
		return nil
	}
	if c == nil || c.errorMapper == nil {
		return err
	}
	mapped := c.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (c *Client) nowTime() time.Time {
	if c != nil && c.now != nil {
		return c.now().UTC()
	}
	return time.Now().UTC()
}

// recordActivity appends an audit entry for a mutating operation.
// Failures are logged, never surfaced; auditing must not fail the call.
func (c *Client) recordActivity(ctx context.Context, operation string, status ActivityStatus, statusCode int, startedAt time.Time, metadata map[string]any) {
	if c == nil || c.activitySink == nil {
		return
	}
	entry := ActivityEntry{
		Environment: c.Environment(),
		Operation:   normalizeOperation(operation),
		Status:      status,
		StatusCode:  statusCode,
		DurationMS:  time.Since(startedAt).Milliseconds(),
		Metadata:    RedactSensitiveMap(metadata),
		CreatedAt:   c.nowTime(),
	}
	if err := c.activitySink.Record(ctx, entry); err != nil {
		c.logError(ctx, "activity record failed", map[string]any{
			"operation": entry.Operation,
			"error":     err.Error(),
		})
	}
}
