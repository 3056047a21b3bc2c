package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type clientBuilder struct {
	runtimeConfig      Config
	logger             Logger
	loggerProvider     LoggerProvider
	metricsRecorder    MetricsRecorder
	errorFactory       ErrorFactory
	errorMapper        ErrorMapper
	secretProvider     SecretProvider
	persistenceClient  any
	repositoryFactory  any
	configProvider     ConfigProvider
	optionsResolver    OptionsResolver
	transport          TransportAdapter
	transportFactory   TransportFactory
	tokenSource        TokenSource
	tokenSourceFactory TokenSourceFactory
	tokenStore         TokenStore
	activitySink       ActivitySink
	rateLimitPolicy    RateLimitPolicy
	jobEnqueuer        JobEnqueuer
	now                func() time.Time
}

type Option func(*clientBuilder)

func WithLogger(logger Logger) Option {
	return func(b *clientBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *clientBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *clientBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *clientBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *clientBuilder) {
		b.errorMapper = mapper
	}
}

func WithSecretProvider(provider SecretProvider) Option {
	return func(b *clientBuilder) {
		b.secretProvider = provider
	}
}

func WithPersistenceClient(client any) Option {
	return func(b *clientBuilder) {
		b.persistenceClient = client
	}
}

func WithRepositoryFactory(factory any) Option {
	return func(b *clientBuilder) {
		b.repositoryFactory = factory
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *clientBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *clientBuilder) {
		b.optionsResolver = resolver
	}
}

func WithTransport(adapter TransportAdapter) Option {
	return func(b *clientBuilder) {
		b.transport = adapter
	}
}

func WithTransportFactory(factory TransportFactory) Option {
	return func(b *clientBuilder) {
		b.transportFactory = factory
	}
}

func WithTokenSource(source TokenSource) Option {
	return func(b *clientBuilder) {
		b.tokenSource = source
	}
}

func WithTokenSourceFactory(factory TokenSourceFactory) Option {
	return func(b *clientBuilder) {
		b.tokenSourceFactory = factory
	}
}

func WithTokenStore(store TokenStore) Option {
	return func(b *clientBuilder) {
		b.tokenStore = store
	}
}

func WithActivitySink(sink ActivitySink) Option {
	return func(b *clientBuilder) {
		b.activitySink = sink
	}
}

func WithRateLimitPolicy(policy RateLimitPolicy) Option {
	return func(b *clientBuilder) {
		b.rateLimitPolicy = policy
	}
}

func WithJobEnqueuer(enqueuer JobEnqueuer) Option {
	return func(b *clientBuilder) {
		b.jobEnqueuer = enqueuer
	}
}

func WithNow(now func() time.Time) Option {
	return func(b *clientBuilder) {
		b.now = now
	}
}

func defaultClientBuilder(runtime Config) clientBuilder {
	loggerProvider, logger := glog.Resolve("cerm", nil, nil)
	return clientBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorFactory:    goerrors.New,
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return clientErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || strings.TrimSpace(cfg.Environment) != "" {
		layer["environment"] = cfg.Environment
	}
	if includeZero || len(cfg.Environments) > 0 {
		environments := map[string]any{}
		for name, env := range cfg.Environments {
			environments[NormalizeEnvironmentName(name)] = map[string]any{
				"base_url":    env.BaseURL,
				"host_header": env.HostHeader,
			}
		}
		layer["environments"] = environments
	}

	credentials := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Credentials.ClientID) != "" {
		credentials["client_id"] = cfg.Credentials.ClientID
	}
	if includeZero || strings.TrimSpace(cfg.Credentials.ClientSecret) != "" {
		credentials["client_secret"] = cfg.Credentials.ClientSecret
	}
	if includeZero || strings.TrimSpace(cfg.Credentials.Username) != "" {
		credentials["username"] = cfg.Credentials.Username
	}
	if includeZero || strings.TrimSpace(cfg.Credentials.Password) != "" {
		credentials["password"] = cfg.Credentials.Password
	}
	if len(credentials) > 0 {
		layer["credentials"] = credentials
	}

	httpLayer := map[string]any{}
	if includeZero || cfg.HTTP.RequestTimeout > 0 {
		httpLayer["request_timeout"] = cfg.HTTP.RequestTimeout
	}
	if includeZero || cfg.HTTP.MaxResponseBodyBytes > 0 {
		httpLayer["max_response_body_bytes"] = cfg.HTTP.MaxResponseBodyBytes
	}
	if len(httpLayer) > 0 {
		layer["http"] = httpLayer
	}

	tokenLayer := map[string]any{}
	if includeZero || cfg.Token.RequestTimeout > 0 {
		tokenLayer["request_timeout"] = cfg.Token.RequestTimeout
	}
	if includeZero || cfg.Token.ExpirySkew > 0 {
		tokenLayer["expiry_skew"] = cfg.Token.ExpirySkew
	}
	if len(tokenLayer) > 0 {
		layer["token"] = tokenLayer
	}
	return layer
}
