package cerm

import "github.com/goliatone/go-cerm/core"

type Config = core.Config

type EnvironmentConfig = core.EnvironmentConfig

type Option = core.Option

type Client = core.Client

type ClientDependencies = core.ClientDependencies
type TokenStore = core.TokenStore
type TokenSource = core.TokenSource
type ActivitySink = core.ActivitySink
type SecretProvider = core.SecretProvider
type RateLimitPolicy = core.RateLimitPolicy
type TransportAdapter = core.TransportAdapter
type JobEnqueuer = core.JobEnqueuer

type AddressQuery = core.AddressQuery
type CreateAddressRequest = core.CreateAddressRequest
type FetchCalculationIDRequest = core.FetchCalculationIDRequest

type AddressIDResult = core.AddressIDResult
type AddressDetailsResult = core.AddressDetailsResult
type CalculationIDResult = core.CalculationIDResult
type ProductResult = core.ProductResult
type SalesOrderResult = core.SalesOrderResult
type ValidationResult = core.ValidationResult

type ActivityFilter = core.ActivityFilter
type ActivityPage = core.ActivityPage

var (
	WithLogger             = core.WithLogger
	WithLoggerProvider     = core.WithLoggerProvider
	WithMetricsRecorder    = core.WithMetricsRecorder
	WithErrorFactory       = core.WithErrorFactory
	WithErrorMapper        = core.WithErrorMapper
	WithSecretProvider     = core.WithSecretProvider
	WithPersistenceClient  = core.WithPersistenceClient
	WithRepositoryFactory  = core.WithRepositoryFactory
	WithConfigProvider     = core.WithConfigProvider
	WithOptionsResolver    = core.WithOptionsResolver
	WithTransport          = core.WithTransport
	WithTransportFactory   = core.WithTransportFactory
	WithTokenSource        = core.WithTokenSource
	WithTokenSourceFactory = core.WithTokenSourceFactory
	WithTokenStore         = core.WithTokenStore
	WithActivitySink       = core.WithActivitySink
	WithRateLimitPolicy    = core.WithRateLimitPolicy
	WithJobEnqueuer        = core.WithJobEnqueuer
	WithNow                = core.WithNow
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	return core.NewClient(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Client, error) {
	return core.Setup(cfg, opts...)
}
