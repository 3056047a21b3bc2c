// Package gocommand wires the client's command and query handlers into
// go-command's registry and dispatcher. RegisterClient is the usual
// entry point: it subscribes every client handler in one call so hosts
// can dispatch cerm.command.* and cerm.query.* messages without
// touching go-command directly.
package gocommand

import (
	"context"
	"fmt"
	"strings"

	cermcommand "github.com/goliatone/go-cerm/command"
	cermquery "github.com/goliatone/go-cerm/query"
	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
)

// ValidateMessageContract checks a message the way the dispatcher will:
// a non-blank Type() plus an optional Validate() that must pass.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

// RegistryAdapter owns the go-command registry the client handlers
// register against.
type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) RegisterQuery(qry any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(qry)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

// AddQueueResolver mirrors registered commands into a go-job queue
// registry, so queued job messages can resolve back to the same
// handlers the dispatcher uses.
func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func SubscribeCommand[T any](cmd command.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func SubscribeCommandFunc[T any](handler command.CommandFunc[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(handler, runnerOpts...)
}

func SubscribeQuery[T any, R any](qry command.Querier[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func SubscribeQueryFunc[T any, R any](qry command.QueryFunc[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

// RegisterAndSubscribe registers a command on the adapter and
// subscribes it to the dispatcher as one unit. The subscription is
// torn down again when registration fails.
func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	subscription := SubscribeQuery(qry, runnerOpts...)
	if err := adapter.RegisterQuery(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// ClientService is the client surface RegisterClient builds handlers
// for. *core.Client satisfies it.
type ClientService interface {
	cermcommand.MutatingService
	cermquery.AddressReader
	cermquery.CalculationReader
	cermquery.AddressValidator
}

type ClientOption func(*clientOptions)

type clientOptions struct {
	activityReader cermquery.ActivityReader
	runnerOpts     []runner.Option
}

// WithActivityReader supplies the activity log reader explicitly,
// for hosts that keep the audit store separate from the client.
func WithActivityReader(reader cermquery.ActivityReader) ClientOption {
	return func(options *clientOptions) {
		options.activityReader = reader
	}
}

// WithRunnerOptions applies go-command runner options to every
// subscription RegisterClient makes.
func WithRunnerOptions(opts ...runner.Option) ClientOption {
	return func(options *clientOptions) {
		options.runnerOpts = append(options.runnerOpts, opts...)
	}
}

// ClientSubscriptions owns the dispatcher subscriptions made by
// RegisterClient.
type ClientSubscriptions struct {
	subscriptions []commanddispatcher.Subscription
}

// Unsubscribe removes every subscription, newest first.
func (s *ClientSubscriptions) Unsubscribe() {
	if s == nil {
		return
	}
	for i := len(s.subscriptions) - 1; i >= 0; i-- {
		if s.subscriptions[i] != nil {
			s.subscriptions[i].Unsubscribe()
		}
	}
	s.subscriptions = nil
}

// RegisterClient registers the client's five commands and its query
// handlers on the adapter and subscribes them to the dispatcher.
// Activity listing is wired only when the service also reads the
// activity log, or when WithActivityReader supplies a reader. Call
// Initialize on the adapter afterwards; a registration failure tears
// down the subscriptions already made.
func RegisterClient(adapter *RegistryAdapter, service ClientService, opts ...ClientOption) (*ClientSubscriptions, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if service == nil {
		return nil, fmt.Errorf("gocommand: client service is required")
	}

	cfg := clientOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	activityReader := cfg.activityReader
	if activityReader == nil {
		activityReader, _ = service.(cermquery.ActivityReader)
	}

	bundle := &ClientSubscriptions{}
	keep := func(sub commanddispatcher.Subscription, err error) error {
		if err != nil {
			bundle.Unsubscribe()
			return err
		}
		bundle.subscriptions = append(bundle.subscriptions, sub)
		return nil
	}

	if err := keep(RegisterAndSubscribe(adapter, cermcommand.NewCreateAddressCommand(service), cfg.runnerOpts...)); err != nil {
		return nil, err
	}
	if err := keep(RegisterAndSubscribe(adapter, cermcommand.NewCreateCalculationCommand(service), cfg.runnerOpts...)); err != nil {
		return nil, err
	}
	if err := keep(RegisterAndSubscribe(adapter, cermcommand.NewCreateProductCommand(service), cfg.runnerOpts...)); err != nil {
		return nil, err
	}
	if err := keep(RegisterAndSubscribe(adapter, cermcommand.NewCreateSalesOrderCommand(service), cfg.runnerOpts...)); err != nil {
		return nil, err
	}
	if err := keep(RegisterAndSubscribe(adapter, cermcommand.NewInvalidateTokenCommand(service), cfg.runnerOpts...)); err != nil {
		return nil, err
	}

	if err := keep(RegisterAndSubscribeQuery(adapter, cermquery.NewFetchAddressIDQuery(service), cfg.runnerOpts...)); err != nil {
		return nil, err
	}
	if err := keep(RegisterAndSubscribeQuery(adapter, cermquery.NewGetAddressQuery(service), cfg.runnerOpts...)); err != nil {
		return nil, err
	}
	if err := keep(RegisterAndSubscribeQuery(adapter, cermquery.NewFetchCalculationIDQuery(service), cfg.runnerOpts...)); err != nil {
		return nil, err
	}
	if err := keep(RegisterAndSubscribeQuery(adapter, cermquery.NewValidateAddressQuery(service), cfg.runnerOpts...)); err != nil {
		return nil, err
	}
	if activityReader != nil {
		if err := keep(RegisterAndSubscribeQuery(adapter, cermquery.NewListActivityQuery(activityReader), cfg.runnerOpts...)); err != nil {
			return nil, err
		}
	}

	return bundle, nil
}
