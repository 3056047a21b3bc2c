package cerm

import (
	"fmt"

	cermcommand "github.com/goliatone/go-cerm/command"
	cermquery "github.com/goliatone/go-cerm/query"
)

// CommandQueryService is the surface the facade dispatches against.
// *core.Client satisfies it.
type CommandQueryService interface {
	cermcommand.MutatingService
	cermquery.AddressReader
	cermquery.CalculationReader
	cermquery.AddressValidator
}

type Commands struct {
	CreateAddress     *cermcommand.CreateAddressCommand
	CreateCalculation *cermcommand.CreateCalculationCommand
	CreateProduct     *cermcommand.CreateProductCommand
	CreateSalesOrder  *cermcommand.CreateSalesOrderCommand
	InvalidateToken   *cermcommand.InvalidateTokenCommand
}

type Queries struct {
	FetchAddressID     *cermquery.FetchAddressIDQuery
	GetAddress         *cermquery.GetAddressQuery
	FetchCalculationID *cermquery.FetchCalculationIDQuery
	ValidateAddress    *cermquery.ValidateAddressQuery
	ListActivity       *cermquery.ListActivityQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	activityReader cermquery.ActivityReader
}

func WithActivityReader(reader cermquery.ActivityReader) FacadeOption {
	return func(options *facadeOptions) {
		options.activityReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("cerm: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.activityReader
	if reader == nil {
		reader, _ = service.(cermquery.ActivityReader)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		CreateAddress:     cermcommand.NewCreateAddressCommand(service),
		CreateCalculation: cermcommand.NewCreateCalculationCommand(service),
		CreateProduct:     cermcommand.NewCreateProductCommand(service),
		CreateSalesOrder:  cermcommand.NewCreateSalesOrderCommand(service),
		InvalidateToken:   cermcommand.NewInvalidateTokenCommand(service),
	}
	facade.queries = Queries{
		FetchAddressID:     cermquery.NewFetchAddressIDQuery(service),
		GetAddress:         cermquery.NewGetAddressQuery(service),
		FetchCalculationID: cermquery.NewFetchCalculationIDQuery(service),
		ValidateAddress:    cermquery.NewValidateAddressQuery(service),
		ListActivity:       cermquery.NewListActivityQuery(reader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
