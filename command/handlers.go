package command

import (
	"context"
	"encoding/json"

	"github.com/goliatone/go-cerm/core"
	gocmd "github.com/goliatone/go-command"
)

// MutatingService is the slice of the client facade that command handlers
// depend on. *core.Client satisfies it.
type MutatingService interface {
	CreateAddress(ctx context.Context, request core.CreateAddressRequest) (core.AddressIDResult, error)
	CreateCalculation(ctx context.Context, payload json.RawMessage) (core.CalculationIDResult, error)
	CreateProduct(ctx context.Context, calculationID string, payload json.RawMessage) (core.ProductResult, error)
	CreateSalesOrder(ctx context.Context, customerID, contactID string, payload json.RawMessage) (core.SalesOrderResult, error)
	InvalidateToken(ctx context.Context) error
}

type CreateAddressCommand struct {
	service MutatingService
}

func NewCreateAddressCommand(service MutatingService) *CreateAddressCommand {
	return &CreateAddressCommand{service: service}
}

func (c *CreateAddressCommand) Execute(ctx context.Context, msg CreateAddressMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: address service is required")
	}
	out, err := c.service.CreateAddress(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CreateCalculationCommand struct {
	service MutatingService
}

func NewCreateCalculationCommand(service MutatingService) *CreateCalculationCommand {
	return &CreateCalculationCommand{service: service}
}

func (c *CreateCalculationCommand) Execute(ctx context.Context, msg CreateCalculationMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: calculation service is required")
	}
	out, err := c.service.CreateCalculation(ctx, msg.Payload)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CreateProductCommand struct {
	service MutatingService
}

func NewCreateProductCommand(service MutatingService) *CreateProductCommand {
	return &CreateProductCommand{service: service}
}

func (c *CreateProductCommand) Execute(ctx context.Context, msg CreateProductMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: product service is required")
	}
	out, err := c.service.CreateProduct(ctx, msg.CalculationID, msg.Payload)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CreateSalesOrderCommand struct {
	service MutatingService
}

func NewCreateSalesOrderCommand(service MutatingService) *CreateSalesOrderCommand {
	return &CreateSalesOrderCommand{service: service}
}

func (c *CreateSalesOrderCommand) Execute(ctx context.Context, msg CreateSalesOrderMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sales order service is required")
	}
	out, err := c.service.CreateSalesOrder(ctx, msg.CustomerID, msg.ContactID, msg.Payload)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type InvalidateTokenCommand struct {
	service MutatingService
}

func NewInvalidateTokenCommand(service MutatingService) *InvalidateTokenCommand {
	return &InvalidateTokenCommand{service: service}
}

func (c *InvalidateTokenCommand) Execute(ctx context.Context, msg InvalidateTokenMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: token service is required")
	}
	return c.service.InvalidateToken(ctx)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
