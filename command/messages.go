package command

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/goliatone/go-cerm/core"
)

const (
	TypeCreateAddress     = "cerm.command.address.create"
	TypeCreateCalculation = "cerm.command.calculation.create"
	TypeCreateProduct     = "cerm.command.product.create"
	TypeCreateSalesOrder  = "cerm.command.salesorder.create"
	TypeInvalidateToken   = "cerm.command.token.invalidate"
)

type CreateAddressMessage struct {
	Request core.CreateAddressRequest
}

func (CreateAddressMessage) Type() string { return TypeCreateAddress }

func (m CreateAddressMessage) Validate() error {
	if strings.TrimSpace(m.Request.CustomerID) == "" {
		return commandValidationError("customer_id", "customer id is required")
	}
	if strings.TrimSpace(m.Request.Street) == "" {
		return commandValidationError("street", "street is required")
	}
	if strings.TrimSpace(m.Request.City) == "" {
		return commandValidationError("city", "city is required")
	}
	return nil
}

type CreateCalculationMessage struct {
	Payload json.RawMessage
}

func (CreateCalculationMessage) Type() string { return TypeCreateCalculation }

func (m CreateCalculationMessage) Validate() error {
	if len(bytes.TrimSpace(m.Payload)) == 0 {
		return commandValidationError("payload", "calculation payload is required")
	}
	if !json.Valid(m.Payload) {
		return commandValidationError("payload", "calculation payload must be valid JSON")
	}
	return nil
}

type CreateProductMessage struct {
	CalculationID string
	Payload       json.RawMessage
}

func (CreateProductMessage) Type() string { return TypeCreateProduct }

func (m CreateProductMessage) Validate() error {
	if strings.TrimSpace(m.CalculationID) == "" {
		return commandValidationError("calculation_id", "calculation id is required")
	}
	if len(bytes.TrimSpace(m.Payload)) == 0 {
		return commandValidationError("payload", "product payload is required")
	}
	if !json.Valid(m.Payload) {
		return commandValidationError("payload", "product payload must be valid JSON")
	}
	return nil
}

type CreateSalesOrderMessage struct {
	CustomerID string
	ContactID  string
	Payload    json.RawMessage
}

func (CreateSalesOrderMessage) Type() string { return TypeCreateSalesOrder }

func (m CreateSalesOrderMessage) Validate() error {
	if strings.TrimSpace(m.CustomerID) == "" {
		return commandValidationError("customer_id", "customer id is required")
	}
	if strings.TrimSpace(m.ContactID) == "" {
		return commandValidationError("contact_id", "contact id is required")
	}
	if len(bytes.TrimSpace(m.Payload)) == 0 {
		return commandValidationError("payload", "sales order payload is required")
	}
	if !json.Valid(m.Payload) {
		return commandValidationError("payload", "sales order payload must be valid JSON")
	}
	return nil
}

type InvalidateTokenMessage struct {
	Reason string
}

func (InvalidateTokenMessage) Type() string { return TypeInvalidateToken }

func (InvalidateTokenMessage) Validate() error { return nil }
