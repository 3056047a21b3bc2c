package query

import (
	"strings"

	"github.com/goliatone/go-cerm/core"
)

const (
	TypeFetchAddressID     = "cerm.query.address.fetch_id"
	TypeGetAddress         = "cerm.query.address.get"
	TypeFetchCalculationID = "cerm.query.calculation.fetch_id"
	TypeValidateAddress    = "cerm.query.address.validate"
	TypeListActivity       = "cerm.query.activity.list"
)

type FetchAddressIDMessage struct {
	Query core.AddressQuery
}

func (FetchAddressIDMessage) Type() string { return TypeFetchAddressID }

func (m FetchAddressIDMessage) Validate() error {
	return validateAddressQuery(m.Query)
}

type GetAddressMessage struct {
	AddressID string
}

func (GetAddressMessage) Type() string { return TypeGetAddress }

func (m GetAddressMessage) Validate() error {
	if strings.TrimSpace(m.AddressID) == "" {
		return queryValidationError("address_id", "address id is required")
	}
	return nil
}

type FetchCalculationIDMessage struct {
	Request core.FetchCalculationIDRequest
}

func (FetchCalculationIDMessage) Type() string { return TypeFetchCalculationID }

func (m FetchCalculationIDMessage) Validate() error {
	if strings.TrimSpace(m.Request.CustomerID) == "" {
		return queryValidationError("customer_id", "customer id is required")
	}
	if strings.TrimSpace(m.Request.ProductCode) == "" {
		return queryValidationError("product_code", "product code is required")
	}
	return nil
}

type ValidateAddressMessage struct {
	Query core.AddressQuery
}

func (ValidateAddressMessage) Type() string { return TypeValidateAddress }

func (m ValidateAddressMessage) Validate() error {
	return validateAddressQuery(m.Query)
}

type ListActivityMessage struct {
	Filter core.ActivityFilter
}

func (ListActivityMessage) Type() string { return TypeListActivity }

func (m ListActivityMessage) Validate() error {
	if m.Filter.Page < 0 {
		return queryValidationError("page", "page must be >= 0")
	}
	if m.Filter.PerPage < 0 {
		return queryValidationError("per_page", "per_page must be >= 0")
	}
	if m.Filter.From != nil && m.Filter.To != nil && m.Filter.To.Before(*m.Filter.From) {
		return queryValidationError("to", "to must not precede from")
	}
	return nil
}

func validateAddressQuery(q core.AddressQuery) error {
	if strings.TrimSpace(q.CustomerID) == "" {
		return queryValidationError("customer_id", "customer id is required")
	}
	if strings.TrimSpace(q.PostalCode) == "" {
		return queryValidationError("postal_code", "postal code is required")
	}
	if strings.TrimSpace(q.Street) == "" {
		return queryValidationError("street", "street is required")
	}
	if strings.TrimSpace(q.City) == "" {
		return queryValidationError("city", "city is required")
	}
	if strings.TrimSpace(q.CountryID) == "" {
		return queryValidationError("country_id", "country id is required")
	}
	return nil
}
