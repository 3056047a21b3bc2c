package query

import (
	"context"

	"github.com/goliatone/go-cerm/core"
)

type AddressReader interface {
	FetchAddressID(ctx context.Context, query core.AddressQuery) (core.AddressIDResult, error)
	GetAddress(ctx context.Context, addressID string) (core.AddressDetailsResult, error)
}

type CalculationReader interface {
	FetchCalculationID(ctx context.Context, req core.FetchCalculationIDRequest) (core.CalculationIDResult, error)
}

type AddressValidator interface {
	ValidateAddress(ctx context.Context, query core.AddressQuery) (core.ValidationResult, error)
}

type ActivityReader interface {
	ListActivity(ctx context.Context, filter core.ActivityFilter) (core.ActivityPage, error)
}

type FetchAddressIDQuery struct {
	reader AddressReader
}

func NewFetchAddressIDQuery(reader AddressReader) *FetchAddressIDQuery {
	return &FetchAddressIDQuery{reader: reader}
}

func (q *FetchAddressIDQuery) Query(ctx context.Context, msg FetchAddressIDMessage) (core.AddressIDResult, error) {
	if q == nil || q.reader == nil {
		return core.AddressIDResult{}, queryDependencyError("query: address reader is required")
	}
	return q.reader.FetchAddressID(ctx, msg.Query)
}

type GetAddressQuery struct {
	reader AddressReader
}

func NewGetAddressQuery(reader AddressReader) *GetAddressQuery {
	return &GetAddressQuery{reader: reader}
}

func (q *GetAddressQuery) Query(ctx context.Context, msg GetAddressMessage) (core.AddressDetailsResult, error) {
	if q == nil || q.reader == nil {
		return core.AddressDetailsResult{}, queryDependencyError("query: address reader is required")
	}
	return q.reader.GetAddress(ctx, msg.AddressID)
}

type FetchCalculationIDQuery struct {
	reader CalculationReader
}

func NewFetchCalculationIDQuery(reader CalculationReader) *FetchCalculationIDQuery {
	return &FetchCalculationIDQuery{reader: reader}
}

func (q *FetchCalculationIDQuery) Query(
	ctx context.Context,
	msg FetchCalculationIDMessage,
) (core.CalculationIDResult, error) {
	if q == nil || q.reader == nil {
		return core.CalculationIDResult{}, queryDependencyError("query: calculation reader is required")
	}
	return q.reader.FetchCalculationID(ctx, msg.Request)
}

type ValidateAddressQuery struct {
	validator AddressValidator
}

func NewValidateAddressQuery(validator AddressValidator) *ValidateAddressQuery {
	return &ValidateAddressQuery{validator: validator}
}

func (q *ValidateAddressQuery) Query(ctx context.Context, msg ValidateAddressMessage) (core.ValidationResult, error) {
	if q == nil || q.validator == nil {
		return core.ValidationResult{}, queryDependencyError("query: address validator is required")
	}
	return q.validator.ValidateAddress(ctx, msg.Query)
}

type ListActivityQuery struct {
	reader ActivityReader
}

func NewListActivityQuery(reader ActivityReader) *ListActivityQuery {
	return &ListActivityQuery{reader: reader}
}

func (q *ListActivityQuery) Query(ctx context.Context, msg ListActivityMessage) (core.ActivityPage, error) {
	if q == nil || q.reader == nil {
		return core.ActivityPage{}, queryDependencyError("query: activity reader is required")
	}
	return q.reader.ListActivity(ctx, msg.Filter)
}
