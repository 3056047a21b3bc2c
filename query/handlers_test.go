package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-cerm/core"
)

func validQuery() core.AddressQuery {
	return core.AddressQuery{
		CustomerID: "C100",
		PostalCode: "9000",
		Street:     "Main Street 1",
		City:       "Ghent",
		CountryID:  "BE",
	}
}

func TestFetchAddressIDQuery_QueryDelegates(t *testing.T) {
	expected := core.AddressIDResult{AddressID: "412", Success: true}
	called := false
	reader := stubAddressReader{
		fetchFn: func(_ context.Context, query core.AddressQuery) (core.AddressIDResult, error) {
			called = true
			if query.CustomerID != "C100" || query.PostalCode != "9000" {
				t.Fatalf("unexpected address query: %#v", query)
			}
			return expected, nil
		},
	}

	qry := NewFetchAddressIDQuery(reader)
	result, err := qry.Query(context.Background(), FetchAddressIDMessage{Query: validQuery()})
	if err != nil {
		t.Fatalf("query fetch address id: %v", err)
	}
	if !called {
		t.Fatalf("expected address reader invocation")
	}
	if result.AddressID != expected.AddressID {
		t.Fatalf("unexpected address id result: %#v", result)
	}
}

func TestGetAddressQuery_QueryDelegates(t *testing.T) {
	called := false
	reader := stubAddressReader{
		getFn: func(_ context.Context, addressID string) (core.AddressDetailsResult, error) {
			called = true
			if addressID != "412" {
				t.Fatalf("unexpected address id: %q", addressID)
			}
			return core.AddressDetailsResult{
				Success:    true,
				Exists:     true,
				StatusCode: 200,
				Address:    core.AddressDetails{ID: "412", City: "Ghent"},
			}, nil
		},
	}

	result, err := NewGetAddressQuery(reader).Query(context.Background(), GetAddressMessage{AddressID: "412"})
	if err != nil {
		t.Fatalf("query get address: %v", err)
	}
	if !called {
		t.Fatalf("expected address reader invocation")
	}
	if !result.Exists || result.Address.ID != "412" {
		t.Fatalf("unexpected address details result: %#v", result)
	}
}

func TestFetchCalculationIDQuery_QueryDelegates(t *testing.T) {
	called := false
	reader := stubCalculationReader{
		fetchFn: func(_ context.Context, req core.FetchCalculationIDRequest) (core.CalculationIDResult, error) {
			called = true
			if req.CustomerID != "C100" || req.ProductCode != "FLYER-A5" {
				t.Fatalf("unexpected calculation request: %#v", req)
			}
			return core.CalculationIDResult{CalculationID: "calc_77", Success: true}, nil
		},
	}

	result, err := NewFetchCalculationIDQuery(reader).Query(context.Background(), FetchCalculationIDMessage{
		Request: core.FetchCalculationIDRequest{CustomerID: "C100", ProductCode: "FLYER-A5"},
	})
	if err != nil {
		t.Fatalf("query fetch calculation id: %v", err)
	}
	if !called {
		t.Fatalf("expected calculation reader invocation")
	}
	if result.CalculationID != "calc_77" {
		t.Fatalf("unexpected calculation result: %#v", result)
	}
}

func TestValidateAddressQuery_QueryDelegates(t *testing.T) {
	called := false
	validator := stubAddressValidator{
		validateFn: func(_ context.Context, query core.AddressQuery) (core.ValidationResult, error) {
			called = true
			if query.City != "Ghent" {
				t.Fatalf("unexpected validation query: %#v", query)
			}
			return core.ValidationResult{
				Query:        query,
				AddressID:    "412",
				IDFound:      true,
				IDValid:      true,
				DetailsMatch: true,
				Success:      true,
			}, nil
		},
	}

	result, err := NewValidateAddressQuery(validator).Query(context.Background(), ValidateAddressMessage{
		Query: validQuery(),
	})
	if err != nil {
		t.Fatalf("query validate address: %v", err)
	}
	if !called {
		t.Fatalf("expected address validator invocation")
	}
	if !result.Success || !result.DetailsMatch {
		t.Fatalf("unexpected validation result: %#v", result)
	}
}

func TestListActivityQuery_QueryDelegates(t *testing.T) {
	expected := core.ActivityPage{
		Items: []core.ActivityEntry{
			{ID: "act_1", Environment: "production", Operation: "address.fetch_id", Status: core.ActivityStatusOK},
		},
		Page:    1,
		PerPage: 20,
		Total:   1,
	}
	called := false
	reader := stubActivityReader{
		listFn: func(_ context.Context, filter core.ActivityFilter) (core.ActivityPage, error) {
			called = true
			if filter.Environment != "production" {
				t.Fatalf("unexpected filter environment: %q", filter.Environment)
			}
			return expected, nil
		},
	}

	result, err := NewListActivityQuery(reader).Query(context.Background(), ListActivityMessage{
		Filter: core.ActivityFilter{Environment: "production", Page: 1, PerPage: 20},
	})
	if err != nil {
		t.Fatalf("query list activity: %v", err)
	}
	if !called {
		t.Fatalf("expected activity reader invocation")
	}
	if result.Total != expected.Total {
		t.Fatalf("unexpected activity page result: %#v", result)
	}
}

func TestQueryMessageValidation(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	before := from.Add(-time.Hour)

	tests := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{
			name:    "fetch address id valid",
			msg:     FetchAddressIDMessage{Query: validQuery()},
			wantErr: false,
		},
		{
			name: "fetch address id missing postal code",
			msg: FetchAddressIDMessage{Query: core.AddressQuery{
				CustomerID: "C100",
				Street:     "Main Street 1",
				City:       "Ghent",
				CountryID:  "BE",
			}},
			wantErr: true,
		},
		{
			name:    "get address missing id",
			msg:     GetAddressMessage{},
			wantErr: true,
		},
		{
			name: "fetch calculation id valid",
			msg: FetchCalculationIDMessage{Request: core.FetchCalculationIDRequest{
				CustomerID:  "C100",
				ProductCode: "FLYER-A5",
			}},
			wantErr: false,
		},
		{
			name:    "fetch calculation id missing product",
			msg:     FetchCalculationIDMessage{Request: core.FetchCalculationIDRequest{CustomerID: "C100"}},
			wantErr: true,
		},
		{
			name:    "validate address missing country",
			msg:     ValidateAddressMessage{Query: core.AddressQuery{CustomerID: "C100", PostalCode: "9000", Street: "Main", City: "Ghent"}},
			wantErr: true,
		},
		{
			name:    "activity list invalid page",
			msg:     ListActivityMessage{Filter: core.ActivityFilter{Page: -1}},
			wantErr: true,
		},
		{
			name:    "activity list inverted window",
			msg:     ListActivityMessage{Filter: core.ActivityFilter{From: &from, To: &before}},
			wantErr: true,
		},
		{
			name:    "activity list valid",
			msg:     ListActivityMessage{Filter: core.ActivityFilter{Page: 1, PerPage: 50}},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type stubAddressReader struct {
	fetchFn func(ctx context.Context, query core.AddressQuery) (core.AddressIDResult, error)
	getFn   func(ctx context.Context, addressID string) (core.AddressDetailsResult, error)
}

func (s stubAddressReader) FetchAddressID(ctx context.Context, query core.AddressQuery) (core.AddressIDResult, error) {
	if s.fetchFn == nil {
		return core.AddressIDResult{}, fmt.Errorf("fetch address id not configured")
	}
	return s.fetchFn(ctx, query)
}

func (s stubAddressReader) GetAddress(ctx context.Context, addressID string) (core.AddressDetailsResult, error) {
	if s.getFn == nil {
		return core.AddressDetailsResult{}, fmt.Errorf("get address not configured")
	}
	return s.getFn(ctx, addressID)
}

type stubCalculationReader struct {
	fetchFn func(ctx context.Context, req core.FetchCalculationIDRequest) (core.CalculationIDResult, error)
}

func (s stubCalculationReader) FetchCalculationID(
	ctx context.Context,
	req core.FetchCalculationIDRequest,
) (core.CalculationIDResult, error) {
	if s.fetchFn == nil {
		return core.CalculationIDResult{}, fmt.Errorf("fetch calculation id not configured")
	}
	return s.fetchFn(ctx, req)
}

type stubAddressValidator struct {
	validateFn func(ctx context.Context, query core.AddressQuery) (core.ValidationResult, error)
}

func (s stubAddressValidator) ValidateAddress(
	ctx context.Context,
	query core.AddressQuery,
) (core.ValidationResult, error) {
	if s.validateFn == nil {
		return core.ValidationResult{}, fmt.Errorf("validate address not configured")
	}
	return s.validateFn(ctx, query)
}

type stubActivityReader struct {
	listFn func(ctx context.Context, filter core.ActivityFilter) (core.ActivityPage, error)
}

func (s stubActivityReader) ListActivity(
	ctx context.Context,
	filter core.ActivityFilter,
) (core.ActivityPage, error) {
	if s.listFn == nil {
		return core.ActivityPage{}, fmt.Errorf("list activity not configured")
	}
	return s.listFn(ctx, filter)
}

var (
	_ AddressReader     = stubAddressReader{}
	_ CalculationReader = stubCalculationReader{}
	_ AddressValidator  = stubAddressValidator{}
	_ ActivityReader    = stubActivityReader{}
)
