package core

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// FetchAddressID looks an address id up through the export facade. An
// empty result set is data, not an error: the result fails with
// "No address found" and err stays nil.
func (c *Client) FetchAddressID(ctx context.Context, query AddressQuery) (result AddressIDResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"environment": c.Environment(),
		"bucket":      BucketCustomAPI,
		"customer_id": strings.TrimSpace(query.CustomerID),
	}
	defer func() {
		c.observeOperation(ctx, startedAt, "fetch_address_id", err, fields)
	}()

	if err = query.Validate(); err != nil {
		err = c.mapError(err)
		return AddressIDResult{Message: err.Error()}, err
	}

	res, err := c.invoke(ctx, BucketCustomAPI, TransportRequest{
		Method: http.MethodGet,
		URL:    FetchAddressIDPath(),
		Query: map[string]string{
			"customerid": strings.TrimSpace(query.CustomerID),
			"postalcode": strings.TrimSpace(query.PostalCode),
			"street":     TruncateStreet(strings.TrimSpace(query.Street)),
			"city":       strings.TrimSpace(query.City),
			"countryid":  strings.TrimSpace(query.CountryID),
		},
	})
	if err != nil {
		return AddressIDResult{Message: err.Error()}, err
	}
	if !isSuccessStatus(res.StatusCode) {
		err = c.remoteError("fetch_address_id", res)
		return AddressIDResult{Message: remoteFailureMessage(res)}, err
	}

	var rows []exportAddressRow
	if decodeErr := json.Unmarshal(res.Body, &rows); decodeErr != nil {
		err = c.parseError("fetch_address_id", decodeErr)
		return AddressIDResult{Message: err.Error()}, err
	}
	if len(rows) == 0 || strings.TrimSpace(rows[0].AddressID) == "" {
		return AddressIDResult{Success: false, Message: "No address found"}, nil
	}

	result = AddressIDResult{
		AddressID: strings.TrimSpace(rows[0].AddressID),
		Success:   true,
	}
	fields["address_id"] = result.AddressID
	return result, nil
}

// CreateAddress creates a customer address and reports the new id from
// the Data.Id response field.
func (c *Client) CreateAddress(ctx context.Context, request CreateAddressRequest) (result AddressIDResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"environment": c.Environment(),
		"bucket":      BucketAddressAPI,
		"customer_id": strings.TrimSpace(request.CustomerID),
	}
	defer func() {
		c.observeOperation(ctx, startedAt, "create_address", err, fields)
	}()

	if err = request.Validate(); err != nil {
		err = c.mapError(err)
		return AddressIDResult{Message: err.Error()}, err
	}
	body, marshalErr := json.Marshal(request)
	if marshalErr != nil {
		err = c.parseError("create_address", marshalErr)
		return AddressIDResult{Message: err.Error()}, err
	}

	res, err := c.invoke(ctx, BucketAddressAPI, TransportRequest{
		Method:  http.MethodPost,
		URL:     AddressesPath(),
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	if err != nil {
		c.recordActivity(ctx, "create_address", ActivityStatusError, 0, startedAt, map[string]any{
			"customer_id": request.CustomerID,
			"error":       err.Error(),
		})
		return AddressIDResult{Message: err.Error()}, err
	}
	if !isSuccessStatus(res.StatusCode) {
		err = c.remoteError("create_address", res)
		c.recordActivity(ctx, "create_address", ActivityStatusError, res.StatusCode, startedAt, map[string]any{
			"customer_id": request.CustomerID,
			"body":        bodyExcerpt(res.Body),
		})
		return AddressIDResult{Message: remoteFailureMessage(res)}, err
	}

	var envelope dataEnvelope
	if decodeErr := json.Unmarshal(res.Body, &envelope); decodeErr != nil {
		err = c.parseError("create_address", decodeErr)
		c.recordActivity(ctx, "create_address", ActivityStatusError, res.StatusCode, startedAt, map[string]any{
			"customer_id": request.CustomerID,
			"error":       err.Error(),
		})
		return AddressIDResult{Message: err.Error()}, err
	}
	addressID := strings.TrimSpace(envelope.Data.ID)
	if addressID == "" {
		err = c.remoteError("create_address", res)
		c.recordActivity(ctx, "create_address", ActivityStatusWarn, res.StatusCode, startedAt, map[string]any{
			"customer_id": request.CustomerID,
			"body":        bodyExcerpt(res.Body),
		})
		return AddressIDResult{Message: "create address response is missing Data.Id"}, err
	}

	result = AddressIDResult{AddressID: addressID, Success: true}
	fields["address_id"] = addressID
	c.recordActivity(ctx, "create_address", ActivityStatusOK, res.StatusCode, startedAt, map[string]any{
		"customer_id": request.CustomerID,
		"address_id":  addressID,
	})
	return result, nil
}

// GetAddress fetches one address by id. A vendor 404 is a successful
// call with Exists=false; only transport or remote failures flip Success
// to false.
func (c *Client) GetAddress(ctx context.Context, addressID string) (result AddressDetailsResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"environment": c.Environment(),
		"bucket":      BucketAddressAPI,
		"address_id":  strings.TrimSpace(addressID),
	}
	defer func() {
		c.observeOperation(ctx, startedAt, "get_address", err, fields)
	}()

	path, pathErr := AddressPath(addressID)
	if pathErr != nil {
		err = c.mapError(pathErr)
		return AddressDetailsResult{Message: err.Error()}, err
	}

	res, err := c.invoke(ctx, BucketAddressAPI, TransportRequest{
		Method: http.MethodGet,
		URL:    path,
	})
	if err != nil {
		return AddressDetailsResult{Message: err.Error()}, err
	}
	if res.StatusCode == http.StatusNotFound {
		return AddressDetailsResult{
			Success:    true,
			Exists:     false,
			StatusCode: res.StatusCode,
			Message:    "Address not found",
		}, nil
	}
	if !isSuccessStatus(res.StatusCode) {
		err = c.remoteError("get_address", res)
		return AddressDetailsResult{
			StatusCode: res.StatusCode,
			Message:    remoteFailureMessage(res),
		}, err
	}

	var details AddressDetails
	if decodeErr := json.Unmarshal(res.Body, &details); decodeErr != nil {
		err = c.parseError("get_address", decodeErr)
		return AddressDetailsResult{
			StatusCode: res.StatusCode,
			Message:    err.Error(),
		}, err
	}

	result = AddressDetailsResult{
		Success:    true,
		Exists:     true,
		StatusCode: res.StatusCode,
		Address:    details,
	}
	return result, nil
}
