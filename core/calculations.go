package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// FetchCalculationID resolves a quote calculation id for a customer and
// product code through the export facade. Empty result sets are data:
// the result fails with "No calculation found" and err stays nil.
func (c *Client) FetchCalculationID(ctx context.Context, request FetchCalculationIDRequest) (result CalculationIDResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"environment":  c.Environment(),
		"bucket":       BucketCustomAPI,
		"customer_id":  strings.TrimSpace(request.CustomerID),
		"product_code": strings.TrimSpace(request.ProductCode),
	}
	defer func() {
		c.observeOperation(ctx, startedAt, "fetch_calculation_id", err, fields)
	}()

	if err = request.Validate(); err != nil {
		err = c.mapError(err)
		return CalculationIDResult{Message: err.Error()}, err
	}
	body, marshalErr := json.Marshal(request)
	if marshalErr != nil {
		err = c.parseError("fetch_calculation_id", marshalErr)
		return CalculationIDResult{Message: err.Error()}, err
	}

	res, err := c.invoke(ctx, BucketCustomAPI, TransportRequest{
		Method:  http.MethodPost,
		URL:     FetchCalculationIDPath(),
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	if err != nil {
		return CalculationIDResult{Message: err.Error()}, err
	}
	if !isSuccessStatus(res.StatusCode) {
		err = c.remoteError("fetch_calculation_id", res)
		return CalculationIDResult{Message: remoteFailureMessage(res)}, err
	}

	var rows []exportCalculationRow
	if decodeErr := json.Unmarshal(res.Body, &rows); decodeErr != nil {
		err = c.parseError("fetch_calculation_id", decodeErr)
		return CalculationIDResult{Message: err.Error()}, err
	}
	if len(rows) == 0 || strings.TrimSpace(rows[0].CalculationID) == "" {
		return CalculationIDResult{Success: false, Message: "No calculation found"}, nil
	}

	result = CalculationIDResult{
		CalculationID: strings.TrimSpace(rows[0].CalculationID),
		Success:       true,
	}
	fields["calculation_id"] = result.CalculationID
	return result, nil
}

// CreateCalculation posts a raw calculation payload to the quote API.
// The payload shape is owned by the caller; only well-formed JSON is
// accepted.
func (c *Client) CreateCalculation(ctx context.Context, payload json.RawMessage) (result CalculationIDResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"environment": c.Environment(),
		"bucket":      BucketQuoteAPI,
	}
	defer func() {
		c.observeOperation(ctx, startedAt, "create_calculation", err, fields)
	}()

	if err = validateRawPayload(payload); err != nil {
		err = c.mapError(err)
		return CalculationIDResult{Message: err.Error()}, err
	}

	res, err := c.invoke(ctx, BucketQuoteAPI, TransportRequest{
		Method:  http.MethodPost,
		URL:     CalculationsPath(),
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    payload,
	})
	if err != nil {
		c.recordActivity(ctx, "create_calculation", ActivityStatusError, 0, startedAt, map[string]any{
			"error": err.Error(),
		})
		return CalculationIDResult{Message: err.Error()}, err
	}
	if !isSuccessStatus(res.StatusCode) {
		err = c.remoteError("create_calculation", res)
		c.recordActivity(ctx, "create_calculation", ActivityStatusError, res.StatusCode, startedAt, map[string]any{
			"body": bodyExcerpt(res.Body),
		})
		return CalculationIDResult{Message: remoteFailureMessage(res)}, err
	}

	var envelope dataEnvelope
	if decodeErr := json.Unmarshal(res.Body, &envelope); decodeErr != nil {
		err = c.parseError("create_calculation", decodeErr)
		c.recordActivity(ctx, "create_calculation", ActivityStatusError, res.StatusCode, startedAt, map[string]any{
			"error": err.Error(),
		})
		return CalculationIDResult{Message: err.Error()}, err
	}
	calculationID := strings.TrimSpace(envelope.Data.ID)
	if calculationID == "" {
		err = c.remoteError("create_calculation", res)
		c.recordActivity(ctx, "create_calculation", ActivityStatusWarn, res.StatusCode, startedAt, map[string]any{
			"body": bodyExcerpt(res.Body),
		})
		return CalculationIDResult{Message: "create calculation response is missing Data.Id"}, err
	}

	result = CalculationIDResult{CalculationID: calculationID, Success: true}
	fields["calculation_id"] = calculationID
	c.recordActivity(ctx, "create_calculation", ActivityStatusOK, res.StatusCode, startedAt, map[string]any{
		"calculation_id": calculationID,
	})
	return result, nil
}

func validateRawPayload(payload json.RawMessage) error {
	if len(payload) == 0 {
		return newClientError("payload is required", goerrors.CategoryBadInput, ClientErrorBadInput)
	}
	if !json.Valid(payload) {
		return newClientError(
			fmt.Sprintf("payload is not valid JSON: %s", bodyExcerpt(payload)),
			goerrors.CategoryBadInput,
			ClientErrorBadInput,
		)
	}
	return nil
}
