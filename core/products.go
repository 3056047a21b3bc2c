package core

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// CreateProduct attaches a product payload to an existing calculation.
func (c *Client) CreateProduct(ctx context.Context, calculationID string, payload json.RawMessage) (result ProductResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"environment":    c.Environment(),
		"bucket":         BucketProductAPI,
		"calculation_id": strings.TrimSpace(calculationID),
	}
	defer func() {
		c.observeOperation(ctx, startedAt, "create_product", err, fields)
	}()

	path, pathErr := CalculationProductsPath(calculationID)
	if pathErr != nil {
		err = c.mapError(pathErr)
		return ProductResult{Message: err.Error()}, err
	}
	if err = validateRawPayload(payload); err != nil {
		err = c.mapError(err)
		return ProductResult{Message: err.Error()}, err
	}

	res, err := c.invoke(ctx, BucketProductAPI, TransportRequest{
		Method:  http.MethodPost,
		URL:     path,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    payload,
	})
	if err != nil {
		c.recordActivity(ctx, "create_product", ActivityStatusError, 0, startedAt, map[string]any{
			"calculation_id": calculationID,
			"error":          err.Error(),
		})
		return ProductResult{Message: err.Error()}, err
	}
	if !isSuccessStatus(res.StatusCode) {
		err = c.remoteError("create_product", res)
		c.recordActivity(ctx, "create_product", ActivityStatusError, res.StatusCode, startedAt, map[string]any{
			"calculation_id": calculationID,
			"body":           bodyExcerpt(res.Body),
		})
		return ProductResult{Message: remoteFailureMessage(res)}, err
	}

	var envelope dataEnvelope
	if decodeErr := json.Unmarshal(res.Body, &envelope); decodeErr != nil {
		err = c.parseError("create_product", decodeErr)
		c.recordActivity(ctx, "create_product", ActivityStatusError, res.StatusCode, startedAt, map[string]any{
			"calculation_id": calculationID,
			"error":          err.Error(),
		})
		return ProductResult{Message: err.Error()}, err
	}
	productID := strings.TrimSpace(envelope.Data.ID)
	if productID == "" {
		err = c.remoteError("create_product", res)
		c.recordActivity(ctx, "create_product", ActivityStatusWarn, res.StatusCode, startedAt, map[string]any{
			"calculation_id": calculationID,
			"body":           bodyExcerpt(res.Body),
		})
		return ProductResult{Message: "create product response is missing Data.Id"}, err
	}

	result = ProductResult{ProductID: productID, Success: true}
	fields["product_id"] = productID
	c.recordActivity(ctx, "create_product", ActivityStatusOK, res.StatusCode, startedAt, map[string]any{
		"calculation_id": calculationID,
		"product_id":     productID,
	})
	return result, nil
}
