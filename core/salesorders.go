package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// CreateSalesOrder submits an order payload for a customer contact. The
// vendor treats this as a non-idempotent write; the client never retries.
func (c *Client) CreateSalesOrder(ctx context.Context, customerID, contactID string, payload json.RawMessage) (result SalesOrderResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"environment": c.Environment(),
		"bucket":      BucketSalesOrderAPI,
		"customer_id": strings.TrimSpace(customerID),
		"contact_id":  strings.TrimSpace(contactID),
	}
	defer func() {
		c.observeOperation(ctx, startedAt, "create_sales_order", err, fields)
	}()

	path, pathErr := SalesOrderPath(customerID, contactID)
	if pathErr != nil {
		err = c.mapError(pathErr)
		return SalesOrderResult{Message: err.Error()}, err
	}
	if err = validateRawPayload(payload); err != nil {
		err = c.mapError(err)
		return SalesOrderResult{Message: err.Error()}, err
	}

	res, err := c.invoke(ctx, BucketSalesOrderAPI, TransportRequest{
		Method:  http.MethodPost,
		URL:     path,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    payload,
	})
	if err != nil {
		c.recordActivity(ctx, "create_sales_order", ActivityStatusError, 0, startedAt, map[string]any{
			"customer_id": customerID,
			"contact_id":  contactID,
			"error":       err.Error(),
		})
		return SalesOrderResult{Message: err.Error()}, err
	}
	if !isSuccessStatus(res.StatusCode) {
		err = c.remoteError("create_sales_order", res)
		c.recordActivity(ctx, "create_sales_order", ActivityStatusError, res.StatusCode, startedAt, map[string]any{
			"customer_id": customerID,
			"contact_id":  contactID,
			"body":        bodyExcerpt(res.Body),
		})
		return SalesOrderResult{Message: remoteFailureMessage(res)}, err
	}

	var envelope dataEnvelope
	if decodeErr := json.Unmarshal(res.Body, &envelope); decodeErr != nil {
		err = c.parseError("create_sales_order", decodeErr)
		c.recordActivity(ctx, "create_sales_order", ActivityStatusError, res.StatusCode, startedAt, map[string]any{
			"customer_id": customerID,
			"contact_id":  contactID,
			"error":       err.Error(),
		})
		return SalesOrderResult{Message: err.Error()}, err
	}
	salesOrderID := strings.TrimSpace(envelope.Data.ID)
	if salesOrderID == "" {
		err = c.remoteError("create_sales_order", res)
		c.recordActivity(ctx, "create_sales_order", ActivityStatusWarn, res.StatusCode, startedAt, map[string]any{
			"customer_id": customerID,
			"contact_id":  contactID,
			"body":        bodyExcerpt(res.Body),
		})
		return SalesOrderResult{Message: "create sales order response is missing Data.Id"}, err
	}

	result = SalesOrderResult{SalesOrderID: salesOrderID, Success: true}
	fields["sales_order_id"] = salesOrderID
	c.recordActivity(ctx, "create_sales_order", ActivityStatusOK, res.StatusCode, startedAt, map[string]any{
		"customer_id":    customerID,
		"contact_id":     contactID,
		"sales_order_id": salesOrderID,
	})
	return result, nil
}

// QueueSubmitSalesOrder enqueues an order submission for background
// execution. Requires a job enqueuer.
func (c *Client) QueueSubmitSalesOrder(ctx context.Context, customerID, contactID string, payload json.RawMessage) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"environment": c.Environment(),
		"customer_id": strings.TrimSpace(customerID),
		"contact_id":  strings.TrimSpace(contactID),
	}
	defer func() {
		c.observeOperation(ctx, startedAt, "queue_submit_sales_order", err, fields)
	}()

	if c == nil || c.jobEnqueuer == nil {
		err = c.mapError(fmt.Errorf("core: job enqueuer is not configured"))
		return err
	}
	if _, err = SalesOrderPath(customerID, contactID); err != nil {
		err = c.mapError(err)
		return err
	}
	if err = validateRawPayload(payload); err != nil {
		err = c.mapError(err)
		return err
	}

	message := &JobExecutionMessage{
		JobID: JobSubmitSalesOrder,
		Parameters: map[string]any{
			"customer_id": strings.TrimSpace(customerID),
			"contact_id":  strings.TrimSpace(contactID),
			"payload":     string(payload),
		},
	}
	if err = c.jobEnqueuer.Enqueue(ctx, message); err != nil {
		err = c.mapError(err)
		return err
	}
	return nil
}
