package core

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestFetchCalculationID_PostsVendorCasedBody(t *testing.T) {
	transport := &scriptedTransport{scripts: []transportScript{
		{res: jsonResponse(200, `[{"CalculationID":"CALC-77"}]`)},
	}}
	client := newTestClient(t, transport)

	result, err := client.FetchCalculationID(context.Background(), FetchCalculationIDRequest{
		CustomerID:  "C100",
		ProductCode: "BOX-A4",
	})
	if err != nil {
		t.Fatalf("fetch calculation id: %v", err)
	}
	if !result.Success || result.CalculationID != "CALC-77" {
		t.Fatalf("unexpected result: %#v", result)
	}

	req := transport.calls()[0]
	if req.Method != "POST" || req.URL != FetchCalculationIDPath() {
		t.Fatalf("unexpected request target: %s %s", req.Method, req.URL)
	}
	if !strings.Contains(string(req.Body), `"customerId":"C100"`) || !strings.Contains(string(req.Body), `"productCode":"BOX-A4"`) {
		t.Fatalf("unexpected request body: %s", req.Body)
	}
}

func TestFetchCalculationID_EmptyResultIsDataNotError(t *testing.T) {
	transport := &scriptedTransport{scripts: []transportScript{
		{res: jsonResponse(200, `[]`)},
	}}
	client := newTestClient(t, transport)

	result, err := client.FetchCalculationID(context.Background(), FetchCalculationIDRequest{
		CustomerID:  "C100",
		ProductCode: "BOX-A4",
	})
	if err != nil {
		t.Fatalf("expected nil error for empty result set, got %v", err)
	}
	if result.Success || result.Message != "No calculation found" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestFetchCalculationID_RequiresProductCode(t *testing.T) {
	transport := &scriptedTransport{}
	client := newTestClient(t, transport)

	_, err := client.FetchCalculationID(context.Background(), FetchCalculationIDRequest{CustomerID: "C100"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != ClientErrorBadInput {
		t.Fatalf("expected %s, got %v", ClientErrorBadInput, err)
	}
	if len(transport.calls()) != 0 {
		t.Fatalf("expected no transport call for invalid request")
	}
}

func TestCreateCalculation_Success(t *testing.T) {
	transport := &scriptedTransport{scripts: []transportScript{
		{res: jsonResponse(201, `{"Data":{"Id":"CALC-90"}}`)},
	}}
	sink := &memoryActivitySink{}
	client := newTestClient(t, transport, WithActivitySink(sink))

	result, err := client.CreateCalculation(context.Background(), json.RawMessage(`{"productGroup":"boxes"}`))
	if err != nil {
		t.Fatalf("create calculation: %v", err)
	}
	if !result.Success || result.CalculationID != "CALC-90" {
		t.Fatalf("unexpected result: %#v", result)
	}

	req := transport.calls()[0]
	if req.Method != "POST" || req.URL != CalculationsPath() {
		t.Fatalf("unexpected request target: %s %s", req.Method, req.URL)
	}
	if len(sink.entries) != 1 || sink.entries[0].Status != ActivityStatusOK {
		t.Fatalf("expected ok activity entry, got %#v", sink.entries)
	}
}

func TestCreateCalculation_RejectsMalformedPayload(t *testing.T) {
	transport := &scriptedTransport{}
	client := newTestClient(t, transport)

	_, err := client.CreateCalculation(context.Background(), json.RawMessage(`{"productGroup":`))
	if err == nil {
		t.Fatalf("expected payload validation error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != ClientErrorBadInput {
		t.Fatalf("expected %s, got %v", ClientErrorBadInput, err)
	}
	if len(transport.calls()) != 0 {
		t.Fatalf("expected no transport call for malformed payload")
	}
}

func TestValidateRawPayload(t *testing.T) {
	if err := validateRawPayload(nil); err == nil {
		t.Fatalf("expected error for empty payload")
	}
	if err := validateRawPayload(json.RawMessage(`not json`)); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
	if err := validateRawPayload(json.RawMessage(`{"ok":true}`)); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
}
