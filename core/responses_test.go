package core

import (
	"fmt"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestBodyExcerpt(t *testing.T) {
	if got := bodyExcerpt([]byte("  trimmed  ")); got != "trimmed" {
		t.Fatalf("expected trimmed excerpt, got %q", got)
	}
	long := strings.Repeat("a", maxBodyExcerptLen+100)
	if got := bodyExcerpt([]byte(long)); len(got) != maxBodyExcerptLen {
		t.Fatalf("expected excerpt clipped to %d, got %d", maxBodyExcerptLen, len(got))
	}
}

func TestIsSuccessStatus(t *testing.T) {
	for _, code := range []int{200, 201, 204, 299} {
		if !isSuccessStatus(code) {
			t.Fatalf("expected %d to be success", code)
		}
	}
	for _, code := range []int{199, 300, 404, 500} {
		if isSuccessStatus(code) {
			t.Fatalf("expected %d to be failure", code)
		}
	}
}

func TestRemoteFailureMessage(t *testing.T) {
	withBody := remoteFailureMessage(TransportResponse{StatusCode: 503, Body: []byte(`{"error":"maintenance"}`)})
	if withBody != `remote call failed with status 503: {"error":"maintenance"}` {
		t.Fatalf("unexpected message: %q", withBody)
	}
	withoutBody := remoteFailureMessage(TransportResponse{StatusCode: 502})
	if withoutBody != "remote call failed with status 502" {
		t.Fatalf("unexpected message: %q", withoutBody)
	}
}

func TestRemoteErrorCarriesMetadata(t *testing.T) {
	client := &Client{}
	err := client.remoteError("create_address", TransportResponse{StatusCode: 500, Body: []byte("boom")})

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.Category != goerrors.CategoryExternal || richErr.TextCode != ClientErrorRemote {
		t.Fatalf("unexpected envelope: %#v", richErr)
	}
	if richErr.Metadata["operation"] != "create_address" || richErr.Metadata["status_code"] != 500 {
		t.Fatalf("unexpected metadata: %#v", richErr.Metadata)
	}
}

func TestParseErrorMessage(t *testing.T) {
	client := &Client{}
	err := client.parseError("get_address", fmt.Errorf("unexpected end of JSON input"))

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.TextCode != ClientErrorParse {
		t.Fatalf("expected %s, got %q", ClientErrorParse, richErr.TextCode)
	}
	if !strings.Contains(richErr.Message, "decode get_address response") {
		t.Fatalf("unexpected message: %q", richErr.Message)
	}
}
