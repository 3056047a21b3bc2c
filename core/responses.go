package core

import (
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// exportAddressRow is one element of the fetchaddressid export response.
// The export facade uses vendor-cased identifier fields.
type exportAddressRow struct {
	AddressID string `json:"AddressID"`
}

type exportCalculationRow struct {
	CalculationID string `json:"CalculationID"`
}

// dataEnvelope wraps create-endpoint responses: {"Data":{"Id":"..."}}.
type dataEnvelope struct {
	Data struct {
		ID string `json:"Id"`
	} `json:"Data"`
}

const maxBodyExcerptLen = 512

func bodyExcerpt(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxBodyExcerptLen {
		text = text[:maxBodyExcerptLen]
	}
	return text
}

func isSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

func remoteFailureMessage(res TransportResponse) string {
	excerpt := bodyExcerpt(res.Body)
	if excerpt == "" {
		return fmt.Sprintf("remote call failed with status %d", res.StatusCode)
	}
	return fmt.Sprintf("remote call failed with status %d: %s", res.StatusCode, excerpt)
}

func (c *Client) remoteError(operation string, res TransportResponse) error {
	return newClientError(remoteFailureMessage(res), goerrors.CategoryExternal, ClientErrorRemote).
		WithMetadata(map[string]any{
			"operation":   operation,
			"status_code": res.StatusCode,
			"body":        bodyExcerpt(res.Body),
		})
}

func (c *Client) parseError(operation string, cause error) error {
	return newClientError(
		fmt.Sprintf("decode %s response: %v", operation, cause),
		goerrors.CategoryBadInput,
		ClientErrorParse,
	).WithMetadata(map[string]any{
		"operation": operation,
	})
}
