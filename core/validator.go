package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ValidateAddress runs the bidirectional check: forward id lookup,
// reverse fetch by id, then field-by-field comparison of the query
// against the remote record. A field mismatch is reported, not an error;
// Success only stays false when a step could not complete.
func (c *Client) ValidateAddress(ctx context.Context, query AddressQuery) (result ValidationResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"environment": c.Environment(),
		"customer_id": strings.TrimSpace(query.CustomerID),
	}
	defer func() {
		c.observeOperation(ctx, startedAt, "validate_address", err, fields)
	}()

	result = ValidationResult{Query: query}

	lookup, err := c.FetchAddressID(ctx, query)
	if err != nil {
		result.Message = lookup.Message
		return result, err
	}
	if !lookup.Success {
		result.Message = "no address id found for query"
		return result, nil
	}
	result.AddressID = lookup.AddressID
	result.IDFound = true
	fields["address_id"] = lookup.AddressID

	details, err := c.GetAddress(ctx, lookup.AddressID)
	if err != nil {
		result.Message = details.Message
		return result, err
	}
	if !details.Exists {
		result.Message = fmt.Sprintf("address id %s did not resolve to a record", lookup.AddressID)
		return result, nil
	}
	result.IDValid = true
	result.Address = details.Address

	mismatched := compareAddressFields(query, details.Address)
	result.MismatchedFields = mismatched
	result.DetailsMatch = len(mismatched) == 0
	result.Success = true
	if result.DetailsMatch {
		result.Message = "address validated"
	} else {
		result.Message = fmt.Sprintf("address found but fields differ: %s", strings.Join(mismatched, ", "))
	}
	return result, nil
}

// compareAddressFields applies the per-field folding rules: customer id,
// city and country compare case-insensitively, postal codes ignore
// spaces. Only the query street is truncated to the vendor column width;
// the stored value is compared as the vendor returned it.
func compareAddressFields(query AddressQuery, remote AddressDetails) []string {
	mismatched := []string{}
	if !strings.EqualFold(strings.TrimSpace(query.CustomerID), strings.TrimSpace(remote.CustomerID)) {
		mismatched = append(mismatched, "customer_id")
	}
	if normalizePostalCode(query.PostalCode) != normalizePostalCode(remote.PostalCode) {
		mismatched = append(mismatched, "postal_code")
	}
	queryStreet := strings.ToUpper(TruncateStreet(strings.TrimSpace(query.Street)))
	remoteStreet := strings.ToUpper(strings.TrimSpace(remote.Street))
	if queryStreet != remoteStreet {
		mismatched = append(mismatched, "street")
	}
	if !strings.EqualFold(strings.TrimSpace(query.City), strings.TrimSpace(remote.City)) {
		mismatched = append(mismatched, "city")
	}
	if !strings.EqualFold(strings.TrimSpace(query.CountryID), strings.TrimSpace(remote.Country)) {
		mismatched = append(mismatched, "country")
	}
	return mismatched
}

func normalizePostalCode(value string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(value), " ", ""))
}
