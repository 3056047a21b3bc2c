package core

import (
	"fmt"
	"net/url"
	"strings"
)

// Path builders for the vendor endpoint families. Segment parameters are
// escaped and validated here so operations never splice raw strings into
// request paths.

func TokenPath() string {
	return "oauth/token"
}

func FetchAddressIDPath() string {
	return "custom-api/export/fetchaddressid"
}

func AddressesPath() string {
	return "address-api/v1/addresses"
}

func AddressPath(addressID string) (string, error) {
	segment, err := pathSegment("address id", addressID)
	if err != nil {
		return "", err
	}
	return AddressesPath() + "/" + segment, nil
}

func FetchCalculationIDPath() string {
	return "custom-api/export/fetchcalculationid"
}

func CalculationsPath() string {
	return "quote-api/v1/calculations"
}

func CalculationProductsPath(calculationID string) (string, error) {
	segment, err := pathSegment("calculation id", calculationID)
	if err != nil {
		return "", err
	}
	return "product-api/v1/calculations/" + segment + "/products", nil
}

func SalesOrderPath(customerID, contactID string) (string, error) {
	customer, err := pathSegment("customer id", customerID)
	if err != nil {
		return "", err
	}
	contact, err := pathSegment("contact id", contactID)
	if err != nil {
		return "", err
	}
	return "sales-order-api/v1/customers/" + customer + "/contacts/" + contact + "/sales-orders/order", nil
}

func pathSegment(label, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("core: %s is required", label)
	}
	return url.PathEscape(trimmed), nil
}
