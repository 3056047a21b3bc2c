package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrTokenNotFound                = errors.New("core: token not found")
	ErrInvalidTokenStatusTransition = errors.New("core: invalid token status transition")
)

// StreetMaxLen is the longest street value the vendor accepts on lookups
// and submissions. Longer values are truncated, never rejected.
const StreetMaxLen = 40

// TruncateStreet clips a street value to the vendor's column width. The
// limit counts characters, not bytes, so a multi-byte rune is never split.
func TruncateStreet(street string) string {
	if len(street) <= StreetMaxLen {
		return street
	}
	runes := []rune(street)
	if len(runes) <= StreetMaxLen {
		return street
	}
	return string(runes[:StreetMaxLen])
}

// AddressQuery is the five-field selector the export endpoint matches
// addresses on. All fields are required.
type AddressQuery struct {
	CustomerID string
	PostalCode string
	Street     string
	City       string
	CountryID  string
}

func (q AddressQuery) Validate() error {
	if strings.TrimSpace(q.CustomerID) == "" {
		return fmt.Errorf("core: customer id is required")
	}
	if strings.TrimSpace(q.PostalCode) == "" {
		return fmt.Errorf("core: postal code is required")
	}
	if strings.TrimSpace(q.Street) == "" {
		return fmt.Errorf("core: street is required")
	}
	if strings.TrimSpace(q.City) == "" {
		return fmt.Errorf("core: city is required")
	}
	if strings.TrimSpace(q.CountryID) == "" {
		return fmt.Errorf("core: country id is required")
	}
	return nil
}

// CreateAddressRequest is the payload for the address creation endpoint.
// Field names follow the vendor's JSON casing.
type CreateAddressRequest struct {
	CustomerID string `json:"customerId"`
	Name       string `json:"name"`
	Street     string `json:"street"`
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
	Country    string `json:"country"`
	Active     bool   `json:"active"`
}

func (r CreateAddressRequest) Validate() error {
	if strings.TrimSpace(r.CustomerID) == "" {
		return fmt.Errorf("core: customer id is required")
	}
	if strings.TrimSpace(r.Street) == "" {
		return fmt.Errorf("core: street is required")
	}
	if strings.TrimSpace(r.City) == "" {
		return fmt.Errorf("core: city is required")
	}
	return nil
}

type FetchCalculationIDRequest struct {
	CustomerID  string `json:"customerId"`
	ProductCode string `json:"productCode"`
}

func (r FetchCalculationIDRequest) Validate() error {
	if strings.TrimSpace(r.CustomerID) == "" {
		return fmt.Errorf("core: customer id is required")
	}
	if strings.TrimSpace(r.ProductCode) == "" {
		return fmt.Errorf("core: product code is required")
	}
	return nil
}

// AddressDetails is the remote address record as returned by the address
// endpoint. Compared field-by-field during bidirectional validation.
type AddressDetails struct {
	ID         string `json:"id"`
	CustomerID string `json:"customerId"`
	Name       string `json:"name"`
	Street     string `json:"street"`
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
	Country    string `json:"country"`
	Active     bool   `json:"active"`
}

// AddressIDResult reports a forward lookup or address creation. Success
// holds exactly when AddressID is non-empty.
type AddressIDResult struct {
	AddressID string
	Success   bool
	Message   string
}

type CalculationIDResult struct {
	CalculationID string
	Success       bool
	Message       string
}

type ProductResult struct {
	ProductID string
	Success   bool
	Message   string
}

type SalesOrderResult struct {
	SalesOrderID string
	Success      bool
	Message      string
}

// AddressDetailsResult reports a reverse lookup by id. A 404 from the
// vendor is a successful call with Exists=false; Success only turns false
// when the call itself failed. StatusCode carries the raw HTTP status for
// callers that branch on it.
type AddressDetailsResult struct {
	Success    bool
	Exists     bool
	StatusCode int
	Message    string
	Address    AddressDetails
}

// ValidationResult aggregates the bidirectional validation outcome: the
// original query, the discovered id, the step verdicts, and the remote
// record fetched during reverse validation.
type ValidationResult struct {
	Query            AddressQuery
	AddressID        string
	IDFound          bool
	IDValid          bool
	DetailsMatch     bool
	Success          bool
	Message          string
	Address          AddressDetails
	MismatchedFields []string
}

type TokenStatus string

const (
	TokenStatusActive  TokenStatus = "active"
	TokenStatusRevoked TokenStatus = "revoked"
	TokenStatusExpired TokenStatus = "expired"
)

// TokenRecord is a persisted snapshot of an issued token. Payloads are
// stored encrypted; at most one row per environment is active.
type TokenRecord struct {
	ID                string
	Environment       string
	Version           int
	EncryptedPayload  []byte
	TokenType         string
	ExpiresAt         *time.Time
	Status            TokenStatus
	RevocationReason  string
	EncryptionKeyID   string
	EncryptionVersion int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (t *TokenRecord) TransitionTo(status TokenStatus, now time.Time) error {
	if t == nil {
		return nil
	}
	if t.Status == status {
		t.UpdatedAt = now
		return nil
	}
	if !tokenTransitionAllowed(t.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTokenStatusTransition, t.Status, status)
	}
	t.Status = status
	t.UpdatedAt = now
	return nil
}

func tokenTransitionAllowed(current, next TokenStatus) bool {
	allowed := map[TokenStatus]map[TokenStatus]struct{}{
		TokenStatusActive: {
			TokenStatusRevoked: {},
			TokenStatusExpired: {},
		},
		TokenStatusExpired: {
			TokenStatusRevoked: {},
		},
		TokenStatusRevoked: {},
	}
	_, ok := allowed[current][next]
	return ok
}

type ActivityStatus string

const (
	ActivityStatusOK    ActivityStatus = "ok"
	ActivityStatusWarn  ActivityStatus = "warn"
	ActivityStatusError ActivityStatus = "error"
)

// ActivityEntry is one audited client operation. Metadata is redacted
// before it leaves the process.
type ActivityEntry struct {
	ID          string
	Environment string
	Operation   string
	Status      ActivityStatus
	StatusCode  int
	DurationMS  int64
	Metadata    map[string]any
	CreatedAt   time.Time
}
