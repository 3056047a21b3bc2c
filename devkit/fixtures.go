package devkit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-cerm/core"
)

// OAuthTokenScript builds a scripted token-endpoint success response.
func OAuthTokenScript(accessToken string, expiresIn int64) TransportScript {
	body, _ := json.Marshal(map[string]any{
		"access_token": accessToken,
		"token_type":   "bearer",
		"expires_in":   expiresIn,
	})
	return TransportScript{
		Response: core.TransportResponse{
			StatusCode: 200,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       body,
		},
	}
}

// ExportRowsScript builds a fetchaddressid/fetchcalculationid export
// response: a bare JSON array of vendor-cased rows.
func ExportRowsScript(rows ...map[string]any) TransportScript {
	if rows == nil {
		rows = []map[string]any{}
	}
	body, _ := json.Marshal(rows)
	return TransportScript{
		Response: core.TransportResponse{
			StatusCode: 200,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       body,
		},
	}
}

// DataEnvelopeScript builds a create-endpoint response: {"Data":{"Id":id}}.
func DataEnvelopeScript(statusCode int, id string) TransportScript {
	body, _ := json.Marshal(map[string]any{
		"Data": map[string]any{"Id": id},
	})
	return TransportScript{
		Response: core.TransportResponse{
			StatusCode: statusCode,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       body,
		},
	}
}

// AddressDetailsScript builds a GET address response body.
func AddressDetailsScript(details core.AddressDetails) TransportScript {
	body, _ := json.Marshal(details)
	return TransportScript{
		Response: core.TransportResponse{
			StatusCode: 200,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       body,
		},
	}
}

// StatusScript builds a bare status response with an optional body.
func StatusScript(statusCode int, body string) TransportScript {
	return TransportScript{
		Response: core.TransportResponse{
			StatusCode: statusCode,
			Headers:    map[string]string{},
			Body:       []byte(body),
		},
	}
}

// StaticTokenSource always serves the same token. Invalidate counts calls
// so tests can assert cache-drop behavior.
type StaticTokenSource struct {
	mu          sync.Mutex
	token       core.Token
	err         error
	calls       int
	invalidated int
}

func NewStaticTokenSource(accessToken string) *StaticTokenSource {
	return &StaticTokenSource{
		token: core.Token{
			AccessToken: accessToken,
			TokenType:   "bearer",
			ExpiresAt:   time.Now().UTC().Add(time.Hour),
		},
	}
}

func (s *StaticTokenSource) WithError(err error) *StaticTokenSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

func (s *StaticTokenSource) Token(context.Context) (core.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return core.Token{}, s.err
	}
	return s.token, nil
}

func (s *StaticTokenSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated++
}

func (s *StaticTokenSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *StaticTokenSource) Invalidations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalidated
}

// MemoryActivitySink keeps recorded entries in memory for assertions.
type MemoryActivitySink struct {
	mu      sync.Mutex
	entries []core.ActivityEntry
}

func NewMemoryActivitySink() *MemoryActivitySink {
	return &MemoryActivitySink{}
}

func (s *MemoryActivitySink) Record(_ context.Context, entry core.ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("act_%d", len(s.entries)+1)
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryActivitySink) List(_ context.Context, filter core.ActivityFilter) (core.ActivityPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]core.ActivityEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		if filter.Environment != "" && !strings.EqualFold(entry.Environment, filter.Environment) {
			continue
		}
		if filter.Operation != "" && entry.Operation != filter.Operation {
			continue
		}
		if filter.Status != "" && entry.Status != filter.Status {
			continue
		}
		matched = append(matched, entry)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 25
	}
	offset := (page - 1) * perPage
	items := []core.ActivityEntry{}
	if offset < len(matched) {
		end := offset + perPage
		if end > len(matched) {
			end = len(matched)
		}
		items = append(items, matched[offset:end]...)
	}
	return core.ActivityPage{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   len(matched),
		HasNext: offset+len(items) < len(matched),
	}, nil
}

func (s *MemoryActivitySink) Entries() []core.ActivityEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ActivityEntry(nil), s.entries...)
}

// MemoryTokenStore versions token snapshots per environment in memory.
type MemoryTokenStore struct {
	mu      sync.Mutex
	records map[string][]core.TokenRecord
	now     func() time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		records: map[string][]core.TokenRecord{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryTokenStore) SaveNewVersion(_ context.Context, in core.SaveTokenInput) (core.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	environment := strings.ToLower(strings.TrimSpace(in.Environment))
	if environment == "" {
		return core.TokenRecord{}, fmt.Errorf("devkit: environment is required")
	}
	now := s.now()
	rows := s.records[environment]
	for i := range rows {
		if rows[i].Status == core.TokenStatusActive {
			rows[i].Status = core.TokenStatusRevoked
			rows[i].RevocationReason = "rotated"
			rows[i].UpdatedAt = now
		}
	}
	status := in.Status
	if status == "" {
		status = core.TokenStatusActive
	}
	record := core.TokenRecord{
		ID:                fmt.Sprintf("tok_%s_%d", environment, len(rows)+1),
		Environment:       environment,
		Version:           len(rows) + 1,
		EncryptedPayload:  append([]byte(nil), in.EncryptedPayload...),
		TokenType:         in.TokenType,
		ExpiresAt:         in.ExpiresAt,
		Status:            status,
		EncryptionKeyID:   in.EncryptionKeyID,
		EncryptionVersion: in.EncryptionVersion,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.records[environment] = append(rows, record)
	return record, nil
}

func (s *MemoryTokenStore) GetActiveByEnvironment(_ context.Context, environment string) (core.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.records[strings.ToLower(strings.TrimSpace(environment))]
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].Status == core.TokenStatusActive {
			return rows[i], nil
		}
	}
	return core.TokenRecord{}, core.ErrTokenNotFound
}

func (s *MemoryTokenStore) RevokeActive(_ context.Context, environment string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.records[strings.ToLower(strings.TrimSpace(environment))]
	revoked := false
	now := s.now()
	for i := range rows {
		if rows[i].Status == core.TokenStatusActive {
			rows[i].Status = core.TokenStatusRevoked
			rows[i].RevocationReason = strings.TrimSpace(reason)
			rows[i].UpdatedAt = now
			revoked = true
		}
	}
	if !revoked {
		return core.ErrTokenNotFound
	}
	return nil
}

var (
	_ core.TokenSource  = (*StaticTokenSource)(nil)
	_ core.ActivitySink = (*MemoryActivitySink)(nil)
	_ core.TokenStore   = (*MemoryTokenStore)(nil)
)
