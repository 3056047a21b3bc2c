package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-cerm/core"
)

// TokenFetcher issues a fresh token from the vendor.
type TokenFetcher interface {
	FetchToken(ctx context.Context) (core.Token, error)
}

type CachedTokenSourceConfig struct {
	Environment string
	Store       core.TokenStore
	Secrets     core.SecretProvider
	Logger      core.Logger
	Now         func() time.Time
}

// CachedTokenSource owns the single cached token slot. Reads take the
// lock briefly; the fetch itself runs outside it, so concurrent callers
// hitting an empty or expired slot each fetch and the last write wins.
// Extra fetches against the vendor are harmless.
type CachedTokenSource struct {
	mu      sync.Mutex
	token   core.Token
	fetcher TokenFetcher
	config  CachedTokenSourceConfig
}

func NewCachedTokenSource(fetcher TokenFetcher, cfg CachedTokenSourceConfig) *CachedTokenSource {
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &CachedTokenSource{
		fetcher: fetcher,
		config: CachedTokenSourceConfig{
			Environment: core.NormalizeEnvironmentName(cfg.Environment),
			Store:       cfg.Store,
			Secrets:     cfg.Secrets,
			Logger:      cfg.Logger,
			Now:         now,
		},
	}
}

func (s *CachedTokenSource) Token(ctx context.Context) (core.Token, error) {
	if s == nil || s.fetcher == nil {
		return core.Token{}, fmt.Errorf("auth: token fetcher is not configured")
	}

	s.mu.Lock()
	cached := s.token
	s.mu.Unlock()

	state := core.ResolveTokenFreshness(s.currentTime(), cached, 0)
	if !core.ShouldFetchToken(state) {
		return cached, nil
	}

	token, err := s.fetcher.FetchToken(ctx)
	if err != nil {
		return core.Token{}, err
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	s.persist(ctx, token)
	return token, nil
}

// Invalidate discards the cached token so the next call fetches again.
func (s *CachedTokenSource) Invalidate() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.token = core.Token{}
	s.mu.Unlock()
}

// persist records a freshly issued token as a new encrypted version when
// a store and a secret provider are both configured. Persistence is an
// audit trail, never a serving path, so failures only log.
func (s *CachedTokenSource) persist(ctx context.Context, token core.Token) {
	if s.config.Store == nil || s.config.Secrets == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"access_token": token.AccessToken,
		"token_type":   token.TokenType,
		"expires_in":   token.ExpiresIn,
		"expires_at":   token.ExpiresAt,
	})
	if err != nil {
		s.logPersistFailure("encode token payload", err)
		return
	}
	encrypted, err := s.config.Secrets.Encrypt(ctx, payload)
	if err != nil {
		s.logPersistFailure("encrypt token payload", err)
		return
	}

	input := core.SaveTokenInput{
		Environment:      s.config.Environment,
		EncryptedPayload: encrypted,
		TokenType:        token.TokenType,
		Status:           core.TokenStatusActive,
	}
	if !token.ExpiresAt.IsZero() {
		expiresAt := token.ExpiresAt.UTC()
		input.ExpiresAt = &expiresAt
	}
	if described, ok := s.config.Secrets.(interface{ Metadata() (string, int) }); ok {
		input.EncryptionKeyID, input.EncryptionVersion = described.Metadata()
	}
	if _, err := s.config.Store.SaveNewVersion(ctx, input); err != nil {
		s.logPersistFailure("save token snapshot", err)
	}
}

func (s *CachedTokenSource) logPersistFailure(step string, err error) {
	if s.config.Logger == nil {
		return
	}
	s.config.Logger.Error("token persistence failed",
		"step", strings.TrimSpace(step),
		"environment", s.config.Environment,
		"error", err.Error(),
	)
}

func (s *CachedTokenSource) currentTime() time.Time {
	if s != nil && s.config.Now != nil {
		return s.config.Now().UTC()
	}
	return time.Now().UTC()
}

var _ core.TokenSource = (*CachedTokenSource)(nil)
