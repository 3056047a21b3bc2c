package core

import (
	"strings"
	"time"
)

const DefaultTokenExpiringSoonWindow = 5 * time.Minute

// TokenFreshness captures the lifecycle state of a cached token at one
// instant.
type TokenFreshness struct {
	ExpiresAt      *time.Time
	HasAccessToken bool
	IsExpired      bool
	IsExpiringSoon bool
}

// ResolveTokenFreshness evaluates expiry flags for a token. The expiry
// instant already folds in the configured skew, so "expired" here means
// the token must not be presented to the vendor anymore.
func ResolveTokenFreshness(now time.Time, token Token, expiringSoonWindow time.Duration) TokenFreshness {
	if now.IsZero() {
		now = time.Now().UTC()
	} else {
		now = now.UTC()
	}
	if expiringSoonWindow <= 0 {
		expiringSoonWindow = DefaultTokenExpiringSoonWindow
	}

	state := TokenFreshness{
		HasAccessToken: strings.TrimSpace(token.AccessToken) != "",
	}
	if token.ExpiresAt.IsZero() {
		state.IsExpired = true
		return state
	}
	expiresAt := token.ExpiresAt.UTC()
	state.ExpiresAt = &expiresAt
	if !expiresAt.After(now) {
		state.IsExpired = true
		return state
	}
	state.IsExpiringSoon = !expiresAt.After(now.Add(expiringSoonWindow))
	return state
}

// ShouldFetchToken reports whether the cache slot needs a fresh token
// before the next vendor call.
func ShouldFetchToken(state TokenFreshness) bool {
	if !state.HasAccessToken {
		return true
	}
	return state.IsExpired
}
