package auth

import (
	"errors"
	"fmt"
	"strings"
)

var ErrAuthenticationFailed = errors.New("auth: authentication failed")

// AuthError reports a failed token request. It carries the HTTP status and
// the vendor's error code/description so callers never have to infer
// failure from an empty token.
type AuthError struct {
	StatusCode  int
	ErrorCode   string
	Description string
	Cause       error
}

func (e *AuthError) Error() string {
	if e == nil {
		return ErrAuthenticationFailed.Error()
	}
	base := ErrAuthenticationFailed.Error()
	if strings.TrimSpace(e.ErrorCode) != "" {
		base += ": " + strings.TrimSpace(e.ErrorCode)
	}
	if strings.TrimSpace(e.Description) != "" {
		base += ": " + strings.TrimSpace(e.Description)
	}
	if e.StatusCode > 0 {
		base += fmt.Sprintf(" (status=%d)", e.StatusCode)
	}
	if e.Cause != nil {
		base += ": " + e.Cause.Error()
	}
	return base
}

func (e *AuthError) Unwrap() error {
	if e == nil {
		return nil
	}
	if e.Cause != nil {
		return e.Cause
	}
	return ErrAuthenticationFailed
}
