package core

import (
	"context"
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ClientErrorBadInput    = "CERM_BAD_INPUT"
	ClientErrorAuthFailed  = "CERM_AUTH_FAILED"
	ClientErrorTimeout     = "CERM_TIMEOUT"
	ClientErrorRemote      = "CERM_REMOTE_ERROR"
	ClientErrorParse       = "CERM_PARSE_ERROR"
	ClientErrorRateLimited = "CERM_RATE_LIMITED"
	ClientErrorInternal    = "CERM_INTERNAL"
)

func clientErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureClientErrorEnvelope(richErr)
	}

	if isContextCancellation(err) {
		return newClientError(err.Error(), goerrors.CategoryOperation, ClientErrorTimeout)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "authentication"), strings.Contains(msg, "token endpoint"):
		return newClientError(err.Error(), goerrors.CategoryAuth, ClientErrorAuthFailed)
	case strings.Contains(msg, "throttl"), strings.Contains(msg, "rate limit"):
		return newClientError(err.Error(), goerrors.CategoryRateLimit, ClientErrorRateLimited)
	case strings.Contains(msg, "decode"), strings.Contains(msg, "unmarshal"), strings.Contains(msg, "parse"):
		return newClientError(err.Error(), goerrors.CategoryBadInput, ClientErrorParse)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newClientError(err.Error(), goerrors.CategoryBadInput, ClientErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureClientErrorEnvelope(mapped)
}

func newClientError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureClientErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureClientErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = clientHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultClientTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultClientTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ClientErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ClientErrorAuthFailed
	case goerrors.CategoryRateLimit:
		return ClientErrorRateLimited
	case goerrors.CategoryOperation:
		return ClientErrorTimeout
	case goerrors.CategoryExternal:
		return ClientErrorRemote
	default:
		return ClientErrorInternal
	}
}

func clientHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsTimeout reports whether err stems from a deadline or cancellation,
// either raw or wrapped in an error envelope.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if isContextCancellation(err) {
		return true
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == ClientErrorTimeout
	}
	return false
}

// IsAuthFailure reports whether err came from the token endpoint path.
func IsAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if richErr.TextCode == ClientErrorAuthFailed {
			return true
		}
		return richErr.Category == goerrors.CategoryAuth
	}
	return false
}

func isContextCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
