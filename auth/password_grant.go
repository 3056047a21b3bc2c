package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-cerm/core"
)

type PasswordGrantConfig struct {
	Environment    string
	Credentials    core.CredentialsConfig
	ExpirySkew     time.Duration
	RequestTimeout time.Duration
	Policy         core.RateLimitPolicy
	Now            func() time.Time
}

// PasswordGrantClient exchanges the configured resource-owner credentials
// for an access token at the vendor's token endpoint. Credentials travel
// both as HTTP Basic auth and in the form body; the vendor checks both.
type PasswordGrantClient struct {
	config    PasswordGrantConfig
	transport core.TransportAdapter
}

func NewPasswordGrantClient(transport core.TransportAdapter, cfg PasswordGrantConfig) *PasswordGrantClient {
	skew := cfg.ExpirySkew
	if skew <= 0 {
		skew = core.DefaultTokenExpirySkew
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = core.DefaultTokenRequestTimeout
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &PasswordGrantClient{
		config: PasswordGrantConfig{
			Environment: core.NormalizeEnvironmentName(cfg.Environment),
			Credentials: core.CredentialsConfig{
				ClientID:     strings.TrimSpace(cfg.Credentials.ClientID),
				ClientSecret: strings.TrimSpace(cfg.Credentials.ClientSecret),
				Username:     strings.TrimSpace(cfg.Credentials.Username),
				Password:     cfg.Credentials.Password,
			},
			ExpirySkew:     skew,
			RequestTimeout: timeout,
			Policy:         cfg.Policy,
			Now:            now,
		},
		transport: transport,
	}
}

func (c *PasswordGrantClient) FetchToken(ctx context.Context) (core.Token, error) {
	if c == nil || c.transport == nil {
		return core.Token{}, &AuthError{
			Description: "transport adapter is not configured",
			Cause:       ErrAuthenticationFailed,
		}
	}
	creds := c.config.Credentials
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return core.Token{}, &AuthError{
			Description: "client id and client secret are required",
			Cause:       ErrAuthenticationFailed,
		}
	}
	if creds.Username == "" || strings.TrimSpace(creds.Password) == "" {
		return core.Token{}, &AuthError{
			Description: "username and password are required",
			Cause:       ErrAuthenticationFailed,
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	values := url.Values{}
	values.Set("grant_type", "password")
	values.Set("client_id", creds.ClientID)
	values.Set("client_secret", creds.ClientSecret)
	values.Set("username", creds.Username)
	values.Set("password", creds.Password)

	request := core.TransportRequest{
		Method: http.MethodPost,
		URL:    core.TokenPath(),
		Headers: map[string]string{
			"Content-Type":  "application/x-www-form-urlencoded",
			"Authorization": basicAuthHeader(creds.ClientID, creds.ClientSecret),
		},
		Body:    []byte(values.Encode()),
		Timeout: c.config.RequestTimeout,
		Metadata: map[string]any{
			"operation": "token",
		},
	}

	key := core.RateLimitKey{Environment: c.config.Environment, Bucket: core.BucketOAuth}
	if c.config.Policy != nil {
		if err := c.config.Policy.BeforeCall(ctx, key); err != nil {
			return core.Token{}, err
		}
	}

	response, err := c.transport.Do(ctx, request)
	if err != nil {
		return core.Token{}, &AuthError{
			Description: "token request failed",
			Cause:       err,
		}
	}
	if c.config.Policy != nil {
		if err := c.config.Policy.AfterCall(ctx, key, core.NewResponseMeta(response)); err != nil {
			return core.Token{}, err
		}
	}

	payload, parseErr := parseTokenPayload(response.Body, response.Headers["Content-Type"])
	if parseErr != nil {
		return core.Token{}, &AuthError{
			StatusCode:  response.StatusCode,
			Description: "decode token response",
			Cause:       parseErr,
		}
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return core.Token{}, &AuthError{
			StatusCode:  response.StatusCode,
			ErrorCode:   payload.ErrorCode,
			Description: describeTokenError(payload),
			Cause:       ErrAuthenticationFailed,
		}
	}
	if payload.ErrorCode != "" {
		return core.Token{}, &AuthError{
			StatusCode:  response.StatusCode,
			ErrorCode:   payload.ErrorCode,
			Description: describeTokenError(payload),
			Cause:       ErrAuthenticationFailed,
		}
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return core.Token{}, &AuthError{
			StatusCode:  response.StatusCode,
			Description: "token response missing access token",
			Cause:       ErrAuthenticationFailed,
		}
	}

	token := core.Token{
		AccessToken: strings.TrimSpace(payload.AccessToken),
		TokenType:   normalizeTokenType(payload.TokenType),
		ExpiresIn:   payload.ExpiresIn,
	}
	if payload.ExpiresIn > 0 {
		token.ExpiresAt = c.config.Now().UTC().
			Add(time.Duration(payload.ExpiresIn) * time.Second).
			Add(-c.config.ExpirySkew)
	}
	return token, nil
}

type tokenEndpointPayload struct {
	AccessToken      string
	TokenType        string
	ExpiresIn        int64
	ErrorCode        string
	ErrorDescription string
}

func describeTokenError(payload tokenEndpointPayload) string {
	if strings.TrimSpace(payload.ErrorDescription) != "" {
		return strings.TrimSpace(payload.ErrorDescription)
	}
	if strings.TrimSpace(payload.ErrorCode) != "" {
		return strings.TrimSpace(payload.ErrorCode)
	}
	return "unknown error"
}

func parseTokenPayload(body []byte, contentType string) (tokenEndpointPayload, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if strings.Contains(contentType, "json") {
		return parseTokenPayloadJSON(body)
	}
	if strings.Contains(contentType, "x-www-form-urlencoded") || strings.Contains(contentType, "text/plain") {
		return parseTokenPayloadForm(body)
	}
	if payload, err := parseTokenPayloadJSON(body); err == nil {
		return payload, nil
	}
	return parseTokenPayloadForm(body)
}

func parseTokenPayloadJSON(body []byte) (tokenEndpointPayload, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return tokenEndpointPayload{}, fmt.Errorf("auth: empty token payload")
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return tokenEndpointPayload{}, err
	}
	return tokenEndpointPayload{
		AccessToken:      readAnyString(decoded["access_token"]),
		TokenType:        readAnyString(decoded["token_type"]),
		ExpiresIn:        readAnyInt64(decoded["expires_in"]),
		ErrorCode:        readAnyString(decoded["error"]),
		ErrorDescription: readAnyString(decoded["error_description"]),
	}, nil
}

func parseTokenPayloadForm(body []byte) (tokenEndpointPayload, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return tokenEndpointPayload{}, fmt.Errorf("auth: empty token payload")
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return tokenEndpointPayload{}, err
	}
	expiresIn, _ := strconv.ParseInt(strings.TrimSpace(values.Get("expires_in")), 10, 64)
	return tokenEndpointPayload{
		AccessToken:      strings.TrimSpace(values.Get("access_token")),
		TokenType:        strings.TrimSpace(values.Get("token_type")),
		ExpiresIn:        expiresIn,
		ErrorCode:        strings.TrimSpace(values.Get("error")),
		ErrorDescription: strings.TrimSpace(values.Get("error_description")),
	}, nil
}

func normalizeTokenType(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "bearer"
	}
	return normalized
}

func basicAuthHeader(clientID, clientSecret string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(clientID + ":" + clientSecret))
	return "Basic " + encoded
}

func readAnyString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return strings.TrimSpace(typed.String())
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	default:
		if value == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

func readAnyInt64(value any) int64 {
	switch typed := value.(type) {
	case int:
		return int64(typed)
	case int64:
		return typed
	case float64:
		return int64(typed)
	case json.Number:
		parsed, err := typed.Int64()
		if err == nil {
			return parsed
		}
		floatParsed, floatErr := typed.Float64()
		if floatErr == nil {
			return int64(floatParsed)
		}
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err == nil {
			return parsed
		}
	}
	return 0
}
