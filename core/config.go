package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	EnvironmentTest       = "test"
	EnvironmentProduction = "production"
)

// DefaultTokenExpirySkew is subtracted from expires_in when computing the
// cached token expiry so a token is never presented moments before the
// vendor rejects it.
const DefaultTokenExpirySkew = 60 * time.Second

const (
	DefaultRequestTimeout       = 30 * time.Second
	DefaultTokenRequestTimeout  = 15 * time.Second
	DefaultMaxResponseBodyBytes = int64(1 << 20)
)

// EnvironmentConfig describes one CERM deployment target. BaseURL points at
// the customer instance; HostHeader is the Host value the vendor expects on
// every request regardless of the URL host.
type EnvironmentConfig struct {
	BaseURL    string `koanf:"base_url" mapstructure:"base_url"`
	HostHeader string `koanf:"host_header" mapstructure:"host_header"`
}

type CredentialsConfig struct {
	ClientID     string `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret string `koanf:"client_secret" mapstructure:"client_secret"`
	Username     string `koanf:"username" mapstructure:"username"`
	Password     string `koanf:"password" mapstructure:"password"`
}

type HTTPConfig struct {
	RequestTimeout       time.Duration `koanf:"request_timeout" mapstructure:"request_timeout"`
	MaxResponseBodyBytes int64         `koanf:"max_response_body_bytes" mapstructure:"max_response_body_bytes"`
}

type TokenConfig struct {
	RequestTimeout time.Duration `koanf:"request_timeout" mapstructure:"request_timeout"`
	ExpirySkew     time.Duration `koanf:"expiry_skew" mapstructure:"expiry_skew"`
}

type Config struct {
	ServiceName  string                       `koanf:"service_name" mapstructure:"service_name"`
	Environment  string                       `koanf:"environment" mapstructure:"environment"`
	Environments map[string]EnvironmentConfig `koanf:"environments" mapstructure:"environments"`
	Credentials  CredentialsConfig            `koanf:"credentials" mapstructure:"credentials"`
	HTTP         HTTPConfig                   `koanf:"http" mapstructure:"http"`
	Token        TokenConfig                  `koanf:"token" mapstructure:"token"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "cerm",
		Environment: EnvironmentTest,
		Environments: map[string]EnvironmentConfig{
			EnvironmentTest:       {},
			EnvironmentProduction: {},
		},
		HTTP: HTTPConfig{
			RequestTimeout:       DefaultRequestTimeout,
			MaxResponseBodyBytes: DefaultMaxResponseBodyBytes,
		},
		Token: TokenConfig{
			RequestTimeout: DefaultTokenRequestTimeout,
			ExpirySkew:     DefaultTokenExpirySkew,
		},
	}
}

// NormalizeEnvironmentName folds an environment selector for lookups, so
// "Test" and "test" select the same entry.
func NormalizeEnvironmentName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ActiveEnvironment resolves the configured environment name to its
// descriptor.
func (c Config) ActiveEnvironment() (EnvironmentConfig, error) {
	name := NormalizeEnvironmentName(c.Environment)
	if name == "" {
		return EnvironmentConfig{}, fmt.Errorf("core: environment is required")
	}
	for key, env := range c.Environments {
		if NormalizeEnvironmentName(key) == name {
			return env, nil
		}
	}
	return EnvironmentConfig{}, fmt.Errorf("core: unknown environment %q", c.Environment)
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	env, err := c.ActiveEnvironment()
	if err != nil {
		return err
	}
	if strings.TrimSpace(env.BaseURL) == "" {
		return fmt.Errorf("core: environment %q base_url is required", c.Environment)
	}
	if strings.TrimSpace(env.HostHeader) == "" {
		return fmt.Errorf("core: environment %q host_header is required", c.Environment)
	}
	if strings.TrimSpace(c.Credentials.ClientID) == "" {
		return fmt.Errorf("core: credentials client_id is required")
	}
	if strings.TrimSpace(c.Credentials.ClientSecret) == "" {
		return fmt.Errorf("core: credentials client_secret is required")
	}
	if strings.TrimSpace(c.Credentials.Username) == "" {
		return fmt.Errorf("core: credentials username is required")
	}
	if strings.TrimSpace(c.Credentials.Password) == "" {
		return fmt.Errorf("core: credentials password is required")
	}
	if c.HTTP.RequestTimeout < 0 {
		return fmt.Errorf("core: http request_timeout must not be negative")
	}
	if c.Token.ExpirySkew < 0 {
		return fmt.Errorf("core: token expiry_skew must not be negative")
	}
	return nil
}
