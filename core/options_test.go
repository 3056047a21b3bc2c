package core

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	return l.values, nil
}

type fixedConfigProvider struct {
	cfg Config
}

func (p *fixedConfigProvider) Load(context.Context, Config) (Config, error) {
	return p.cfg, nil
}

type fixedOptionsResolver struct {
	cfg Config
}

func (r *fixedOptionsResolver) Resolve(Config, Config, Config) (Config, error) {
	return r.cfg, nil
}

func TestNewClient_DefaultDependencies(t *testing.T) {
	client := newTestClient(t, &scriptedTransport{})

	deps := client.Dependencies()
	if deps.Logger == nil {
		t.Fatalf("expected default logger")
	}
	if deps.MetricsRecorder == nil {
		t.Fatalf("expected default metrics recorder")
	}
	if deps.ErrorFactory == nil {
		t.Fatalf("expected default error factory")
	}
	if deps.ErrorMapper == nil {
		t.Fatalf("expected default error mapper")
	}
	if deps.ConfigProvider == nil {
		t.Fatalf("expected default config provider")
	}
	if deps.OptionsResolver == nil {
		t.Fatalf("expected default options resolver")
	}
	if got := client.Config().ServiceName; got != "cerm" {
		t.Fatalf("expected default service_name cerm, got %q", got)
	}
}

func TestNewClient_WithOverrides(t *testing.T) {
	logger := newCaptureLogger()
	provider := stubLoggerProvider{logger: logger}
	customFactory := func(message string, category ...goerrors.Category) *goerrors.Error {
		return goerrors.New("custom:"+message, category...)
	}
	resolvedConfig := testConfig()
	resolvedConfig.ServiceName = "resolved"
	configProvider := &fixedConfigProvider{cfg: Config{ServiceName: "from-provider"}}
	optionsResolver := &fixedOptionsResolver{cfg: resolvedConfig}
	transport := &scriptedTransport{}
	source := newStubTokenSource()
	store := &stubTokenStore{}
	sink := &memoryActivitySink{}

	client, err := NewClient(testConfig(),
		WithLogger(logger),
		WithLoggerProvider(provider),
		WithErrorFactory(customFactory),
		WithConfigProvider(configProvider),
		WithOptionsResolver(optionsResolver),
		WithTransport(transport),
		WithTokenSource(source),
		WithTokenStore(store),
		WithActivitySink(sink),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	deps := client.Dependencies()
	if deps.ConfigProvider != configProvider {
		t.Fatalf("expected custom config provider override")
	}
	if deps.OptionsResolver != optionsResolver {
		t.Fatalf("expected custom options resolver override")
	}
	if deps.Transport != transport {
		t.Fatalf("expected custom transport override")
	}
	if deps.TokenStore != store {
		t.Fatalf("expected custom token store override")
	}
	if deps.ActivitySink != sink {
		t.Fatalf("expected custom activity sink override")
	}
	if got := client.Config().ServiceName; got != "resolved" {
		t.Fatalf("expected options resolver output config, got %q", got)
	}
}

func TestNewClient_ConfigLayeringPrecedence(t *testing.T) {
	provider := NewCfgxConfigProvider(mapRawLoader{values: map[string]any{
		"service_name": "from-config",
		"environment":  EnvironmentProduction,
	}})

	runtime := testConfig()
	runtime.ServiceName = ""

	client, err := NewClient(runtime,
		WithConfigProvider(provider),
		WithTransport(&scriptedTransport{}),
		WithTokenSource(newStubTokenSource()),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	cfg := client.Config()
	if cfg.ServiceName != "from-config" {
		t.Fatalf("expected config layer to override defaults, got %q", cfg.ServiceName)
	}
	if cfg.Environment != EnvironmentTest {
		t.Fatalf("expected runtime value to override config layer, got %q", cfg.Environment)
	}
}

func TestCfgxConfigProvider_LoadMergesDefaults(t *testing.T) {
	provider := NewCfgxConfigProvider(mapRawLoader{values: map[string]any{
		"environment": EnvironmentProduction,
	}})

	loaded, err := provider.Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Environment != EnvironmentProduction {
		t.Fatalf("expected raw value applied, got %q", loaded.Environment)
	}
	if loaded.ServiceName != "cerm" {
		t.Fatalf("expected defaults to fill gaps, got %q", loaded.ServiceName)
	}
}

func TestGoOptionsResolver_ValidatesResolvedConfig(t *testing.T) {
	runtime := testConfig()
	runtime.Credentials.Password = ""

	_, err := GoOptionsResolver{}.Resolve(DefaultConfig(), DefaultConfig(), runtime)
	if err == nil {
		t.Fatalf("expected validation failure for incomplete config")
	}
}
