// Package telemetry exports adapter metrics over OTLP and defines the instruments the
// adapter records.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
)

const (
	defaultService  = "coinflex-adapter"
	adapterVersion  = "1.0.0"
	defaultEndpoint = "localhost:4318"
	defaultEnv      = "staging"
)

var environment atomic.Value

// Config selects whether and where metrics are exported.
type Config struct {
	Enabled          bool          `yaml:"enabled"`
	OTLPEndpoint     string        `yaml:"otlp_endpoint"`
	OTLPInsecure     bool          `yaml:"otlp_insecure"`
	MetricInterval   time.Duration `yaml:"metric_interval"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
	ServiceName      string        `yaml:"service_name"`
	ServiceNamespace string        `yaml:"service_namespace"`
	Environment      string        `yaml:"-"`
}

// DefaultConfig reads the standard OTEL_* variables. Export stays off unless
// OTEL_ENABLED=true.
func DefaultConfig() Config {
	return Config{
		Enabled:          envBool("OTEL_ENABLED"),
		OTLPEndpoint:     envOr(defaultEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTLPInsecure:     envBool("OTEL_EXPORTER_OTLP_INSECURE"),
		MetricInterval:   30 * time.Second,
		ShutdownTimeout:  5 * time.Second,
		ServiceName:      envOr(defaultService, "OTEL_SERVICE_NAME"),
		ServiceNamespace: envOr("", "OTEL_SERVICE_NAMESPACE"),
		Environment:      envOr(defaultEnv, "OTEL_RESOURCE_ENVIRONMENT", "COINFLEX_ENV"),
	}
}

// envOr returns the first non-blank variable among keys, or fallback.
func envOr(fallback string, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return fallback
}

func envBool(key string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(key)), "true")
}

// Provider owns the SDK meter provider. A disabled provider hands out meters from the
// global provider, which is a noop unless something else installed one.
type Provider struct {
	mp      *sdkmetric.MeterProvider
	timeout time.Duration
}

// NewProvider installs an OTLP meter provider as the global one when cfg is enabled.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	SetEnvironment(cfg.Environment)
	p := &Provider{timeout: cfg.ShutdownTimeout}
	if !cfg.Enabled {
		return p, nil
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	mp, err := newMeterProvider(ctx, res, cfg)
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(mp)
	p.mp = mp
	return p, nil
}

// Shutdown flushes pending metrics, bounded by the configured shutdown timeout.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.mp == nil {
		return nil
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.mp.Shutdown(ctx); err != nil {
		return fmt.Errorf("flush metrics: %w", err)
	}
	return nil
}

// Meter returns a named meter from the exporting provider, or the global one when disabled.
func (p *Provider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if p == nil || p.mp == nil {
		return otel.Meter(name, opts...)
	}
	return p.mp.Meter(name, opts...)
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	name := cfg.ServiceName
	if name == "" {
		name = defaultService
	}
	kvs := []attribute.KeyValue{
		semconv.ServiceNameKey.String(name),
		semconv.ServiceVersionKey.String(adapterVersion),
	}
	if cfg.ServiceNamespace != "" {
		kvs = append(kvs, semconv.ServiceNamespaceKey.String(cfg.ServiceNamespace))
	}
	if cfg.Environment != "" {
		kvs = append(kvs, AttrEnvironment.String(strings.ToLower(cfg.Environment)))
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(kvs...),
		resource.WithProcessRuntimeName(),
		resource.WithProcessRuntimeVersion(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}
	return res, nil
}

func newMeterProvider(ctx context.Context, res *resource.Resource, cfg Config) (*sdkmetric.MeterProvider, error) {
	exporterOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(stripScheme(cfg.OTLPEndpoint))}
	if cfg.OTLPInsecure {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("otlp metric exporter: %w", err)
	}
	interval := cfg.MetricInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
		sdkmetric.WithView(Views()...),
	), nil
}

// Views buckets command write latency in milliseconds, up to the default write timeout.
func Views() []sdkmetric.View {
	writeLatency := sdkmetric.NewView(
		sdkmetric.Instrument{Name: MetricCommandWriteDuration, Kind: sdkmetric.InstrumentKindHistogram},
		sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
			Boundaries: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 1000, 5000},
		}},
	)
	return []sdkmetric.View{writeLatency}
}

// stripScheme turns a URL into the host:port form the OTLP HTTP exporter wants.
func stripScheme(endpoint string) string {
	for _, scheme := range []string{"http://", "https://"} {
		endpoint = strings.TrimPrefix(endpoint, scheme)
	}
	return endpoint
}

// SetEnvironment records the environment label attached to adapter metrics.
func SetEnvironment(env string) {
	environment.Store(strings.ToLower(strings.TrimSpace(env)))
}

// Environment returns the environment label, staging when unset.
func Environment() string {
	if env, _ := environment.Load().(string); env != "" {
		return env
	}
	return defaultEnv
}
