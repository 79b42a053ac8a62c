// Package config loads service configuration from the environment.
//
// Every value may be a secret reference (secretref:env:NAME or
// secretref:file:/path); references are resolved before parsing.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/toolgate/secret"
)

const (
	defaultLogLevel           = "info"
	defaultShutdownTimeout    = 10 * time.Second
	defaultStoreBackend       = "redis"
	defaultRedisURL           = "redis://localhost:6379/0"
	defaultRateLimitPerMinute = 60
	defaultLimiterPolicy      = "fail_open"
	defaultCBFailThreshold    = 5
	defaultCBWindow           = 60 * time.Second
	defaultCBOpen             = 60 * time.Second
	defaultToolTimeout        = 5 * time.Second
	defaultRunTimeout         = 30 * time.Second
	defaultResolveCacheTTL    = 10 * time.Minute
	defaultStoreWaitAttempts  = 5
	defaultFlightToolURL      = "http://localhost:8001"
	defaultDBToolURL          = "http://localhost:8002"
	defaultDBDriver           = "sqlite"
	defaultDBDSN              = "file:toolgate.db?_pragma=busy_timeout(5000)"
	defaultTracingExporter    = "none"
	defaultMetricsExporter    = "none"
	defaultSamplePct          = 1.0
)

// Default listen addresses per service.
var defaultAddrs = map[string]string{
	"orchestrator": ":8000",
	"flighttool":   ":8001",
	"dbtool":       ":8002",
}

// Config is the union of settings used by the gateway binaries. Each
// binary reads the fields it needs.
type Config struct {
	ServiceName     string
	Version         string
	HTTPAddr        string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Orchestrator.
	FlightToolURL         string
	DBToolURL             string
	StoreBackend          string // redis|memory
	RedisURL              string
	RedisKeyPrefix        string
	RateLimitPerMinute    int
	LimiterPolicy         string // fail_open|fail_closed
	CBFailThreshold       int
	CBWindow              time.Duration
	CBOpen                time.Duration
	CBTrialTimeout        time.Duration
	BulkheadMaxConcurrent int
	ToolTimeout           time.Duration
	RunTimeout            time.Duration
	ResolveCacheTTL       time.Duration
	StoreWaitAttempts     int

	// Caller authentication.
	AuthJWTSecret   string
	AuthJWTIssuer   string
	AuthJWTAudience string
	AuthAPIKeys     string // principal:key,principal:key

	// Records tool.
	DBDriver string // sqlite|postgres
	DBDSN    string

	// Telemetry.
	TracingExporter string
	MetricsExporter string
	OTLPEndpoint    string
	OTLPInsecure    bool
	TraceSamplePct  float64
}

// Load reads the configuration for service from the environment.
func Load(ctx context.Context, service string) (Config, error) {
	return LoadWith(ctx, service, os.LookupEnv, secret.DefaultResolver())
}

// LoadWith reads configuration through lookup, resolving references with r.
func LoadWith(ctx context.Context, service string, lookup func(string) (string, bool), r *secret.Resolver) (Config, error) {
	l := &loader{ctx: ctx, lookup: lookup, resolver: r}

	cfg := Config{
		ServiceName:     service,
		Version:         l.str("SERVICE_VERSION", "dev"),
		HTTPAddr:        l.str("HTTP_ADDR", defaultAddrs[service]),
		LogLevel:        strings.ToLower(l.str("LOG_LEVEL", defaultLogLevel)),
		ShutdownTimeout: l.seconds("SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeout),

		FlightToolURL:         l.str("FLIGHT_TOOL_URL", defaultFlightToolURL),
		DBToolURL:             l.str("DB_TOOL_URL", defaultDBToolURL),
		StoreBackend:          l.str("STORE_BACKEND", defaultStoreBackend),
		RedisURL:              l.str("REDIS_URL", defaultRedisURL),
		RedisKeyPrefix:        l.str("REDIS_KEY_PREFIX", ""),
		RateLimitPerMinute:    l.integer("RATE_LIMIT_PER_MINUTE", defaultRateLimitPerMinute),
		LimiterPolicy:         l.str("LIMITER_POLICY", defaultLimiterPolicy),
		CBFailThreshold:       l.integer("CB_FAIL_THRESHOLD", defaultCBFailThreshold),
		CBWindow:              l.seconds("CB_WINDOW_SECONDS", defaultCBWindow),
		CBOpen:                l.seconds("CB_OPEN_SECONDS", defaultCBOpen),
		BulkheadMaxConcurrent: l.integer("BULKHEAD_MAX_CONCURRENT", 0),
		ToolTimeout:           l.seconds("TOOL_TIMEOUT_SECONDS", defaultToolTimeout),
		RunTimeout:            l.seconds("RUN_TIMEOUT_SECONDS", defaultRunTimeout),
		ResolveCacheTTL:       l.seconds("RESOLVE_CACHE_TTL_SECONDS", defaultResolveCacheTTL),
		StoreWaitAttempts:     l.integer("STORE_WAIT_ATTEMPTS", defaultStoreWaitAttempts),

		AuthJWTSecret:   l.str("AUTH_JWT_SECRET", ""),
		AuthJWTIssuer:   l.str("AUTH_JWT_ISSUER", ""),
		AuthJWTAudience: l.str("AUTH_JWT_AUDIENCE", ""),
		AuthAPIKeys:     l.str("AUTH_API_KEYS", ""),

		DBDriver: l.str("DB_DRIVER", defaultDBDriver),
		DBDSN:    l.str("DB_DSN", defaultDBDSN),

		TracingExporter: l.str("OTEL_TRACES_EXPORTER", defaultTracingExporter),
		MetricsExporter: l.str("OTEL_METRICS_EXPORTER", defaultMetricsExporter),
		OTLPEndpoint:    l.str("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:    l.boolean("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplePct:  l.float("OTEL_TRACES_SAMPLE_PCT", defaultSamplePct),
	}
	cfg.CBTrialTimeout = l.seconds("CB_TRIAL_TIMEOUT_SECONDS", cfg.CBOpen)

	if l.err != nil {
		return Config{}, l.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service name cannot be empty")
	}
	if c.HTTPAddr == "" {
		return errors.New("HTTP_ADDR cannot be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level %q", c.LogLevel)
	}
	switch c.StoreBackend {
	case "redis", "memory":
	default:
		return fmt.Errorf("unsupported store backend %q", c.StoreBackend)
	}
	switch c.LimiterPolicy {
	case "fail_open", "fail_closed":
	default:
		return fmt.Errorf("unsupported limiter policy %q", c.LimiterPolicy)
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported db driver %q", c.DBDriver)
	}
	if c.RateLimitPerMinute <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be > 0")
	}
	if c.CBFailThreshold <= 0 {
		return errors.New("CB_FAIL_THRESHOLD must be > 0")
	}
	if c.BulkheadMaxConcurrent < 0 {
		return errors.New("BULKHEAD_MAX_CONCURRENT must be >= 0")
	}
	if c.StoreWaitAttempts <= 0 {
		return errors.New("STORE_WAIT_ATTEMPTS must be > 0")
	}
	if c.CBTrialTimeout < c.ToolTimeout {
		return errors.New("CB_TRIAL_TIMEOUT_SECONDS cannot be shorter than TOOL_TIMEOUT_SECONDS")
	}
	if c.RunTimeout < c.ToolTimeout {
		return errors.New("run timeout cannot be shorter than the tool call timeout")
	}
	if c.TraceSamplePct < 0 || c.TraceSamplePct > 1 {
		return errors.New("OTEL_TRACES_SAMPLE_PCT must be between 0 and 1")
	}
	return nil
}

// loader reads typed values and keeps the first error.
type loader struct {
	ctx      context.Context
	lookup   func(string) (string, bool)
	resolver *secret.Resolver
	err      error
}

func (l *loader) raw(key string) (string, bool) {
	if l.err != nil {
		return "", false
	}
	v, ok := l.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	resolved, err := l.resolver.Resolve(l.ctx, v)
	if err != nil {
		l.err = fmt.Errorf("%s: %w", key, err)
		return "", false
	}
	return resolved, true
}

func (l *loader) str(key, fallback string) string {
	if v, ok := l.raw(key); ok {
		return v
	}
	return fallback
}

func (l *loader) integer(key string, fallback int) int {
	v, ok := l.raw(key)
	if !ok {
		return fallback
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		l.err = fmt.Errorf("%s must be an integer: %w", key, err)
		return 0
	}
	return out
}

func (l *loader) seconds(key string, fallback time.Duration) time.Duration {
	v, ok := l.raw(key)
	if !ok {
		return fallback
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		l.err = fmt.Errorf("%s must be a number of seconds: %w", key, err)
		return 0
	}
	if secs <= 0 {
		l.err = fmt.Errorf("%s must be > 0 seconds", key)
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

func (l *loader) float(key string, fallback float64) float64 {
	v, ok := l.raw(key)
	if !ok {
		return fallback
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		l.err = fmt.Errorf("%s must be a number: %w", key, err)
		return 0
	}
	return out
}

func (l *loader) boolean(key string, fallback bool) bool {
	v, ok := l.raw(key)
	if !ok {
		return fallback
	}
	out, err := strconv.ParseBool(v)
	if err != nil {
		l.err = fmt.Errorf("%s must be a boolean: %w", key, err)
		return false
	}
	return out
}
