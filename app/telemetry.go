package app

import (
	"context"
	"fmt"

	"github.com/jonwraymond/toolgate/config"
	"github.com/jonwraymond/toolgate/observe"
)

func enabled(exporter string) bool {
	return exporter != "" && exporter != "none"
}

// newTelemetry builds the observer and call middleware for cfg.
func newTelemetry(ctx context.Context, cfg config.Config) (observe.Observer, *observe.Middleware, error) {
	obs, err := observe.NewObserver(ctx, observe.Config{
		ServiceName: cfg.ServiceName,
		Version:     cfg.Version,
		Tracing: observe.TracingConfig{
			Enabled:   enabled(cfg.TracingExporter),
			Exporter:  cfg.TracingExporter,
			Endpoint:  cfg.OTLPEndpoint,
			Insecure:  cfg.OTLPInsecure,
			SamplePct: cfg.TraceSamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  enabled(cfg.MetricsExporter),
			Exporter: cfg.MetricsExporter,
			Endpoint: cfg.OTLPEndpoint,
			Insecure: cfg.OTLPInsecure,
		},
		Logging: observe.LoggingConfig{Enabled: true, Level: cfg.LogLevel},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("app: telemetry: %w", err)
	}
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, nil, fmt.Errorf("app: telemetry middleware: %w", err)
	}
	return obs, mw, nil
}
