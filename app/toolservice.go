package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jonwraymond/toolgate/config"
	"github.com/jonwraymond/toolgate/dbtool"
	"github.com/jonwraymond/toolgate/flighttool"
	"github.com/jonwraymond/toolgate/health"
	"github.com/jonwraymond/toolgate/observe"
	"github.com/jonwraymond/toolgate/records"
)

// ToolService is an assembled tool service binary.
type ToolService struct {
	cfg     config.Config
	obs     observe.Observer
	handler http.Handler
	closers []func() error
}

// NewFlightTool wires the flight tool service.
func NewFlightTool(ctx context.Context, cfg config.Config) (*ToolService, error) {
	obs, mw, err := newTelemetry(ctx, cfg)
	if err != nil {
		return nil, err
	}
	agg := health.NewAggregator(health.AggregatorConfig{Timeout: 2 * time.Second})
	return &ToolService{
		cfg:     cfg,
		obs:     obs,
		handler: withMetrics(flighttool.NewHandler(mw, agg), obs),
	}, nil
}

// NewDBTool wires the db tool service and opens its database.
func NewDBTool(ctx context.Context, cfg config.Config) (*ToolService, error) {
	obs, mw, err := newTelemetry(ctx, cfg)
	if err != nil {
		return nil, err
	}
	db, err := records.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}
	obs.Logger().Info(ctx, "database ready", observe.Field{Key: "driver", Value: cfg.DBDriver})

	agg := health.NewAggregator(health.AggregatorConfig{Timeout: 2 * time.Second})
	return &ToolService{
		cfg:     cfg,
		obs:     obs,
		handler: withMetrics(dbtool.NewHandler(db, mw, agg), obs),
		closers: []func() error{db.Close},
	}, nil
}

func withMetrics(h http.Handler, obs observe.Observer) http.Handler {
	mh := obs.MetricsHandler()
	if mh == nil {
		return h
	}
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", mh)
	mux.Handle("/", h)
	return mux
}

// Handler returns the HTTP surface.
func (s *ToolService) Handler() http.Handler { return s.handler }

// Run serves until ctx ends, then shuts down.
func (s *ToolService) Run(ctx context.Context) error {
	err := serve(ctx, s.obs.Logger(), s.cfg.HTTPAddr, s.handler, s.cfg.ShutdownTimeout)
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	return errors.Join(err, s.Close(closeCtx))
}

// Close releases the service's resources and flushes telemetry.
func (s *ToolService) Close(ctx context.Context) error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	errs = append(errs, s.obs.Shutdown(ctx))
	return errors.Join(errs...)
}
