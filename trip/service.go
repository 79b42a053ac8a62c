package trip

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonwraymond/toolgate/observe"
	"github.com/jonwraymond/toolgate/resilience"
	"github.com/jonwraymond/toolgate/workflow"
)

// Operation is the limiter operation name of a flight search.
const Operation = "flight_search"

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// Graph is the flight search workflow. Required.
	Graph *workflow.Graph[Data]

	// Limiter gates each caller. Nil disables rate limiting.
	Limiter *resilience.FixedWindowLimiter

	// Policy applies when the limiter's store is unavailable.
	Policy resilience.LimiterPolicy

	Metrics observe.Metrics
	Logger  observe.Logger
}

// Service is the flight search entry point.
type Service struct {
	graph   *workflow.Graph[Data]
	limiter *resilience.FixedWindowLimiter
	policy  resilience.LimiterPolicy
	metrics observe.Metrics
	logger  observe.Logger
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Metrics == nil {
		cfg.Metrics = observe.NopMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	return &Service{
		graph:   cfg.Graph,
		limiter: cfg.Limiter,
		policy:  cfg.Policy,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
}

// FlightSearch validates req, applies the caller's rate limit and runs the
// workflow. The run uses the correlation ID carried by ctx, or a new one.
//
// Errors are a *tools.ValidationError, a *resilience.RateLimitError, the
// limiter's store error under FailClosed, or a *workflow.RunError.
func (s *Service) FlightSearch(ctx context.Context, caller string, req FlightSearchRequest) (FlightSearchResponse, error) {
	if err := req.Validate(); err != nil {
		return FlightSearchResponse{}, err
	}

	traceID := observe.CorrelationID(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
		ctx = observe.WithCorrelationID(ctx, traceID)
	}

	if s.limiter != nil {
		res, degraded, err := s.limiter.Enforce(ctx, caller, Operation, s.policy)
		s.metrics.RecordRateLimit(ctx, Operation, err == nil, degraded)
		if degraded {
			s.logger.Warn(ctx, "rate limiter degraded",
				observe.Field{Key: "caller", Value: caller},
				observe.Field{Key: "policy", Value: s.policy.String()})
		}
		if err != nil {
			return FlightSearchResponse{}, err
		}
		s.logger.Debug(ctx, "rate limit checked",
			observe.Field{Key: "caller", Value: caller},
			observe.Field{Key: "remaining", Value: res.Remaining})
	}

	st, err := s.graph.Run(ctx, traceID, Data{Request: req})
	if err != nil {
		s.logger.Warn(ctx, "flight search failed",
			observe.Field{Key: "kind", Value: resilience.KindOf(err).String()},
			observe.Field{Key: "error", Value: err.Error()})
		return FlightSearchResponse{}, err
	}

	resp := st.Data.response(traceID)
	s.logger.Info(ctx, "flight search completed",
		observe.Field{Key: "trip_id", Value: resp.TripID},
		observe.Field{Key: "results", Value: len(resp.Results)})
	return resp, nil
}
