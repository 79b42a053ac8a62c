package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jonwraymond/toolgate/auth"
	"github.com/jonwraymond/toolgate/cache"
	"github.com/jonwraymond/toolgate/config"
	"github.com/jonwraymond/toolgate/health"
	"github.com/jonwraymond/toolgate/observe"
	"github.com/jonwraymond/toolgate/resilience"
	"github.com/jonwraymond/toolgate/store"
	"github.com/jonwraymond/toolgate/tools"
	"github.com/jonwraymond/toolgate/trip"
	"github.com/jonwraymond/toolgate/workflow"
)

// Option customizes an Orchestrator.
type Option func(*options)

type options struct {
	store      store.Store
	httpClient *http.Client
	now        func() time.Time
}

// WithStore uses s instead of the configured backend. The orchestrator
// closes it.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithHTTPClient sets the client used for tool calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithClock sets the clock of the limiter and breaker.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Orchestrator is the assembled flight search gateway.
type Orchestrator struct {
	cfg     config.Config
	obs     observe.Observer
	logger  observe.Logger
	kv      store.Store
	client  *tools.Client
	breaker *resilience.Breaker
	health  *health.Aggregator
	handler http.Handler
}

// NewOrchestrator wires the gateway from cfg. It waits for the shared store
// to answer a ping before returning.
func NewOrchestrator(ctx context.Context, cfg config.Config, opts ...Option) (*Orchestrator, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.now == nil {
		o.now = time.Now
	}

	policy, err := resilience.ParseLimiterPolicy(cfg.LimiterPolicy)
	if err != nil {
		return nil, err
	}

	obs, mw, err := newTelemetry(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger := obs.Logger()
	metrics := mw.Metrics()

	kv := o.store
	if kv == nil {
		if kv, err = openStore(cfg, logger); err != nil {
			_ = obs.Shutdown(ctx)
			return nil, err
		}
	}
	if err := waitForStore(ctx, kv, cfg.StoreWaitAttempts, logger); err != nil {
		_ = kv.Close()
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	limiter := resilience.NewFixedWindowLimiter(kv, resilience.FixedWindowConfig{
		Limit:  cfg.RateLimitPerMinute,
		Window: time.Minute,
		Now:    o.now,
	})

	breaker := resilience.NewBreaker(kv, resilience.BreakerConfig{
		FailThreshold: cfg.CBFailThreshold,
		Window:        cfg.CBWindow,
		OpenDuration:  cfg.CBOpen,
		TrialTimeout:  cfg.CBTrialTimeout,
		Now:           o.now,
		OnStateChange: func(dep string, from, to resilience.State) {
			bg := context.Background()
			metrics.RecordBreakerTransition(bg, dep, from.String(), to.String())
			logger.Warn(bg, "circuit state changed",
				observe.Field{Key: "dependency", Value: dep},
				observe.Field{Key: "from", Value: from.String()},
				observe.Field{Key: "to", Value: to.String()})
		},
		OnStoreError: func(dep, op string, err error) {
			logger.Warn(context.Background(), "breaker bookkeeping failed",
				observe.Field{Key: "dependency", Value: dep},
				observe.Field{Key: "op", Value: op},
				observe.Field{Key: "error", Value: err.Error()})
		},
	})

	invCfg := resilience.InvokerConfig{
		DefaultTimeout: cfg.ToolTimeout,
		OnOutcome: func(out resilience.Outcome) {
			if out.Abandoned {
				logger.Warn(context.Background(), "call settled after caller left",
					observe.Field{Key: "dependency", Value: out.Dependency},
					observe.Field{Key: "state", Value: out.State.String()},
					observe.Field{Key: "duration_ms", Value: out.Duration.Milliseconds()})
			}
		},
	}
	if cfg.BulkheadMaxConcurrent > 0 {
		invCfg.Bulkheads = resilience.NewBulkheadGroup(resilience.BulkheadConfig{MaxConcurrent: cfg.BulkheadMaxConcurrent})
	}
	invoker := resilience.NewInvoker(breaker, invCfg)

	catalog := tools.NewCatalog(cfg.FlightToolURL, cfg.DBToolURL, cfg.ToolTimeout)
	auditEndpoint, err := catalog.Endpoint(tools.DepLogToolCall)
	if err != nil {
		_ = kv.Close()
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	client := tools.NewClient(tools.ClientConfig{
		Invoker:    invoker,
		HTTPClient: o.httpClient,
		Observe:    mw,
		Cache: cache.NewMiddleware(cache.NewStoreCache(kv), cache.DefaultKeyer{}, cache.Policy{
			TTLs: map[string]time.Duration{
				tools.DepResolveLocation: cfg.ResolveCacheTTL,
				tools.DepCityResearch:    cfg.ResolveCacheTTL,
			},
		}),
		AuditEndpoint: auditEndpoint,
	})

	graph, err := trip.NewGraph(tools.New(client, catalog),
		workflow.WithRunTimeout(cfg.RunTimeout),
		workflow.WithMiddleware(mw))
	if err != nil {
		_ = kv.Close()
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	service := trip.NewService(trip.ServiceConfig{
		Graph:   graph,
		Limiter: limiter,
		Policy:  policy,
		Metrics: metrics,
		Logger:  logger,
	})

	agg := health.NewAggregator(health.AggregatorConfig{Timeout: 2 * time.Second})
	agg.Register(health.NewPingChecker("store", kv))
	agg.Register(breakerCheck(breaker, tools.Dependencies))

	mux := http.NewServeMux()
	trip.NewHandler(service, breaker, tools.Dependencies, logger).Register(mux)
	health.RegisterHandlers(mux, agg)
	if h := obs.MetricsHandler(); h != nil {
		mux.Handle("GET /metrics", h)
	}

	authn, err := authenticator(cfg)
	if err != nil {
		_ = kv.Close()
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	logger.Info(ctx, "orchestrator ready",
		observe.Field{Key: "store", Value: cfg.StoreBackend},
		observe.Field{Key: "limiter_policy", Value: policy.String()},
		observe.Field{Key: "rate_limit_per_minute", Value: cfg.RateLimitPerMinute})

	return &Orchestrator{
		cfg:     cfg,
		obs:     obs,
		logger:  logger,
		kv:      kv,
		client:  client,
		breaker: breaker,
		health:  agg,
		handler: auth.Middleware(authn)(mux),
	}, nil
}

// Handler returns the HTTP surface.
func (o *Orchestrator) Handler() http.Handler { return o.handler }

// Breaker returns the dependency breaker.
func (o *Orchestrator) Breaker() *resilience.Breaker { return o.breaker }

// Run serves until ctx ends, then shuts down.
func (o *Orchestrator) Run(ctx context.Context) error {
	err := serve(ctx, o.logger, o.cfg.HTTPAddr, o.handler, o.cfg.ShutdownTimeout)
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.ShutdownTimeout)
	defer cancel()
	return errors.Join(err, o.Close(closeCtx))
}

// Close waits for pending audit writes, then releases the store and
// flushes telemetry.
func (o *Orchestrator) Close(ctx context.Context) error {
	o.client.Wait()
	return errors.Join(o.kv.Close(), o.obs.Shutdown(ctx))
}

func openStore(cfg config.Config, logger observe.Logger) (store.Store, error) {
	if cfg.StoreBackend == "memory" {
		logger.Warn(context.Background(), "using in-process store; limits and circuits are not shared between replicas")
		return store.NewMemoryStore(), nil
	}
	rs, err := store.OpenRedisStore(store.RedisConfig{URL: cfg.RedisURL, KeyPrefix: cfg.RedisKeyPrefix})
	if err != nil {
		return nil, fmt.Errorf("app: open store: %w", err)
	}
	return store.NewGuardedStore(rs, store.GuardConfig{
		Name: "redis",
		OnStateChange: func(name, from, to string) {
			logger.Warn(context.Background(), "store guard state changed",
				observe.Field{Key: "store", Value: name},
				observe.Field{Key: "from", Value: from},
				observe.Field{Key: "to", Value: to})
		},
	}), nil
}

func waitForStore(ctx context.Context, kv store.Store, attempts int, logger observe.Logger) error {
	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Jitter:       true,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			logger.Warn(ctx, "store not ready",
				observe.Field{Key: "attempt", Value: attempt},
				observe.Field{Key: "retry_in_ms", Value: delay.Milliseconds()},
				observe.Field{Key: "error", Value: err.Error()})
		},
	})
	if err := retry.Execute(ctx, kv.Ping); err != nil {
		return fmt.Errorf("app: store unreachable: %w", err)
	}
	return nil
}

// breakerCheck reports Degraded while any dependency circuit is not closed.
func breakerCheck(b *resilience.Breaker, deps []string) health.Checker {
	return health.CheckFunc("circuits", func(ctx context.Context) health.Result {
		var notClosed []string
		for _, dep := range deps {
			st, err := b.State(ctx, dep)
			if err != nil {
				r := health.Degraded("circuit state unavailable")
				r.Error = err
				return r
			}
			if st != resilience.StateClosed {
				notClosed = append(notClosed, dep+"="+st.String())
			}
		}
		if len(notClosed) > 0 {
			return health.Degraded("circuits not closed").WithDetails(map[string]any{"circuits": notClosed})
		}
		return health.Healthy("all circuits closed")
	})
}

// authenticator builds the caller authenticator from cfg. Nil means every
// caller is anonymous.
func authenticator(cfg config.Config) (auth.Authenticator, error) {
	var chain auth.Composite
	if cfg.AuthJWTSecret != "" {
		chain = append(chain, auth.NewJWTAuthenticator(auth.JWTConfig{
			Secret:   []byte(cfg.AuthJWTSecret),
			Issuer:   cfg.AuthJWTIssuer,
			Audience: cfg.AuthJWTAudience,
			Leeway:   30 * time.Second,
		}))
	}
	if cfg.AuthAPIKeys != "" {
		keys, err := auth.ParseAPIKeys(cfg.AuthAPIKeys)
		if err != nil {
			return nil, fmt.Errorf("app: api keys: %w", err)
		}
		chain = append(chain, auth.NewAPIKeyAuthenticator("X-API-Key", keys))
	}
	if len(chain) == 0 {
		return nil, nil
	}
	return chain, nil
}
