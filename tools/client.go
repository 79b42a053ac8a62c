package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jonwraymond/toolgate/cache"
	"github.com/jonwraymond/toolgate/observe"
	"github.com/jonwraymond/toolgate/resilience"
)

// HeaderTraceID carries the correlation ID to tool services.
const HeaderTraceID = "X-Trace-Id"

// Request describes one tool call.
type Request struct {
	// Dependency is the breaker name, e.g. "flight_tool.search_flights".
	Dependency string

	// Endpoint is the URL the payload is POSTed to.
	Endpoint string

	// Payload is encoded as the JSON request body.
	Payload any

	// CorrelationID is sent as X-Trace-Id. Empty uses the ID in the context.
	CorrelationID string

	// Timeout bounds the call. Zero uses the invoker default.
	Timeout time.Duration
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// Invoker gates every call. Required.
	Invoker *resilience.Invoker

	// HTTPClient performs the requests.
	// Default: a client without a global timeout
	HTTPClient *http.Client

	// Observe wraps each call in a tool.call span.
	// Default: observe.NopMiddleware()
	Observe *observe.Middleware

	// Cache serves repeated calls of operations with a cache TTL.
	Cache *cache.Middleware

	// AuditEndpoint receives a LogToolCallRequest for every permitted call.
	// Empty disables auditing.
	AuditEndpoint string

	// AuditTimeout bounds each audit request.
	// Default: 2 seconds
	AuditTimeout time.Duration

	// MaxResponseBytes caps the response body read.
	// Default: 1 MiB
	MaxResponseBytes int64
}

// Client calls tool services over HTTP through the resilient invoker.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: gate failures are returned as *resilience.DependencyError;
//     a non-2xx response is the cause of a failed call and matches
//     ErrUnexpectedStatus.
type Client struct {
	config ClientConfig
	http   *http.Client
	obs    *observe.Middleware
	audits sync.WaitGroup
}

// NewClient creates a Client.
func NewClient(config ClientConfig) *Client {
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	if config.Observe == nil {
		config.Observe = observe.NopMiddleware()
	}
	if config.AuditTimeout <= 0 {
		config.AuditTimeout = 2 * time.Second
	}
	if config.MaxResponseBytes <= 0 {
		config.MaxResponseBytes = 1 << 20
	}
	return &Client{config: config, http: config.HTTPClient, obs: config.Observe}
}

// Call POSTs req.Payload to req.Endpoint and decodes a 2xx response into
// out. A nil out discards the body.
func (c *Client) Call(ctx context.Context, req Request, out any) error {
	if req.CorrelationID == "" {
		req.CorrelationID = observe.CorrelationID(ctx)
	}
	body, err := json.Marshal(req.Payload)
	if err != nil {
		return fmt.Errorf("tools: encode %s payload: %w", req.Dependency, err)
	}

	ns, name := SplitDependency(req.Dependency)
	var resp []byte
	err = c.obs.Run(ctx, observe.ToolCall(ns, name), func(ctx context.Context) error {
		if c.config.Cache == nil {
			var err error
			resp, err = c.invoke(ctx, req, body)
			return err
		}
		r, hit, err := c.config.Cache.Execute(ctx, req.Dependency, json.RawMessage(body),
			func(ctx context.Context) ([]byte, error) {
				return c.invoke(ctx, req, body)
			})
		if hit {
			c.obs.Logger().Debug(ctx, "tool response served from cache",
				observe.Field{Key: "dependency", Value: req.Dependency})
		}
		resp = r
		return err
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, req.Dependency, err)
	}
	return nil
}

// Wait blocks until in-flight audit records have been sent.
func (c *Client) Wait() {
	c.audits.Wait()
}

func (c *Client) invoke(ctx context.Context, req Request, body []byte) ([]byte, error) {
	var resp []byte
	call := resilience.Call{Dependency: req.Dependency, Timeout: req.Timeout}
	err := c.config.Invoker.Invoke(ctx, call, func(ctx context.Context) error {
		start := time.Now()
		out, err := c.post(ctx, req.Dependency, req.Endpoint, req.CorrelationID, body)
		c.audit(ctx, req, body, out, err, time.Since(start))
		if err != nil {
			return err
		}
		resp = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, dep, endpoint, correlationID string, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tools: build %s request: %w", dep, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if correlationID != "" {
		httpReq.Header.Set(HeaderTraceID, correlationID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("tools: read %s response: %w", dep, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Dependency: dep, StatusCode: resp.StatusCode, Body: truncate(string(data), 256)}
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s body is not JSON", ErrInvalidResponse, dep)
	}
	return data, nil
}

// audit sends the call record to the audit endpoint in the background. It
// bypasses the invoker so a failing records service never trips the breaker
// of the audited dependency.
func (c *Client) audit(ctx context.Context, req Request, input, output []byte, callErr error, latency time.Duration) {
	if c.config.AuditEndpoint == "" || req.Dependency == DepLogToolCall || req.CorrelationID == "" {
		return
	}
	rec := LogToolCallRequest{
		TraceID:   req.CorrelationID,
		ToolName:  req.Dependency,
		Input:     json.RawMessage(input),
		LatencyMs: latency.Milliseconds(),
		Status:    "ok",
	}
	if callErr != nil {
		rec.Status = "error"
		rec.Output, _ = json.Marshal(map[string]string{"error": callErr.Error()})
	} else {
		rec.Output = json.RawMessage(output)
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return
	}

	c.audits.Add(1)
	go func() {
		defer c.audits.Done()
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.AuditTimeout)
		defer cancel()
		if _, err := c.post(actx, DepLogToolCall, c.config.AuditEndpoint, req.CorrelationID, body); err != nil {
			c.obs.Logger().Debug(actx, "tool call audit failed",
				observe.Field{Key: "dependency", Value: req.Dependency},
				observe.Field{Key: "error", Value: err.Error()})
		}
	}()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
