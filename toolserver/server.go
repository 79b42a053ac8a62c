package toolserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jonwraymond/toolgate/health"
	"github.com/jonwraymond/toolgate/observe"
	"github.com/jonwraymond/toolgate/tools"
)

// maxBodyBytes caps a tool request body.
const maxBodyBytes = 1 << 20

// ErrNotFound makes a handler answer 404.
var ErrNotFound = errors.New("toolserver: not found")

// ErrorResponse is the error body of a tool service.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
}

// Server is the HTTP surface of a tool service.
type Server struct {
	name     string
	mux      *http.ServeMux
	mw       *observe.Middleware
	registry tools.Registry
}

// New creates a Server for the service name. A nil middleware disables
// telemetry.
func New(name string, mw *observe.Middleware, agg *health.Aggregator) *Server {
	if mw == nil {
		mw = observe.NopMiddleware()
	}
	s := &Server{name: name, mux: http.NewServeMux(), mw: mw}

	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{OK: true, Service: name})
	})
	s.mux.HandleFunc("GET /tools/registry", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, s.registry)
	})
	if agg != nil {
		health.RegisterHandlers(s.mux, agg)
	}
	return s
}

// Name returns the service name.
func (s *Server) Name() string { return s.name }

// Logger returns the server's logger.
func (s *Server) Logger() observe.Logger { return s.mw.Logger() }

// Register adds a tool to GET /tools/registry.
func (s *Server) Register(t tools.RegistryTool) {
	if t.Version == "" {
		t.Version = "v1"
	}
	s.registry.Tools = append(s.registry.Tools, t)
}

// Handle mounts h at pattern. Each request runs in a tool.serve span named
// after operation, parented on the caller's trace context.
func (s *Server) Handle(pattern, operation string, h http.HandlerFunc) {
	op := observe.ToolServe(s.name, operation)
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		if id := r.Header.Get(tools.HeaderTraceID); id != "" {
			ctx = observe.WithCorrelationID(ctx, id)
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		_ = s.mw.Run(ctx, op, func(ctx context.Context) error {
			h(rec, r.WithContext(ctx))
			if rec.status >= http.StatusInternalServerError {
				return fmt.Errorf("toolserver: %s answered %d", operation, rec.status)
			}
			return nil
		})
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type validator interface {
	Validate() error
}

// JSON adapts fn into a handler that decodes and validates the request body
// and encodes the response. Validation failures answer 422, ErrNotFound 404
// and any other error 500.
func JSON[Req, Resp any](fn func(ctx context.Context, req Req) (Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
			WriteError(w, http.StatusUnprocessableEntity, fmt.Errorf("malformed JSON body: %w", err))
			return
		}
		if v, ok := any(req).(validator); ok {
			if err := v.Validate(); err != nil {
				WriteError(w, http.StatusUnprocessableEntity, err)
				return
			}
		}
		resp, err := fn(r.Context(), req)
		if err != nil {
			WriteError(w, StatusFor(err), err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// StatusFor maps a handler error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, tools.ErrInvalidRequest):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an ErrorResponse.
func WriteError(w http.ResponseWriter, status int, err error) {
	WriteJSON(w, status, ErrorResponse{Detail: err.Error()})
}
