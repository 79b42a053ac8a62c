package trip

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jonwraymond/toolgate/auth"
	"github.com/jonwraymond/toolgate/observe"
	"github.com/jonwraymond/toolgate/resilience"
	"github.com/jonwraymond/toolgate/tools"
	"github.com/jonwraymond/toolgate/workflow"
)

// maxBodyBytes caps the request body.
const maxBodyBytes = 64 << 10

// ErrorResponse is the structured failure body.
type ErrorResponse struct {
	Error          string `json:"error"`
	Message        string `json:"message"`
	TraceID        string `json:"trace_id,omitempty"`
	ResetInSeconds *int   `json:"reset_in_seconds,omitempty"`
	Limit          *int   `json:"limit,omitempty"`
	Dependency     string `json:"dependency,omitempty"`
	Circuit        string `json:"circuit,omitempty"`
}

// BreakersResponse is the body of GET /v1/breakers.
type BreakersResponse struct {
	Breakers []resilience.Snapshot `json:"breakers"`
}

// Handler serves the orchestrator API.
type Handler struct {
	service      *Service
	breaker      *resilience.Breaker
	dependencies []string
	logger       observe.Logger
}

// NewHandler creates a Handler. breaker and dependencies back
// GET /v1/breakers.
func NewHandler(service *Service, breaker *resilience.Breaker, dependencies []string, logger observe.Logger) *Handler {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Handler{service: service, breaker: breaker, dependencies: dependencies, logger: logger}
}

// Register mounts the routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/flight_search", h.flightSearch)
	mux.HandleFunc("GET /v1/breakers", h.breakers)
}

func (h *Handler) flightSearch(w http.ResponseWriter, r *http.Request) {
	traceID := r.Header.Get(tools.HeaderTraceID)
	if _, err := uuid.Parse(traceID); err != nil {
		traceID = uuid.NewString()
	}
	ctx := observe.WithCorrelationID(r.Context(), traceID)
	w.Header().Set(tools.HeaderTraceID, traceID)

	var req FlightSearchRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "malformed JSON body: " + err.Error(),
			TraceID: traceID,
		})
		return
	}

	caller := auth.CallerKey(auth.IdentityFromContext(ctx), req.SessionID, r.RemoteAddr)
	resp, err := h.service.FlightSearch(ctx, caller, req)
	if err != nil {
		h.writeError(w, traceID, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, traceID string, err error) {
	body := ErrorResponse{Message: err.Error(), TraceID: traceID}
	status := http.StatusInternalServerError

	var (
		rateErr *resilience.RateLimitError
		depErr  *resilience.DependencyError
	)
	switch {
	case errors.Is(err, tools.ErrInvalidRequest):
		status, body.Error = http.StatusBadRequest, "invalid_request"
	case errors.As(err, &rateErr):
		status, body.Error = http.StatusTooManyRequests, resilience.KindRateLimited.String()
		reset, limit := rateErr.Result.ResetInSeconds, rateErr.Result.Limit
		body.ResetInSeconds, body.Limit = &reset, &limit
		w.Header().Set("Retry-After", strconv.Itoa(reset))
	case errors.Is(err, resilience.ErrLimiterUnavailable):
		status, body.Error = http.StatusServiceUnavailable, "limiter_unavailable"
	default:
		kind := resilience.KindOf(err)
		body.Error = kind.String()
		switch kind {
		case resilience.KindDependencyUnavailable:
			status = http.StatusServiceUnavailable
		case resilience.KindDependencyCallFailed:
			status = http.StatusBadGateway
		case resilience.KindTimeout:
			status = http.StatusGatewayTimeout
		}
		if errors.As(err, &depErr) {
			body.Dependency = depErr.Dependency
			body.Circuit = depErr.State.String()
		}
		var runErr *workflow.RunError
		if errors.As(err, &runErr) && runErr.Err != nil {
			body.Message = runErr.Err.Error()
		}
	}
	writeJSON(w, status, body)
}

func (h *Handler) breakers(w http.ResponseWriter, r *http.Request) {
	resp := BreakersResponse{Breakers: make([]resilience.Snapshot, 0, len(h.dependencies))}
	for _, dep := range h.dependencies {
		snap, err := h.breaker.Inspect(r.Context(), dep)
		if err != nil {
			h.logger.Warn(r.Context(), "breaker inspection failed",
				observe.Field{Key: "dependency", Value: dep},
				observe.Field{Key: "error", Value: err.Error()})
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
				Error:   "store_unavailable",
				Message: err.Error(),
			})
			return
		}
		resp.Breakers = append(resp.Breakers, snap)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
