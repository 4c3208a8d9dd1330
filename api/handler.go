// Package api exposes rate limit checks over HTTP for clients that keep
// no limiter state of their own.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/yourusername/tickgate/core"
	"github.com/yourusername/tickgate/pkg/tickgate"
	"github.com/yourusername/tickgate/store"
)

// MetricsRecorder receives the outcome of every check.
type MetricsRecorder interface {
	RecordRequest(key string, allowed bool)
}

// Handler serves POST /check admission requests against a shared bucket
// state store.
type Handler struct {
	store         store.Store
	defaultPolicy core.Config
	now           tickgate.TickSource
	metrics       MetricsRecorder
}

// NewHandler creates an API handler. The default policy applies to every
// request that does not override it; it must be valid. A nil tick source
// defaults to the wall clock.
func NewHandler(st store.Store, defaultPolicy core.Config, now tickgate.TickSource, metrics MetricsRecorder) (*Handler, error) {
	if err := defaultPolicy.Validate(); err != nil {
		return nil, err
	}
	if now == nil {
		now = tickgate.WallTicks
	}
	return &Handler{
		store:         st,
		defaultPolicy: defaultPolicy,
		now:           now,
		metrics:       metrics,
	}, nil
}

// CheckRequest is the body of a POST /check request.
type CheckRequest struct {
	// ClientID is the required bucket key (user ID, API key, IP)
	ClientID string `json:"client_id"`

	// PeriodTicks optionally overrides the default refill window
	PeriodTicks *uint32 `json:"period_ticks,omitempty"`

	// Capacity optionally overrides the default burst size
	Capacity *uint32 `json:"capacity,omitempty"`
}

// CheckResponse is the result of an admission check.
type CheckResponse struct {
	Allowed         bool   `json:"allowed"`
	Remaining       uint32 `json:"remaining"`
	Limit           uint32 `json:"limit"`
	RetryAfterTicks uint32 `json:"retry_after_ticks,omitempty"`
	RetryAfterMs    int64  `json:"retry_after_ms,omitempty"`
}

// ErrorResponse carries a machine-readable error code and a message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CheckRateLimit handles POST /check.
func (h *Handler) CheckRateLimit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.sendError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST requests are allowed")
		return
	}

	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.ClientID == "" {
		h.sendError(w, http.StatusBadRequest, "missing_client_id", "client_id is required")
		return
	}

	policy := h.defaultPolicy
	if req.PeriodTicks != nil {
		policy.Period = core.Ticks(*req.PeriodTicks)
	}
	if req.Capacity != nil {
		policy.Capacity = *req.Capacity
	}

	bucket, err := core.NewTokenBucket(policy)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_policy", err.Error())
		return
	}

	state, result := bucket.Check(h.store.Get(req.ClientID), h.now())
	h.store.Set(req.ClientID, state)

	if h.metrics != nil {
		h.metrics.RecordRequest(req.ClientID, result.Allowed)
	}

	response := CheckResponse{
		Allowed:   result.Allowed,
		Remaining: result.Remaining,
		Limit:     result.Limit,
	}
	if !result.Allowed {
		response.RetryAfterTicks = uint32(result.RetryAfter)
		response.RetryAfterMs = (time.Duration(result.RetryAfter) * tickgate.TickDuration).Milliseconds()
	}

	statusCode := http.StatusOK
	if !result.Allowed {
		statusCode = http.StatusTooManyRequests
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

func (h *Handler) sendError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}
