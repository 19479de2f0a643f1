// Package api provides HTTP API endpoints for lyra-notify.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lyraio/lyra/internal/notifier"
)

// StatsSource reports dispatcher counters.
type StatsSource interface {
	Stats() notifier.Stats
}

// CapabilitiesResponse is the response for GET /api/v1/capabilities.
type CapabilitiesResponse struct {
	// Version is the API schema version. Currently "1".
	Version string `json:"version"`

	// Store and Sender name the configured backends.
	Store  string `json:"store"`
	Sender string `json:"sender"`

	// Triggers lists the event sources and whether they are running.
	Triggers []TriggerInfo `json:"triggers"`

	// AuthorityRiskThreshold is the ai risk score at which authorities are notified.
	AuthorityRiskThreshold float64 `json:"authorityRiskThreshold"`

	// Dispatch holds event counters since start.
	Dispatch notifier.Stats `json:"dispatch"`

	// UpSince is when the process started.
	UpSince string `json:"upSince,omitempty"`
}

// TriggerInfo describes an event source.
type TriggerInfo struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Detail  string `json:"detail,omitempty"`
}

// CapabilitiesHandler handles GET /api/v1/capabilities.
type CapabilitiesHandler struct {
	logger    *zap.Logger
	stats     StatsSource
	opts      CapabilitiesHandlerOptions
	startTime time.Time
}

// CapabilitiesHandlerOptions configures the CapabilitiesHandler.
type CapabilitiesHandlerOptions struct {
	Store    string
	Sender   string
	Triggers []TriggerInfo
}

// NewCapabilitiesHandler creates a new CapabilitiesHandler.
func NewCapabilitiesHandler(stats StatsSource, logger *zap.Logger, opts CapabilitiesHandlerOptions) *CapabilitiesHandler {
	return &CapabilitiesHandler{
		logger:    logger.Named("capabilities"),
		stats:     stats,
		opts:      opts,
		startTime: time.Now(),
	}
}

// ServeHTTP implements http.Handler.
func (h *CapabilitiesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := CapabilitiesResponse{
		Version:                "1",
		Store:                  h.opts.Store,
		Sender:                 h.opts.Sender,
		Triggers:               h.opts.Triggers,
		AuthorityRiskThreshold: notifier.AuthorityRiskThreshold,
		UpSince:                h.startTime.UTC().Format(time.RFC3339),
	}
	if h.stats != nil {
		response.Dispatch = h.stats.Stats()
	}
	if response.Triggers == nil {
		response.Triggers = []TriggerInfo{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode capabilities response", zap.Error(err))
	}
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// HealthHandler handles GET /api/v1/health.
type HealthHandler struct {
	logger *zap.Logger
	check  HealthCheck
}

// NewHealthHandler creates a new HealthHandler. A nil check always passes.
func NewHealthHandler(check HealthCheck, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		logger: logger.Named("health"),
		check:  check,
	}
}

// HealthResponse is the response for health endpoints.
type HealthResponse struct {
	Status    string `json:"status"` // healthy, unhealthy
	Store     string `json:"store"`
	Timestamp string `json:"timestamp"`
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status, storeStatus, code := "healthy", "ready", http.StatusOK
	if h.check != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := h.check(ctx); err != nil {
			h.logger.Warn("Health check failed", zap.Error(err))
			status, storeStatus, code = "unhealthy", err.Error(), http.StatusServiceUnavailable
		}
	}

	response := HealthResponse{
		Status:    status,
		Store:     storeStatus,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// RegisterHandlers registers API handlers on the given mux.
func RegisterHandlers(mux *http.ServeMux, stats StatsSource, check HealthCheck, logger *zap.Logger, opts CapabilitiesHandlerOptions) {
	mux.Handle("/api/v1/capabilities", NewCapabilitiesHandler(stats, logger, opts))
	mux.Handle("/api/v1/health", NewHealthHandler(check, logger))
}
