package trigger

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// IngestPattern is the route served by IngestHandler.
const IngestPattern = "POST /v1/events/{collection}/{id}"

// maxBodySize bounds an event document. Real documents are well under 1KB.
const maxBodySize = 64 << 10

// IngestConfig configures the HTTP ingest endpoint.
type IngestConfig struct {
	// AuthToken, when set, must be presented as a bearer token.
	AuthToken string
	// RatePerSecond limits accepted requests across all callers. 0 disables the limit.
	RatePerSecond float64
	Burst         int
}

// IngestHandler accepts event documents pushed by the upstream producer.
// It answers 202 once the event is submitted, whether or not it is valid:
// invalid documents are dropped by the dispatcher and must not be redelivered.
// 429 asks the producer to redeliver later.
type IngestHandler struct {
	sub       Submitter
	limiter   *rate.Limiter
	authToken string
	logger    *zap.Logger
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(sub Submitter, cfg IngestConfig, logger *zap.Logger) *IngestHandler {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &IngestHandler{
		sub:       sub,
		limiter:   rate.NewLimiter(limit, max(1, cfg.Burst)),
		authToken: cfg.AuthToken,
		logger:    logger.Named("ingest"),
	}
}

// Register mounts the handler on mux.
func (h *IngestHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc(IngestPattern, h.Handle)
}

type ingestResponse struct {
	Accepted bool   `json:"accepted"`
	EventID  string `json:"eventId,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Handle handles one event document. The collection and id come from the
// request path.
func (h *IngestHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.authorized(r) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSON(w, http.StatusUnauthorized, ingestResponse{Error: "unauthorized"})
		return
	}

	if !h.limiter.Allow() {
		ingestRequestsTotal.WithLabelValues("rate_limited").Inc()
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusTooManyRequests, ingestResponse{Error: "rate limited"})
		return
	}

	collection := r.PathValue("collection")
	id := r.PathValue("id")
	if !IsTriggerCollection(collection) {
		writeJSON(w, http.StatusNotFound, ingestResponse{Error: "unknown collection " + collection})
		return
	}

	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.logger.Error("Failed to read request body", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, ingestResponse{Error: "failed to read body"})
		return
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		ingestRequestsTotal.WithLabelValues("malformed").Inc()
		h.logger.Debug("Malformed event document",
			zap.String("collection", collection),
			zap.String("id", id),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadRequest, ingestResponse{Error: "malformed JSON document"})
		return
	}

	ev, err := Decode(collection, id, doc)
	if err != nil {
		writeJSON(w, http.StatusNotFound, ingestResponse{Error: err.Error()})
		return
	}

	h.sub.Submit(r.Context(), ev)
	ingestRequestsTotal.WithLabelValues("accepted").Inc()
	triggerEventsTotal.WithLabelValues("http", collection).Inc()
	writeJSON(w, http.StatusAccepted, ingestResponse{Accepted: true, EventID: id})
}

func (h *IngestHandler) authorized(r *http.Request) bool {
	if h.authToken == "" {
		return true
	}
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.authToken)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
