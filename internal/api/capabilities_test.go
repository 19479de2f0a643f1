package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lyraio/lyra/internal/notifier"
)

type fixedStats notifier.Stats

func (s fixedStats) Stats() notifier.Stats { return notifier.Stats(s) }

func TestCapabilitiesHandler(t *testing.T) {
	handler := NewCapabilitiesHandler(fixedStats{Received: 7, Logged: 5, Rejected: 1, Aborted: 1}, zap.NewNop(), CapabilitiesHandlerOptions{
		Store:  "sql",
		Sender: "fcm",
		Triggers: []TriggerInfo{
			{Name: "http", Enabled: true, Detail: ":8080"},
			{Name: "sql-poller", Enabled: true, Detail: "5s"},
			{Name: "firestore-listener", Enabled: false},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/capabilities", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response CapabilitiesResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "1", response.Version)
	assert.Equal(t, "sql", response.Store)
	assert.Equal(t, "fcm", response.Sender)
	assert.Len(t, response.Triggers, 3)
	assert.Equal(t, 90.0, response.AuthorityRiskThreshold)
	assert.Equal(t, int64(7), response.Dispatch.Received)
	assert.Equal(t, int64(5), response.Dispatch.Logged)
	assert.NotEmpty(t, response.UpSince)
}

func TestCapabilitiesHandler_NilStats(t *testing.T) {
	handler := NewCapabilitiesHandler(nil, zap.NewNop(), CapabilitiesHandlerOptions{Store: "memory", Sender: "log"})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/capabilities", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var raw map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&raw))
	assert.Equal(t, []any{}, raw["triggers"])
}

func TestCapabilitiesHandler_MethodNotAllowed(t *testing.T) {
	handler := NewCapabilitiesHandler(nil, zap.NewNop(), CapabilitiesHandlerOptions{})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/capabilities", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		check      HealthCheck
		wantCode   int
		wantStatus string
	}{
		{name: "no check", check: nil, wantCode: http.StatusOK, wantStatus: "healthy"},
		{name: "passing", check: func(context.Context) error { return nil }, wantCode: http.StatusOK, wantStatus: "healthy"},
		{name: "failing", check: func(context.Context) error { return errors.New("database is locked") }, wantCode: http.StatusServiceUnavailable, wantStatus: "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewHealthHandler(tt.check, zap.NewNop()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			var response HealthResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.wantStatus, response.Status)
		})
	}
}

func TestRegisterHandlers(t *testing.T) {
	mux := http.NewServeMux()
	RegisterHandlers(mux, nil, nil, zap.NewNop(), CapabilitiesHandlerOptions{})

	for _, path := range []string{"/api/v1/capabilities", "/api/v1/health"} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
