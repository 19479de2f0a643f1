package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// NewServer
// ---------------------------------------------------------------------------

func TestNewServer(t *testing.T) {
	handler := http.NotFoundHandler()
	srv := NewServer(ServerConfig{
		Addr:        ":9443",
		TLSCertFile: "/tmp/cert.pem",
		TLSKeyFile:  "/tmp/key.pem",
	}, handler, zap.NewNop())

	require.NotNil(t, srv)
	assert.Equal(t, ":9443", srv.config.Addr)
	assert.True(t, srv.tlsEnabled())
	assert.NotNil(t, srv.logger)
}

func TestTLSEnabled_RequiresBothFiles(t *testing.T) {
	srv := NewServer(ServerConfig{TLSCertFile: "/tmp/cert.pem"}, http.NotFoundHandler(), zap.NewNop())
	assert.False(t, srv.tlsEnabled())
}

// ---------------------------------------------------------------------------
// probes
// ---------------------------------------------------------------------------

func TestHandleHealth(t *testing.T) {
	srv := NewServer(ServerConfig{}, http.NotFoundHandler(), zap.NewNop())

	w := httptest.NewRecorder()
	srv.handleHealth(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestHandleReady(t *testing.T) {
	srv := NewServer(ServerConfig{}, http.NotFoundHandler(), zap.NewNop())

	w := httptest.NewRecorder()
	srv.handleReady(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestHandleReady_CheckFails(t *testing.T) {
	srv := NewServer(ServerConfig{
		Ready: func(ctx context.Context) error { return errors.New("database is locked") },
	}, http.NotFoundHandler(), zap.NewNop())

	w := httptest.NewRecorder()
	srv.handleReady(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRoutes_DelegatesToHandler(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	srv := NewServer(ServerConfig{}, handler, zap.NewNop())
	mux := srv.routes()

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/capabilities", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

// ---------------------------------------------------------------------------
// Start
// ---------------------------------------------------------------------------

func TestStart_ShutsDownOnCancel(t *testing.T) {
	srv := NewServer(ServerConfig{Addr: "127.0.0.1:0"}, http.NotFoundHandler(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestStart_AddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := NewServer(ServerConfig{Addr: ln.Addr().String()}, http.NotFoundHandler(), zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = srv.Start(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address already in use")
}
