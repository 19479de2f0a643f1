package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	v1 "github.com/lyraio/lyra/api/v1"
	"github.com/lyraio/lyra/internal/api"
	"github.com/lyraio/lyra/internal/config"
	"github.com/lyraio/lyra/internal/notifier"
	"github.com/lyraio/lyra/internal/store"
	"github.com/lyraio/lyra/internal/testutil"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load(nil, "")
	require.NoError(t, err)
	cfg.HTTP.Addr = "127.0.0.1:0"
	return cfg
}

func seededMemoryStore() *store.MemoryStore {
	st := store.NewMemoryStore()
	st.PutUser("u1", v1.User{Name: "Asha"})
	st.AddGuardian(v1.Guardian{LinkedUserID: "u1", FCMToken: "guardian-1"})
	st.AddAuthority(v1.Authority{Active: true, FCMToken: "authority-1"})
	return st
}

func TestNewMux_IngestDispatchesEvent(t *testing.T) {
	cfg := testConfig(t)
	st := seededMemoryStore()
	sender := &testutil.RecordingSender{}
	logger := zaptest.NewLogger(t)
	d := newDispatcher(cfg, st, sender, logger)
	mux := newMux(cfg, d, nil, api.CapabilitiesHandlerOptions{Store: config.StoreMemory, Sender: d.SenderName()}, logger)

	req := httptest.NewRequest(http.MethodPost, "/v1/events/sos_alerts/a1",
		strings.NewReader(`{"userId":"u1","source":"manual"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	d.Wait()

	logs := st.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, "a1", logs[0].SOSID)
	assert.True(t, logs[0].GuardiansNotified)
	assert.True(t, logs[0].AuthoritiesNotified)

	_, ok := sender.CallFor("guardian-1")
	assert.True(t, ok)
	_, ok = sender.CallFor("authority-1")
	assert.True(t, ok)
}

func TestNewMux_CapabilitiesAndMetrics(t *testing.T) {
	cfg := testConfig(t)
	d := newDispatcher(cfg, store.NewMemoryStore(), &testutil.RecordingSender{}, zap.NewNop())
	mux := newMux(cfg, d, nil, api.CapabilitiesHandlerOptions{Store: config.StoreMemory, Sender: d.SenderName()}, zap.NewNop())

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/capabilities", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var caps api.CapabilitiesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &caps))
	assert.Equal(t, "memory", caps.Store)
	assert.Equal(t, "recording", caps.Sender)
	assert.Equal(t, notifier.AuthorityRiskThreshold, caps.AuthorityRiskThreshold)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStartServer_StopsOnCancel(t *testing.T) {
	cfg := testConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- startServer(ctx, cfg, store.NewMemoryStore(), &testutil.RecordingSender{}, zap.NewNop())
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("startServer did not return after cancel")
	}
}

func TestStartServer_TriggerNeedsMatchingStore(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "firestore listener on memory store",
			mutate: func(c *config.Config) { c.Trigger.FirestoreListener = true },
			want:   "firestore listener requires the firestore store",
		},
		{
			name:   "sql poller on memory store",
			mutate: func(c *config.Config) { c.Trigger.SQLPollInterval = time.Second },
			want:   "sql poller requires the sql store",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)

			err := startServer(context.Background(), cfg, store.NewMemoryStore(), &testutil.RecordingSender{}, zap.NewNop())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_UsesConfiguredBackends(t *testing.T) {
	origStore, origSender := newStoreFunc, newSenderFunc
	t.Cleanup(func() { newStoreFunc, newSenderFunc = origStore, origSender })

	var gotStore, gotSender string
	newStoreFunc = func(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
		gotStore = cfg.Backend
		return store.NewMemoryStore(), nil
	}
	newSenderFunc = func(ctx context.Context, cfg config.SenderConfig, logger *zap.Logger) (notifier.MulticastSender, error) {
		gotSender = cfg.Backend
		return &testutil.RecordingSender{}, nil
	}

	cfg := testConfig(t)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, run(ctx, cfg, zap.NewNop()))
	assert.Equal(t, config.StoreMemory, gotStore)
	assert.Equal(t, config.SenderLog, gotSender)
}
