package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lyraio/lyra/internal/config"
	"github.com/lyraio/lyra/internal/notifier"
	"github.com/lyraio/lyra/internal/store"
)

func TestDefaultNewStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		st, err := defaultNewStore(ctx, config.StoreConfig{Backend: config.StoreMemory})
		require.NoError(t, err)
		assert.IsType(t, &store.MemoryStore{}, st)
		assert.Nil(t, healthCheckFor(st))
	})

	t.Run("sql", func(t *testing.T) {
		st, err := defaultNewStore(ctx, config.StoreConfig{
			Backend: config.StoreSQL,
			SQL:     config.SQLConfig{Driver: store.DriverSQLite, DSN: filepath.Join(t.TempDir(), "lyra.db")},
		})
		require.NoError(t, err)
		defer st.Close()
		assert.IsType(t, &store.SQLStore{}, st)

		check := healthCheckFor(st)
		require.NotNil(t, check)
		assert.NoError(t, check(ctx))
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := defaultNewStore(ctx, config.StoreConfig{Backend: "redis"})
		assert.Error(t, err)
	})
}

func TestDefaultNewSender(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("log", func(t *testing.T) {
		s, err := defaultNewSender(ctx, config.SenderConfig{Backend: config.SenderLog}, logger)
		require.NoError(t, err)
		assert.Equal(t, "log", s.Name())
	})

	t.Run("http", func(t *testing.T) {
		s, err := defaultNewSender(ctx, config.SenderConfig{
			Backend: config.SenderHTTP,
			HTTP:    config.HTTPPushConfig{URL: "http://push.example.internal/v1/send"},
		}, logger)
		require.NoError(t, err)
		assert.IsType(t, &notifier.PushSender{}, s)
		assert.Equal(t, "http", s.Name())
	})

	t.Run("http without url", func(t *testing.T) {
		_, err := defaultNewSender(ctx, config.SenderConfig{Backend: config.SenderHTTP}, logger)
		assert.Error(t, err)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := defaultNewSender(ctx, config.SenderConfig{Backend: "smtp"}, logger)
		assert.Error(t, err)
	})
}
