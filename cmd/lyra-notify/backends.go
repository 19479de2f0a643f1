package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/lyraio/lyra/internal/api"
	"github.com/lyraio/lyra/internal/config"
	"github.com/lyraio/lyra/internal/notifier"
	"github.com/lyraio/lyra/internal/store"
)

// newStoreFunc opens the configured store.
// It can be overridden in tests to inject a prepared store.
var newStoreFunc = defaultNewStore

// newSenderFunc creates the configured sender.
// It can be overridden in tests to inject a recording sender.
var newSenderFunc = defaultNewSender

func defaultNewStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case config.StoreFirestore:
		var opts []option.ClientOption
		if cfg.Firestore.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Firestore.CredentialsFile))
		}
		return store.NewFirestoreStore(ctx, cfg.Firestore.ProjectID, opts...)
	case config.StoreSQL:
		return store.OpenSQL(ctx, cfg.SQL.Driver, cfg.SQL.DSN)
	case config.StoreMemory:
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func defaultNewSender(ctx context.Context, cfg config.SenderConfig, logger *zap.Logger) (notifier.MulticastSender, error) {
	switch cfg.Backend {
	case config.SenderFCM:
		return notifier.NewFCMSender(ctx, cfg.FCM.CredentialsFile, logger)
	case config.SenderHTTP:
		return notifier.NewPushSender(logger, notifier.PushSenderConfig{
			URL:        cfg.HTTP.URL,
			AuthToken:  cfg.HTTP.AuthToken,
			Timeout:    cfg.HTTP.Timeout,
			MaxRetries: cfg.HTTP.MaxRetries,
		})
	case config.SenderLog:
		return notifier.NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown sender backend %q", cfg.Backend)
	}
}

// healthCheckFor returns a probe of the store connection, or nil when the
// store has nothing to probe.
func healthCheckFor(st store.Store) api.HealthCheck {
	if p, ok := st.(interface{ Ping(context.Context) error }); ok {
		return p.Ping
	}
	return nil
}
