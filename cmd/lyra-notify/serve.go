package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lyraio/lyra/internal/api"
	"github.com/lyraio/lyra/internal/config"
	"github.com/lyraio/lyra/internal/deliverylog"
	"github.com/lyraio/lyra/internal/notifier"
	"github.com/lyraio/lyra/internal/resolver"
	"github.com/lyraio/lyra/internal/store"
	"github.com/lyraio/lyra/internal/trigger"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the notification router",
		Long: `Run the HTTP ingest endpoint and, when configured, the Firestore listener
or SQL poller. Every trigger feeds the same dispatcher.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer logger.Sync()

			if err := run(cmd.Context(), cfg, logger); err != nil {
				logger.Error("Server error", zap.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().String("addr", ":8080", "Address to listen on")
	cmd.Flags().String("store", config.StoreMemory, "Store backend: memory, firestore, sql")
	cmd.Flags().String("sender", config.SenderLog, "Sender backend: log, fcm, http")

	return cmd
}

// run opens the backends and serves until a shutdown signal arrives.
// Separated from the command for testability.
func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	logger.Info("Starting lyra-notify",
		zap.String("version", version),
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("store", cfg.Store.Backend),
		zap.String("sender", cfg.Sender.Backend),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	st, err := newStoreFunc(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("Failed to close store", zap.Error(err))
		}
	}()

	sender, err := newSenderFunc(ctx, cfg.Sender, logger)
	if err != nil {
		return fmt.Errorf("failed to create sender: %w", err)
	}

	return startServer(ctx, cfg, st, sender, logger)
}

// newDispatcher wires the resolver, sender and delivery logger around st.
func newDispatcher(cfg config.Config, st store.Store, sender notifier.MulticastSender, logger *zap.Logger) *notifier.Dispatcher {
	return notifier.NewDispatcher(
		resolver.New(st, logger),
		sender,
		deliverylog.New(st, logger),
		logger,
		notifier.DispatcherOptions{
			TrackingLinkBase: cfg.Payload.TrackingLinkBase,
			TaskTimeout:      cfg.Trigger.TaskTimeout,
		},
	)
}

// startServer runs the triggers and the HTTP server until ctx is cancelled or
// one of them fails, then drains in-flight events.
func startServer(ctx context.Context, cfg config.Config, st store.Store, sender notifier.MulticastSender, logger *zap.Logger) error {
	d := newDispatcher(cfg, st, sender, logger)

	g, gctx := errgroup.WithContext(ctx)

	triggers := []api.TriggerInfo{{Name: "http", Enabled: true, Detail: trigger.IngestPattern}}

	if cfg.Trigger.FirestoreListener {
		fs, ok := st.(*store.FirestoreStore)
		if !ok {
			return fmt.Errorf("firestore listener requires the firestore store, got %T", st)
		}
		listener := trigger.NewFirestoreListener(fs.Client(), d, logger)
		g.Go(func() error { return listener.Run(gctx) })
	}
	triggers = append(triggers, api.TriggerInfo{Name: "firestore", Enabled: cfg.Trigger.FirestoreListener})

	pollEnabled := cfg.Trigger.SQLPollInterval > 0
	if pollEnabled {
		sq, ok := st.(*store.SQLStore)
		if !ok {
			return fmt.Errorf("sql poller requires the sql store, got %T", st)
		}
		poller := trigger.NewPoller(sq, d, cfg.Trigger.SQLPollInterval, logger)
		g.Go(func() error { return poller.Run(gctx) })
	}
	sqlInfo := api.TriggerInfo{Name: "sql-poll", Enabled: pollEnabled}
	if pollEnabled {
		sqlInfo.Detail = cfg.Trigger.SQLPollInterval.String()
	}
	triggers = append(triggers, sqlInfo)

	check := healthCheckFor(st)
	handler := newMux(cfg, d, check, api.CapabilitiesHandlerOptions{
		Store:    cfg.Store.Backend,
		Sender:   d.SenderName(),
		Triggers: triggers,
	}, logger)

	server := NewServer(ServerConfig{
		Addr:        cfg.HTTP.Addr,
		TLSCertFile: cfg.HTTP.TLSCertFile,
		TLSKeyFile:  cfg.HTTP.TLSKeyFile,
		Ready:       check,
	}, handler, logger)
	g.Go(func() error { return server.Start(gctx) })

	err := g.Wait()

	logger.Info("Draining in-flight events", zap.Int64("in_flight", d.Stats().InFlight))
	d.Wait()

	if err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

// newMux mounts the ingest endpoint, the read-only API and /metrics.
func newMux(cfg config.Config, d *notifier.Dispatcher, check api.HealthCheck, opts api.CapabilitiesHandlerOptions, logger *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	trigger.NewIngestHandler(d, trigger.IngestConfig{
		AuthToken:     cfg.HTTP.AuthToken,
		RatePerSecond: cfg.HTTP.RatePerSecond,
		Burst:         cfg.HTTP.Burst,
	}, logger).Register(mux)
	api.RegisterHandlers(mux, d, check, logger, opts)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
