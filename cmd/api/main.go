package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/webwatch/webwatch/internal/archive"
	"github.com/webwatch/webwatch/internal/checker"
	"github.com/webwatch/webwatch/internal/config"
	"github.com/webwatch/webwatch/internal/httpapi"
	"github.com/webwatch/webwatch/internal/httpapi/middleware"
	"github.com/webwatch/webwatch/internal/logging"
	"github.com/webwatch/webwatch/internal/monitor"
	"github.com/webwatch/webwatch/internal/notify"
)

const shutdownGrace = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a yaml config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chk := checker.New(checker.Options{
		Timeout:            cfg.Checker.Timeout,
		MaxRedirects:       cfg.Checker.MaxRedirects,
		InsecureSkipVerify: !cfg.Checker.VerifyTLS,
		CacheTTL:           cfg.Checker.CacheTTL,
		MaxConcurrent:      cfg.Checker.MaxConcurrent,
		Logger:             logger,
	})

	var store archive.Store
	if cfg.Archive.Driver != "" {
		store, err = archive.Open(ctx, cfg.Archive.Driver, cfg.Archive.DSN)
		if err != nil {
			logger.Fatal("archive_open_failed", zap.Error(err))
		}
		defer store.Close()

		snap, err := store.Load(ctx)
		if err != nil {
			logger.Fatal("archive_load_failed", zap.Error(err))
		}
		if err := chk.Restore(snap); err != nil {
			logger.Fatal("archive_restore_failed", zap.Error(err))
		}
		logger.Info("archive_restored",
			zap.String("driver", cfg.Archive.Driver),
			zap.Int("targets", len(snap.Metrics)),
		)
	}

	registry := monitor.NewRegistry()
	for _, raw := range cfg.Watch.Targets {
		if _, err := registry.Add(raw); err != nil {
			logger.Warn("watch_target_rejected", zap.String("url", raw), zap.Error(err))
		}
	}

	var alerter *monitor.Alerter
	if slack := notify.NewSlack(cfg.Alerts.SlackWebhook); slack != nil {
		alerter = monitor.NewAlerter(logger, notify.Multi{slack}, monitor.AlerterConfig{
			OnRecovery: cfg.Alerts.OnRecovery,
			Cooldown:   cfg.Alerts.Cooldown,
		})
	}

	if cfg.Watch.Enabled {
		watcher, err := monitor.NewWatcher(logger, chk, registry, alerter, cfg.Watch.Interval)
		if err != nil {
			logger.Fatal("watcher_config_invalid", zap.Error(err))
		}
		go watcher.Run(ctx)
	}

	api := httpapi.NewServer(logger, chk, registry, store)
	keys := middleware.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: api.Router(keys, cfg.AllowedOrigins,
			cfg.RateLimit.PublicRPM, cfg.RateLimit.PublicBurst,
			cfg.RateLimit.AdminRPM, cfg.RateLimit.AdminBurst),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("api_listen", zap.String("addr", cfg.Addr))

	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve_failed", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	_ = srv.Shutdown(shCtx)

	// Persist what we learned this run so a restart starts warm.
	if store != nil {
		if err := store.Save(shCtx, chk.Snapshot()); err != nil {
			logger.Error("archive_save_failed", zap.Error(err))
		} else {
			logger.Info("archive_saved")
		}
	}
	logger.Info("bye")
}
