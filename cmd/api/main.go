package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/woztorrentz/torrent-api/internal/config"
	"github.com/woztorrentz/torrent-api/internal/database"
	"github.com/woztorrentz/torrent-api/internal/dispatch"
	apihttp "github.com/woztorrentz/torrent-api/internal/http"
	"github.com/woztorrentz/torrent-api/internal/notifications"
	"github.com/woztorrentz/torrent-api/internal/repository"
	"github.com/woztorrentz/torrent-api/internal/scheduler"
	"github.com/woztorrentz/torrent-api/internal/scrapers/defaults"
	"github.com/woztorrentz/torrent-api/internal/sites"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	db, err := database.Open(cfg.SQLitePath)
	if err != nil {
		slog.Error("failed to open sqlite", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.ApplyMigrations(db, database.MigrationsFS(cfg.MigrationsPath)); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	table, err := sites.Load(cfg.SitesPath)
	if err != nil {
		slog.Error("failed to load site table", "path", cfg.SitesPath, "error", err)
		os.Exit(1)
	}

	registry, registryErr := defaults.NewRegistry(table, defaults.Options{
		Logger:                  logger,
		DetailWorkers:           cfg.DetailWorkers,
		DetailRequestsPerSecond: cfg.DetailRequestsPerSecond,
		LimetorrentsCookie:      cfg.LimetorrentsCookie,
	})
	if registryErr != nil {
		slog.Warn("site registry loaded with warnings", "error", registryErr)
	}

	if cfg.SitesWatch {
		watcher, err := sites.NewWatcher(cfg.SitesPath, func(updated []sites.Descriptor) {
			if err := registry.Apply(updated); err != nil {
				slog.Warn("site table reloaded with warnings", "error", err)
				return
			}
			slog.Info("site table reloaded", "sites", len(updated))
		}, logger)
		if err != nil {
			slog.Error("failed to watch site table", "path", cfg.SitesPath, "error", err)
			os.Exit(1)
		}
		defer watcher.Stop()
	}

	dispatcher := dispatch.New(registry, dispatch.Options{
		MaxConcurrent: cfg.MaxConcurrentSearches,
		Logger:        logger,
	})
	siteChecks := repository.NewSiteCheckRepository(db)

	app := apihttp.NewServer(cfg, apihttp.Dependencies{
		DB:         db,
		Dispatcher: dispatcher,
		SiteChecks: siteChecks,
		Logger:     logger,
		Version:    version,
	})

	notifiers := []notifications.Notifier{notifications.NewLogNotifier(logger)}
	if cfg.NotifyWebhookURL != "" {
		webhook, err := notifications.NewWebhookNotifier(cfg.NotifyWebhookURL, nil)
		if err != nil {
			slog.Error("invalid notification webhook", "error", err)
			os.Exit(1)
		}
		notifiers = append(notifiers, webhook)
	}
	notifier := notifications.NewMultiNotifier(notifiers...)

	poller, err := scheduler.NewPoller(siteChecks, dispatcher, notifier, scheduler.PollerConfig{
		Schedule: cfg.StatusSchedule,
	}, logger)
	if err != nil {
		slog.Error("failed to create status poller", "schedule", cfg.StatusSchedule, "error", err)
		os.Exit(1)
	}

	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	if cfg.StatusPollingEnabled {
		if err := poller.Start(pollerCtx); err != nil {
			slog.Error("failed to start status poller", "error", err)
			os.Exit(1)
		}
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()

	slog.Info("api started", "port", cfg.Port, "env", cfg.Environment, "sites", len(registry.List()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down server")
	pollerCancel()
	poller.StopWait(2 * time.Second)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
