package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"

	"example.com/booking-portal/internal/config"
	"example.com/booking-portal/internal/logging"
	"example.com/booking-portal/internal/metrics"
	"example.com/booking-portal/internal/portal"
	"example.com/booking-portal/internal/sqliteutil"
)

func main() {
	logger := logging.New()

	cfg, err := config.LoadPortal()
	if err != nil {
		logger.Error("load config failed", "error", err)
		os.Exit(1)
	}
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address for the portal API")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the portal sqlite database file")
	flag.StringVar(&cfg.BackendURL, "backend", cfg.BackendURL, "base URL of the reservation backend")
	flag.StringVar(&cfg.TemporalHostPort, "temporal", cfg.TemporalHostPort, "Temporal frontend host:port; empty runs confirms in-process")
	flag.DurationVar(&cfg.RefreshInterval, "refresh", cfg.RefreshInterval, "background refresh interval; 0 disables it")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqliteutil.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Error("open portal db failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ledger := portal.NewLedger(db)
	if err := ledger.Init(ctx); err != nil {
		logger.Error("init portal schema failed", "error", err)
		os.Exit(1)
	}

	m := metrics.New("portal")
	backend := portal.NewBackendClient(cfg.BackendURL, cfg.BackendTimeout)
	loader := portal.NewLoader(backend, m, logger, time.Now)
	activities := portal.NewConfirmActivities(backend, loader, logger.With("component", "confirm.activities"))

	var orchestrator portal.ConfirmOrchestrator = portal.NewLocalOrchestrator(activities)
	if cfg.TemporalHostPort != "" {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.TemporalHostPort,
			Namespace: cfg.TemporalNamespace,
			Logger:    temporallog.NewStructuredLogger(logger.With("component", "temporal")),
		})
		if err != nil {
			logger.Error("dial temporal failed", "hostport", cfg.TemporalHostPort, "error", err)
			os.Exit(1)
		}
		defer tc.Close()

		w := portal.RegisterConfirmWorker(tc, activities)
		if err := w.Start(); err != nil {
			logger.Error("start temporal worker failed", "error", err)
			os.Exit(1)
		}
		defer w.Stop()
		orchestrator = portal.NewTemporalOrchestrator(tc, logger)
		logger.Info("confirm flows run on temporal", "hostport", cfg.TemporalHostPort, "namespace", cfg.TemporalNamespace, "task_queue", portal.ConfirmTaskQueue())
	}

	svc := portal.NewService(portal.ServiceConfig{
		Loader:       loader,
		Orchestrator: orchestrator,
		Ledger:       ledger,
		Favorites:    backend,
		Metrics:      m,
		Logger:       logger,
		CachedReads:  cfg.RefreshInterval > 0,
	})
	if cfg.RefreshInterval > 0 {
		go func() {
			if err := svc.RunRefresher(ctx, cfg.RefreshInterval); err != nil {
				logger.Error("background refresh stopped", "error", err)
			}
		}()
	}

	serverLogger := logger.With("component", "portal.http")
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           portal.NewServer(svc, m.Handler(), logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		serverLogger.Info("portal API listening", "addr", cfg.Addr, "db", cfg.DBPath, "backend", cfg.BackendURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverLogger.Error("portal server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdown(serverLogger, server)
}

func shutdown(logger *slog.Logger, server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return
	}
	logger.Info("portal server stopped")
}
