package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"example.com/booking-portal/internal/config"
	"example.com/booking-portal/internal/logging"
	"example.com/booking-portal/internal/reservations"
	"example.com/booking-portal/internal/sqliteutil"
)

func main() {
	logger := logging.New()

	cfg, err := config.LoadReservations()
	if err != nil {
		logger.Error("load config failed", "error", err)
		os.Exit(1)
	}
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address for the reservations API")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the reservations sqlite database file")
	flag.BoolVar(&cfg.Seed, "seed", cfg.Seed, "insert sample bookings into an empty database")
	flag.Parse()

	ctx := context.Background()

	db, err := sqliteutil.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Error("open reservations db failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := reservations.NewStore(db)
	if err := store.Init(ctx); err != nil {
		logger.Error("init reservations schema failed", "error", err)
		os.Exit(1)
	}
	if cfg.Seed {
		n, err := store.Seed(ctx, time.Now())
		if err != nil {
			logger.Error("seed bookings failed", "error", err)
			os.Exit(1)
		}
		if n > 0 {
			logger.Info("seeded sample bookings", "count", n)
		}
	}

	serverLogger := logger.With("component", "reservations.http")
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           reservations.NewServer(store).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		serverLogger.Info("reservations API listening", "addr", cfg.Addr, "db", cfg.DBPath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverLogger.Error("reservations server error", "error", err)
			os.Exit(1)
		}
	}()

	waitForShutdown(serverLogger, server)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return
	}
	logger.Info("reservations server stopped")
}
