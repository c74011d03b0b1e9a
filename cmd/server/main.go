package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"foundation_backend/internal/config"
	"foundation_backend/internal/httpserver"
	"foundation_backend/internal/jobs"
	"foundation_backend/internal/logger"
	"foundation_backend/internal/metrics"
	"foundation_backend/internal/security"
	"foundation_backend/internal/service"
	"foundation_backend/internal/store"
	"foundation_backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		errLog := logger.New(logger.Config{Level: "error", Output: os.Stderr})
		errLog.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Output: os.Stdout,
	})

	dsn := cfg.SQLitePath
	if cfg.DBDriver == "postgres" {
		dsn = cfg.DatabaseURL
	}
	stores, db, err := store.Open(cfg.DBDriver, dsn)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to open database")
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	tokenSvc := security.NewTokenService(cfg.JWTSecret, time.Duration(cfg.AccessTokenMinutes)*time.Minute)
	passwordHasher := security.NewPasswordHasher(0)

	hub := ws.NewHub(m.WSConnections)

	notifSvc := service.NewNotificationService(stores.Notifications, stores.Users, hub, m, log)
	dispatcher := jobs.NewNotificationDispatcher(notifSvc, cfg.NotificationDispatchSpec, log)
	if err := dispatcher.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start notification dispatcher")
	}
	defer dispatcher.Stop()

	router := httpserver.NewRouter(cfg, stores, hub, tokenSvc, passwordHasher, m, registry, log)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr()).Str("env", cfg.Env).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
