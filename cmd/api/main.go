package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dog-match/internal/adapters/fetchapi"
	"dog-match/internal/domain/session"
	"dog-match/internal/platform/config"
	"dog-match/internal/platform/logger"
	"dog-match/internal/platform/metrics"
	"dog-match/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	l := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
		Writer: os.Stdout,
	})

	m := metrics.New()

	client, err := fetchapi.NewClient(fetchapi.Config{
		BaseURL: cfg.DogsAPIBaseURL,
		Timeout: cfg.DogsAPITimeout,
		Metrics: m,
	})
	if err != nil {
		l.Error("dogs api client", map[string]any{"err": err})
		os.Exit(1)
	}

	g := session.NewGuard(client, session.Options{Logger: l, Metrics: m})

	r := router.NewRouter(router.Options{
		Guard:              g,
		Metrics:            m,
		Logger:             l,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.DogsAPITimeout + 5*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.Warn("shutdown", map[string]any{"err": err})
		}
	}()

	l.Info("starting server", map[string]any{"addr": cfg.Addr(), "dogs_api": cfg.DogsAPIBaseURL})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("server error", map[string]any{"err": err})
		os.Exit(1)
	}
	l.Info("server stopped", nil)
}
