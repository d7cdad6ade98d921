package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/pgn-report/internal/config"
	"github.com/park285/pgn-report/internal/httpapi"
	"github.com/park285/pgn-report/internal/metrics"
	"github.com/park285/pgn-report/internal/obslog"
	"github.com/park285/pgn-report/internal/reportbuilder"
	"go.uber.org/zap"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := reportbuilder.New(ctx, cfg)
	if err != nil {
		logger.Fatal("dependency init error", zap.Error(err))
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("close dependencies", zap.Error(err))
		}
	}()

	router := httpapi.NewRouter(httpapi.Deps{
		Reporter:        deps.Reporter,
		Evaluator:       deps.Evaluator,
		Reports:         deps.Reports,
		Messages:        deps.Messages,
		Metrics:         metrics.Default(),
		MaxPGNBytes:     cfg.MaxPGNBytes,
		AnalysisTimeout: cfg.AnalysisTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("report server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}
