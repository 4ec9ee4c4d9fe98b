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

	"github.com/hwelland/qcflow/internal/bootstrap"
	"github.com/hwelland/qcflow/internal/config"
	"github.com/hwelland/qcflow/internal/core/domain"
	"github.com/hwelland/qcflow/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewRecorder(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.RecorderMetrics,
		Handler: metrics.Handler(app.Registry),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	app.Logger.Info("recorder listening", "subject", cfg.RecordSubject)
	err = app.Channel.Listen(ctx, func(handlerCtx context.Context, draft domain.InspectionDraft) (domain.RecordRef, error) {
		start := time.Now()
		storeCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()

		ref, err := app.Store.Store(storeCtx, draft)
		result := "created"
		if err != nil {
			result = "failed"
		}
		app.Metrics.CreateHandled(result, time.Since(start))
		return ref, err
	})
	if err != nil {
		app.Logger.Error("recorder stopped", "error", err)
		os.Exit(1)
	}
}
