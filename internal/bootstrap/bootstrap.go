// Package bootstrap wires configuration into the api and recorder
// binaries' object graphs.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hwelland/qcflow/internal/config"
	"github.com/hwelland/qcflow/internal/core/usecase"
	natsbus "github.com/hwelland/qcflow/internal/infrastructure/bus/nats"
	"github.com/hwelland/qcflow/internal/infrastructure/document"
	"github.com/hwelland/qcflow/internal/infrastructure/recognition"
	"github.com/hwelland/qcflow/internal/infrastructure/repository/postgres"
	"github.com/hwelland/qcflow/internal/infrastructure/resilience"
	"github.com/hwelland/qcflow/internal/infrastructure/storage/localfs"
	"github.com/hwelland/qcflow/internal/infrastructure/template"
	"github.com/hwelland/qcflow/internal/observability/logging"
	"github.com/hwelland/qcflow/internal/observability/metrics"
)

// API is the object graph of the api binary.
type API struct {
	Config config.Config
	Logger *slog.Logger

	Pipeline  *usecase.SubmissionPipeline
	Records   *usecase.RecordCreation
	Templates *template.Builder

	Limiter     *rate.Limiter
	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTPMetrics

	closeFn func()
}

func NewAPI(cfg config.Config) (*API, error) {
	logger := logging.New("qcflow-api", cfg.LogLevel)

	registry := newRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init upload storage: %w", err)
	}

	var executor *resilience.Executor
	if cfg.RetriesEnabled {
		policy := resilience.DefaultPolicy()
		policy.MaxAttempts = cfg.RetryMaxAttempts
		executor = resilience.NewExecutor(policy, logging.Component(logger, "resilience"))
	}
	recognizer := recognition.New(cfg.RecognitionURL, recognition.Options{
		Timeout:  cfg.RecognitionTimeout,
		Executor: executor,
	})

	channel, err := natsbus.Connect(cfg.NATSURL, cfg.RecordSubject, natsbus.Options{
		RequestTimeout: cfg.HandshakeTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connect record channel: %w", err)
	}

	pipeline := usecase.NewSubmissionPipeline(
		recognizer,
		storage,
		document.NewInspector(),
		pipelineMetrics,
		logging.Component(logger, "pipeline"),
		usecase.PipelineConfig{
			Tick:         cfg.PipelineTick,
			Grace:        cfg.PipelineGrace,
			MaxFileBytes: cfg.MaxUploadBytes,
		},
	)
	records := usecase.NewRecordCreation(pipeline, channel, pipelineMetrics, logging.Component(logger, "records"))

	return &API{
		Config:      cfg,
		Logger:      logger,
		Pipeline:    pipeline,
		Records:     records,
		Templates:   template.NewBuilder(),
		Limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		Registry:    registry,
		HTTPMetrics: httpMetrics,
		closeFn:     channel.Close,
	}, nil
}

func (a *API) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// Recorder is the object graph of the recorder binary.
type Recorder struct {
	Config config.Config
	Logger *slog.Logger

	Channel  *natsbus.Channel
	Store    *usecase.StoreInspection
	Registry *prometheus.Registry
	Metrics  *metrics.RecorderMetrics

	closeFn func()
}

func NewRecorder(ctx context.Context, cfg config.Config) (*Recorder, error) {
	logger := logging.New("qcflow-recorder", cfg.LogLevel)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewInspectionRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	channel, err := natsbus.Connect(cfg.NATSURL, cfg.RecordSubject, natsbus.Options{})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect record channel: %w", err)
	}

	registry := newRegistry()
	return &Recorder{
		Config:   cfg,
		Logger:   logger,
		Channel:  channel,
		Store:    usecase.NewStoreInspection(repo, logging.Component(logger, "store")),
		Registry: registry,
		Metrics:  metrics.NewRecorderMetrics(registry),
		closeFn: func() {
			channel.Close()
			_ = db.Close()
		},
	}, nil
}

func (r *Recorder) Close() {
	if r.closeFn != nil {
		r.closeFn()
	}
}

func newRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}
