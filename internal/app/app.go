// Package app wires joedb's components together, grounded on the
// teacher's internal/app.App: sequential component construction, an
// ordered Start, a best-effort-logged Stop, and a signal-driven Run.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
	oteltrace "go.opentelemetry.io/otel/trace"

	"joedb/internal/config"
	"joedb/pkg/dump"
	"joedb/pkg/health"
	"joedb/pkg/metrics"
	"joedb/pkg/sources"
	"joedb/pkg/store"
	"joedb/pkg/tracing"
	"joedb/pkg/types"
)

// App coordinates the store, ingestion connectors, and the ambient
// metrics/dump/health/tracing components around them.
type App struct {
	config *types.Config
	logger *logrus.Logger

	store *store.Store

	fileSource   *sources.FileSource
	dockerSource *sources.DockerSource
	kafkaSource  *sources.KafkaSource

	metricsServer  *metrics.Server
	dumpServer     *dump.Server
	healthMonitor  *health.Monitor
	tracingManager *tracing.TracingManager

	ctx        context.Context
	cancel     context.CancelFunc
	configFile string
}

// New loads configFile, validates it, and constructs every component —
// but does not start any of them.
func New(configFile string) (*App, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.App.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		config:     cfg,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		configFile: configFile,
	}

	if err := a.initializeComponents(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}
	return a, nil
}

func (a *App) initializeComponents() error {
	a.initTracing()
	a.initStore()
	if err := a.initSources(); err != nil {
		return err
	}
	a.initMetricsServer()
	a.initDumpServer()
	a.initHealthMonitor()
	return nil
}

func (a *App) initStore() {
	cfg := a.config.Output
	flushInterval, err := time.ParseDuration(cfg.FlushInterval)
	if err != nil || flushInterval <= 0 {
		flushInterval = time.Minute
	}

	var tracer oteltrace.Tracer
	if a.tracingManager != nil {
		tracer = a.tracingManager.GetTracer()
	}

	a.store = store.New(store.Config{
		OutputDirectory:      cfg.Directory,
		FlushInterval:        flushInterval,
		FlushRecordThreshold: cfg.FlushRecordThreshold,
		CompressionLevel:     compressionLevel(a.config.Database.CompressionLevel),
		Patternize:           a.config.Database.Patternize,
		Logger:               a.logger,
		Tracer:               tracer,
	})
}

func compressionLevel(name string) zstd.EncoderLevel {
	switch name {
	case "fastest":
		return zstd.SpeedFastest
	case "better":
		return zstd.SpeedBetterCompression
	case "best":
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func (a *App) initTracing() {
	tcfg := tracing.DefaultTracingConfig()
	tcfg.Enabled = a.config.Tracing.Enabled
	if a.config.Tracing.ServiceName != "" {
		tcfg.ServiceName = a.config.Tracing.ServiceName
	}
	if a.config.Tracing.Exporter != "" {
		tcfg.Exporter = a.config.Tracing.Exporter
	}
	if a.config.Tracing.Endpoint != "" {
		tcfg.Endpoint = a.config.Tracing.Endpoint
	}

	tm, err := tracing.NewTracingManager(tcfg, a.logger)
	if err != nil {
		a.logger.WithError(err).Warn("failed to initialize tracing, continuing without it")
		tcfg.Enabled = false
		tm, _ = tracing.NewTracingManager(tcfg, a.logger)
	}
	a.tracingManager = tm
}

func (a *App) initSources() error {
	var tracer oteltrace.Tracer
	if a.tracingManager != nil {
		tracer = a.tracingManager.GetTracer()
	}

	a.fileSource = sources.NewFileSource(a.config.Sources.File, a.store, a.logger)
	a.fileSource.Tracer = tracer

	if a.config.Sources.Docker.Enabled {
		ds, err := sources.NewDockerSource(a.config.Sources.Docker, a.store, a.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize docker source: %w", err)
		}
		ds.Tracer = tracer
		a.dockerSource = ds
	}

	if a.config.Sources.Kafka.Enabled {
		ks, err := sources.NewKafkaSource(a.config.Sources.Kafka, a.store, a.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize kafka source: %w", err)
		}
		ks.Tracer = tracer
		a.kafkaSource = ks
	}
	return nil
}

func (a *App) initMetricsServer() {
	if !a.config.Metrics.Enabled {
		return
	}
	addr := fmt.Sprintf(":%d", a.config.Metrics.Port)
	a.metricsServer = metrics.NewServer(addr, a.logger)
}

func (a *App) initDumpServer() {
	if !a.config.Server.Enabled {
		return
	}
	addr := fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port)
	a.dumpServer = dump.NewServer(addr, a.config.Output.Directory, a.logger)
	if a.tracingManager != nil {
		a.dumpServer.Tracer = a.tracingManager.GetTracer()
	}
}

func (a *App) initHealthMonitor() {
	a.healthMonitor = health.NewMonitor(30*time.Second, a.logger)
}

// Start begins every enabled component in an order that keeps
// dependencies ready before their dependents: metrics and health first
// (always safe), then the store's flush loop, then ingestion sources,
// then the dump server last since it reads what the store writes.
func (a *App) Start() error {
	a.logger.Info("starting joedb")

	if a.metricsServer != nil {
		if err := a.metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}
	a.healthMonitor.Start(a.ctx)
	a.store.Run(a.ctx)

	if err := a.fileSource.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start file source: %w", err)
	}
	if a.dockerSource != nil {
		if err := a.dockerSource.Start(a.ctx); err != nil {
			return fmt.Errorf("failed to start docker source: %w", err)
		}
	}
	if a.kafkaSource != nil {
		if err := a.kafkaSource.Start(a.ctx); err != nil {
			return fmt.Errorf("failed to start kafka source: %w", err)
		}
	}

	if a.dumpServer != nil {
		if err := a.dumpServer.Start(); err != nil {
			return fmt.Errorf("failed to start dump server: %w", err)
		}
	}

	a.logger.Info("joedb started successfully")
	return nil
}

// Stop cancels the root context and shuts every component down,
// logging per-component failures rather than aborting partway through.
func (a *App) Stop() error {
	a.logger.Info("stopping joedb")
	a.cancel()

	if a.dumpServer != nil {
		if err := a.dumpServer.Stop(); err != nil {
			a.logger.WithError(err).Error("failed to stop dump server")
		}
	}
	if a.kafkaSource != nil {
		a.kafkaSource.Stop()
	}
	if a.dockerSource != nil {
		a.dockerSource.Stop()
	}
	a.fileSource.Stop()

	a.store.Stop()
	a.healthMonitor.Stop()

	if a.tracingManager != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.tracingManager.Shutdown(ctx); err != nil {
			a.logger.WithError(err).Error("failed to shut down tracing manager")
		}
	}

	if a.metricsServer != nil {
		if err := a.metricsServer.Stop(); err != nil {
			a.logger.WithError(err).Error("failed to stop metrics server")
		}
	}

	a.logger.Info("joedb stopped")
	return nil
}

// Run starts the application and blocks until SIGINT/SIGTERM, then
// performs a graceful shutdown.
func (a *App) Run() error {
	if err := a.Start(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	a.logger.Info("shutdown signal received")
	return a.Stop()
}
