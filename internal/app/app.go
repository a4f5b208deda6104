// Package app assembles the pipeline: configuration, logging, the extractor
// registry, integration and scoring services, and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"brainage/internal/config"
	"brainage/internal/exporter"
	"brainage/internal/extract"
	"brainage/internal/fitts"
	"brainage/internal/infrastructure"
	"brainage/internal/integrate"
	customMiddleware "brainage/internal/middleware"
	"brainage/internal/scoring"
	"brainage/internal/services"
	"brainage/internal/transcribe"
	handlers "brainage/internal/transport/http"
	"brainage/pkg/contracts"
)

// Application is the assembled service container.
type Application struct {
	Config      *config.Config
	Router      *chi.Mux
	Server      *http.Server
	Store       *integrate.Store
	Integration *services.IntegrationService
	Scoring     *services.ScoringService
	Logger      *slog.Logger
}

// New loads configuration from the environment and assembles the application.
func New() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	return NewWithConfig(cfg, logger)
}

// NewWithConfig assembles the application from an already-loaded
// configuration. Used by New and by tests.
func NewWithConfig(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("application starting",
		slog.String("version", contracts.GetVersionString()),
		slog.Int("port", cfg.Server.Port),
	)

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	store, err := integrate.NewStore(cfg.Paths.ResultsDir)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}

	analyzer := fitts.NewAnalyzer(cfg.External.JavaBin, cfg.External.FittsJar, cfg.External.AnalyzeTimeout, logger)
	transcriber := transcribe.NewTranscriber(cfg.External.TranscriberBin, cfg.External.TranscribeTimeout, logger)

	registry := extract.NewRegistry(
		extract.NewExclusionExtractor(logger),
		extract.NewOspanExtractor(logger),
		extract.NewSpeechCompExtractor(logger),
		extract.NewGoFittsExtractor(analyzer, logger),
		extract.NewTextReadingExtractor(transcriber, logger),
	)

	integrator := integrate.NewIntegrator(registry, taskDirs(cfg), logger)
	normalizer := integrate.NewNormalizer(store, logger)
	integration := services.NewIntegrationService(
		integrator, normalizer, store, projectTasks(cfg), cfg.Scoring.JobWorkers, logger)

	artifacts, err := scoring.LoadArtifacts(cfg.Paths.ArtifactsDir)
	if err != nil {
		return nil, fmt.Errorf("load scoring artifacts: %w", err)
	}
	engine := scoring.NewEngine(artifacts, cfg.Scoring.UseLegacyCorrection, logger)
	scoringService := services.NewScoringService(engine, store, logger)

	app := &Application{
		Config:      cfg,
		Store:       store,
		Integration: integration,
		Scoring:     scoringService,
		Logger:      logger,
	}
	app.setupRouter()
	app.createServer()
	return app, nil
}

// taskDirs maps each task onto its raw-data directory.
func taskDirs(cfg *config.Config) map[extract.Task]string {
	return map[extract.Task]string{
		extract.TaskExclusion:   cfg.TaskDir(cfg.Tasks.Exclusion),
		extract.TaskOspan:       cfg.TaskDir(cfg.Tasks.Ospan),
		extract.TaskSpeechComp:  cfg.TaskDir(cfg.Tasks.SpeechComp),
		extract.TaskGoFitts:     cfg.TaskDir(cfg.Tasks.GoFitts),
		extract.TaskTextReading: cfg.TaskDir(cfg.Tasks.TextReading),
	}
}

// projectTasks maps the platform's project names onto tasks. The webhook
// project name is the task's configured directory name.
func projectTasks(cfg *config.Config) map[string]extract.Task {
	return map[string]extract.Task{
		cfg.Tasks.Exclusion:   extract.TaskExclusion,
		cfg.Tasks.Ospan:       extract.TaskOspan,
		cfg.Tasks.SpeechComp:  extract.TaskSpeechComp,
		cfg.Tasks.GoFitts:     extract.TaskGoFitts,
		cfg.Tasks.TextReading: extract.TaskTextReading,
	}
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.Logger))
	if a.Config.Security.RateLimit.Enabled {
		limiter := customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		)
		r.Use(limiter.Handler)
	}

	r.Mount("/health", handlers.NewHealthHandler(a.Store, a.Logger).Routes())
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/export", handlers.NewExportHandler(exporter.NewFeatureMatrix(a.Store, a.Logger), a.Logger).Routes())

	scoringHandler := handlers.NewScoringHandler(a.Scoring, a.Config.Scoring.TotalParticipants, a.Logger)
	r.With(render.SetContentType(render.ContentTypeJSON)).Post("/predict", scoringHandler.Predict)

	webhookAuth := customMiddleware.PlatformToken(a.Config.Security.PlatformToken, a.Logger)
	r.Mount("/", handlers.NewPipelineHandler(a.Integration, a.Logger).Routes(webhookAuth))

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run starts the background queue and the HTTP server and blocks until the
// context is canceled, an interrupt arrives, or the server fails.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Integration.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	return a.Shutdown()
}

// Shutdown drains the HTTP server and the job queue.
func (a *Application) Shutdown() error {
	a.Logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(ctx); err != nil {
		a.Logger.Error("server shutdown failed", slog.String("error", err.Error()))
		return fmt.Errorf("server shutdown: %w", err)
	}

	if err := a.Integration.Queue().Stop(a.Config.Server.ShutdownTimeout); err != nil {
		a.Logger.Warn("job queue drain incomplete", slog.String("error", err.Error()))
	}

	infrastructure.CloseLogFile()
	a.Logger.Info("shutdown complete")
	return nil
}
