package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/causewaylabs/crossingd/internal/api"
	"github.com/causewaylabs/crossingd/internal/calendar"
	"github.com/causewaylabs/crossingd/internal/config"
	"github.com/causewaylabs/crossingd/internal/features"
	"github.com/causewaylabs/crossingd/internal/model"
	"github.com/causewaylabs/crossingd/internal/patterns"
	"github.com/causewaylabs/crossingd/internal/prediction"
	"github.com/causewaylabs/crossingd/internal/storage/sqlite"
	"github.com/causewaylabs/crossingd/internal/traffic"
	"github.com/causewaylabs/crossingd/internal/weather"
	"github.com/causewaylabs/crossingd/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "crossingd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	log.Info("Starting crossingd",
		logger.String("config", configPath),
		logger.Int("port", cfg.Server.Port),
	)

	store, err := sqlite.Open(cfg.Storage.SQLitePath, log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	cal, err := calendar.NewTableProvider(cfg.Calendar)
	if err != nil {
		return fmt.Errorf("failed to build calendar provider: %w", err)
	}

	weatherClient := weather.NewClient(cfg.Weather, cfg.WeatherTimeout(), log)
	trafficClient := traffic.NewClient(cfg.Traffic, cfg.TrafficTimeout(), log)
	blender := traffic.NewBlender(trafficClient, store, cfg.TrafficTimeout(), log)
	estimator := patterns.NewEstimator(store, cal, cfg.Patterns, log)
	builder := features.NewBuilder(estimator, blender, weatherClient, cal, log)

	// The model is optional: without it the engine serves the deterministic
	// heuristic fallback instead of failing the whole API.
	var artifact *model.Artifact
	if a, err := model.Load(cfg.Model.Path); err != nil {
		log.Warn("Model artifact not loaded, serving heuristic predictions",
			logger.String("path", cfg.Model.Path),
			logger.Error(err),
		)
	} else {
		artifact = a
		log.Info("Model artifact loaded",
			logger.Int("schema_version", a.SchemaVersion),
			logger.Int("members", len(a.Members)),
		)
	}

	engine, err := prediction.NewEngine(artifact, cfg.Prediction.RelativeBand, log)
	if err != nil {
		// Schema mismatch between artifact and feature builder: refuse to
		// serve wrong predictions.
		return fmt.Errorf("failed to create prediction engine: %w", err)
	}

	runner := prediction.NewRunner(builder, engine, cfg.Prediction.ScenarioConcurrency, log)
	service := prediction.NewService(builder, engine, runner, estimator, store, cal, log)
	router := api.NewRouter(service, cfg, log)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		log.Info("Shutting down", logger.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
