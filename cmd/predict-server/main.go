// Package main provides the long-running prediction service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/apex-predict/internal/config"
	"github.com/yourusername/apex-predict/internal/database"
	"github.com/yourusername/apex-predict/internal/datasource"
	"github.com/yourusername/apex-predict/internal/health"
	"github.com/yourusername/apex-predict/internal/logger"
	"github.com/yourusername/apex-predict/internal/metrics"
	"github.com/yourusername/apex-predict/internal/models"
	"github.com/yourusername/apex-predict/internal/predictor"
	"github.com/yourusername/apex-predict/internal/repository"
	"github.com/yourusername/apex-predict/internal/scheduler"
	"github.com/yourusername/apex-predict/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		raceList   = flag.String("races", "", "Comma-separated race IDs to track for scheduled prediction")
	)
	flag.Parse()

	cfg := loadConfig(*configPath)
	appLogger := logger.NewLogger(cfg.App.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cancel, cfg, appLogger, *raceList); err != nil {
		appLogger.WithError(err).Fatal("Service failed")
	}
}

func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			fmt.Fprintln(os.Stderr, "AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
			os.Exit(1)
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load secrets: %v\n", err)
			os.Exit(1)
		}
	}

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func run(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, appLogger *logrus.Logger, raceList string) error {
	db, err := database.NewDB(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	modelSet, err := predictor.LoadModelSet(
		cfg.Models.ClassifierPath,
		cfg.Models.SequencePath,
		cfg.Models.OvertakePath,
		appLogger,
	)
	if err != nil {
		return fmt.Errorf("failed to load model artifacts: %w", err)
	}

	cache := predictor.NewScoreCache(
		time.Duration(cfg.Models.CacheTTLSeconds)*time.Second,
		cfg.Models.CacheMaxSize,
	)

	orchestrator := service.NewInferenceOrchestrator(cfg, modelSet, modelSet, modelSet, cache, appLogger)

	repo := repository.NewPostgresTimingRepository(db)
	provider := repository.NewStoreInputProvider(db, repo, cfg.Features.MaxHistoryYears, appLogger)

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        fmt.Sprintf("%d", cfg.Metrics.Port),
		MetricsPath: cfg.Metrics.Path,
		Logger:      appLogger,
		DB:          db,
	})
	if err := healthServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health server: %w", err)
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = startScheduler(cfg, provider, orchestrator, modelSet, cache, appLogger, raceList)
		if err != nil {
			return err
		}
		defer sched.Stop()
	}

	var stream *datasource.LapStreamClient
	if cfg.DataSource.StreamURL != "" {
		stream = startStream(ctx, cfg, cache, appLogger)
		if stream != nil {
			defer stream.Close()
		}
	}

	healthServer.SetReady(true)
	appLogger.WithFields(logrus.Fields{
		"version":       Version,
		"model_version": modelSet.Version(),
	}).Info("Prediction service started")

	waitForShutdown(ctx, cancel, appLogger)
	healthServer.SetReady(false)
	return nil
}

func startScheduler(
	cfg *config.Config,
	provider datasource.RaceInputProvider,
	orchestrator *service.InferenceOrchestrator,
	modelSet *predictor.ModelSet,
	cache *predictor.ScoreCache,
	appLogger *logrus.Logger,
	raceList string,
) (*scheduler.Scheduler, error) {
	sched := scheduler.NewScheduler(provider, orchestrator, appLogger)

	for _, raw := range strings.Split(raceList, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		raceID, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid race id %q: %w", raw, err)
		}
		sched.TrackRace(raceID)
	}

	if cfg.Scheduler.PreRaceCron != "" {
		if err := sched.SchedulePredictionRuns(cfg.Scheduler.PreRaceCron, nil); err != nil {
			return nil, fmt.Errorf("failed to schedule prediction runs: %w", err)
		}
	}
	if cfg.Scheduler.ArtifactReloadCron != "" {
		reload := func() error {
			if err := modelSet.Reload(); err != nil {
				return err
			}
			cache.Clear()
			return nil
		}
		if err := sched.ScheduleArtifactReload(cfg.Scheduler.ArtifactReloadCron, reload); err != nil {
			return nil, fmt.Errorf("failed to schedule artifact reload: %w", err)
		}
	}

	if err := sched.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}
	return sched, nil
}

func startStream(ctx context.Context, cfg *config.Config, cache *predictor.ScoreCache, appLogger *logrus.Logger) *datasource.LapStreamClient {
	stream := datasource.NewLapStreamClient(cfg.DataSource.StreamURL, "", appLogger)

	stream.AddHandler(func(raceID uuid.UUID, lap models.LapRecord) error {
		metrics.RecordStreamLap()
		cache.InvalidateRace(raceID)
		metrics.RecordCacheInvalidation()
		return nil
	})

	if err := stream.Connect(ctx); err != nil {
		appLogger.WithError(err).Warn("Live lap stream unavailable, continuing without it")
		metrics.SetStreamConnected(false)
		return nil
	}
	metrics.SetStreamConnected(true)
	return stream
}

func waitForShutdown(ctx context.Context, cancel context.CancelFunc, appLogger *logrus.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		appLogger.WithField("signal", sig.String()).Info("Shutdown signal received")
		cancel()
	case <-ctx.Done():
	}
}
