// Package main provides the one-shot prediction CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/apex-predict/internal/config"
	"github.com/yourusername/apex-predict/internal/datasource"
	"github.com/yourusername/apex-predict/internal/logger"
	"github.com/yourusername/apex-predict/internal/models"
	"github.com/yourusername/apex-predict/internal/predictor"
	"github.com/yourusername/apex-predict/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile string
	inputFile  string
	raceIDArg  string
	outputFile string
	appLogger  *logrus.Logger
	cfg        *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Path to a race input JSON file")
	rootCmd.Flags().StringVarP(&raceIDArg, "race-id", "r", "", "Race ID to predict (fetched from the timing feed when no input file is given)")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the bundle JSON to this path instead of stdout")
}

var rootCmd = &cobra.Command{
	Use:   "predict",
	Short: "Produce a prediction bundle for one race",
	Long:  `Runs the full prediction pipeline for a single race and emits the resulting bundle as JSON.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		appLogger = logger.NewLogger(cfg.App.LogLevel)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPredict(cmd.Context())
	},
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	loaded, err := config.Load(configFile)
	if err != nil {
		return err
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(loaded, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	if err := config.Validate(loaded); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cfg = loaded
	return nil
}

func runPredict(ctx context.Context) error {
	input, err := loadInput(ctx)
	if err != nil {
		return err
	}

	validator := service.NewDataValidator(appLogger)
	if err := validator.ValidateRaceInput(input); err != nil {
		return err
	}

	orchestrator, err := buildOrchestrator()
	if err != nil {
		return err
	}

	bundle, err := orchestrator.Predict(ctx, input)
	if err != nil {
		return err
	}

	if failed := bundle.FailedRiders(); len(failed) > 0 {
		appLogger.WithField("failed_riders", len(failed)).Warn("Bundle contains failed rider slots")
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode bundle: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("failed to write bundle: %w", err)
		}
		appLogger.WithField("path", outputFile).Info("Bundle written")
		return nil
	}

	fmt.Println(string(data))
	return nil
}

func loadInput(ctx context.Context) (*models.RaceInput, error) {
	if inputFile != "" {
		return datasource.LoadRaceInputFile(inputFile)
	}

	if raceIDArg == "" {
		return nil, fmt.Errorf("either --input or --race-id is required")
	}
	raceID, err := uuid.Parse(raceIDArg)
	if err != nil {
		return nil, fmt.Errorf("invalid race id %q: %w", raceIDArg, err)
	}

	feedCfg := datasource.DefaultHTTPClientConfig()
	feedCfg.BaseURL = cfg.DataSource.BaseURL
	feedCfg.Timeout = time.Duration(cfg.DataSource.TimeoutSeconds) * time.Second
	feedCfg.MaxRetries = cfg.DataSource.MaxRetries
	feedCfg.RateLimit = cfg.DataSource.RateLimitPerSec
	feedCfg.CircuitBreakerMax = cfg.DataSource.CircuitBreakerMax

	feed := datasource.NewTimingFeedClient(feedCfg, appLogger)
	defer feed.Close()

	return feed.RaceInput(ctx, raceID)
}

func buildOrchestrator() (*service.InferenceOrchestrator, error) {
	classifier, err := predictor.LoadGBTClassifier(cfg.Models.ClassifierPath, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to load classifier: %w", err)
	}
	sequence, err := predictor.LoadElmanSequenceModel(cfg.Models.SequencePath, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to load sequence model: %w", err)
	}
	overtake, err := predictor.LoadLogisticOvertakeModel(cfg.Models.OvertakePath, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to load overtake model: %w", err)
	}

	cache := predictor.NewScoreCache(
		time.Duration(cfg.Models.CacheTTLSeconds)*time.Second,
		cfg.Models.CacheMaxSize,
	)

	return service.NewInferenceOrchestrator(cfg, classifier, sequence, overtake, cache, appLogger), nil
}
