// Package main provides a console report of per-session degradation fits.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/apex-predict/internal/config"
	"github.com/yourusername/apex-predict/internal/datasource"
	"github.com/yourusername/apex-predict/internal/features"
	"github.com/yourusername/apex-predict/internal/models"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Path to config file")
		inputPath  = flag.String("input", "", "Path to a race input JSON file")
		riderArg   = flag.String("rider", "", "Restrict the report to one rider ID")
	)
	flag.Parse()

	logger := newLogger()

	if *inputPath == "" {
		logger.Fatal("--input is required")
	}

	cfg := loadConfig(*configPath, logger)
	input, err := datasource.LoadRaceInputFile(*inputPath)
	if err != nil {
		logger.Fatalf("Failed to load race input: %v", err)
	}

	normalizer := features.NewNormalizer(cfg.Features.FuelAlpha, logger)
	estimator := features.NewEstimator(cfg.Features.MinLapsForFit, cfg.Features.WarmupLaps)

	fmt.Printf("Degradation report for race %s (%d riders)\n\n", input.RaceID, len(input.Riders))

	for _, rider := range input.Riders {
		if *riderArg != "" && rider.RiderID.String() != *riderArg {
			continue
		}
		reportRider(rider, normalizer, estimator)
	}
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{})
	logger.SetOutput(os.Stderr)
	return logger
}

func loadConfig(path string, logger *logrus.Logger) *config.Config {
	cfg, err := config.LoadWithDefaults(path)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func reportRider(rider models.RiderInput, normalizer *features.Normalizer, estimator *features.Estimator) {
	fmt.Printf("Rider %s\n", rider.RiderID)

	history := append([]models.SessionLaps(nil), rider.History...)
	sort.Slice(history, func(a, b int) bool {
		return history[a].Session.Date.Before(history[b].Session.Date)
	})

	for _, sl := range history {
		adjusted, err := normalizer.Normalize(sl.Laps)
		if err != nil {
			fmt.Printf("  %s  %-10s  EXCLUDED (%v)\n", sl.Session.Date.Format("2006-01-02"), sl.Session.Type, err)
			continue
		}

		profile, err := estimator.Fit(adjusted)
		if err != nil {
			fmt.Printf("  %s  %-10s  EXCLUDED (no laps)\n", sl.Session.Date.Format("2006-01-02"), sl.Session.Type)
			continue
		}
		if !profile.Usable() {
			fmt.Printf("  %s  %-10s  insufficient (%d laps)\n", sl.Session.Date.Format("2006-01-02"), sl.Session.Type, profile.SampleCount)
			continue
		}

		line := fmt.Sprintf("  %s  %-10s  slope %+.4f s/lap  %-10s  laps %d",
			sl.Session.Date.Format("2006-01-02"),
			sl.Session.Type,
			profile.Beta1,
			features.Categorize(profile),
			profile.SampleCount,
		)
		if isd, err := features.ComputeISD(adjusted); err == nil {
			line += fmt.Sprintf("  isd %+.3fs", isd)
		}
		if sl.Session.IsWet {
			line += "  [wet]"
		}
		fmt.Println(line)
	}

	fmt.Println()
}
