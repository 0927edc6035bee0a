// Package config provides configuration management for the Apex Predict engine.
package config

import (
	"fmt"
	"math"
	"time"
)

// Config represents the complete application configuration. Every pipeline
// constant lives here and is threaded explicitly through component
// constructors; nothing reads ambient global state.
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Features   FeaturesConfig   `mapstructure:"features" validate:"required"`
	Models     ModelsConfig     `mapstructure:"models" validate:"required"`
	Inference  InferenceConfig  `mapstructure:"inference" validate:"required"`
	DataSource DataSourceConfig `mapstructure:"datasource" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics" validate:"required"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents the read-only connection to the timing store
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// FeaturesConfig holds the physical calibration constants of the feature
// pipeline. The defaults are calibration targets, not exact constants, and
// every one of them is tunable.
type FeaturesConfig struct {
	// FuelAlpha is the fuel sensitivity in seconds per liter used to
	// compute adjusted lap times.
	FuelAlpha float64 `mapstructure:"fuel_alpha" validate:"required,gt=0"`
	// RecencyLambda is the exponential decay rate per year of age.
	// ln(5)/2 retains 20% influence at two years.
	RecencyLambda float64 `mapstructure:"recency_lambda" validate:"required,gt=0"`
	// TempSigma is the Gaussian kernel width in degrees Celsius.
	TempSigma float64 `mapstructure:"temp_sigma" validate:"required,gt=0"`
	// TempCutoffSigmas excludes sessions beyond this many standard
	// deviations from the forecast temperature.
	TempCutoffSigmas float64 `mapstructure:"temp_cutoff_sigmas" validate:"required,gt=0"`
	// MinLapsForFit is the minimum sample count for a degradation fit.
	MinLapsForFit int `mapstructure:"min_laps_for_fit" validate:"required,gt=1"`
	// WarmupLaps are excluded from the degradation fit when enough laps
	// remain after exclusion.
	WarmupLaps int `mapstructure:"warmup_laps" validate:"gte=0"`
	// MinHistorySessions is the minimum number of eligible historical
	// sessions a rider needs for feature assembly.
	MinHistorySessions int `mapstructure:"min_history_sessions" validate:"required,gt=0"`
	// MaxHistoryYears bounds how far back history is considered.
	MaxHistoryYears float64 `mapstructure:"max_history_years" validate:"required,gt=0"`
	// PopulationFallback substitutes a population-average feature vector
	// for riders with insufficient history instead of abstaining.
	PopulationFallback bool `mapstructure:"population_fallback"`
}

// ModelsConfig points at the versioned model artifacts loaded at startup.
type ModelsConfig struct {
	ClassifierPath string `mapstructure:"classifier_path" validate:"required"`
	SequencePath   string `mapstructure:"sequence_path" validate:"required"`
	OvertakePath   string `mapstructure:"overtake_path" validate:"required"`
	CacheTTLSeconds int   `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	CacheMaxSize    int   `mapstructure:"cache_max_size" validate:"required,gt=0"`
}

// InferenceConfig bounds the orchestrator's concurrency and latency.
type InferenceConfig struct {
	ConcurrencyCap   int  `mapstructure:"concurrency_cap" validate:"required,gt=0"`
	TimeoutSeconds   int  `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	RetryOnTimeout   bool `mapstructure:"retry_on_timeout"`
}

// DataSourceConfig configures the timing-feed adapters.
type DataSourceConfig struct {
	BaseURL           string  `mapstructure:"base_url" validate:"omitempty,url"`
	StreamURL         string  `mapstructure:"stream_url"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimitPerSec   float64 `mapstructure:"rate_limit_per_sec" validate:"required,gt=0"`
	CircuitBreakerMax int     `mapstructure:"circuit_breaker_max" validate:"required,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// SchedulerConfig configures scheduled batch prediction runs.
type SchedulerConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	PreRaceCron        string `mapstructure:"pre_race_cron"`
	ArtifactReloadCron string `mapstructure:"artifact_reload_cron"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// InferenceTimeout returns the per-rider inference timeout as a duration.
func (c *Config) InferenceTimeout() time.Duration {
	return time.Duration(c.Inference.TimeoutSeconds) * time.Second
}

// DefaultRecencyLambda is the calibrated decay rate: a two-year-old result
// retains roughly 20% influence.
func DefaultRecencyLambda() float64 {
	return math.Log(5) / 2
}
