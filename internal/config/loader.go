// Package config provides configuration management for the Apex Predict engine.
package config

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME}).
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional
// fields, falling back to pure defaults when the file is absent.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APEX_PREDICT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "apex-predict")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Calibration targets from the feature design: 20% recency retention at
	// two years, one-sigma temperature band of 5 degrees C.
	v.SetDefault("features.fuel_alpha", 0.035)
	v.SetDefault("features.recency_lambda", math.Log(5)/2)
	v.SetDefault("features.temp_sigma", 5.0)
	v.SetDefault("features.temp_cutoff_sigmas", 3.0)
	v.SetDefault("features.min_laps_for_fit", 5)
	v.SetDefault("features.warmup_laps", 3)
	v.SetDefault("features.min_history_sessions", 1)
	v.SetDefault("features.max_history_years", 5.0)
	v.SetDefault("features.population_fallback", false)

	v.SetDefault("models.cache_ttl_seconds", 300)
	v.SetDefault("models.cache_max_size", 2048)

	v.SetDefault("inference.concurrency_cap", 20)
	v.SetDefault("inference.timeout_seconds", 10)
	v.SetDefault("inference.retry_on_timeout", false)

	v.SetDefault("datasource.timeout_seconds", 30)
	v.SetDefault("datasource.max_retries", 5)
	v.SetDefault("datasource.rate_limit_per_sec", 10.0)
	v.SetDefault("datasource.circuit_breaker_max", 5)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}
