// Package config provides configuration management for propedge.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix         = "PROPEDGE"
	defaultConfigPath = "config/config.yaml"
)

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME}).
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for every field.
// A missing file is not an error: defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
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
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "propedge")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "text")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "propedge")
	v.SetDefault("database.user", "propedge")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite_path", "data/propedge.db")

	v.SetDefault("features.min_games", 10)
	v.SetDefault("features.min_lookback", 3)
	v.SetDefault("features.hit_rate_band", 1.0)
	v.SetDefault("features.epsilon", 1e-6)
	v.SetDefault("features.half_life_days", 10.0)
	v.SetDefault("features.min_weight", 1e-6)

	v.SetDefault("model.num_trees", 200)
	v.SetDefault("model.max_depth", 12)
	v.SetDefault("model.min_samples_split", 10)
	v.SetDefault("model.min_samples_leaf", 5)
	v.SetDefault("model.balanced_class_weight", true)
	v.SetDefault("model.variance_threshold", 0.01)
	v.SetDefault("model.min_selected_features", 10)
	v.SetDefault("model.select_fraction", 0.8)
	v.SetDefault("model.confidence_level", 0.95)
	v.SetDefault("model.baseline_half_width", 0.2)
	v.SetDefault("model.seed", 42)

	v.SetDefault("calibration.implied_floor", 0.05)
	v.SetDefault("calibration.implied_ceiling", 0.95)
	v.SetDefault("calibration.strong_threshold", 0.25)
	v.SetDefault("calibration.max_blend", 0.4)
	v.SetDefault("calibration.blend_scale", 1.5)
	v.SetDefault("calibration.mild_threshold", 0.15)
	v.SetDefault("calibration.mild_blend", 0.15)
	v.SetDefault("calibration.floor", 0.10)
	v.SetDefault("calibration.ceiling", 0.75)

	v.SetDefault("value.kelly_exponent", 1.5)
	v.SetDefault("value.sample_saturation", 50)
	v.SetDefault("value.sample_weight", 0.6)
	v.SetDefault("value.interval_weight", 0.4)
	v.SetDefault("value.degenerate_penalty", 0.5)
	v.SetDefault("value.fractional_kelly", 0.25)
	v.SetDefault("value.max_stake_fraction", 0.05)

	v.SetDefault("batch.workers", 4)
	v.SetDefault("batch.history_limit", 82)
	v.SetDefault("batch.overs_only", false)
	v.SetDefault("batch.max_candidates", 0)
	v.SetDefault("batch.cache_enabled", true)
	v.SetDefault("batch.cache_ttl_seconds", 900)
	v.SetDefault("batch.cache_max_size", 5000)
	v.SetDefault("batch.breaker_max_failures", 5)
	v.SetDefault("batch.breaker_timeout_seconds", 30)

	v.SetDefault("feed.timeout_seconds", 10)
	v.SetDefault("feed.retry_attempts", 3)
	v.SetDefault("feed.requests_per_second", 2.0)

	v.SetDefault("tracking.stake", 100.0)
	v.SetDefault("tracking.bankroll", 1000.0)
	v.SetDefault("tracking.simulation_runs", 1000)
	v.SetDefault("tracking.settle_after_days", 1)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("schedule.batch_cron", "0 10 * * *")
	v.SetDefault("schedule.settle_cron", "0 6 * * *")

	v.SetDefault("health.port", 8080)
}
