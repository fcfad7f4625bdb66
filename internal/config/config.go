// Package config provides configuration management for propedge.
package config

import (
	"fmt"
	"math"
	"time"

	"github.com/yourusername/propedge/internal/calibration"
	"github.com/yourusername/propedge/internal/features"
	"github.com/yourusername/propedge/internal/ml"
	"github.com/yourusername/propedge/internal/value"
)

// Config represents the complete application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Storage     StorageConfig     `mapstructure:"storage" validate:"required"`
	Features    FeaturesConfig    `mapstructure:"features" validate:"required"`
	Model       ModelConfig       `mapstructure:"model" validate:"required"`
	Calibration CalibrationConfig `mapstructure:"calibration" validate:"required"`
	Value       ValueConfig       `mapstructure:"value" validate:"required"`
	Batch       BatchConfig       `mapstructure:"batch" validate:"required"`
	Feed        FeedConfig        `mapstructure:"feed"`
	Tracking    TrackingConfig    `mapstructure:"tracking" validate:"required"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Schedule    ScheduleConfig    `mapstructure:"schedule"`
	Health      HealthConfig      `mapstructure:"health"`
	Secrets     SecretsConfig     `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
	LogFormat   string `mapstructure:"log_format" validate:"omitempty,oneof=json text"`
}

// DatabaseConfig represents PostgreSQL connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"gte=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"gte=0"`
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Driver     string `mapstructure:"driver" validate:"required,storagedriver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// FeaturesConfig represents feature engineering settings
type FeaturesConfig struct {
	MinGames     int     `mapstructure:"min_games" validate:"required,gt=0"`
	MinLookback  int     `mapstructure:"min_lookback" validate:"required,gt=0"`
	HitRateBand  float64 `mapstructure:"hit_rate_band" validate:"gte=0"`
	Epsilon      float64 `mapstructure:"epsilon" validate:"required,gt=0"`
	HalfLifeDays float64 `mapstructure:"half_life_days" validate:"required,gt=0"`
	MinWeight    float64 `mapstructure:"min_weight" validate:"required,gt=0,lte=1"`
}

// ModelConfig represents the per-entity ensemble settings
type ModelConfig struct {
	NumTrees            int     `mapstructure:"num_trees" validate:"required,gt=0"`
	MaxDepth            int     `mapstructure:"max_depth" validate:"required,gt=0"`
	MinSamplesSplit     int     `mapstructure:"min_samples_split" validate:"required,gte=2"`
	MinSamplesLeaf      int     `mapstructure:"min_samples_leaf" validate:"required,gte=1"`
	BalancedClassWeight bool    `mapstructure:"balanced_class_weight"`
	VarianceThreshold   float64 `mapstructure:"variance_threshold" validate:"gte=0"`
	MinSelectedFeatures int     `mapstructure:"min_selected_features" validate:"required,gte=1"`
	SelectFraction      float64 `mapstructure:"select_fraction" validate:"required,gt=0,lte=1"`
	ConfidenceLevel     float64 `mapstructure:"confidence_level" validate:"required,gt=0,lt=1"`
	BaselineHalfWidth   float64 `mapstructure:"baseline_half_width" validate:"gte=0,lte=0.5"`
	Seed                int64   `mapstructure:"seed"`
}

// BandConfig maps a raw probability range onto a calibrated range
type BandConfig struct {
	Lower   float64 `mapstructure:"lower" validate:"gte=0,lte=1"`
	Upper   float64 `mapstructure:"upper" validate:"gte=0,lte=1"`
	OutLow  float64 `mapstructure:"out_low" validate:"gte=0,lte=1"`
	OutHigh float64 `mapstructure:"out_high" validate:"gte=0,lte=1"`
}

// CalibrationConfig represents the calibration policy
type CalibrationConfig struct {
	Bands           []BandConfig `mapstructure:"bands" validate:"dive"`
	ImpliedFloor    float64      `mapstructure:"implied_floor" validate:"gte=0,lte=1"`
	ImpliedCeiling  float64      `mapstructure:"implied_ceiling" validate:"required,gt=0,lte=1"`
	StrongThreshold float64      `mapstructure:"strong_threshold" validate:"gte=0,lte=1"`
	MaxBlend        float64      `mapstructure:"max_blend" validate:"gte=0,lte=1"`
	BlendScale      float64      `mapstructure:"blend_scale" validate:"gte=0"`
	MildThreshold   float64      `mapstructure:"mild_threshold" validate:"gte=0,lte=1"`
	MildBlend       float64      `mapstructure:"mild_blend" validate:"gte=0,lte=1"`
	Floor           float64      `mapstructure:"floor" validate:"gte=0,lte=1"`
	Ceiling         float64      `mapstructure:"ceiling" validate:"required,gt=0,lte=1"`
}

// ValueConfig represents EV, Kelly and confidence settings
type ValueConfig struct {
	KellyExponent     float64 `mapstructure:"kelly_exponent" validate:"required,gte=1"`
	SampleSaturation  int     `mapstructure:"sample_saturation" validate:"required,gt=0"`
	SampleWeight      float64 `mapstructure:"sample_weight" validate:"gte=0,lte=1"`
	IntervalWeight    float64 `mapstructure:"interval_weight" validate:"gte=0,lte=1"`
	DegeneratePenalty float64 `mapstructure:"degenerate_penalty" validate:"gte=0,lte=1"`
	FractionalKelly   float64 `mapstructure:"fractional_kelly" validate:"required,gt=0,lte=1"`
	MaxStakeFraction  float64 `mapstructure:"max_stake_fraction" validate:"required,gt=0,lte=1"`
}

// BatchConfig represents batch evaluation settings
type BatchConfig struct {
	Workers               int     `mapstructure:"workers" validate:"required,gt=0"`
	HistoryLimit          int     `mapstructure:"history_limit" validate:"gte=0"`
	OversOnly             bool    `mapstructure:"overs_only"`
	MaxCandidates         int     `mapstructure:"max_candidates" validate:"gte=0"`
	MinExpectedValue      float64 `mapstructure:"min_expected_value"`
	CacheEnabled          bool    `mapstructure:"cache_enabled"`
	CacheTTLSeconds       int     `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
	CacheMaxSize          int     `mapstructure:"cache_max_size" validate:"gte=0"`
	BreakerMaxFailures    int     `mapstructure:"breaker_max_failures" validate:"gte=0"`
	BreakerTimeoutSeconds int     `mapstructure:"breaker_timeout_seconds" validate:"gte=0"`
}

// FeedConfig represents the HTTP odds feed
type FeedConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	URL               string  `mapstructure:"url" validate:"omitempty,url"`
	APIKey            string  `mapstructure:"api_key"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"gte=0"`
	RetryAttempts     int     `mapstructure:"retry_attempts" validate:"gte=0"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
}

// TrackingConfig represents outcome tracking settings
type TrackingConfig struct {
	Stake           float64 `mapstructure:"stake" validate:"required,gt=0"`
	Bankroll        float64 `mapstructure:"bankroll" validate:"required,gt=0"`
	SimulationRuns  int     `mapstructure:"simulation_runs" validate:"gte=0"`
	SettleAfterDays int     `mapstructure:"settle_after_days" validate:"gte=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `mapstructure:"path"`
}

// ScheduleConfig represents cron schedules for unattended runs
type ScheduleConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	BatchCron  string `mapstructure:"batch_cron" validate:"omitempty,cronspec"`
	SettleCron string `mapstructure:"settle_cron" validate:"omitempty,cronspec"`
}

// HealthConfig represents the health server
type HealthConfig struct {
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
}

// SecretsConfig locates the optional AWS Secrets Manager overlay
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region"`
	SecretName string `mapstructure:"secret_name"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
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

// ToFeatures returns the feature builder settings
func (c *Config) ToFeatures() features.Config {
	return features.Config{
		MinGames:    c.Features.MinGames,
		MinLookback: c.Features.MinLookback,
		HitRateBand: c.Features.HitRateBand,
		Epsilon:     c.Features.Epsilon,
		DecayPerDay: math.Ln2 / c.Features.HalfLifeDays,
		MinWeight:   c.Features.MinWeight,
	}
}

// ToModel returns the trainer settings
func (c *Config) ToModel() ml.Config {
	m := c.Model
	return ml.Config{
		NumTrees:            m.NumTrees,
		MaxDepth:            m.MaxDepth,
		MinSamplesSplit:     m.MinSamplesSplit,
		MinSamplesLeaf:      m.MinSamplesLeaf,
		BalancedClassWeight: m.BalancedClassWeight,
		VarianceThreshold:   m.VarianceThreshold,
		MinSelectedFeatures: m.MinSelectedFeatures,
		SelectFraction:      m.SelectFraction,
		ConfidenceLevel:     m.ConfidenceLevel,
		BaselineHalfWidth:   m.BaselineHalfWidth,
		Seed:                m.Seed,
	}
}

// ToCalibration returns the calibration policy. An empty band list uses the default bands.
func (c *Config) ToCalibration() calibration.Config {
	cal := c.Calibration
	bands := calibration.DefaultConfig().Bands
	if len(cal.Bands) > 0 {
		bands = make([]calibration.Band, len(cal.Bands))
		for i, b := range cal.Bands {
			bands[i] = calibration.Band{Lower: b.Lower, Upper: b.Upper, OutLow: b.OutLow, OutHigh: b.OutHigh}
		}
	}
	return calibration.Config{
		Bands:           bands,
		ImpliedFloor:    cal.ImpliedFloor,
		ImpliedCeiling:  cal.ImpliedCeiling,
		StrongThreshold: cal.StrongThreshold,
		MaxBlend:        cal.MaxBlend,
		BlendScale:      cal.BlendScale,
		MildThreshold:   cal.MildThreshold,
		MildBlend:       cal.MildBlend,
		Floor:           cal.Floor,
		Ceiling:         cal.Ceiling,
	}
}

// ToValue returns the value engine settings
func (c *Config) ToValue() value.Config {
	v := c.Value
	return value.Config{
		KellyExponent:     v.KellyExponent,
		SampleSaturation:  v.SampleSaturation,
		SampleWeight:      v.SampleWeight,
		IntervalWeight:    v.IntervalWeight,
		DegeneratePenalty: v.DegeneratePenalty,
		FractionalKelly:   v.FractionalKelly,
		MaxStakeFraction:  v.MaxStakeFraction,
	}
}

// CacheTTL returns the result cache TTL
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Batch.CacheTTLSeconds) * time.Second
}

// BreakerTimeout returns how long the history breaker stays open
func (c *Config) BreakerTimeout() time.Duration {
	return time.Duration(c.Batch.BreakerTimeoutSeconds) * time.Second
}

// FeedTimeout returns the feed request timeout
func (c *Config) FeedTimeout() time.Duration {
	return time.Duration(c.Feed.TimeoutSeconds) * time.Second
}
