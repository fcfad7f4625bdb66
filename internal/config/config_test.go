// Package config provides configuration management for propedge.
package config

import (
	"math"
	"os"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/yourusername/propedge/internal/calibration"
)

const (
	validConfigPath              = "testdata/valid_config.yaml"
	expansionConfigPath          = "testdata/expansion_config.yaml"
	expansionConfigMissingPath   = "testdata/expansion_config_missing.yaml"
	nonexistentConfigPath        = "testdata/nonexistent_config.yaml"
	expectedNoErrorLoadingConfig = "expected no error loading config, got %v"
	expectedNoErrorMsg           = "expected no error, got %v"
	expectedNonNilConfig         = "expected non-nil config"
	propedgeName                 = "propedge"
	developmentEnv               = "development"
	invalidEnv                   = "invalid"
	localhostHost                = "localhost"
	postgresPort                 = 5432
	postgresPrefix               = "postgres://"
	testAppName                  = "test-app"
	testDBPassword               = "TEST_DB_PASSWORD"
	testMissingVar               = "TEST_MISSING_VAR"
	expandedSecretValue          = "expanded_secret_value"
)

// TestLoadConfigSuccess tests loading a valid configuration file
func TestLoadConfigSuccess(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if cfg == nil {
		t.Fatal(expectedNonNilConfig)
	}

	if cfg.App.Name != propedgeName {
		t.Errorf("expected app name '%s', got '%s'", propedgeName, cfg.App.Name)
	}

	if cfg.App.Environment != developmentEnv {
		t.Errorf("expected environment '%s', got '%s'", developmentEnv, cfg.App.Environment)
	}

	if cfg.Database.Host != localhostHost {
		t.Errorf("expected database host '%s', got '%s'", localhostHost, cfg.Database.Host)
	}

	if cfg.Database.Port != postgresPort {
		t.Errorf("expected database port %d, got %d", postgresPort, cfg.Database.Port)
	}

	if len(cfg.Calibration.Bands) != 3 {
		t.Errorf("expected 3 calibration bands, got %d", len(cfg.Calibration.Bands))
	}

	if cfg.Batch.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Batch.Workers)
	}
}

// TestLoadConfigFileNotFound tests handling of missing configuration file
func TestLoadConfigFileNotFound(t *testing.T) {
	_, err := Load(nonexistentConfigPath)
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

// TestLoadConfigEnvironmentVariables tests environment variable override
func TestLoadConfigEnvironmentVariables(t *testing.T) {
	t.Setenv("PROPEDGE_APP_NAME", testAppName)
	t.Setenv("PROPEDGE_BATCH_WORKERS", "9")

	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if cfg.App.Name != testAppName {
		t.Errorf("expected app name '%s' from environment, got '%s'", testAppName, cfg.App.Name)
	}

	if cfg.Batch.Workers != 9 {
		t.Errorf("expected 9 workers from environment, got %d", cfg.Batch.Workers)
	}
}

// TestLoadWithDefaultsMissingFile tests that defaults alone form a valid configuration
func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(nonexistentConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if err := Validate(cfg); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}

	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("expected default storage driver sqlite, got '%s'", cfg.Storage.Driver)
	}
}

// TestValidateSuccess tests validation of a valid configuration
func TestValidateSuccess(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	if err := Validate(cfg); err != nil {
		t.Fatalf("expected no validation error, got %v", err)
	}
}

// TestValidateInvalidEnvironment tests validation of invalid environment
func TestValidateInvalidEnvironment(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	cfg.App.Environment = invalidEnv
	err = Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for invalid environment")
	}

	if !strings.Contains(err.Error(), "development, staging, production") {
		t.Errorf("expected environment validation message, got: %v", err)
	}
}

// TestValidateInvalidStorageDriver tests the storage driver rule
func TestValidateInvalidStorageDriver(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	cfg.Storage.Driver = "mysql"
	err = Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for invalid storage driver")
	}

	if !strings.Contains(err.Error(), "postgres, sqlite") {
		t.Errorf("expected storage driver validation message, got: %v", err)
	}
}

// TestValidateInvalidCron tests the cron expression rule
func TestValidateInvalidCron(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	cfg.Schedule.BatchCron = "every morning"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for invalid cron expression")
	}

	cfg.Schedule.BatchCron = "@daily"
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected descriptor to validate, got %v", err)
	}
}

// TestValidateCalibrationCrossField tests calibration floor and ceiling ordering
func TestValidateCalibrationCrossField(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	cfg.Calibration.Floor = 0.8
	err = Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for floor above ceiling")
	}

	if !strings.Contains(err.Error(), "calibration") {
		t.Errorf("expected calibration error, got: %v", err)
	}
}

// TestValidateConfidenceWeights tests the value engine weight constraint
func TestValidateConfidenceWeights(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	cfg.Value.SampleWeight = 0.8
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for confidence weights above 1")
	}
}

// TestValidateProductionRequiresSSL tests production database requirements
func TestValidateProductionRequiresSSL(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	cfg.App.Environment = "production"
	cfg.Storage.Driver = "postgres"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for production without SSL")
	}

	cfg.Database.SSLMode = "require"
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected production with SSL to validate, got %v", err)
	}
}

// TestValidateFeedRequiresURL tests that an enabled feed needs a URL
func TestValidateFeedRequiresURL(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	cfg.Feed.Enabled = true
	cfg.Feed.URL = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for enabled feed without URL")
	}
}

// TestGetDatabaseDSN tests DSN generation
func TestGetDatabaseDSN(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	dsn := cfg.GetDatabaseDSN()
	if !strings.HasPrefix(dsn, postgresPrefix) {
		t.Errorf("expected DSN to start with '%s', got '%s'", postgresPrefix, dsn)
	}
}

// TestIsDevelopment tests environment check function
func TestIsDevelopment(t *testing.T) {
	cfg := &Config{
		App: AppConfig{Environment: developmentEnv},
	}

	if !cfg.IsDevelopment() {
		t.Error("expected IsDevelopment() to return true")
	}

	if cfg.IsProduction() {
		t.Error("expected IsProduction() to return false")
	}
}

// TestIsProduction tests production environment check
func TestIsProduction(t *testing.T) {
	cfg := &Config{
		App: AppConfig{Environment: "production"},
	}

	if !cfg.IsProduction() {
		t.Error("expected IsProduction() to return true")
	}

	if cfg.IsDevelopment() {
		t.Error("expected IsDevelopment() to return false")
	}
}

// TestIsStaging tests staging environment check
func TestIsStaging(t *testing.T) {
	cfg := &Config{
		App: AppConfig{Environment: "staging"},
	}

	if !cfg.IsStaging() {
		t.Error("expected IsStaging() to return true")
	}
}

// TestComponentConversion tests conversion into component settings
func TestComponentConversion(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	fc := cfg.ToFeatures()
	if math.Abs(fc.HalfLifeDays()-10) > 1e-9 {
		t.Errorf("expected a 10 day half life, got %v", fc.HalfLifeDays())
	}

	if cfg.ToModel().NumTrees != 200 {
		t.Errorf("expected 200 trees, got %d", cfg.ToModel().NumTrees)
	}

	if cfg.ToValue().KellyExponent != 1.5 {
		t.Errorf("expected kelly exponent 1.5, got %v", cfg.ToValue().KellyExponent)
	}

	cfg.Calibration.Bands = nil
	bands := cfg.ToCalibration().Bands
	if len(bands) != len(calibration.DefaultConfig().Bands) {
		t.Errorf("expected default bands when none are configured, got %d", len(bands))
	}
}

// TestLoadConfigEnvironmentVariableExpansion tests environment variable expansion in config file
func TestLoadConfigEnvironmentVariableExpansion(t *testing.T) {
	t.Setenv(testDBPassword, expandedSecretValue)

	cfg, err := Load(expansionConfigPath)
	if err != nil {
		t.Fatalf("expected no error loading config with expansion, got %v", err)
	}

	if cfg.Database.Password != expandedSecretValue {
		t.Errorf("expected password '%s' from environment expansion, got '%s'", expandedSecretValue, cfg.Database.Password)
	}
}

// TestLoadConfigMissingEnvironmentVariable tests handling of missing environment variables
func TestLoadConfigMissingEnvironmentVariable(t *testing.T) {
	os.Unsetenv(testMissingVar)

	cfg, err := Load(expansionConfigMissingPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}

	// os.ExpandEnv replaces unset variables with the empty string
	if cfg.Database.Password != "" {
		t.Errorf("expected empty password for unset variable, got %q", cfg.Database.Password)
	}
}

// TestParseSecretData tests decoding of the secrets payload
func TestParseSecretData(t *testing.T) {
	secrets, err := parseSecretData(&secretsmanager.GetSecretValueOutput{
		SecretString: aws.String(`{"database_password":"s3cret","feed_api_key":"key-1"}`),
	})
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if secrets.DatabasePassword != "s3cret" || secrets.FeedAPIKey != "key-1" {
		t.Errorf("unexpected secrets: %+v", secrets)
	}

	if _, err := parseSecretData(&secretsmanager.GetSecretValueOutput{}); err == nil {
		t.Fatal("expected error for empty secret")
	}

	if _, err := parseSecretData(&secretsmanager.GetSecretValueOutput{SecretString: aws.String("{")}); err == nil {
		t.Fatal("expected error for malformed secret")
	}
}

// TestOverlaySecretsOnConfig tests that only non-empty secrets are applied
func TestOverlaySecretsOnConfig(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Password: "original"},
		Feed:     FeedConfig{APIKey: "original-key"},
	}

	overlaySecretsOnConfig(cfg, &SecretsOverlay{DatabasePassword: "rotated"})

	if cfg.Database.Password != "rotated" {
		t.Errorf("expected rotated password, got '%s'", cfg.Database.Password)
	}

	if cfg.Feed.APIKey != "original-key" {
		t.Errorf("expected feed key to be untouched, got '%s'", cfg.Feed.APIKey)
	}
}
