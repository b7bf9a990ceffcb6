package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"clinicdesk/internal/constants"
	"clinicdesk/internal/models"
	"clinicdesk/internal/security"
)

// LoadConfig reads the JSON configuration file, applies environment
// overrides and fills in defaults. Secrets (API keys, database path
// overrides) come exclusively from the environment.
func LoadConfig(path string) (*models.Config, error) {
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	data, err := os.ReadFile(path) // #nosec G304 - path is validated above
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg models.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvironmentOverrides(&cfg)
	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnvironmentOverrides(cfg *models.Config) {
	if v := os.Getenv("CLINICDESK_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("CLINICDESK_DIRECTORY_URL"); v != "" {
		cfg.Directory.BaseURL = v
	}
	if v := os.Getenv("CLINICDESK_DIRECTORY_INSTANCE"); v != "" {
		cfg.Directory.Instance = v
	}
	if v := os.Getenv("CLINICDESK_STORAGE_URL"); v != "" {
		cfg.Storage.BaseURL = v
	}
	if v := os.Getenv("CLINICDESK_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port <= 65535 {
			cfg.Server.Port = port
		}
	}

	// API keys never live in the config file.
	cfg.Directory.APIKey = os.Getenv("CLINICDESK_DIRECTORY_API_KEY")
	cfg.Storage.APIKey = os.Getenv("CLINICDESK_STORAGE_API_KEY")
}

func applyDefaults(cfg *models.Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = constants.DefaultRetentionDays
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = constants.DefaultServerPort
	}
	if cfg.Server.ReadTimeoutSec <= 0 {
		cfg.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if cfg.Server.WriteTimeoutSec <= 0 {
		cfg.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if cfg.Server.IdleTimeoutSec <= 0 {
		cfg.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}

	if cfg.Directory.TimeoutSec <= 0 {
		cfg.Directory.TimeoutSec = constants.DefaultDirectoryTimeoutSec
	}

	if cfg.Resolver.PositiveTTLHours <= 0 {
		cfg.Resolver.PositiveTTLHours = constants.DefaultPositiveResolutionTTLHours
	}
	if cfg.Resolver.NegativeTTLMinutes <= 0 {
		cfg.Resolver.NegativeTTLMinutes = constants.DefaultNegativeResolutionTTLMinutes
	}

	if cfg.Retry.InitialBackoffMs <= 0 {
		cfg.Retry.InitialBackoffMs = constants.DefaultRetryBackoffMs
	}
	if cfg.Retry.MaxBackoffMs <= 0 {
		cfg.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = constants.DefaultMaxAttempts
	}

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "clinicdesk"
	}
	if cfg.Tracing.SampleRate <= 0 {
		cfg.Tracing.SampleRate = 1.0
	}
}

// Validate checks that the configuration names everything the pipeline
// needs to run. Directory and storage credentials are optional; the
// subsystems that need them degrade when absent.
func Validate(cfg *models.Config) error {
	if cfg.Database.Path == "" {
		return models.ConfigError{Message: "database path is required"}
	}
	if cfg.Directory.BaseURL != "" && cfg.Directory.Instance == "" {
		return models.ConfigError{Message: "directory instance is required when directory baseUrl is set"}
	}
	if cfg.Storage.BaseURL != "" && cfg.Storage.Bucket == "" {
		return models.ConfigError{Message: "storage bucket is required when storage baseUrl is set"}
	}
	return nil
}
