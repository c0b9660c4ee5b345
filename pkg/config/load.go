package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file at the specified path,
// applies defaults, and validates the result. Environment variables are
// not consulted; use LoadWithEnvOverrides for that.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// SENTINEL_SECTION_FIELD (e.g. SENTINEL_SERVER_LISTEN_ADDRESS) and always
// take precedence over file values.
//
// Loading sequence: YAML file, defaults, env overrides, validation.
func LoadWithEnvOverrides(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// ApplyEnvOverrides applies SENTINEL_* environment variable overrides
// to an already-populated configuration.
func ApplyEnvOverrides(cfg *Config) {
	applyEnvOverrides(cfg)
}

func applyEnvOverrides(cfg *Config) {
	// Server
	setString(&cfg.Server.ListenAddress, "SENTINEL_SERVER_LISTEN_ADDRESS")
	setDuration(&cfg.Server.ReadTimeout, "SENTINEL_SERVER_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "SENTINEL_SERVER_WRITE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "SENTINEL_SERVER_SHUTDOWN_TIMEOUT")

	// Detector
	setString(&cfg.Detector.BaseURL, "SENTINEL_DETECTOR_BASE_URL")
	setDuration(&cfg.Detector.Timeout, "SENTINEL_DETECTOR_TIMEOUT")

	// Limits
	setInt(&cfg.Limits.IPPerWindow, "SENTINEL_LIMITS_IP_PER_WINDOW")
	setInt(&cfg.Limits.TokenPerWindow, "SENTINEL_LIMITS_TOKEN_PER_WINDOW")
	setInt(&cfg.Limits.WindowSeconds, "SENTINEL_LIMITS_WINDOW_SECONDS")
	setString(&cfg.Limits.Backend, "SENTINEL_LIMITS_BACKEND")
	setString(&cfg.Limits.Redis.Addr, "SENTINEL_LIMITS_REDIS_ADDR")
	setString(&cfg.Limits.Redis.Password, "SENTINEL_LIMITS_REDIS_PASSWORD")
	setInt(&cfg.Limits.Redis.DB, "SENTINEL_LIMITS_REDIS_DB")

	// Tokens
	setString(&cfg.Tokens.DBPath, "SENTINEL_TOKENS_DB_PATH")

	// Netdata
	setString(&cfg.Netdata.BaseURL, "SENTINEL_NETDATA_BASE_URL")
	setString(&cfg.Netdata.MountPrefix, "SENTINEL_NETDATA_MOUNT_PREFIX")

	// Monitor
	setBool(&cfg.Monitor.Enabled, "SENTINEL_MONITOR_ENABLED")
	setString(&cfg.Monitor.NotifyURL, "SENTINEL_MONITOR_NOTIFY_URL")
	setDuration(&cfg.Monitor.PollInterval, "SENTINEL_MONITOR_POLL_INTERVAL")
	setFloat(&cfg.Monitor.CPUPercent, "SENTINEL_MONITOR_CPU_PERCENT")
	setFloat(&cfg.Monitor.MemPercent, "SENTINEL_MONITOR_MEM_PERCENT")
	setFloat(&cfg.Monitor.LoadMultiplier, "SENTINEL_MONITOR_LOAD_MULTIPLIER")
	setInt(&cfg.Monitor.SustainSeconds, "SENTINEL_MONITOR_SUSTAIN_SECONDS")
	setString(&cfg.Monitor.LockPath, "SENTINEL_MONITOR_LOCK_PATH")

	// Admin
	setString(&cfg.Admin.User, "SENTINEL_ADMIN_USER")
	setString(&cfg.Admin.Password, "SENTINEL_ADMIN_PASSWORD")
	setString(&cfg.Admin.SessionSecret, "SENTINEL_ADMIN_SESSION_SECRET")

	// Telemetry
	setString(&cfg.Telemetry.Logging.Level, "SENTINEL_TELEMETRY_LOGGING_LEVEL")
	setString(&cfg.Telemetry.Logging.Format, "SENTINEL_TELEMETRY_LOGGING_FORMAT")
	setBool(&cfg.Telemetry.Metrics.Enabled, "SENTINEL_TELEMETRY_METRICS_ENABLED")
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setInt(dst *int, key string) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func setFloat(dst *float64, key string) {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *Duration, key string) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = Duration(d)
		}
	}
}
