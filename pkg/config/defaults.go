package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:6969"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Detector defaults
	DefaultDetectorBaseURL  = "http://127.0.0.1:8089"
	DefaultDetectorTimeout  = 30 * time.Second
	DefaultMaxImageBytes    = int64(16 << 20) // 16MB

	// Limits defaults
	DefaultIPPerWindow       = 30
	DefaultTokenPerWindow    = 300
	DefaultWindowSeconds     = 60
	DefaultLimitsBackend     = "memory"
	DefaultRedisAddr         = "127.0.0.1:6379"
	DefaultIdleEviction      = 10 * time.Minute
	DefaultSweepSchedule     = "*/5 * * * *"

	// Tokens defaults
	DefaultTokensDBPath = "data/api_tokens.db"

	// Netdata defaults
	DefaultNetdataBaseURL = "http://127.0.0.1:19999"
	DefaultMountPrefix    = "/netdata"
	DefaultNetdataTimeout = 30 * time.Second

	// Monitor defaults
	DefaultPollInterval   = 5 * time.Second
	DefaultCPUPercent     = 85.0
	DefaultMemPercent     = 90.0
	DefaultLoadMultiplier = 1.5
	DefaultSustainSeconds = 120
	DefaultFetchTimeout   = 10 * time.Second
	DefaultLockPath       = "/tmp/sentinel-monitor.lock"

	// Admin defaults
	DefaultAdminUser  = "admin"
	DefaultAdminPass  = "changeme"
	DefaultSessionTTL = 24 * time.Hour

	// Telemetry defaults
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "sentinel"
)

// ApplyDefaults fills zero-valued fields with default values.
// Called after YAML parsing and before validation.
func ApplyDefaults(cfg *Config) {
	// Server
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = Duration(DefaultReadTimeout)
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = Duration(DefaultWriteTimeout)
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = Duration(DefaultIdleTimeout)
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Detector
	if cfg.Detector.BaseURL == "" {
		cfg.Detector.BaseURL = DefaultDetectorBaseURL
	}
	if cfg.Detector.Timeout == 0 {
		cfg.Detector.Timeout = Duration(DefaultDetectorTimeout)
	}
	if cfg.Detector.MaxImageBytes == 0 {
		cfg.Detector.MaxImageBytes = DefaultMaxImageBytes
	}

	// Limits
	if cfg.Limits.IPPerWindow == 0 {
		cfg.Limits.IPPerWindow = DefaultIPPerWindow
	}
	if cfg.Limits.TokenPerWindow == 0 {
		cfg.Limits.TokenPerWindow = DefaultTokenPerWindow
	}
	if cfg.Limits.WindowSeconds == 0 {
		cfg.Limits.WindowSeconds = DefaultWindowSeconds
	}
	if cfg.Limits.Backend == "" {
		cfg.Limits.Backend = DefaultLimitsBackend
	}
	if cfg.Limits.Redis.Addr == "" {
		cfg.Limits.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Limits.Memory.IdleEviction == 0 {
		cfg.Limits.Memory.IdleEviction = Duration(DefaultIdleEviction)
	}
	if cfg.Limits.Memory.SweepSchedule == "" {
		cfg.Limits.Memory.SweepSchedule = DefaultSweepSchedule
	}

	// Tokens
	if cfg.Tokens.DBPath == "" {
		cfg.Tokens.DBPath = DefaultTokensDBPath
	}

	// Netdata
	if cfg.Netdata.BaseURL == "" {
		cfg.Netdata.BaseURL = DefaultNetdataBaseURL
	}
	if cfg.Netdata.MountPrefix == "" {
		cfg.Netdata.MountPrefix = DefaultMountPrefix
	}
	if cfg.Netdata.Timeout == 0 {
		cfg.Netdata.Timeout = Duration(DefaultNetdataTimeout)
	}

	// Monitor
	if cfg.Monitor.PollInterval == 0 {
		cfg.Monitor.PollInterval = Duration(DefaultPollInterval)
	}
	if cfg.Monitor.CPUPercent == 0 {
		cfg.Monitor.CPUPercent = DefaultCPUPercent
	}
	if cfg.Monitor.MemPercent == 0 {
		cfg.Monitor.MemPercent = DefaultMemPercent
	}
	if cfg.Monitor.LoadMultiplier == 0 {
		cfg.Monitor.LoadMultiplier = DefaultLoadMultiplier
	}
	if cfg.Monitor.SustainSeconds == 0 {
		cfg.Monitor.SustainSeconds = DefaultSustainSeconds
	}
	if cfg.Monitor.FetchTimeout == 0 {
		cfg.Monitor.FetchTimeout = Duration(DefaultFetchTimeout)
	}
	if cfg.Monitor.LockPath == "" {
		cfg.Monitor.LockPath = DefaultLockPath
	}

	// Admin
	if cfg.Admin.User == "" {
		cfg.Admin.User = DefaultAdminUser
	}
	if cfg.Admin.Password == "" {
		cfg.Admin.Password = DefaultAdminPass
	}
	if cfg.Admin.SessionTTL == 0 {
		cfg.Admin.SessionTTL = Duration(DefaultSessionTTL)
	}

	// Telemetry
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
		cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
}

// NewDefault returns a configuration populated entirely with defaults.
func NewDefault() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
