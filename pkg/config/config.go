package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written in the
// human form ("30s", "5m") rather than nanosecond integers.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a standard time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root configuration structure for the sentinel gateway.
type Config struct {
	// Server contains the HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Detector contains configuration for the inference backend that
	// classifies uploaded images.
	Detector DetectorConfig `yaml:"detector"`

	// Limits contains rate limiting configuration. This section is
	// hot-reloadable: the limiter reads a fresh snapshot on every
	// admission check, so edits to the config file take effect without
	// a restart when watching is enabled.
	Limits LimitsConfig `yaml:"limits"`

	// Tokens contains configuration for the API token registry.
	Tokens TokensConfig `yaml:"tokens"`

	// Netdata contains configuration for the monitoring UI reverse proxy.
	Netdata NetdataConfig `yaml:"netdata"`

	// Monitor contains configuration for the background stress monitor.
	Monitor MonitorConfig `yaml:"monitor"`

	// Admin contains credentials guarding the admin and proxy routes.
	Admin AdminConfig `yaml:"admin"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:6969"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response
	// writes. Image classification and proxied requests can be slow, so
	// this is generous by default. Default: 60s
	WriteTimeout Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout. Default: 120s
	IdleTimeout Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown. The monitor goroutine is
	// stopped and the leader lock released within this window.
	// Default: 30s
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size. Default: 1MB
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// DetectorConfig contains configuration for the inference backend.
type DetectorConfig struct {
	// BaseURL is the base URL of the detection service.
	// Default: "http://127.0.0.1:8089"
	BaseURL string `yaml:"base_url"`

	// Timeout bounds a single classification call. Default: 30s
	Timeout Duration `yaml:"timeout"`

	// MaxImageBytes limits the size of accepted uploads. Default: 16MB
	MaxImageBytes int64 `yaml:"max_image_bytes"`
}

// LimitsConfig contains rate limiting configuration.
type LimitsConfig struct {
	// IPPerWindow is the per-window quota for anonymous callers, keyed
	// by remote address. Default: 30
	IPPerWindow int `yaml:"ip_per_window"`

	// TokenPerWindow is the per-window quota for callers presenting an
	// active API token. Default: 300
	TokenPerWindow int `yaml:"token_per_window"`

	// WindowSeconds is the moving-window length in seconds. Default: 60
	WindowSeconds int `yaml:"window_seconds"`

	// Backend selects the quota store: "memory" or "redis".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Redis configures the shared quota store used when backend=redis.
	Redis RedisConfig `yaml:"redis"`

	// Memory configures the in-process quota store.
	Memory MemoryStoreConfig `yaml:"memory"`
}

// RedisConfig contains connection settings for the redis quota backend.
type RedisConfig struct {
	// Addr is the redis server address. Default: "127.0.0.1:6379"
	Addr string `yaml:"addr"`

	// Password is the redis password, empty for none.
	Password string `yaml:"password"`

	// DB is the redis database number. Default: 0
	DB int `yaml:"db"`
}

// MemoryStoreConfig contains settings for the in-memory quota store.
type MemoryStoreConfig struct {
	// IdleEviction is how long a key may sit untouched before the sweep
	// removes it. Keys seen once and never again would otherwise
	// accumulate forever. Default: 10m
	IdleEviction Duration `yaml:"idle_eviction"`

	// SweepSchedule is a cron expression for the eviction sweep.
	// Default: "*/5 * * * *" (every five minutes)
	SweepSchedule string `yaml:"sweep_schedule"`
}

// TokensConfig contains configuration for the API token registry.
type TokensConfig struct {
	// DBPath is the path to the SQLite database holding issued tokens.
	// Default: "data/api_tokens.db"
	DBPath string `yaml:"db_path"`
}

// NetdataConfig contains configuration for the monitoring UI proxy.
type NetdataConfig struct {
	// BaseURL is where the Netdata daemon listens.
	// Default: "http://127.0.0.1:19999"
	BaseURL string `yaml:"base_url"`

	// MountPrefix is the path prefix the UI is served under.
	// Default: "/netdata"
	MountPrefix string `yaml:"mount_prefix"`

	// Timeout bounds a single proxied request. Default: 30s
	Timeout Duration `yaml:"timeout"`
}

// MonitorConfig contains configuration for the background stress monitor.
type MonitorConfig struct {
	// Enabled turns the monitor on. Even when enabled, a monitor with an
	// empty NotifyURL never starts.
	Enabled bool `yaml:"enabled"`

	// NotifyURL is the notification sink (Pushcut-style JSON endpoint).
	// Empty disables the monitor entirely.
	NotifyURL string `yaml:"notify_url"`

	// PollInterval is the sampling cadence, minimum 1s. Default: 5s
	PollInterval Duration `yaml:"poll_interval"`

	// CPUPercent is the CPU stress threshold. Default: 85
	CPUPercent float64 `yaml:"cpu_percent"`

	// MemPercent is the memory stress threshold. Default: 90
	MemPercent float64 `yaml:"mem_percent"`

	// LoadMultiplier flags stress when load1 >= cores * multiplier.
	// Default: 1.5
	LoadMultiplier float64 `yaml:"load_multiplier"`

	// SustainSeconds is how long thresholds must stay crossed before an
	// alert fires. Default: 120
	SustainSeconds int `yaml:"sustain_seconds"`

	// FetchTimeout bounds a single metric poll or notification post.
	// Default: 10s
	FetchTimeout Duration `yaml:"fetch_timeout"`

	// LockPath is the well-known path for the host-wide leader lock.
	// Default: "/tmp/sentinel-monitor.lock"
	LockPath string `yaml:"lock_path"`
}

// AdminConfig contains the credential guarding /admin and /netdata routes.
type AdminConfig struct {
	// User is the admin username. Default: "admin"
	User string `yaml:"user"`

	// Password is the admin password. Default: "changeme"
	Password string `yaml:"password"`

	// SessionSecret signs session cookies. When empty a random secret is
	// generated at startup, which invalidates sessions across restarts.
	SessionSecret string `yaml:"session_secret"`

	// SessionTTL is how long a login session stays valid. Default: 24h
	SessionTTL Duration `yaml:"session_ttl"`
}

// TelemetryConfig contains logging and metrics configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text". Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether /metrics is served. Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the metrics endpoint path. Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes all metric names. Default: "sentinel"
	Namespace string `yaml:"namespace"`
}
