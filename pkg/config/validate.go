package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g. "limits.window_seconds").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration. All validation errors are
// collected and returned together; nil means the configuration is valid.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateDetector(&cfg.Detector)...)
	errs = append(errs, validateLimits(&cfg.Limits)...)
	errs = append(errs, validateNetdata(&cfg.Netdata)...)
	errs = append(errs, validateMonitor(&cfg.Monitor)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{"server.listen_address", "must not be empty"})
	}
	if cfg.ShutdownTimeout.Std() <= 0 {
		errs = append(errs, FieldError{"server.shutdown_timeout", "must be positive"})
	}
	return errs
}

func validateDetector(cfg *DetectorConfig) []FieldError {
	var errs []FieldError

	if err := validateBaseURL(cfg.BaseURL); err != nil {
		errs = append(errs, FieldError{"detector.base_url", err.Error()})
	}
	if cfg.Timeout.Std() <= 0 {
		errs = append(errs, FieldError{"detector.timeout", "must be positive"})
	}
	if cfg.MaxImageBytes <= 0 {
		errs = append(errs, FieldError{"detector.max_image_bytes", "must be positive"})
	}
	return errs
}

func validateLimits(cfg *LimitsConfig) []FieldError {
	var errs []FieldError

	if cfg.IPPerWindow <= 0 {
		errs = append(errs, FieldError{"limits.ip_per_window", "must be positive"})
	}
	if cfg.TokenPerWindow <= 0 {
		errs = append(errs, FieldError{"limits.token_per_window", "must be positive"})
	}
	if cfg.TokenPerWindow < cfg.IPPerWindow {
		errs = append(errs, FieldError{"limits.token_per_window",
			fmt.Sprintf("must be >= ip_per_window (%d)", cfg.IPPerWindow)})
	}
	if cfg.WindowSeconds <= 0 {
		errs = append(errs, FieldError{"limits.window_seconds", "must be positive"})
	}
	switch cfg.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, FieldError{"limits.backend",
			fmt.Sprintf("unknown backend %q (expected \"memory\" or \"redis\")", cfg.Backend)})
	}
	if cfg.Backend == "redis" && cfg.Redis.Addr == "" {
		errs = append(errs, FieldError{"limits.redis.addr", "must not be empty when backend is redis"})
	}
	return errs
}

func validateNetdata(cfg *NetdataConfig) []FieldError {
	var errs []FieldError

	if err := validateBaseURL(cfg.BaseURL); err != nil {
		errs = append(errs, FieldError{"netdata.base_url", err.Error()})
	}
	if !strings.HasPrefix(cfg.MountPrefix, "/") {
		errs = append(errs, FieldError{"netdata.mount_prefix", "must start with /"})
	}
	if strings.HasSuffix(cfg.MountPrefix, "/") {
		errs = append(errs, FieldError{"netdata.mount_prefix", "must not end with /"})
	}
	return errs
}

func validateMonitor(cfg *MonitorConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}
	if cfg.NotifyURL != "" {
		if err := validateBaseURL(cfg.NotifyURL); err != nil {
			errs = append(errs, FieldError{"monitor.notify_url", err.Error()})
		}
	}
	if cfg.PollInterval.Std() < time.Second {
		errs = append(errs, FieldError{"monitor.poll_interval", "must be at least 1s"})
	}
	if cfg.CPUPercent <= 0 || cfg.CPUPercent > 100 {
		errs = append(errs, FieldError{"monitor.cpu_percent", "must be in (0, 100]"})
	}
	if cfg.MemPercent <= 0 || cfg.MemPercent > 100 {
		errs = append(errs, FieldError{"monitor.mem_percent", "must be in (0, 100]"})
	}
	if cfg.LoadMultiplier <= 0 {
		errs = append(errs, FieldError{"monitor.load_multiplier", "must be positive"})
	}
	if cfg.SustainSeconds <= 0 {
		errs = append(errs, FieldError{"monitor.sustain_seconds", "must be positive"})
	}
	return errs
}

func validateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}
