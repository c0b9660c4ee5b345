// Package config provides configuration management for the sentinel gateway.
//
// Configuration is loaded from a YAML file with environment variable
// overrides. Values are applied in the following order (later overrides
// earlier):
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. SENTINEL_* environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Environment Variable Overrides
//
// Variables follow the naming convention SENTINEL_SECTION_FIELD:
//
//   - SENTINEL_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - SENTINEL_LIMITS_IP_PER_WINDOW overrides limits.ip_per_window
//   - SENTINEL_MONITOR_NOTIFY_URL overrides monitor.notify_url
//
// # Hot Reload
//
// The limits section is hot-reloadable. A Store holds the active config
// behind an atomic pointer, and a Watcher (fsnotify) re-reads the file on
// change and swaps the limits section in. The rate limiter snapshots the
// section on every admission check, so operators can adjust quotas
// without restarting the gateway.
package config
