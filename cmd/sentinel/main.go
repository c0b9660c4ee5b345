// Sentinel is an image-moderation gateway: it fronts a local detection
// backend with rate limiting, API token management, a guarded reverse
// proxy for the host's monitoring dashboard, and a background stress
// monitor that pushes webhook alerts.
//
// Usage:
//
//	# Start the gateway with default configuration
//	sentinel run
//
//	# Start with a custom configuration file
//	sentinel run --config /etc/sentinel/config.yaml
//
//	# Check a configuration file without starting
//	sentinel validate --config /etc/sentinel/config.yaml
//
//	# Manage API tokens from the shell
//	sentinel tokens issue user@example.com
//	sentinel tokens list
//	sentinel tokens toggle 3
package main

func main() {
	Execute()
}
