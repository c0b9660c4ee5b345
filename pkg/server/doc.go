// Package server provides the gateway's HTTP surface: the detection
// API, admin session and token management, the guarded monitoring
// proxy mount, and health and metrics endpoints, all behind a shared
// middleware chain.
package server
