// Package proxy forwards requests mounted under a path prefix to a
// single upstream origin and rewrites HTML responses so the upstream's
// web UI keeps working behind the prefix.
//
// Hop-by-hop headers are stripped on both legs, Accept-Encoding is
// removed so responses arrive uncompressed, and root-absolute links in
// HTML bodies are rebased onto the mount prefix. A small injected
// script reroutes the page's own fetch, XMLHttpRequest and WebSocket
// calls through the prefix as well.
package proxy
