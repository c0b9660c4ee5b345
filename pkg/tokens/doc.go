// Package tokens is the API token registry.
//
// Tokens are issued by an admin, stored in SQLite, and toggled between
// active and disabled. The rate limiter consumes the registry through the
// narrow Validator interface: token -> active?. A disabled or unknown
// token demotes the caller to the anonymous tier rather than rejecting
// the request outright.
package tokens
