// Package limits implements the dual-keyspace rate limiter.
//
// Callers presenting an active API token are governed by a per-token
// moving-window quota; anonymous callers by a lower per-address quota.
// The two keyspaces are independent: a rejected anonymous caller does
// not affect token-tier callers and vice versa.
//
// Quota magnitudes and the window length are read from the config store
// on every admission check, so operators can adjust limits at runtime
// without a restart. Counting lives behind the storage.Backend
// interface, with in-memory and redis implementations.
package limits
