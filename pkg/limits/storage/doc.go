// Package storage provides quota store backends for the rate limiter.
//
// A Backend records request timestamps per key and performs the
// moving-window admission check atomically. Two implementations are
// provided:
//
//   - MemoryBackend: per-process, mutex-serialized, with cron-scheduled
//     eviction of idle keys. The default.
//   - RedisBackend: shared across worker processes, with the admission
//     check applied server-side as a Lua script.
//
// The store is the only resource shared across concurrent request
// handlers, so it is the one place requiring explicit concurrency
// discipline; everything else in the limiter is per-request state.
package storage
