package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// admitScript implements the moving-window check as a single atomic redis
// operation: purge entries older than the window, count the remainder,
// and record the new timestamp only when under the limit. Scores and the
// window are in milliseconds; members carry a UUID suffix so two requests
// landing on the same millisecond are distinct sorted-set entries.
var admitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
if redis.call("ZCARD", key) >= limit then
  return 0
end
redis.call("ZADD", key, now, member)
redis.call("PEXPIRE", key, window)
return 1
`)

// RedisBackend implements Backend on a shared redis instance, for
// deployments where several worker processes must agree on one quota.
// Each key is a sorted set of request timestamps; the admission check is
// a Lua script so the read-modify-write is atomic server-side.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// RedisBackendConfig configures the redis backend.
type RedisBackendConfig struct {
	// Addr is the redis server address ("host:port").
	Addr string

	// Password is the redis password, empty for none.
	Password string

	// DB is the redis database number.
	DB int

	// KeyPrefix namespaces quota keys. Default: "sentinel:quota:".
	KeyPrefix string
}

// NewRedisBackend creates a redis quota store and verifies connectivity.
func NewRedisBackend(ctx context.Context, cfg RedisBackendConfig) (*RedisBackend, error) {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "sentinel:quota:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed for %q: %w", cfg.Addr, err)
	}

	return &RedisBackend{client: client, prefix: cfg.KeyPrefix}, nil
}

// NewRedisBackendFromClient wraps an existing client, for tests.
func NewRedisBackendFromClient(client *redis.Client, keyPrefix string) *RedisBackend {
	if keyPrefix == "" {
		keyPrefix = "sentinel:quota:"
	}
	return &RedisBackend{client: client, prefix: keyPrefix}
}

// Admit implements Backend.
func (b *RedisBackend) Admit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now().UnixMilli()
	member := fmt.Sprintf("%d-%s", now, uuid.NewString())

	res, err := admitScript.Run(ctx, b.client,
		[]string{b.prefix + key},
		now, window.Milliseconds(), limit, member,
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis admit for key %q: %w", key, err)
	}
	return res == 1, nil
}

// Close closes the underlying client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
