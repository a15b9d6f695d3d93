package suppress

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// maxRetention bounds key lifetime in redis; no dedup window comes close.
const maxRetention = 24 * time.Hour

// Redis is the shared Store for multi-process deployments. Values are the
// RFC3339Nano timestamp of the last successful send.
type Redis struct {
	rdb *redis.Client
}

var _ Store = (*Redis)(nil)

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) ShouldSend(ctx context.Context, tenantID, key string, window time.Duration) (bool, error) {
	val, err := r.rdb.Get(ctx, redisKey(tenantID, key)).Result()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("suppress get: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		// Unparseable entry, treat as absent.
		return true, nil
	}
	return time.Since(ts) >= window, nil
}

func (r *Redis) MarkSent(ctx context.Context, tenantID, key string) error {
	val := time.Now().UTC().Format(time.RFC3339Nano)
	if err := r.rdb.Set(ctx, redisKey(tenantID, key), val, maxRetention).Err(); err != nil {
		return fmt.Errorf("suppress set: %w", err)
	}
	return nil
}

func redisKey(tenantID, key string) string {
	sum := sha1.Sum([]byte(key))
	return "herald:supp:" + tenantID + ":" + hex.EncodeToString(sum[:])
}
