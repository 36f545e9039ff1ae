package coordination

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"
)

// The compare-and-delete and compare-and-expire scripts make Release and
// Extend atomic with respect to the ownership check, so a holder whose lease
// already expired and got re-acquired can not disturb the new holder.
var (
	releaseScript = redis.NewScript(`if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)
	extendScript = redis.NewScript(`if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end`)
)

// RedisLockManager is the LockManager implementation backed by redis leases
type RedisLockManager struct {
	client redis.UniversalClient
}

// Acquire takes the lease with SET NX so exactly one contender wins
func (lockManager *RedisLockManager) Acquire(ctx context.Context, tenant, key string, ttl time.Duration) (token string, acquired bool, err error) {
	token = xid.New().String()
	acquired, err = lockManager.client.SetNX(ctx, lockKey(tenant, key), token, ttl).Result()
	if err != nil || !acquired {
		return "", false, err
	}
	return token, true, nil
}

// Release removes the lease if the token still owns it
func (lockManager *RedisLockManager) Release(ctx context.Context, tenant, key, token string) (released bool, err error) {
	result, err := releaseScript.Run(ctx, lockManager.client, []string{lockKey(tenant, key)}, token).Int64()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// Extend renews the lease TTL if the token still owns it
func (lockManager *RedisLockManager) Extend(ctx context.Context, tenant, key, token string, ttl time.Duration) (extended bool, err error) {
	result, err := extendScript.Run(ctx, lockManager.client, []string{lockKey(tenant, key)}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// Close closes the underlying redis client
func (lockManager *RedisLockManager) Close() error {
	return lockManager.client.Close()
}

// NewRedisLockManager creates a LockManager against the redis instance at the supplied URL
func NewRedisLockManager(lockStoreURL string) (LockManager, error) {
	options, err := redis.ParseURL(lockStoreURL)
	if err != nil {
		return nil, err
	}
	return &RedisLockManager{client: redis.NewClient(options)}, nil
}
