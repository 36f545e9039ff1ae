package coordination

import (
	"context"
	"errors"
	"time"

	"github.com/google/wire"
	"github.com/tusharfilia/ottoai-backend/config"
)

const lockKeyPrefix = "lock:"

var (
	// ErrLockStoreUnavailable is returned when the backing lock store can not be reached
	ErrLockStoreUnavailable = errors.New("lock store unavailable")
	// LockManagerInjector injector for the coordination lock manager
	LockManagerInjector = wire.NewSet(NewLockManager)
)

// LockManager coordinates exclusive ownership of recovery cases across worker
// processes. Locks are leased; a lease that is not extended expires after its
// TTL so a crashed holder never blocks an item forever. Contention is an
// expected outcome, not an error, hence acquired is reported separately.
type LockManager interface {
	// Acquire attempts to take the lease for the tenant scoped key. On success
	// it returns an opaque fencing token that the holder must present on
	// Release and Extend calls.
	Acquire(ctx context.Context, tenant, key string, ttl time.Duration) (token string, acquired bool, err error)
	// Release gives up the lease if the token still owns it; released reports
	// whether this call removed the lease
	Release(ctx context.Context, tenant, key, token string) (released bool, err error)
	// Extend renews the lease TTL if the token still owns it
	Extend(ctx context.Context, tenant, key, token string, ttl time.Duration) (extended bool, err error)
	// Close releases resources held by the manager
	Close() error
}

func lockKey(tenant, key string) string {
	return lockKeyPrefix + tenant + ":" + key
}

// NewLockManager selects the lock store from configuration; a redis URL gets
// the distributed implementation, otherwise locking is process local
func NewLockManager(lockConfig config.CoordinationConfig) (LockManager, error) {
	if len(lockConfig.GetLockStoreURL()) > 0 {
		return NewRedisLockManager(lockConfig.GetLockStoreURL())
	}
	return NewMemoryLockManager(), nil
}
