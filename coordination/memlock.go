package coordination

import (
	"context"
	"sync"
	"time"

	"github.com/rs/xid"
)

type memoryLease struct {
	token     string
	expiresAt time.Time
}

// MemoryLockManager is a process local LockManager used when no lock store is
// configured; suitable for single node deployments and tests
type MemoryLockManager struct {
	leases map[string]memoryLease
	mutex  sync.Mutex
	now    func() time.Time
}

// Acquire takes the lease unless a live one is held by someone else
func (lockManager *MemoryLockManager) Acquire(ctx context.Context, tenant, key string, ttl time.Duration) (token string, acquired bool, err error) {
	lockManager.mutex.Lock()
	defer lockManager.mutex.Unlock()
	currentTime := lockManager.now()
	leaseKey := lockKey(tenant, key)
	if lease, ok := lockManager.leases[leaseKey]; ok && lease.expiresAt.After(currentTime) {
		return "", false, nil
	}
	token = xid.New().String()
	lockManager.leases[leaseKey] = memoryLease{token: token, expiresAt: currentTime.Add(ttl)}
	return token, true, nil
}

// Release removes the lease if the token still owns it
func (lockManager *MemoryLockManager) Release(ctx context.Context, tenant, key, token string) (released bool, err error) {
	lockManager.mutex.Lock()
	defer lockManager.mutex.Unlock()
	leaseKey := lockKey(tenant, key)
	lease, ok := lockManager.leases[leaseKey]
	if !ok || lease.token != token || !lease.expiresAt.After(lockManager.now()) {
		return false, nil
	}
	delete(lockManager.leases, leaseKey)
	return true, nil
}

// Extend renews the lease TTL if the token still owns it
func (lockManager *MemoryLockManager) Extend(ctx context.Context, tenant, key, token string, ttl time.Duration) (extended bool, err error) {
	lockManager.mutex.Lock()
	defer lockManager.mutex.Unlock()
	currentTime := lockManager.now()
	leaseKey := lockKey(tenant, key)
	lease, ok := lockManager.leases[leaseKey]
	if !ok || lease.token != token || !lease.expiresAt.After(currentTime) {
		return false, nil
	}
	lease.expiresAt = currentTime.Add(ttl)
	lockManager.leases[leaseKey] = lease
	return true, nil
}

// Close is a no-op for the in-memory implementation
func (lockManager *MemoryLockManager) Close() error {
	return nil
}

// NewMemoryLockManager creates a process local LockManager
func NewMemoryLockManager() *MemoryLockManager {
	return &MemoryLockManager{leases: make(map[string]memoryLease), now: time.Now}
}
