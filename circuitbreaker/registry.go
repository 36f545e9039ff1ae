package circuitbreaker

import (
	"sort"
	"sync"
	"time"

	"github.com/google/wire"
	"github.com/tusharfilia/ottoai-backend/config"
)

// RegistryInjector injector for the breaker registry
var RegistryInjector = wire.NewSet(NewRegistry)

// Registry keeps one breaker per tenant and downstream service so one
// tenant's failing dependency never trips outreach for the others
type Registry struct {
	breakers         map[string]*Breaker
	mutex            sync.RWMutex
	failureThreshold uint
	recoveryTimeout  time.Duration
}

func breakerKey(tenant, service string) string {
	return tenant + ":" + service
}

// GetOrCreate returns the breaker guarding the tenant's use of the service,
// creating a closed one on first use
func (registry *Registry) GetOrCreate(tenant, service string) *Breaker {
	key := breakerKey(tenant, service)
	registry.mutex.RLock()
	breaker, ok := registry.breakers[key]
	registry.mutex.RUnlock()
	if ok {
		return breaker
	}
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	if breaker, ok = registry.breakers[key]; !ok {
		breaker = NewBreaker(key, registry.failureThreshold, registry.recoveryTimeout)
		registry.breakers[key] = breaker
	}
	return breaker
}

// Execute runs the operation under the tenant's breaker for the service
func (registry *Registry) Execute(tenant, service string, operation func() error) error {
	err := registry.GetOrCreate(tenant, service).Execute(operation)
	if err == ErrOpenState {
		fastFailCounter.WithLabelValues(tenant, service).Inc()
	}
	return err
}

// Reset force closes the tenant's breaker for the service; returns false when
// no such breaker has been created yet
func (registry *Registry) Reset(tenant, service string) bool {
	registry.mutex.RLock()
	breaker, ok := registry.breakers[breakerKey(tenant, service)]
	registry.mutex.RUnlock()
	if !ok {
		return false
	}
	breaker.Reset()
	return true
}

// GetSnapshots returns the operator view of all breakers, ordered by name
func (registry *Registry) GetSnapshots() []Snapshot {
	registry.mutex.RLock()
	snapshots := make([]Snapshot, 0, len(registry.breakers))
	for _, breaker := range registry.breakers {
		snapshots = append(snapshots, breaker.GetSnapshot())
	}
	registry.mutex.RUnlock()
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Name < snapshots[j].Name })
	return snapshots
}

// NewRegistry creates a Registry whose breakers follow the configured thresholds
func NewRegistry(breakerConfig config.RecoveryProcessorConfig) *Registry {
	return &Registry{
		breakers:         make(map[string]*Breaker),
		failureThreshold: breakerConfig.GetBreakerFailureThreshold(),
		recoveryTimeout:  breakerConfig.GetBreakerRecoveryTimeout(),
	}
}
