package circuitbreaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func getTestRegistry() *Registry {
	processorConfig := new(RecoveryProcessorConfigMockImpl)
	processorConfig.On("GetBreakerFailureThreshold").Return(uint(3))
	processorConfig.On("GetBreakerRecoveryTimeout").Return(30 * time.Second)
	return NewRegistry(processorConfig)
}

func TestRegistryGetOrCreate(t *testing.T) {
	registry := getTestRegistry()
	breaker := registry.GetOrCreate("tenant-1", "sms-gateway")
	assert.NotNil(t, breaker)
	assert.Same(t, breaker, registry.GetOrCreate("tenant-1", "sms-gateway"))
	assert.NotSame(t, breaker, registry.GetOrCreate("tenant-1", "ai-drafter"))
	assert.NotSame(t, breaker, registry.GetOrCreate("tenant-2", "sms-gateway"))
	t.Run("ConcurrentFirstUse", func(t *testing.T) {
		concurrentRegistry := getTestRegistry()
		breakers := make([]*Breaker, 20)
		var wg sync.WaitGroup
		for i := 0; i < len(breakers); i++ {
			wg.Add(1)
			go func(index int) {
				defer wg.Done()
				breakers[index] = concurrentRegistry.GetOrCreate("tenant-1", "sms-gateway")
			}(i)
		}
		wg.Wait()
		for _, breaker := range breakers {
			assert.Same(t, breakers[0], breaker)
		}
	})
}

func TestRegistryTenantIsolation(t *testing.T) {
	registry := getTestRegistry()
	for i := 0; i < 3; i++ {
		assert.Equal(t, errDownstream, registry.Execute("tenant-1", "sms-gateway", func() error { return errDownstream }))
	}
	assert.Equal(t, Open, registry.GetOrCreate("tenant-1", "sms-gateway").State())
	// The same service stays available to other tenants
	invoked := false
	assert.Nil(t, registry.Execute("tenant-2", "sms-gateway", func() error {
		invoked = true
		return nil
	}))
	assert.True(t, invoked)
	// And other services stay available to the same tenant
	assert.Nil(t, registry.Execute("tenant-1", "ai-drafter", func() error { return nil }))
}

func TestRegistryExecuteFastFail(t *testing.T) {
	registry := getTestRegistry()
	for i := 0; i < 3; i++ {
		registry.Execute("tenant-1", "sms-gateway", func() error { return errDownstream })
	}
	invoked := false
	err := registry.Execute("tenant-1", "sms-gateway", func() error {
		invoked = true
		return nil
	})
	assert.Equal(t, ErrOpenState, err)
	assert.False(t, invoked)
}

func TestRegistryReset(t *testing.T) {
	registry := getTestRegistry()
	assert.False(t, registry.Reset("tenant-1", "sms-gateway"))
	for i := 0; i < 3; i++ {
		registry.Execute("tenant-1", "sms-gateway", func() error { return errDownstream })
	}
	assert.True(t, registry.Reset("tenant-1", "sms-gateway"))
	assert.Equal(t, Closed, registry.GetOrCreate("tenant-1", "sms-gateway").State())
}

func TestRegistryGetSnapshots(t *testing.T) {
	registry := getTestRegistry()
	registry.GetOrCreate("tenant-2", "sms-gateway")
	registry.GetOrCreate("tenant-1", "sms-gateway")
	registry.GetOrCreate("tenant-1", "ai-drafter")
	snapshots := registry.GetSnapshots()
	assert.Equal(t, 3, len(snapshots))
	assert.Equal(t, "tenant-1:ai-drafter", snapshots[0].Name)
	assert.Equal(t, "tenant-1:sms-gateway", snapshots[1].Name)
	assert.Equal(t, "tenant-2:sms-gateway", snapshots[2].Name)
}
