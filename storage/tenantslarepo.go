package storage

import (
	"database/sql"
	"sync"
	"time"

	"github.com/tusharfilia/ottoai-backend/config"
	"github.com/tusharfilia/ottoai-backend/storage/data"
)

// PseudoTenantSLARepository is the type for the uncached implementation so
// wire can distinguish it from the cached one
type PseudoTenantSLARepository TenantSLARepository

// TenantSLADBRepository is the TenantSLARepository's RDBMS implementation
type TenantSLADBRepository struct {
	db          *sql.DB
	slaDefaults config.SLADefaultsConfig
}

// Store either creates or updates the tenant's SLA policy
func (slaRepo *TenantSLADBRepository) Store(sla *data.TenantSLA) (*data.TenantSLA, error) {
	if sla == nil || !sla.IsInValidState() {
		return sla, ErrInvalidStateToSave
	}
	inSLA, err := slaRepo.get(sla.Tenant)
	if err != nil {
		return slaRepo.insertSLA(sla)
	}
	return slaRepo.updateSLA(inSLA, sla)
}

func (slaRepo *TenantSLADBRepository) insertSLA(sla *data.TenantSLA) (*data.TenantSLA, error) {
	err := transactionalSingleRowWriteExec(slaRepo.db, emptyOps,
		"INSERT INTO tenant_sla (tenant, responseWindowSeconds, escalationWindowSeconds, maxRetries, businessHourStart, businessHourEnd, aiConfidenceThreshold, updatedAt) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		args2SliceFnWrapper(sla.Tenant, int64(sla.ResponseWindow/time.Second), int64(sla.EscalationWindow/time.Second), sla.MaxRetries,
			sla.BusinessHourStart, sla.BusinessHourEnd, sla.AIConfidenceThreshold, sla.UpdatedAt))
	return sla, err
}

func (slaRepo *TenantSLADBRepository) updateSLA(inSLA *data.TenantSLA, sla *data.TenantSLA) (*data.TenantSLA, error) {
	err := transactionalSingleRowWriteExec(slaRepo.db, func() { sla.UpdatedAt = time.Now() },
		"UPDATE tenant_sla SET responseWindowSeconds = ?, escalationWindowSeconds = ?, maxRetries = ?, businessHourStart = ?, businessHourEnd = ?, aiConfidenceThreshold = ?, updatedAt = ? WHERE tenant like ?",
		args2SliceFnWrapper(int64(sla.ResponseWindow/time.Second), int64(sla.EscalationWindow/time.Second), sla.MaxRetries,
			sla.BusinessHourStart, sla.BusinessHourEnd, sla.AIConfidenceThreshold, sla.UpdatedAt, sla.Tenant))
	return sla, err
}

func (slaRepo *TenantSLADBRepository) get(tenant string) (*data.TenantSLA, error) {
	sla := &data.TenantSLA{}
	var responseWindowSeconds, escalationWindowSeconds int64
	err := querySingleRow(slaRepo.db,
		"SELECT tenant, responseWindowSeconds, escalationWindowSeconds, maxRetries, businessHourStart, businessHourEnd, aiConfidenceThreshold, updatedAt FROM tenant_sla WHERE tenant like ?",
		args2SliceFnWrapper(tenant),
		args2SliceFnWrapper(&sla.Tenant, &responseWindowSeconds, &escalationWindowSeconds, &sla.MaxRetries, &sla.BusinessHourStart,
			&sla.BusinessHourEnd, &sla.AIConfidenceThreshold, &sla.UpdatedAt))
	if err == nil {
		sla.ResponseWindow = time.Duration(responseWindowSeconds) * time.Second
		sla.EscalationWindow = time.Duration(escalationWindowSeconds) * time.Second
	}
	return sla, err
}

// Get returns the tenant's stored SLA policy, falling back to the configured
// default policy when none is stored for the tenant
func (slaRepo *TenantSLADBRepository) Get(tenant string) (*data.TenantSLA, error) {
	sla, err := slaRepo.get(tenant)
	if err == sql.ErrNoRows {
		return data.NewTenantSLA(tenant, slaRepo.slaDefaults.GetDefaultResponseWindow(), slaRepo.slaDefaults.GetDefaultEscalationWindow(),
			slaRepo.slaDefaults.GetDefaultMaxRetries(), slaRepo.slaDefaults.GetDefaultBusinessHourStart(), slaRepo.slaDefaults.GetDefaultBusinessHourEnd(),
			slaRepo.slaDefaults.GetDefaultAIConfidenceThreshold())
	}
	return sla, err
}

// CachedTenantSLARepository is a decorator for TenantSLARepository that caches SLA policy per tenant.
type CachedTenantSLARepository struct {
	delegate TenantSLARepository
	cache    *MemoryCache[string, *data.TenantSLA]
	mutex    sync.RWMutex
}

// Get retrieves a tenant's SLA policy, first checking the cache.
func (slaRepo *CachedTenantSLARepository) Get(tenant string) (*data.TenantSLA, error) {
	slaRepo.mutex.RLock()
	if item, ok := slaRepo.cache.Get(tenant); ok {
		slaRepo.mutex.RUnlock()
		return item, nil // Cache hit
	}
	slaRepo.mutex.RUnlock()

	// Cache miss; fetch from the underlying repository
	sla, err := slaRepo.delegate.Get(tenant)
	if err != nil {
		return sla, err
	}

	slaRepo.mutex.Lock()
	slaRepo.cache.Set(tenant, sla)
	slaRepo.mutex.Unlock()

	return sla, nil
}

// Store delegates storing to the underlying repository and invalidates the cache.
func (slaRepo *CachedTenantSLARepository) Store(sla *data.TenantSLA) (*data.TenantSLA, error) {
	sla, err := slaRepo.delegate.Store(sla)
	if err == nil {
		slaRepo.mutex.Lock()
		slaRepo.cache.Delete(sla.Tenant)
		slaRepo.mutex.Unlock()
	}
	return sla, err
}

// Close closes the underlying cache
func (slaRepo *CachedTenantSLARepository) Close() {
	slaRepo.cache.Close()
}

// NewCachedTenantSLARepository creates a new CachedTenantSLARepository.
func NewCachedTenantSLARepository(delegate PseudoTenantSLARepository, ttl time.Duration) TenantSLARepository {
	return &CachedTenantSLARepository{
		delegate: delegate,
		cache:    NewMemoryCache[string, *data.TenantSLA](ttl),
	}
}

// NewTenantSLARepository creates a new uncached instance of TenantSLARepository
func NewTenantSLARepository(db *sql.DB, slaDefaults config.SLADefaultsConfig) PseudoTenantSLARepository {
	panicIfNoDBConnectionPool(db)
	return &TenantSLADBRepository{db: db, slaDefaults: slaDefaults}
}
