package storage

import (
	"time"

	"github.com/tusharfilia/ottoai-backend/storage/data"
)

// DataAccessor is the facade to all the data repository
type DataAccessor interface {
	GetIdempotencyRepository() IdempotencyRepository
	GetRecoveryItemRepository() RecoveryItemRepository
	GetAttemptRepository() AttemptRepository
	GetTenantSLARepository() TenantSLARepository
	Close()
}

// IdempotencyRepository allows storage operation interaction for the event dedup ledger
type IdempotencyRepository interface {
	// Begin records that the event key was seen. duplicate is true whenever the
	// row already existed, even if its first processing has not completed yet.
	Begin(tenant, provider, externalID string) (record *data.IdempotencyRecord, duplicate bool, err error)
	// MarkProcessed stamps firstProcessedAt exactly once
	MarkProcessed(tenant, provider, externalID string) error
	// Forget removes the ledger row so a later delivery of the event is treated as first sight
	Forget(tenant, provider, externalID string) error
	// DeleteSeenBefore removes rows whose lastSeenAt is older than the threshold, returning count removed
	DeleteSeenBefore(threshold time.Time) (int64, error)
}

// RecoveryItemRepository allows storage operation interaction for recovery cases
type RecoveryItemRepository interface {
	Store(item *data.RecoveryItem) (*data.RecoveryItem, error)
	Get(tenant string, id string) (*data.RecoveryItem, error)
	MarkProcessing(item *data.RecoveryItem) error
	// MarkAwaitingReply parks the item for a customer reply, scheduling a
	// follow-up nudge after the delta in case the customer stays silent
	MarkAwaitingReply(item *data.RecoveryItem, nextAttemptDelta time.Duration) error
	MarkRecovered(item *data.RecoveryItem) error
	MarkEscalated(item *data.RecoveryItem, reason string) error
	MarkFailed(item *data.RecoveryItem, reason string) error
	MarkRetry(item *data.RecoveryItem, returnTo data.RecoveryItemStatus, nextAttemptDelta time.Duration) error
	SetOptedOut(item *data.RecoveryItem) error
	// GetItemsDue lists queued and awaiting-reply items whose next attempt time
	// has arrived and that still have retry budget left
	GetItemsDue(limit int) ([]*data.RecoveryItem, error)
	GetItemsPastDeadline(limit int) ([]*data.RecoveryItem, error)
	GetTerminalBefore(threshold time.Time, limit int) ([]*data.RecoveryItem, error)
	Delete(item *data.RecoveryItem) error
	CountByStatus() (map[data.RecoveryItemStatus]int64, error)
	CountSLAViolations() (int64, error)
}

// AttemptRepository allows storage operation interaction for the append-only attempt log
type AttemptRepository interface {
	Store(attempt *data.RecoveryAttempt) (*data.RecoveryAttempt, error)
	GetByItem(itemID string) ([]*data.RecoveryAttempt, error)
	DeleteByItem(itemID string) error
}

// TenantSLARepository allows storage operation interaction for per-tenant SLA policy
type TenantSLARepository interface {
	Store(sla *data.TenantSLA) (*data.TenantSLA, error)
	// Get returns the tenant's SLA, or the configured default policy when none is stored
	Get(tenant string) (*data.TenantSLA, error)
}
