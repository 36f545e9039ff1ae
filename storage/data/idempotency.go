package data

import (
	"database/sql"
	"time"
)

// IdempotencyRecord tracks a single externally triggered event so that its
// effectful handling happens at most once. The record is keyed by
// (tenant, provider, external ID); FirstProcessedAt is set exactly once,
// after the handler completed successfully.
type IdempotencyRecord struct {
	Tenant           string
	Provider         string
	ExternalID       string
	FirstProcessedAt sql.NullTime
	LastSeenAt       time.Time
	Attempts         uint
	CreatedAt        time.Time
}

// QuickFix fixes the record state automatically as much as possible
func (record *IdempotencyRecord) QuickFix() bool {
	madeChanges := false
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
		madeChanges = true
	}
	if record.LastSeenAt.IsZero() {
		record.LastSeenAt = record.CreatedAt
		madeChanges = true
	}
	if record.Attempts == 0 {
		record.Attempts = 1
		madeChanges = true
	}
	return madeChanges
}

// IsInValidState returns false if any of the key parts are empty
func (record *IdempotencyRecord) IsInValidState() bool {
	if len(record.Tenant) == 0 || len(record.Provider) == 0 || len(record.ExternalID) == 0 {
		return false
	}
	if record.LastSeenAt.IsZero() || record.CreatedAt.IsZero() {
		return false
	}
	return true
}

// NewIdempotencyRecord creates a new record for the event key; returns insufficient info error if any key part is empty
func NewIdempotencyRecord(tenant, provider, externalID string) (record *IdempotencyRecord, err error) {
	record = &IdempotencyRecord{Tenant: tenant, Provider: provider, ExternalID: externalID}
	record.QuickFix()
	if !record.IsInValidState() {
		err = ErrInsufficientInformationForCreating
	}
	return record, err
}
