package data

import (
	"strconv"
	"time"
)

// RecoveryItemStatus represents the recovery case status
type RecoveryItemStatus int

func (status RecoveryItemStatus) String() string {
	switch status {
	case RecoveryQueued:
		return RecoveryQueuedStr
	case RecoveryProcessing:
		return RecoveryProcessingStr
	case RecoveryAwaitingReply:
		return RecoveryAwaitingReplyStr
	case RecoveryRecovered:
		return RecoveryRecoveredStr
	case RecoveryEscalated:
		return RecoveryEscalatedStr
	case RecoveryFailed:
		return RecoveryFailedStr
	default:
		return strconv.Itoa(int(status))
	}
}

// IsTerminal returns whether the status is one no item ever leaves
func (status RecoveryItemStatus) IsTerminal() bool {
	return status == RecoveryRecovered || status == RecoveryEscalated || status == RecoveryFailed
}

const (
	recoveryItemLockPrefix = "ri-"
	// RecoveryQueued is the status of an item waiting for its next outreach attempt
	RecoveryQueued RecoveryItemStatus = iota + 2000
	// RecoveryProcessing is the status while a worker holds the item's lock and is attempting outreach
	RecoveryProcessing
	// RecoveryAwaitingReply is the status after an outreach message was sent and a customer reply is pending
	RecoveryAwaitingReply
	// RecoveryRecovered signifies the customer engaged and the case resolved
	RecoveryRecovered
	// RecoveryEscalated signifies the case was handed to a human, either by signal or by deadline breach
	RecoveryEscalated
	// RecoveryFailed signifies the case is unprocessable, e.g., its contact reference is unusable
	RecoveryFailed
	// RecoveryQueuedStr is the string rep of RecoveryQueued
	RecoveryQueuedStr = "QUEUED"
	// RecoveryProcessingStr is the string rep of RecoveryProcessing
	RecoveryProcessingStr = "PROCESSING"
	// RecoveryAwaitingReplyStr is the string rep of RecoveryAwaitingReply
	RecoveryAwaitingReplyStr = "AI_RESCUE_PENDING"
	// RecoveryRecoveredStr is the string rep of RecoveryRecovered
	RecoveryRecoveredStr = "RECOVERED"
	// RecoveryEscalatedStr is the string rep of RecoveryEscalated
	RecoveryEscalatedStr = "ESCALATED"
	// RecoveryFailedStr is the string rep of RecoveryFailed
	RecoveryFailedStr = "FAILED"
)

// RecoveryItem represents one outreach case from a missed inbound contact
// through recovery or escalation. Deadlines are fixed at creation from the
// tenant's SLA configuration; only the lock holder mutates an item.
type RecoveryItem struct {
	BaseModel
	Tenant             string
	Provider           string
	ExternalID         string
	ContactRef         string
	Status             RecoveryItemStatus
	StatusChangedAt    time.Time
	SLADeadline        time.Time
	EscalationDeadline time.Time
	RetryCount         uint
	MaxRetries         uint
	LastAttemptAt      time.Time
	NextAttemptAt      time.Time
	OptedOut           bool
	EscalationReason   string
}

// QuickFix fixes the object state automatically as much as possible
func (item *RecoveryItem) QuickFix() bool {
	madeChanges := item.BaseModel.QuickFix()
	if item.StatusChangedAt.IsZero() {
		item.StatusChangedAt = item.CreatedAt
		madeChanges = true
	}
	if item.NextAttemptAt.IsZero() {
		item.NextAttemptAt = item.CreatedAt
		madeChanges = true
	}
	if item.LastAttemptAt.IsZero() {
		item.LastAttemptAt = item.CreatedAt
		madeChanges = true
	}
	switch item.Status {
	case RecoveryQueued, RecoveryProcessing, RecoveryAwaitingReply, RecoveryRecovered, RecoveryEscalated, RecoveryFailed:
	default:
		item.Status = RecoveryQueued
		madeChanges = true
	}
	return madeChanges
}

// IsInValidState returns false if tenant, contact reference or any deadline is missing,
// or the status is not recognized. Call QuickFix before IsInValidState is called.
func (item *RecoveryItem) IsInValidState() bool {
	if len(item.Tenant) == 0 || len(item.Provider) == 0 || len(item.ExternalID) == 0 || len(item.ContactRef) == 0 {
		return false
	}
	switch item.Status {
	case RecoveryQueued, RecoveryProcessing, RecoveryAwaitingReply, RecoveryRecovered, RecoveryEscalated, RecoveryFailed:
	default:
		return false
	}
	if item.SLADeadline.IsZero() || item.EscalationDeadline.IsZero() {
		return false
	}
	if item.StatusChangedAt.IsZero() || item.NextAttemptAt.IsZero() {
		return false
	}
	return true
}

// GetLockID retrieves the coordination lock key representing this item
func (item *RecoveryItem) GetLockID() string {
	return recoveryItemLockPrefix + item.ID.String()
}

// IsPastEscalationDeadline checks the hard deadline against the supplied instant
func (item *RecoveryItem) IsPastEscalationDeadline(now time.Time) bool {
	return !now.Before(item.EscalationDeadline)
}

// IsPastSLADeadline checks the response SLA against the supplied instant
func (item *RecoveryItem) IsPastSLADeadline(now time.Time) bool {
	return !now.Before(item.SLADeadline)
}

// NewRecoveryItem creates a new case in queued status with deadlines derived from the tenant SLA;
// returns insufficient info error if parameters are not valid for a new case
func NewRecoveryItem(tenant, provider, externalID, contactRef string, sla *TenantSLA) (item *RecoveryItem, err error) {
	item = &RecoveryItem{Tenant: tenant, Provider: provider, ExternalID: externalID, ContactRef: contactRef, Status: RecoveryQueued}
	item.QuickFix()
	if sla != nil {
		item.SLADeadline = item.CreatedAt.Add(sla.ResponseWindow)
		item.EscalationDeadline = item.CreatedAt.Add(sla.EscalationWindow)
		item.MaxRetries = sla.MaxRetries
	}
	if !item.IsInValidState() {
		err = ErrInsufficientInformationForCreating
	}
	return item, err
}
