package data

import (
	"time"
)

// TenantSLA holds the per-tenant recovery policy. Deadlines on new items are
// derived from these windows at creation time and never recomputed.
type TenantSLA struct {
	Tenant                string
	ResponseWindow        time.Duration
	EscalationWindow      time.Duration
	MaxRetries            uint
	BusinessHourStart     int
	BusinessHourEnd       int
	AIConfidenceThreshold float64
	UpdatedAt             time.Time
}

// QuickFix fixes the SLA state automatically as much as possible
func (sla *TenantSLA) QuickFix() bool {
	madeChanges := false
	if sla.UpdatedAt.IsZero() {
		sla.UpdatedAt = time.Now()
		madeChanges = true
	}
	if sla.EscalationWindow < sla.ResponseWindow {
		sla.EscalationWindow = sla.ResponseWindow
		madeChanges = true
	}
	return madeChanges
}

// IsInValidState returns false if the tenant is missing, windows are not
// positive or the business hours do not describe a daytime range
func (sla *TenantSLA) IsInValidState() bool {
	if len(sla.Tenant) == 0 {
		return false
	}
	if sla.ResponseWindow <= 0 || sla.EscalationWindow <= 0 {
		return false
	}
	if sla.BusinessHourStart < 0 || sla.BusinessHourEnd > 24 || sla.BusinessHourStart >= sla.BusinessHourEnd {
		return false
	}
	if sla.AIConfidenceThreshold < 0 || sla.AIConfidenceThreshold > 1 {
		return false
	}
	return true
}

// InBusinessHours checks whether the supplied instant falls inside the
// tenant's outreach window. Quiet-hour compliance gates on this.
func (sla *TenantSLA) InBusinessHours(now time.Time) bool {
	hour := now.Hour()
	return hour >= sla.BusinessHourStart && hour < sla.BusinessHourEnd
}

// NewTenantSLA creates an SLA for the tenant with the supplied policy; returns
// insufficient info error when the policy is not expressible
func NewTenantSLA(tenant string, responseWindow, escalationWindow time.Duration, maxRetries uint, businessHourStart, businessHourEnd int, aiConfidenceThreshold float64) (sla *TenantSLA, err error) {
	sla = &TenantSLA{
		Tenant:                tenant,
		ResponseWindow:        responseWindow,
		EscalationWindow:      escalationWindow,
		MaxRetries:            maxRetries,
		BusinessHourStart:     businessHourStart,
		BusinessHourEnd:       businessHourEnd,
		AIConfidenceThreshold: aiConfidenceThreshold,
	}
	sla.QuickFix()
	if !sla.IsInValidState() {
		err = ErrInsufficientInformationForCreating
	}
	return sla, err
}
