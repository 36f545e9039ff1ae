package recovery

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tusharfilia/ottoai-backend/circuitbreaker"
	"github.com/tusharfilia/ottoai-backend/config"
	"github.com/tusharfilia/ottoai-backend/coordination"
	"github.com/tusharfilia/ottoai-backend/storage"
	"github.com/tusharfilia/ottoai-backend/storage/data"
)

var (
	// ErrItemInTerminalState is returned when an operation targets a case that already resolved
	ErrItemInTerminalState = errors.New("recovery item already in terminal state")
	// ErrItemLocked is returned when another worker holds the case's lease
	ErrItemLocked = errors.New("recovery item is locked by another worker")
)

// Service runs the outreach pipeline for one item at a time: compliance gate,
// breaker-wrapped drafting and sending, attempt bookkeeping, and the status
// transition decided from the resulting Outcome
type Service struct {
	itemRepo    storage.RecoveryItemRepository
	attemptRepo storage.AttemptRepository
	slaRepo     storage.TenantSLARepository
	gateway     MessageGateway
	drafter     ResponseDrafter
	breakers    *circuitbreaker.Registry
	lockManager coordination.LockManager
	lockTTL     time.Duration
	backoffs    []time.Duration
	now         func() time.Time
}

func backoffDelay(delays []time.Duration, retryCount uint) time.Duration {
	if len(delays) == 0 {
		return time.Minute
	}
	if int(retryCount) >= len(delays) {
		return delays[len(delays)-1]
	}
	return delays[retryCount]
}

// nextBusinessWindowDelay computes how long until the tenant's outreach window
// next opens relative to the supplied instant
func nextBusinessWindowDelay(sla *data.TenantSLA, currentTime time.Time) time.Duration {
	windowOpen := time.Date(currentTime.Year(), currentTime.Month(), currentTime.Day(), sla.BusinessHourStart, 0, 0, 0, currentTime.Location())
	if currentTime.Hour() >= sla.BusinessHourStart {
		windowOpen = windowOpen.AddDate(0, 0, 1)
	}
	return windowOpen.Sub(currentTime)
}

// transientFailure schedules a backoff retry, escalating instead when this
// failure spends the last of the retry budget
func (service *Service) transientFailure(item *data.RecoveryItem, reason string) Outcome {
	if item.RetryCount+1 >= item.MaxRetries {
		return Outcome{Kind: OutcomeEscalated, Reason: "retry budget exhausted: " + reason}
	}
	return Outcome{Kind: OutcomeRetry, Reason: reason, NextDelay: backoffDelay(service.backoffs, item.RetryCount)}
}

func (service *Service) recordAttempt(item *data.RecoveryItem, method, contentRef string, confidence float64, success, engaged, complianceBlocked bool) {
	attempt, err := data.NewRecoveryAttempt(item, method, contentRef)
	if err == nil {
		attempt.Confidence = confidence
		attempt.Success = success
		attempt.CustomerEngaged = engaged
		attempt.ComplianceBlocked = complianceBlocked
		_, err = service.attemptRepo.Store(attempt)
	}
	if err != nil {
		log.Error().Err(err).Str("itemId", item.ID.String()).Msg("could not record attempt")
	}
}

// AttemptOutreach works a case the caller holds the lock for and returns the
// explicit outcome of this pass. The protected operation never reaches the
// downstream services when their breaker is open; those rejections consume
// retry budget like any other transient failure. A compliance hold consumes
// budget too, but the blocked attempt stays out of the breaker window.
func (service *Service) AttemptOutreach(ctx context.Context, item *data.RecoveryItem) Outcome {
	if item.Status.IsTerminal() {
		return Outcome{Kind: OutcomeSkipped}
	}
	if item.OptedOut {
		service.recordAttempt(item, data.AttemptMethodSMS, "", 0, false, false, true)
		return Outcome{Kind: OutcomeEscalated, Reason: "contact opted out"}
	}
	if item.RetryCount >= item.MaxRetries {
		return Outcome{Kind: OutcomeEscalated, Reason: "retry budget exhausted"}
	}
	sla, err := service.slaRepo.Get(item.Tenant)
	if err != nil {
		return service.transientFailure(item, "tenant policy unavailable")
	}
	if !sla.InBusinessHours(service.now()) {
		service.recordAttempt(item, data.AttemptMethodSMS, "", 0, false, false, true)
		return Outcome{Kind: OutcomeComplianceHold, Reason: "outside business hours", NextDelay: nextBusinessWindowDelay(sla, service.now())}
	}
	priorAttempts, err := service.attemptRepo.GetByItem(item.ID.String())
	if err != nil {
		log.Error().Err(err).Str("itemId", item.ID.String()).Msg("could not load prior attempts")
		priorAttempts = nil
	}
	var content string
	var confidence float64
	err = service.breakers.Execute(item.Tenant, ServiceAIDrafter, func() error {
		var draftErr error
		content, confidence, draftErr = service.drafter.Draft(ctx, item, priorAttempts)
		return draftErr
	})
	if err != nil {
		return service.transientFailure(item, "drafting failed")
	}
	err = service.breakers.Execute(item.Tenant, ServiceSMSGateway, func() error {
		return service.gateway.Send(ctx, item, content)
	})
	if err != nil {
		service.recordAttempt(item, data.AttemptMethodSMS, content, confidence, false, false, false)
		return service.transientFailure(item, "message send failed")
	}
	service.recordAttempt(item, data.AttemptMethodSMS, content, confidence, true, false, false)
	// A silent customer is nudged again once the tenant's response window lapses
	return Outcome{Kind: OutcomeMessageSent, NextDelay: sla.ResponseWindow}
}

// ApplyOutcome performs the status transition the outcome calls for. The
// underlying updates are status guarded, so a stale item surfaces as
// storage.ErrNoRowsUpdated and leaves the newer state untouched.
func (service *Service) ApplyOutcome(item *data.RecoveryItem, outcome Outcome) error {
	switch outcome.Kind {
	case OutcomeMessageSent:
		return service.itemRepo.MarkAwaitingReply(item, outcome.NextDelay)
	case OutcomeRecovered:
		return service.itemRepo.MarkRecovered(item)
	case OutcomeEscalated:
		return service.itemRepo.MarkEscalated(item, outcome.Reason)
	case OutcomeRetry, OutcomeComplianceHold:
		// A compliance-blocked attempt burns retry budget like a failed one
		return service.itemRepo.MarkRetry(item, data.RecoveryQueued, outcome.NextDelay)
	case OutcomeFailed:
		return service.itemRepo.MarkFailed(item, outcome.Reason)
	default:
		return nil
	}
}

// HandleReply interprets an inbound customer reply for a case. High confidence
// resolves the case; an opt out, a negative signal or low confidence hands it
// to a human immediately. The case's lease is acquired first so the reply does
// not transition the item underneath a worker mid-send; a contended lease
// surfaces as ErrItemLocked for the caller to retry.
func (service *Service) HandleReply(ctx context.Context, tenant, itemID string, reply ReplySignal) (*data.RecoveryItem, error) {
	item, err := service.itemRepo.Get(tenant, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status.IsTerminal() {
		return item, ErrItemInTerminalState
	}
	lockID := item.GetLockID()
	token, acquired, err := service.lockManager.Acquire(ctx, tenant, lockID, service.lockTTL)
	if err != nil {
		return item, err
	}
	if !acquired {
		return item, ErrItemLocked
	}
	defer func() {
		if _, releaseErr := service.lockManager.Release(ctx, tenant, lockID, token); releaseErr != nil {
			log.Error().Err(releaseErr).Str("itemId", itemID).Msg("could not release reply lock")
		}
	}()
	// The pre-lock read may have raced another holder
	if item, err = service.itemRepo.Get(tenant, itemID); err != nil {
		return nil, err
	}
	if item.Status.IsTerminal() {
		return item, ErrItemInTerminalState
	}
	service.recordAttempt(item, data.AttemptMethodReply, reply.ContentRef, reply.Confidence, false, true, false)
	if reply.OptOut {
		if err = service.itemRepo.SetOptedOut(item); err != nil {
			return item, err
		}
		return item, service.itemRepo.MarkEscalated(item, "contact opted out")
	}
	if reply.Negative {
		return item, service.itemRepo.MarkEscalated(item, "negative reply")
	}
	sla, err := service.slaRepo.Get(tenant)
	if err != nil {
		return item, err
	}
	if reply.Confidence >= sla.AIConfidenceThreshold {
		return item, service.itemRepo.MarkRecovered(item)
	}
	return item, service.itemRepo.MarkEscalated(item, "low confidence reply")
}

// NewService creates the outreach pipeline service
func NewService(itemRepo storage.RecoveryItemRepository, attemptRepo storage.AttemptRepository, slaRepo storage.TenantSLARepository,
	gateway MessageGateway, drafter ResponseDrafter, breakers *circuitbreaker.Registry, lockManager coordination.LockManager,
	processorConfig config.RecoveryProcessorConfig, lockConfig config.CoordinationConfig) *Service {
	return &Service{
		itemRepo:    itemRepo,
		attemptRepo: attemptRepo,
		slaRepo:     slaRepo,
		gateway:     gateway,
		drafter:     drafter,
		breakers:    breakers,
		lockManager: lockManager,
		lockTTL:     lockConfig.GetLockTTL(),
		backoffs:    processorConfig.GetRetryBackoffDelays(),
		now:         time.Now,
	}
}
