package recovery

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tusharfilia/ottoai-backend/config"
	"github.com/tusharfilia/ottoai-backend/coordination"
	"github.com/tusharfilia/ottoai-backend/storage"
	"github.com/tusharfilia/ottoai-backend/storage/data"
)

const panicString = "parameters null"

// QueueProcessor is the contract for the background recovery worker
type QueueProcessor interface {
	// Start begins the due and deadline sweep loops
	Start()
	// Stop halts the sweep loops and waits for them to finish
	Stop()
}

// ProcessorConfiguration carries the collaborators of the processor
type ProcessorConfiguration struct {
	ItemRepo     storage.RecoveryItemRepository
	Service      *Service
	LockManager  coordination.LockManager
	ProcessorCfg config.RecoveryProcessorConfig
	LockCfg      config.CoordinationConfig
}

// NewProcessorConfiguration creates the processor's collaborator bundle
func NewProcessorConfiguration(itemRepo storage.RecoveryItemRepository, service *Service, lockManager coordination.LockManager,
	processorCfg config.RecoveryProcessorConfig, lockCfg config.CoordinationConfig) *ProcessorConfiguration {
	return &ProcessorConfiguration{
		ItemRepo:     itemRepo,
		Service:      service,
		LockManager:  lockManager,
		ProcessorCfg: processorCfg,
		LockCfg:      lockCfg,
	}
}

// ProcessorStatus is the read-only operator view of the processor
type ProcessorStatus struct {
	Running               bool             `json:"running"`
	DueSweepInterval      string           `json:"dueSweepInterval"`
	DeadlineSweepInterval string           `json:"deadlineSweepInterval"`
	ItemCounts            map[string]int64 `json:"itemCounts"`
	SLAViolations         int64            `json:"slaViolations"`
}

// ProcessorImpl works the recovery queue with two independent loops: a fast
// sweep of items whose next attempt is due and a slower sweep that force
// escalates items past their deadlines. Every item is worked under its
// coordination lock so concurrent workers never double-send.
type ProcessorImpl struct {
	itemRepo         storage.RecoveryItemRepository
	service          *Service
	lockManager      coordination.LockManager
	processorConfig  config.RecoveryProcessorConfig
	lockTTL          time.Duration
	stopChan         chan struct{}
	wg               sync.WaitGroup
	runningMutex     sync.RWMutex
	running          bool
	metricsCollector *MetricsContainer
	now              func() time.Time
}

// NewProcessor creates the queue processor
func NewProcessor(configuration *ProcessorConfiguration) *ProcessorImpl {
	if configuration.ItemRepo == nil || configuration.Service == nil || configuration.LockManager == nil ||
		configuration.ProcessorCfg == nil || configuration.LockCfg == nil {
		panic(panicString)
	}
	return &ProcessorImpl{
		itemRepo:         configuration.ItemRepo,
		service:          configuration.Service,
		lockManager:      configuration.LockManager,
		processorConfig:  configuration.ProcessorCfg,
		lockTTL:          configuration.LockCfg.GetLockTTL(),
		stopChan:         make(chan struct{}),
		metricsCollector: NewMetricsContainer(),
		now:              time.Now,
	}
}

// Start begins the due and deadline sweep loops
func (processor *ProcessorImpl) Start() {
	processor.runningMutex.Lock()
	processor.running = true
	processor.runningMutex.Unlock()
	processor.startLoop(processor.processorConfig.GetDueSweepInterval(), processor.SweepDueItems)
	processor.startLoop(processor.processorConfig.GetDeadlineSweepInterval(), processor.SweepDeadlines)
}

func (processor *ProcessorImpl) startLoop(interval time.Duration, tick func(ctx context.Context)) {
	processor.wg.Add(1)
	go func() {
		defer processor.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				tick(context.Background())
			case <-processor.stopChan:
				return
			}
		}
	}()
}

// Stop halts the sweep loops
func (processor *ProcessorImpl) Stop() {
	processor.runningMutex.Lock()
	processor.running = false
	processor.runningMutex.Unlock()
	close(processor.stopChan)
	processor.wg.Wait()
}

// SweepDueItems performs one pass over queued items whose next attempt time arrived
func (processor *ProcessorImpl) SweepDueItems(ctx context.Context) {
	items, err := processor.itemRepo.GetItemsDue(processor.processorConfig.GetSweepBatchSize())
	if err != nil {
		log.Error().Err(err).Msg("due sweep query failed")
		processor.metricsCollector.IncreaseProcessingErrorCount()
		return
	}
	for _, item := range items {
		processor.workItem(ctx, item)
	}
}

// workItem locks, re-reads and works one item; lock contention means another
// worker owns the item and is a silent skip
func (processor *ProcessorImpl) workItem(ctx context.Context, item *data.RecoveryItem) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("recovered", r).Str("itemId", item.ID.String()).Msg("recovered from panic while working item")
			processor.metricsCollector.IncreaseProcessingErrorCount()
		}
	}()
	token, acquired, err := processor.lockManager.Acquire(ctx, item.Tenant, item.GetLockID(), processor.lockTTL)
	if err != nil {
		log.Error().Err(err).Str("itemId", item.ID.String()).Msg("lock acquire failed")
		processor.metricsCollector.IncreaseProcessingErrorCount()
		return
	}
	if !acquired {
		processor.metricsCollector.IncreaseContentionSkipCount()
		return
	}
	defer func() {
		if _, releaseErr := processor.lockManager.Release(ctx, item.Tenant, item.GetLockID(), token); releaseErr != nil {
			log.Error().Err(releaseErr).Str("itemId", item.ID.String()).Msg("lock release failed")
		}
	}()
	// Re-read under the lock; the queue snapshot may be stale
	freshItem, err := processor.itemRepo.Get(item.Tenant, item.ID.String())
	if err != nil {
		log.Error().Err(err).Str("itemId", item.ID.String()).Msg("could not re-read item under lock")
		processor.metricsCollector.IncreaseProcessingErrorCount()
		return
	}
	if freshItem.Status.IsTerminal() {
		return
	}
	currentTime := processor.now()
	if freshItem.IsPastEscalationDeadline(currentTime) || freshItem.IsPastSLADeadline(currentTime) {
		processor.escalateOverdue(freshItem, currentTime)
		return
	}
	if err = processor.itemRepo.MarkProcessing(freshItem); err != nil {
		log.Error().Err(err).Str("itemId", freshItem.ID.String()).Msg("could not mark item processing")
		processor.metricsCollector.IncreaseProcessingErrorCount()
		return
	}
	outcome := processor.service.AttemptOutreach(ctx, freshItem)
	outcomeCounter.WithLabelValues(freshItem.Tenant, outcome.Kind.String()).Inc()
	if err = processor.service.ApplyOutcome(freshItem, outcome); err != nil {
		log.Error().Err(err).Str("itemId", freshItem.ID.String()).Str("outcome", outcome.Kind.String()).Msg("could not apply outcome")
		processor.metricsCollector.IncreaseProcessingErrorCount()
		return
	}
	processor.metricsCollector.IncreaseProcessedItemCount()
}

// escalateOverdue hands an item past its deadline to a human regardless of
// remaining retry budget
func (processor *ProcessorImpl) escalateOverdue(item *data.RecoveryItem, currentTime time.Time) {
	reason := "response SLA missed"
	if item.IsPastEscalationDeadline(currentTime) {
		reason = "escalation deadline passed"
	}
	err := processor.itemRepo.MarkEscalated(item, reason)
	if err == storage.ErrNoRowsUpdated {
		// Another worker resolved or escalated it first
		return
	}
	if err != nil {
		log.Error().Err(err).Str("itemId", item.ID.String()).Msg("could not escalate overdue item")
		processor.metricsCollector.IncreaseProcessingErrorCount()
		return
	}
	outcomeCounter.WithLabelValues(item.Tenant, OutcomeEscalatedStr).Inc()
	processor.metricsCollector.IncreaseForcedEscalationCount()
}

// SweepDeadlines performs one pass force escalating non-terminal items past
// their SLA or escalation deadline
func (processor *ProcessorImpl) SweepDeadlines(ctx context.Context) {
	items, err := processor.itemRepo.GetItemsPastDeadline(processor.processorConfig.GetSweepBatchSize())
	if err != nil {
		log.Error().Err(err).Msg("deadline sweep query failed")
		processor.metricsCollector.IncreaseProcessingErrorCount()
		return
	}
	for _, item := range items {
		processor.escalateUnderLock(ctx, item)
	}
}

func (processor *ProcessorImpl) escalateUnderLock(ctx context.Context, item *data.RecoveryItem) {
	token, acquired, err := processor.lockManager.Acquire(ctx, item.Tenant, item.GetLockID(), processor.lockTTL)
	if err != nil {
		log.Error().Err(err).Str("itemId", item.ID.String()).Msg("lock acquire failed")
		processor.metricsCollector.IncreaseProcessingErrorCount()
		return
	}
	if !acquired {
		processor.metricsCollector.IncreaseContentionSkipCount()
		return
	}
	defer func() {
		if _, releaseErr := processor.lockManager.Release(ctx, item.Tenant, item.GetLockID(), token); releaseErr != nil {
			log.Error().Err(releaseErr).Str("itemId", item.ID.String()).Msg("lock release failed")
		}
	}()
	freshItem, err := processor.itemRepo.Get(item.Tenant, item.ID.String())
	if err != nil {
		log.Error().Err(err).Str("itemId", item.ID.String()).Msg("could not re-read item under lock")
		processor.metricsCollector.IncreaseProcessingErrorCount()
		return
	}
	if freshItem.Status.IsTerminal() {
		return
	}
	processor.escalateOverdue(freshItem, processor.now())
}

// ProcessItem works one item on demand through the same locked code path the
// due sweep uses
func (processor *ProcessorImpl) ProcessItem(ctx context.Context, tenant, itemID string) error {
	item, err := processor.itemRepo.Get(tenant, itemID)
	if err != nil {
		return err
	}
	if item.Status.IsTerminal() {
		return ErrItemInTerminalState
	}
	processor.workItem(ctx, item)
	return nil
}

// Status returns the operator snapshot of the processor and the queue
func (processor *ProcessorImpl) Status() *ProcessorStatus {
	processor.runningMutex.RLock()
	running := processor.running
	processor.runningMutex.RUnlock()
	status := &ProcessorStatus{
		Running:               running,
		DueSweepInterval:      processor.processorConfig.GetDueSweepInterval().String(),
		DeadlineSweepInterval: processor.processorConfig.GetDeadlineSweepInterval().String(),
		ItemCounts:            make(map[string]int64),
	}
	counts, err := processor.itemRepo.CountByStatus()
	if err == nil {
		for itemStatus, count := range counts {
			status.ItemCounts[itemStatus.String()] = count
		}
	} else {
		log.Error().Err(err).Msg("could not count items by status")
	}
	if violations, violationErr := processor.itemRepo.CountSLAViolations(); violationErr == nil {
		status.SLAViolations = violations
	} else {
		log.Error().Err(violationErr).Msg("could not count SLA violations")
	}
	return status
}
