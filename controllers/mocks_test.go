package controllers

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/tusharfilia/ottoai-backend/recovery"
	"github.com/tusharfilia/ottoai-backend/storage/data"
)

// EventIngesterMockImpl is a mock of the EventIngester interface
type EventIngesterMockImpl struct {
	mock.Mock
}

func (m *EventIngesterMockImpl) Ingest(ctx context.Context, event *recovery.InboundEvent) (*data.RecoveryItem, bool, error) {
	args := m.Called(event)
	var item *data.RecoveryItem
	if args.Get(0) != nil {
		item = args.Get(0).(*data.RecoveryItem)
	}
	return item, args.Bool(1), args.Error(2)
}

// ItemProcessorMockImpl is a mock of the ItemProcessor interface
type ItemProcessorMockImpl struct {
	mock.Mock
}

func (m *ItemProcessorMockImpl) ProcessItem(ctx context.Context, tenant, itemID string) error {
	args := m.Called(tenant, itemID)
	return args.Error(0)
}

// ReplyHandlerMockImpl is a mock of the ReplyHandler interface
type ReplyHandlerMockImpl struct {
	mock.Mock
}

func (m *ReplyHandlerMockImpl) HandleReply(ctx context.Context, tenant, itemID string, reply recovery.ReplySignal) (*data.RecoveryItem, error) {
	args := m.Called(tenant, itemID, reply)
	var item *data.RecoveryItem
	if args.Get(0) != nil {
		item = args.Get(0).(*data.RecoveryItem)
	}
	return item, args.Error(1)
}

// ProcessorStatusSourceMockImpl is a mock of the ProcessorStatusSource interface
type ProcessorStatusSourceMockImpl struct {
	mock.Mock
}

func (m *ProcessorStatusSourceMockImpl) Status() *recovery.ProcessorStatus {
	args := m.Called()
	return args.Get(0).(*recovery.ProcessorStatus)
}

// RecoveryItemRepositoryMockImpl is a mock of the storage.RecoveryItemRepository interface
type RecoveryItemRepositoryMockImpl struct {
	mock.Mock
}

func (m *RecoveryItemRepositoryMockImpl) Store(item *data.RecoveryItem) (*data.RecoveryItem, error) {
	args := m.Called(item)
	var stored *data.RecoveryItem
	if args.Get(0) != nil {
		stored = args.Get(0).(*data.RecoveryItem)
	}
	return stored, args.Error(1)
}

func (m *RecoveryItemRepositoryMockImpl) Get(tenant string, id string) (*data.RecoveryItem, error) {
	args := m.Called(tenant, id)
	var item *data.RecoveryItem
	if args.Get(0) != nil {
		item = args.Get(0).(*data.RecoveryItem)
	}
	return item, args.Error(1)
}

func (m *RecoveryItemRepositoryMockImpl) MarkProcessing(item *data.RecoveryItem) error {
	return m.Called(item).Error(0)
}

func (m *RecoveryItemRepositoryMockImpl) MarkAwaitingReply(item *data.RecoveryItem, nextAttemptDelta time.Duration) error {
	return m.Called(item, nextAttemptDelta).Error(0)
}

func (m *RecoveryItemRepositoryMockImpl) MarkRecovered(item *data.RecoveryItem) error {
	return m.Called(item).Error(0)
}

func (m *RecoveryItemRepositoryMockImpl) MarkEscalated(item *data.RecoveryItem, reason string) error {
	return m.Called(item, reason).Error(0)
}

func (m *RecoveryItemRepositoryMockImpl) MarkFailed(item *data.RecoveryItem, reason string) error {
	return m.Called(item, reason).Error(0)
}

func (m *RecoveryItemRepositoryMockImpl) MarkRetry(item *data.RecoveryItem, returnTo data.RecoveryItemStatus, nextAttemptDelta time.Duration) error {
	return m.Called(item, returnTo, nextAttemptDelta).Error(0)
}

func (m *RecoveryItemRepositoryMockImpl) SetOptedOut(item *data.RecoveryItem) error {
	return m.Called(item).Error(0)
}

func (m *RecoveryItemRepositoryMockImpl) GetItemsDue(limit int) ([]*data.RecoveryItem, error) {
	args := m.Called(limit)
	return args.Get(0).([]*data.RecoveryItem), args.Error(1)
}

func (m *RecoveryItemRepositoryMockImpl) GetItemsPastDeadline(limit int) ([]*data.RecoveryItem, error) {
	args := m.Called(limit)
	return args.Get(0).([]*data.RecoveryItem), args.Error(1)
}

func (m *RecoveryItemRepositoryMockImpl) GetTerminalBefore(threshold time.Time, limit int) ([]*data.RecoveryItem, error) {
	args := m.Called(threshold, limit)
	return args.Get(0).([]*data.RecoveryItem), args.Error(1)
}

func (m *RecoveryItemRepositoryMockImpl) Delete(item *data.RecoveryItem) error {
	return m.Called(item).Error(0)
}

func (m *RecoveryItemRepositoryMockImpl) CountByStatus() (map[data.RecoveryItemStatus]int64, error) {
	args := m.Called()
	return args.Get(0).(map[data.RecoveryItemStatus]int64), args.Error(1)
}

func (m *RecoveryItemRepositoryMockImpl) CountSLAViolations() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

// AttemptRepositoryMockImpl is a mock of the storage.AttemptRepository interface
type AttemptRepositoryMockImpl struct {
	mock.Mock
}

func (m *AttemptRepositoryMockImpl) Store(attempt *data.RecoveryAttempt) (*data.RecoveryAttempt, error) {
	args := m.Called(attempt)
	var stored *data.RecoveryAttempt
	if args.Get(0) != nil {
		stored = args.Get(0).(*data.RecoveryAttempt)
	}
	return stored, args.Error(1)
}

func (m *AttemptRepositoryMockImpl) GetByItem(itemID string) ([]*data.RecoveryAttempt, error) {
	args := m.Called(itemID)
	var attempts []*data.RecoveryAttempt
	if args.Get(0) != nil {
		attempts = args.Get(0).([]*data.RecoveryAttempt)
	}
	return attempts, args.Error(1)
}

func (m *AttemptRepositoryMockImpl) DeleteByItem(itemID string) error {
	return m.Called(itemID).Error(0)
}

// TenantSLARepositoryMockImpl is a mock of the storage.TenantSLARepository interface
type TenantSLARepositoryMockImpl struct {
	mock.Mock
}

func (m *TenantSLARepositoryMockImpl) Store(sla *data.TenantSLA) (*data.TenantSLA, error) {
	args := m.Called(sla)
	var stored *data.TenantSLA
	if args.Get(0) != nil {
		stored = args.Get(0).(*data.TenantSLA)
	}
	return stored, args.Error(1)
}

func (m *TenantSLARepositoryMockImpl) Get(tenant string) (*data.TenantSLA, error) {
	args := m.Called(tenant)
	var sla *data.TenantSLA
	if args.Get(0) != nil {
		sla = args.Get(0).(*data.TenantSLA)
	}
	return sla, args.Error(1)
}
