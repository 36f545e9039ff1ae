package recovery

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tusharfilia/ottoai-backend/storage"
	"github.com/tusharfilia/ottoai-backend/storage/data"
)

// The fakes below mirror the repository guard semantics so service and
// processor logic can be exercised without a database.

type fakeItemRepo struct {
	mutex    sync.Mutex
	items    map[string]*data.RecoveryItem
	storeErr error
	getErr   error
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[string]*data.RecoveryItem)}
}

func cloneItem(item *data.RecoveryItem) *data.RecoveryItem {
	copied := *item
	return &copied
}

func (repo *fakeItemRepo) Store(item *data.RecoveryItem) (*data.RecoveryItem, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	if repo.storeErr != nil {
		return item, repo.storeErr
	}
	if item == nil || !item.IsInValidState() {
		return item, storage.ErrInvalidStateToSave
	}
	for _, existing := range repo.items {
		if existing.Tenant == item.Tenant && existing.Provider == item.Provider && existing.ExternalID == item.ExternalID {
			return item, storage.ErrDuplicateRecoveryItem
		}
	}
	repo.items[item.ID.String()] = cloneItem(item)
	return item, nil
}

func (repo *fakeItemRepo) Get(tenant string, id string) (*data.RecoveryItem, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	if repo.getErr != nil {
		return nil, repo.getErr
	}
	item, ok := repo.items[id]
	if !ok || item.Tenant != tenant {
		return &data.RecoveryItem{}, storage.ErrRecoveryItemNotFound
	}
	return cloneItem(item), nil
}

func (repo *fakeItemRepo) transition(item *data.RecoveryItem, froms []data.RecoveryItemStatus, mutate func(stored *data.RecoveryItem)) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	stored, ok := repo.items[item.ID.String()]
	if !ok {
		return storage.ErrNoRowsUpdated
	}
	allowed := false
	for _, from := range froms {
		if stored.Status == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return storage.ErrNoRowsUpdated
	}
	mutate(stored)
	stored.StatusChangedAt = time.Now()
	stored.UpdatedAt = stored.StatusChangedAt
	*item = *cloneItem(stored)
	return nil
}

var fakeNonTerminal = []data.RecoveryItemStatus{data.RecoveryQueued, data.RecoveryProcessing, data.RecoveryAwaitingReply}

func (repo *fakeItemRepo) MarkProcessing(item *data.RecoveryItem) error {
	return repo.transition(item, []data.RecoveryItemStatus{data.RecoveryQueued, data.RecoveryAwaitingReply}, func(stored *data.RecoveryItem) {
		stored.Status = data.RecoveryProcessing
	})
}

func (repo *fakeItemRepo) MarkAwaitingReply(item *data.RecoveryItem, nextAttemptDelta time.Duration) error {
	return repo.transition(item, []data.RecoveryItemStatus{data.RecoveryProcessing}, func(stored *data.RecoveryItem) {
		stored.Status = data.RecoveryAwaitingReply
		stored.LastAttemptAt = time.Now()
		stored.NextAttemptAt = time.Now().Add(nextAttemptDelta)
	})
}

func (repo *fakeItemRepo) MarkRecovered(item *data.RecoveryItem) error {
	return repo.transition(item, []data.RecoveryItemStatus{data.RecoveryProcessing, data.RecoveryAwaitingReply}, func(stored *data.RecoveryItem) {
		stored.Status = data.RecoveryRecovered
	})
}

func (repo *fakeItemRepo) MarkEscalated(item *data.RecoveryItem, reason string) error {
	return repo.transition(item, fakeNonTerminal, func(stored *data.RecoveryItem) {
		stored.Status = data.RecoveryEscalated
		stored.EscalationReason = reason
	})
}

func (repo *fakeItemRepo) MarkFailed(item *data.RecoveryItem, reason string) error {
	return repo.transition(item, fakeNonTerminal, func(stored *data.RecoveryItem) {
		stored.Status = data.RecoveryFailed
		stored.EscalationReason = reason
	})
}

func (repo *fakeItemRepo) MarkRetry(item *data.RecoveryItem, returnTo data.RecoveryItemStatus, nextAttemptDelta time.Duration) error {
	return repo.transition(item, []data.RecoveryItemStatus{data.RecoveryProcessing}, func(stored *data.RecoveryItem) {
		stored.Status = returnTo
		stored.RetryCount++
		stored.LastAttemptAt = time.Now()
		stored.NextAttemptAt = time.Now().Add(nextAttemptDelta)
	})
}

func (repo *fakeItemRepo) SetOptedOut(item *data.RecoveryItem) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	stored, ok := repo.items[item.ID.String()]
	if !ok {
		return storage.ErrNoRowsUpdated
	}
	stored.OptedOut = true
	item.OptedOut = true
	return nil
}

func (repo *fakeItemRepo) GetItemsDue(limit int) ([]*data.RecoveryItem, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	currentTime := time.Now()
	items := make([]*data.RecoveryItem, 0)
	for _, item := range repo.items {
		eligibleStatus := item.Status == data.RecoveryQueued || item.Status == data.RecoveryAwaitingReply
		if eligibleStatus && !item.NextAttemptAt.After(currentTime) && item.RetryCount < item.MaxRetries && len(items) < limit {
			items = append(items, cloneItem(item))
		}
	}
	return items, nil
}

func (repo *fakeItemRepo) GetItemsPastDeadline(limit int) ([]*data.RecoveryItem, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	currentTime := time.Now()
	items := make([]*data.RecoveryItem, 0)
	for _, item := range repo.items {
		if !item.Status.IsTerminal() && (item.IsPastSLADeadline(currentTime) || item.IsPastEscalationDeadline(currentTime)) && len(items) < limit {
			items = append(items, cloneItem(item))
		}
	}
	return items, nil
}

func (repo *fakeItemRepo) GetTerminalBefore(threshold time.Time, limit int) ([]*data.RecoveryItem, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	items := make([]*data.RecoveryItem, 0)
	for _, item := range repo.items {
		if item.Status.IsTerminal() && item.StatusChangedAt.Before(threshold) && len(items) < limit {
			items = append(items, cloneItem(item))
		}
	}
	return items, nil
}

func (repo *fakeItemRepo) Delete(item *data.RecoveryItem) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	if _, ok := repo.items[item.ID.String()]; !ok {
		return storage.ErrNoRowsUpdated
	}
	delete(repo.items, item.ID.String())
	return nil
}

func (repo *fakeItemRepo) CountByStatus() (map[data.RecoveryItemStatus]int64, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	counts := make(map[data.RecoveryItemStatus]int64)
	for _, item := range repo.items {
		counts[item.Status]++
	}
	return counts, nil
}

func (repo *fakeItemRepo) CountSLAViolations() (int64, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	currentTime := time.Now()
	var count int64
	for _, item := range repo.items {
		if !item.Status.IsTerminal() && item.IsPastSLADeadline(currentTime) {
			count++
		}
	}
	return count, nil
}

type fakeAttemptRepo struct {
	mutex    sync.Mutex
	attempts []*data.RecoveryAttempt
	storeErr error
}

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{attempts: make([]*data.RecoveryAttempt, 0)}
}

func (repo *fakeAttemptRepo) Store(attempt *data.RecoveryAttempt) (*data.RecoveryAttempt, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	if repo.storeErr != nil {
		return attempt, repo.storeErr
	}
	if attempt == nil || !attempt.IsInValidState() {
		return attempt, storage.ErrInvalidStateToSave
	}
	repo.attempts = append(repo.attempts, attempt)
	return attempt, nil
}

func (repo *fakeAttemptRepo) GetByItem(itemID string) ([]*data.RecoveryAttempt, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	attempts := make([]*data.RecoveryAttempt, 0)
	for _, attempt := range repo.attempts {
		if attempt.ItemID.String() == itemID {
			attempts = append(attempts, attempt)
		}
	}
	return attempts, nil
}

func (repo *fakeAttemptRepo) DeleteByItem(itemID string) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	kept := make([]*data.RecoveryAttempt, 0)
	for _, attempt := range repo.attempts {
		if attempt.ItemID.String() != itemID {
			kept = append(kept, attempt)
		}
	}
	repo.attempts = kept
	return nil
}

type fakeSLARepo struct {
	mutex  sync.Mutex
	slas   map[string]*data.TenantSLA
	getErr error
}

func newFakeSLARepo() *fakeSLARepo {
	return &fakeSLARepo{slas: make(map[string]*data.TenantSLA)}
}

func (repo *fakeSLARepo) Store(sla *data.TenantSLA) (*data.TenantSLA, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	repo.slas[sla.Tenant] = sla
	return sla, nil
}

func (repo *fakeSLARepo) Get(tenant string) (*data.TenantSLA, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	if repo.getErr != nil {
		return nil, repo.getErr
	}
	if sla, ok := repo.slas[tenant]; ok {
		return sla, nil
	}
	return data.NewTenantSLA(tenant, 30*time.Minute, 4*time.Hour, 3, 0, 24, 0.75)
}

type fakeIdempotencyRepo struct {
	mutex    sync.Mutex
	records  map[string]*data.IdempotencyRecord
	beginErr error
}

func newFakeIdempotencyRepo() *fakeIdempotencyRepo {
	return &fakeIdempotencyRepo{records: make(map[string]*data.IdempotencyRecord)}
}

func idemKey(tenant, provider, externalID string) string {
	return tenant + ":" + provider + ":" + externalID
}

func (repo *fakeIdempotencyRepo) Begin(tenant, provider, externalID string) (*data.IdempotencyRecord, bool, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	if repo.beginErr != nil {
		return nil, false, repo.beginErr
	}
	key := idemKey(tenant, provider, externalID)
	if record, ok := repo.records[key]; ok {
		record.Attempts++
		record.LastSeenAt = time.Now()
		return record, true, nil
	}
	record, err := data.NewIdempotencyRecord(tenant, provider, externalID)
	if err != nil {
		return record, false, err
	}
	repo.records[key] = record
	return record, false, nil
}

func (repo *fakeIdempotencyRepo) MarkProcessed(tenant, provider, externalID string) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	record, ok := repo.records[idemKey(tenant, provider, externalID)]
	if !ok || record.FirstProcessedAt.Valid {
		return storage.ErrEventAlreadyProcessed
	}
	record.FirstProcessedAt.Valid = true
	record.FirstProcessedAt.Time = time.Now()
	return nil
}

func (repo *fakeIdempotencyRepo) Forget(tenant, provider, externalID string) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	key := idemKey(tenant, provider, externalID)
	if _, ok := repo.records[key]; !ok {
		return storage.ErrEventNotTracked
	}
	delete(repo.records, key)
	return nil
}

func (repo *fakeIdempotencyRepo) DeleteSeenBefore(threshold time.Time) (int64, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	var count int64
	for key, record := range repo.records {
		if record.LastSeenAt.Before(threshold) {
			delete(repo.records, key)
			count++
		}
	}
	return count, nil
}

type fakeGateway struct {
	mutex    sync.Mutex
	sendErr  error
	sent     []string
	sendWait chan struct{}
}

func (gateway *fakeGateway) Send(ctx context.Context, item *data.RecoveryItem, content string) error {
	if gateway.sendWait != nil {
		<-gateway.sendWait
	}
	gateway.mutex.Lock()
	defer gateway.mutex.Unlock()
	if gateway.sendErr != nil {
		return gateway.sendErr
	}
	gateway.sent = append(gateway.sent, content)
	return nil
}

func (gateway *fakeGateway) sentCount() int {
	gateway.mutex.Lock()
	defer gateway.mutex.Unlock()
	return len(gateway.sent)
}

type fakeDrafter struct {
	mutex      sync.Mutex
	draftErr   error
	content    string
	confidence float64
	calls      int
}

func (drafter *fakeDrafter) Draft(ctx context.Context, item *data.RecoveryItem, priorAttempts []*data.RecoveryAttempt) (string, float64, error) {
	drafter.mutex.Lock()
	defer drafter.mutex.Unlock()
	drafter.calls++
	if drafter.draftErr != nil {
		return "", 0, drafter.draftErr
	}
	return drafter.content, drafter.confidence, nil
}

var errFakeDownstream = errors.New("downstream failed")
