package recovery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/tusharfilia/ottoai-backend/storage/data"
)

type intakeFixture struct {
	idempotencyRepo *fakeIdempotencyRepo
	itemRepo        *fakeItemRepo
	slaRepo         *fakeSLARepo
	intake          *Intake
}

func newIntakeFixture() *intakeFixture {
	fixture := &intakeFixture{
		idempotencyRepo: newFakeIdempotencyRepo(),
		itemRepo:        newFakeItemRepo(),
		slaRepo:         newFakeSLARepo(),
	}
	fixture.intake = NewIntake(fixture.idempotencyRepo, fixture.itemRepo, fixture.slaRepo)
	return fixture
}

func getInboundEvent() *InboundEvent {
	return &InboundEvent{Tenant: "tenant-1", Provider: "twilio", ExternalID: xid.New().String(), ContactRef: "+15550001111"}
}

func TestIngest_FirstSight(t *testing.T) {
	fixture := newIntakeFixture()
	event := getInboundEvent()
	item, duplicate, err := fixture.intake.Ingest(context.Background(), event)
	assert.Nil(t, err)
	assert.False(t, duplicate)
	assert.Equal(t, data.RecoveryQueued, item.Status)
	assert.Equal(t, event.Tenant, item.Tenant)
	assert.Equal(t, event.ContactRef, item.ContactRef)
	// Deadlines come from the tenant SLA relative to creation
	assert.Equal(t, item.CreatedAt.Add(30*time.Minute), item.SLADeadline)
	assert.Equal(t, item.CreatedAt.Add(4*time.Hour), item.EscalationDeadline)
	assert.Equal(t, uint(3), item.MaxRetries)
	// The event key is stamped processed, so a second stamp is rejected
	assert.NotNil(t, fixture.idempotencyRepo.MarkProcessed(event.Tenant, event.Provider, event.ExternalID))
}

func TestIngest_Duplicate(t *testing.T) {
	fixture := newIntakeFixture()
	event := getInboundEvent()
	_, duplicate, err := fixture.intake.Ingest(context.Background(), event)
	assert.Nil(t, err)
	assert.False(t, duplicate)
	item, duplicate, err := fixture.intake.Ingest(context.Background(), event)
	assert.Nil(t, err)
	assert.True(t, duplicate)
	assert.Nil(t, item)
	counts, _ := fixture.itemRepo.CountByStatus()
	assert.Equal(t, int64(1), counts[data.RecoveryQueued])
}

func TestIngest_DuplicateStorm(t *testing.T) {
	fixture := newIntakeFixture()
	event := getInboundEvent()
	var wg sync.WaitGroup
	var firstSights int
	var mutex sync.Mutex
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, duplicate, err := fixture.intake.Ingest(context.Background(), event)
			assert.Nil(t, err)
			if !duplicate {
				mutex.Lock()
				firstSights++
				mutex.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, firstSights)
	counts, _ := fixture.itemRepo.CountByStatus()
	assert.Equal(t, int64(1), counts[data.RecoveryQueued])
}

func TestIngest_CreateFailureForgetsKey(t *testing.T) {
	fixture := newIntakeFixture()
	fixture.itemRepo.storeErr = errFakeDownstream
	event := getInboundEvent()
	_, duplicate, err := fixture.intake.Ingest(context.Background(), event)
	assert.Equal(t, errFakeDownstream, err)
	assert.False(t, duplicate)
	// The redelivery is a clean first sight
	fixture.itemRepo.storeErr = nil
	item, duplicate, err := fixture.intake.Ingest(context.Background(), event)
	assert.Nil(t, err)
	assert.False(t, duplicate)
	assert.NotNil(t, item)
}

func TestIngest_MalformedEvent(t *testing.T) {
	fixture := newIntakeFixture()
	event := getInboundEvent()
	event.ContactRef = ""
	_, duplicate, err := fixture.intake.Ingest(context.Background(), event)
	assert.Equal(t, data.ErrInsufficientInformationForCreating, err)
	assert.False(t, duplicate)
	counts, _ := fixture.itemRepo.CountByStatus()
	assert.Equal(t, int64(0), counts[data.RecoveryQueued])
}

func TestIngest_LedgerErrorPropagates(t *testing.T) {
	fixture := newIntakeFixture()
	fixture.idempotencyRepo.beginErr = errFakeDownstream
	_, duplicate, err := fixture.intake.Ingest(context.Background(), getInboundEvent())
	assert.Equal(t, errFakeDownstream, err)
	assert.False(t, duplicate)
}

func TestIngest_PrunedLedgerSurvivingItem(t *testing.T) {
	fixture := newIntakeFixture()
	event := getInboundEvent()
	_, _, err := fixture.intake.Ingest(context.Background(), event)
	assert.Nil(t, err)
	// Retention pruned the ledger row, the case survived
	_, err = fixture.idempotencyRepo.DeleteSeenBefore(time.Now().Add(time.Second))
	assert.Nil(t, err)
	item, duplicate, err := fixture.intake.Ingest(context.Background(), event)
	assert.Nil(t, err)
	assert.True(t, duplicate)
	assert.Nil(t, item)
	counts, _ := fixture.itemRepo.CountByStatus()
	assert.Equal(t, int64(1), counts[data.RecoveryQueued])
}
