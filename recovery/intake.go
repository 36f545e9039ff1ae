package recovery

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/tusharfilia/ottoai-backend/storage"
	"github.com/tusharfilia/ottoai-backend/storage/data"
)

// InboundEvent is a provider-tagged missed-contact event arriving at the intake boundary
type InboundEvent struct {
	Tenant     string `json:"tenant"`
	Provider   string `json:"provider"`
	ExternalID string `json:"externalId"`
	ContactRef string `json:"contactRef"`
}

// Intake is the idempotent boundary between providers and the recovery queue.
// Every event passes the dedup ledger before any case is created; redelivered
// events are acknowledged without effect.
type Intake struct {
	idempotencyRepo storage.IdempotencyRepository
	itemRepo        storage.RecoveryItemRepository
	slaRepo         storage.TenantSLARepository
}

// Ingest records the event in the ledger and, on first sight, creates the
// recovery case with deadlines derived from the tenant's SLA. duplicate is
// true when the event key was seen before; the caller acknowledges those
// without any new case. A failure after the ledger insert forgets the key so
// the provider's redelivery gets a clean first sight.
func (intake *Intake) Ingest(ctx context.Context, event *InboundEvent) (item *data.RecoveryItem, duplicate bool, err error) {
	_, duplicate, err = intake.idempotencyRepo.Begin(event.Tenant, event.Provider, event.ExternalID)
	if err != nil || duplicate {
		return nil, duplicate, err
	}
	item, err = intake.createItem(event)
	if err == storage.ErrDuplicateRecoveryItem {
		// The ledger forgot this key (e.g., retention pruned it) but the case
		// survived; the unique key on the item keeps the intake idempotent
		return nil, true, nil
	}
	if err != nil {
		if forgetErr := intake.idempotencyRepo.Forget(event.Tenant, event.Provider, event.ExternalID); forgetErr != nil {
			log.Error().Err(forgetErr).Str("tenant", event.Tenant).Str("externalId", event.ExternalID).Msg("could not forget event key after intake failure")
		}
		return nil, false, err
	}
	if err = intake.idempotencyRepo.MarkProcessed(event.Tenant, event.Provider, event.ExternalID); err != nil {
		// The case exists; the unique key on the item backstops a redelivery
		log.Error().Err(err).Str("tenant", event.Tenant).Str("externalId", event.ExternalID).Msg("could not mark event processed")
		err = nil
	}
	return item, false, nil
}

func (intake *Intake) createItem(event *InboundEvent) (*data.RecoveryItem, error) {
	sla, err := intake.slaRepo.Get(event.Tenant)
	if err != nil {
		return nil, err
	}
	item, err := data.NewRecoveryItem(event.Tenant, event.Provider, event.ExternalID, event.ContactRef, sla)
	if err != nil {
		return nil, err
	}
	return intake.itemRepo.Store(item)
}

// NewIntake creates the intake boundary service
func NewIntake(idempotencyRepo storage.IdempotencyRepository, itemRepo storage.RecoveryItemRepository, slaRepo storage.TenantSLARepository) *Intake {
	return &Intake{idempotencyRepo: idempotencyRepo, itemRepo: itemRepo, slaRepo: slaRepo}
}
