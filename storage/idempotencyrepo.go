package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/tusharfilia/ottoai-backend/storage/data"
)

const (
	idempotencySelectQuery = "SELECT tenant, provider, externalId, firstProcessedAt, lastSeenAt, attempts, createdAt FROM idempotency_key WHERE tenant like ? AND provider like ? AND externalId like ?"
	idempotencyInsertQuery = "INSERT INTO idempotency_key (tenant, provider, externalId, firstProcessedAt, lastSeenAt, attempts, createdAt) VALUES (?, ?, ?, NULL, ?, ?, ?)"
)

var (
	// ErrDuplicateEvent is returned internally when the event key row already exists in the ledger
	ErrDuplicateEvent = errors.New("event key already recorded in ledger")
	// ErrEventAlreadyProcessed is returned when MarkProcessed finds firstProcessedAt already stamped
	ErrEventAlreadyProcessed = errors.New("event already marked processed")
	// ErrEventNotTracked is returned when the ledger has no row for the event key
	ErrEventNotTracked = errors.New("event key not present in ledger")
	idempotencyErrorMap = map[uint16]error{
		mysqlDuplicateEntryErrNo: ErrDuplicateEvent,
	}
)

// IdempotencyDBRepository is the IdempotencyRepository's RDBMS implementation
type IdempotencyDBRepository struct {
	db *sql.DB
}

// Get loads the ledger row for the event key; ErrEventNotTracked if none exists
func (idemRepo *IdempotencyDBRepository) Get(tenant, provider, externalID string) (record *data.IdempotencyRecord, err error) {
	record = &data.IdempotencyRecord{}
	err = querySingleRow(idemRepo.db, idempotencySelectQuery, args2SliceFnWrapper(tenant, provider, externalID),
		args2SliceFnWrapper(&record.Tenant, &record.Provider, &record.ExternalID, &record.FirstProcessedAt, &record.LastSeenAt, &record.Attempts, &record.CreatedAt))
	if err == sql.ErrNoRows {
		err = ErrEventNotTracked
	}
	return record, err
}

// Begin records that the event key was seen. Insert is attempted first; a
// duplicate key means the row pre-existed, so the row's attempts and
// lastSeenAt are bumped and duplicate is reported as true. The row existing
// is what makes an event a duplicate, not its processing having completed,
// so a concurrent delivery of an in-flight event is suppressed too.
func (idemRepo *IdempotencyDBRepository) Begin(tenant, provider, externalID string) (record *data.IdempotencyRecord, duplicate bool, err error) {
	record, err = data.NewIdempotencyRecord(tenant, provider, externalID)
	if err != nil {
		return record, false, err
	}
	insertErr := normalizeDBError(transactionalSingleRowWriteExec(idemRepo.db, emptyOps, idempotencyInsertQuery,
		args2SliceFnWrapper(record.Tenant, record.Provider, record.ExternalID, record.LastSeenAt, record.Attempts, record.CreatedAt)), idempotencyErrorMap)
	if insertErr == nil {
		return record, false, nil
	}
	if insertErr != ErrDuplicateEvent {
		return record, false, insertErr
	}
	err = transactionalSingleRowWriteExec(idemRepo.db, emptyOps,
		"UPDATE idempotency_key SET attempts = attempts + 1, lastSeenAt = ? WHERE tenant like ? AND provider like ? AND externalId like ?",
		args2SliceFnWrapper(time.Now(), tenant, provider, externalID))
	if err == nil {
		record, err = idemRepo.Get(tenant, provider, externalID)
	}
	return record, true, err
}

// MarkProcessed stamps firstProcessedAt; the IS NULL guard makes the stamp
// happen exactly once across racing workers
func (idemRepo *IdempotencyDBRepository) MarkProcessed(tenant, provider, externalID string) (err error) {
	err = transactionalSingleRowWriteExec(idemRepo.db, emptyOps,
		"UPDATE idempotency_key SET firstProcessedAt = ? WHERE tenant like ? AND provider like ? AND externalId like ? AND firstProcessedAt IS NULL",
		args2SliceFnWrapper(time.Now(), tenant, provider, externalID))
	if err == ErrNoRowsUpdated {
		err = ErrEventAlreadyProcessed
	}
	return err
}

// Forget removes the ledger row so a later delivery of the event key is
// treated as first sight; used when the first-sight handler failed
func (idemRepo *IdempotencyDBRepository) Forget(tenant, provider, externalID string) (err error) {
	err = transactionalSingleRowWriteExec(idemRepo.db, emptyOps,
		"DELETE FROM idempotency_key WHERE tenant like ? AND provider like ? AND externalId like ?",
		args2SliceFnWrapper(tenant, provider, externalID))
	if err == ErrNoRowsUpdated {
		err = ErrEventNotTracked
	}
	return err
}

// DeleteSeenBefore removes ledger rows last seen before the threshold and returns the count removed
func (idemRepo *IdempotencyDBRepository) DeleteSeenBefore(threshold time.Time) (count int64, err error) {
	var result sql.Result
	result, err = idemRepo.db.Exec("DELETE FROM idempotency_key WHERE lastSeenAt < ?", threshold)
	if err == nil {
		count, err = result.RowsAffected()
	}
	return count, err
}

// NewIdempotencyRepository creates a new instance of IdempotencyRepository
func NewIdempotencyRepository(db *sql.DB) IdempotencyRepository {
	panicIfNoDBConnectionPool(db)
	return &IdempotencyDBRepository{db: db}
}
