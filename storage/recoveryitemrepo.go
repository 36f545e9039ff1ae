package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tusharfilia/ottoai-backend/storage/data"
)

const (
	itemCommonSelectQuery = "SELECT id, tenant, provider, externalId, contactRef, status, statusChangedAt, slaDeadline, escalationDeadline, retryCount, maxRetries, lastAttemptAt, nextAttemptAt, optedOut, escalationReason, createdAt, updatedAt FROM recovery_item WHERE"
	itemInsertQuery       = "INSERT INTO recovery_item (id, tenant, provider, externalId, contactRef, status, statusChangedAt, slaDeadline, escalationDeadline, retryCount, maxRetries, lastAttemptAt, nextAttemptAt, optedOut, escalationReason, createdAt, updatedAt) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
)

var (
	// ErrDuplicateRecoveryItem is returned when an item for the originating event already exists
	ErrDuplicateRecoveryItem = errors.New("recovery item already exists for event")
	// ErrRecoveryItemNotFound is returned when no item matches the tenant and id
	ErrRecoveryItemNotFound = errors.New("recovery item not found")
	recoveryItemErrorMap    = map[uint16]error{
		mysqlDuplicateEntryErrNo: ErrDuplicateRecoveryItem,
	}
	nonTerminalStatuses = []data.RecoveryItemStatus{data.RecoveryQueued, data.RecoveryProcessing, data.RecoveryAwaitingReply}
)

// RecoveryItemDBRepository is the RecoveryItemRepository's RDBMS implementation
type RecoveryItemDBRepository struct {
	db *sql.DB
}

// Store saves a new recovery case; a unique key on (tenant, provider,
// externalId) backstops the dedup ledger against double creation
func (itemRepo *RecoveryItemDBRepository) Store(item *data.RecoveryItem) (*data.RecoveryItem, error) {
	if item == nil || !item.IsInValidState() {
		return item, ErrInvalidStateToSave
	}
	err := normalizeDBError(transactionalSingleRowWriteExec(itemRepo.db, emptyOps, itemInsertQuery,
		args2SliceFnWrapper(item.ID, item.Tenant, item.Provider, item.ExternalID, item.ContactRef, item.Status, item.StatusChangedAt,
			item.SLADeadline, item.EscalationDeadline, item.RetryCount, item.MaxRetries, item.LastAttemptAt, item.NextAttemptAt,
			item.OptedOut, item.EscalationReason, item.CreatedAt, item.UpdatedAt)), recoveryItemErrorMap)
	return item, err
}

func scanItemArgs(item *data.RecoveryItem) []interface{} {
	return []interface{}{&item.ID, &item.Tenant, &item.Provider, &item.ExternalID, &item.ContactRef, &item.Status, &item.StatusChangedAt,
		&item.SLADeadline, &item.EscalationDeadline, &item.RetryCount, &item.MaxRetries, &item.LastAttemptAt, &item.NextAttemptAt,
		&item.OptedOut, &item.EscalationReason, &item.CreatedAt, &item.UpdatedAt}
}

// Get loads the recovery case with the specified tenant and id if it exists, else returns an error
func (itemRepo *RecoveryItemDBRepository) Get(tenant string, id string) (item *data.RecoveryItem, err error) {
	item = &data.RecoveryItem{}
	err = querySingleRow(itemRepo.db, itemCommonSelectQuery+" tenant like ? AND id like ?", args2SliceFnWrapper(tenant, id),
		func() []interface{} { return scanItemArgs(item) })
	if err == sql.ErrNoRows {
		err = ErrRecoveryItemNotFound
	}
	return item, err
}

func statusInClause(froms []data.RecoveryItemStatus) (clause string, args []interface{}) {
	clause = "status IN ("
	for index, from := range froms {
		if index > 0 {
			clause = clause + ", "
		}
		clause = clause + "?"
		args = append(args, from)
	}
	clause = clause + ")"
	return clause, args
}

// updateItemStatus is the single mutation path for status transitions; the
// status guard in the WHERE clause makes every transition optimistic so a
// stale caller gets ErrNoRowsUpdated instead of clobbering a newer state
func (itemRepo *RecoveryItemDBRepository) updateItemStatus(item *data.RecoveryItem, froms []data.RecoveryItemStatus, to data.RecoveryItemStatus, reason string) (err error) {
	currentTime := time.Now()
	statusClause, statusArgs := statusInClause(froms)
	args := []interface{}{to, currentTime, currentTime, reason, item.ID}
	args = append(args, statusArgs...)
	err = transactionalSingleRowWriteExec(itemRepo.db, emptyOps,
		"UPDATE recovery_item SET status = ?, statusChangedAt = ?, updatedAt = ?, escalationReason = ? WHERE id like ? AND "+statusClause,
		args2SliceFnWrapper(args...))
	if err == nil {
		item.Status = to
		item.StatusChangedAt = currentTime
		item.UpdatedAt = currentTime
		item.EscalationReason = reason
	}
	return err
}

// MarkProcessing sets the status to Processing if the case is currently queued or awaiting a reply; else returns error
func (itemRepo *RecoveryItemDBRepository) MarkProcessing(item *data.RecoveryItem) error {
	return itemRepo.updateItemStatus(item, []data.RecoveryItemStatus{data.RecoveryQueued, data.RecoveryAwaitingReply}, data.RecoveryProcessing, item.EscalationReason)
}

// MarkAwaitingReply sets the status to AwaitingReply if the case is currently
// processing; else returns error. The next attempt is scheduled after the
// supplied delta so a silent customer gets a follow-up nudge instead of the
// case re-entering the sweep immediately
func (itemRepo *RecoveryItemDBRepository) MarkAwaitingReply(item *data.RecoveryItem, nextAttemptDelta time.Duration) (err error) {
	currentTime := time.Now()
	nextTime := currentTime.Add(nextAttemptDelta)
	err = transactionalSingleRowWriteExec(itemRepo.db, emptyOps,
		"UPDATE recovery_item SET status = ?, statusChangedAt = ?, updatedAt = ?, lastAttemptAt = ?, nextAttemptAt = ? WHERE id like ? AND status like ?",
		args2SliceFnWrapper(data.RecoveryAwaitingReply, currentTime, currentTime, currentTime, nextTime, item.ID, data.RecoveryProcessing))
	if err == nil {
		item.Status = data.RecoveryAwaitingReply
		item.StatusChangedAt = currentTime
		item.UpdatedAt = currentTime
		item.LastAttemptAt = currentTime
		item.NextAttemptAt = nextTime
	}
	return err
}

// MarkRecovered sets the status to Recovered if the case is currently processing or awaiting a reply; else returns error
func (itemRepo *RecoveryItemDBRepository) MarkRecovered(item *data.RecoveryItem) error {
	return itemRepo.updateItemStatus(item, []data.RecoveryItemStatus{data.RecoveryProcessing, data.RecoveryAwaitingReply}, data.RecoveryRecovered, item.EscalationReason)
}

// MarkEscalated sets the status to Escalated from any non-terminal state recording the reason; else returns error
func (itemRepo *RecoveryItemDBRepository) MarkEscalated(item *data.RecoveryItem, reason string) error {
	return itemRepo.updateItemStatus(item, nonTerminalStatuses, data.RecoveryEscalated, reason)
}

// MarkFailed sets the status to Failed from any non-terminal state recording the reason; else returns error
func (itemRepo *RecoveryItemDBRepository) MarkFailed(item *data.RecoveryItem, reason string) error {
	return itemRepo.updateItemStatus(item, nonTerminalStatuses, data.RecoveryFailed, reason)
}

// MarkRetry increases the retry count, schedules the next attempt after the
// supplied delta and returns the case to the supplied prior status if it is
// currently processing; else returns error
func (itemRepo *RecoveryItemDBRepository) MarkRetry(item *data.RecoveryItem, returnTo data.RecoveryItemStatus, nextAttemptDelta time.Duration) (err error) {
	currentTime := time.Now()
	nextTime := currentTime.Add(nextAttemptDelta)
	err = transactionalSingleRowWriteExec(itemRepo.db, emptyOps,
		"UPDATE recovery_item SET status = ?, statusChangedAt = ?, updatedAt = ?, lastAttemptAt = ?, nextAttemptAt = ?, retryCount = ? WHERE id like ? AND status like ?",
		args2SliceFnWrapper(returnTo, currentTime, currentTime, currentTime, nextTime, item.RetryCount+1, item.ID, data.RecoveryProcessing))
	if err == nil {
		item.Status = returnTo
		item.StatusChangedAt = currentTime
		item.UpdatedAt = currentTime
		item.LastAttemptAt = currentTime
		item.NextAttemptAt = nextTime
		item.RetryCount = item.RetryCount + 1
	}
	return err
}

// SetOptedOut flags the contact as opted out of further outreach
func (itemRepo *RecoveryItemDBRepository) SetOptedOut(item *data.RecoveryItem) (err error) {
	currentTime := time.Now()
	err = transactionalSingleRowWriteExec(itemRepo.db, emptyOps,
		"UPDATE recovery_item SET optedOut = ?, updatedAt = ? WHERE id like ?",
		args2SliceFnWrapper(true, currentTime, item.ID))
	if err == nil {
		item.OptedOut = true
		item.UpdatedAt = currentTime
	}
	return err
}

func (itemRepo *RecoveryItemDBRepository) getItems(baseQuery string, args []interface{}) (items []*data.RecoveryItem, err error) {
	items = make([]*data.RecoveryItem, 0)
	scanArgs := func() []interface{} {
		item := &data.RecoveryItem{}
		items = append(items, item)
		return scanItemArgs(item)
	}
	err = queryRows(itemRepo.db, baseQuery, args2SliceFnWrapper(args...), scanArgs)
	return items, err
}

// GetItemsDue retrieves queued and awaiting-reply cases whose next attempt
// time has arrived and that still have retry budget left, oldest first. An
// awaiting-reply case matching here means the customer stayed silent past the
// follow-up time
func (itemRepo *RecoveryItemDBRepository) GetItemsDue(limit int) ([]*data.RecoveryItem, error) {
	statusClause, statusArgs := statusInClause([]data.RecoveryItemStatus{data.RecoveryQueued, data.RecoveryAwaitingReply})
	baseQuery := itemCommonSelectQuery + " " + statusClause + " AND nextAttemptAt <= ? AND retryCount < maxRetries ORDER BY nextAttemptAt asc" + fmt.Sprintf(" LIMIT %d", limit)
	args := append(statusArgs, time.Now())
	return itemRepo.getItems(baseQuery, args)
}

// GetItemsPastDeadline retrieves non-terminal cases past either the SLA or
// the escalation deadline, most overdue first
func (itemRepo *RecoveryItemDBRepository) GetItemsPastDeadline(limit int) ([]*data.RecoveryItem, error) {
	statusClause, statusArgs := statusInClause(nonTerminalStatuses)
	baseQuery := itemCommonSelectQuery + " " + statusClause + " AND (slaDeadline <= ? OR escalationDeadline <= ?) ORDER BY slaDeadline asc" + fmt.Sprintf(" LIMIT %d", limit)
	currentTime := time.Now()
	args := append(statusArgs, currentTime, currentTime)
	return itemRepo.getItems(baseQuery, args)
}

// GetTerminalBefore retrieves terminal cases whose status changed before the threshold; used by retention
func (itemRepo *RecoveryItemDBRepository) GetTerminalBefore(threshold time.Time, limit int) ([]*data.RecoveryItem, error) {
	statusClause, statusArgs := statusInClause([]data.RecoveryItemStatus{data.RecoveryRecovered, data.RecoveryEscalated, data.RecoveryFailed})
	baseQuery := itemCommonSelectQuery + " " + statusClause + " AND statusChangedAt < ? ORDER BY statusChangedAt asc" + fmt.Sprintf(" LIMIT %d", limit)
	args := append(statusArgs, threshold)
	return itemRepo.getItems(baseQuery, args)
}

// Delete removes the case row; used by retention after archival
func (itemRepo *RecoveryItemDBRepository) Delete(item *data.RecoveryItem) error {
	return transactionalSingleRowWriteExec(itemRepo.db, emptyOps, "DELETE FROM recovery_item WHERE id like ?", args2SliceFnWrapper(item.ID))
}

type statusCount struct {
	status data.RecoveryItemStatus
	count  int64
}

// CountByStatus returns the number of cases per status
func (itemRepo *RecoveryItemDBRepository) CountByStatus() (counts map[data.RecoveryItemStatus]int64, err error) {
	rows := make([]*statusCount, 0)
	scanArgs := func() []interface{} {
		row := &statusCount{}
		rows = append(rows, row)
		return []interface{}{&row.status, &row.count}
	}
	err = queryRows(itemRepo.db, "SELECT status, COUNT(id) FROM recovery_item GROUP BY status", nilArgs, scanArgs)
	counts = make(map[data.RecoveryItemStatus]int64)
	if err == nil {
		for _, row := range rows {
			counts[row.status] = row.count
		}
	}
	return counts, err
}

// CountSLAViolations returns the number of non-terminal cases already past their SLA deadline
func (itemRepo *RecoveryItemDBRepository) CountSLAViolations() (count int64, err error) {
	statusClause, statusArgs := statusInClause(nonTerminalStatuses)
	args := append(statusArgs, time.Now())
	err = querySingleRow(itemRepo.db, "SELECT COUNT(id) FROM recovery_item WHERE "+statusClause+" AND slaDeadline <= ?",
		args2SliceFnWrapper(args...), args2SliceFnWrapper(&count))
	return count, err
}

// NewRecoveryItemRepository creates a new instance of RecoveryItemRepository
func NewRecoveryItemRepository(db *sql.DB) RecoveryItemRepository {
	panicIfNoDBConnectionPool(db)
	return &RecoveryItemDBRepository{db: db}
}
