package storage

import (
	"database/sql"

	"github.com/tusharfilia/ottoai-backend/storage/data"
)

const (
	attemptSelectQuery = "SELECT id, itemId, tenant, method, contentRef, confidence, success, customerEngaged, complianceBlocked, attemptedAt, createdAt, updatedAt FROM recovery_attempt WHERE"
	attemptInsertQuery = "INSERT INTO recovery_attempt (id, itemId, tenant, method, contentRef, confidence, success, customerEngaged, complianceBlocked, attemptedAt, createdAt, updatedAt) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
)

// AttemptDBRepository is the AttemptRepository's RDBMS implementation
type AttemptDBRepository struct {
	db *sql.DB
}

// Store appends the attempt record; attempts are never updated once written
func (attemptRepo *AttemptDBRepository) Store(attempt *data.RecoveryAttempt) (*data.RecoveryAttempt, error) {
	if attempt == nil || !attempt.IsInValidState() {
		return attempt, ErrInvalidStateToSave
	}
	err := transactionalSingleRowWriteExec(attemptRepo.db, emptyOps, attemptInsertQuery,
		args2SliceFnWrapper(attempt.ID, attempt.ItemID, attempt.Tenant, attempt.Method, attempt.ContentRef, attempt.Confidence,
			attempt.Success, attempt.CustomerEngaged, attempt.ComplianceBlocked, attempt.AttemptedAt, attempt.CreatedAt, attempt.UpdatedAt))
	return attempt, err
}

// GetByItem retrieves all attempts for the case, oldest first
func (attemptRepo *AttemptDBRepository) GetByItem(itemID string) (attempts []*data.RecoveryAttempt, err error) {
	attempts = make([]*data.RecoveryAttempt, 0)
	scanArgs := func() []interface{} {
		attempt := &data.RecoveryAttempt{}
		attempts = append(attempts, attempt)
		return []interface{}{&attempt.ID, &attempt.ItemID, &attempt.Tenant, &attempt.Method, &attempt.ContentRef, &attempt.Confidence,
			&attempt.Success, &attempt.CustomerEngaged, &attempt.ComplianceBlocked, &attempt.AttemptedAt, &attempt.CreatedAt, &attempt.UpdatedAt}
	}
	err = queryRows(attemptRepo.db, attemptSelectQuery+" itemId like ? ORDER BY attemptedAt asc", args2SliceFnWrapper(itemID), scanArgs)
	return attempts, err
}

// DeleteByItem removes all attempts of the case; used by retention after archival
func (attemptRepo *AttemptDBRepository) DeleteByItem(itemID string) error {
	// Pass 0 expected row change since a case may have no attempts
	return transactionalWrites(attemptRepo.db, func(tx *sql.Tx) error {
		return inTransactionExec(tx, emptyOps, "DELETE FROM recovery_attempt WHERE itemId like ?", args2SliceFnWrapper(itemID), int64(0))
	})
}

// NewAttemptRepository creates a new instance of AttemptRepository
func NewAttemptRepository(db *sql.DB) AttemptRepository {
	panicIfNoDBConnectionPool(db)
	return &AttemptDBRepository{db: db}
}
