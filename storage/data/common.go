package data

import (
	"errors"
	"time"

	"github.com/rs/xid"
)

var (
	// ErrInsufficientInformationForCreating is returned when a model constructor is called with insufficient information
	ErrInsufficientInformationForCreating = errors.New("necessary information missing for persistence")
)

// BaseModel provides the common identity and audit fields of persisted entities
type BaseModel struct {
	ID        xid.ID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// QuickFix fixes the base model's attributes as much as possible
func (base *BaseModel) QuickFix() bool {
	madeChanges := false
	if base.ID.IsNil() {
		base.ID = xid.New()
		madeChanges = true
	}
	if base.CreatedAt.IsZero() {
		base.CreatedAt = time.Now()
		madeChanges = true
	}
	if base.UpdatedAt.IsZero() {
		base.UpdatedAt = time.Now()
		madeChanges = true
	}
	return madeChanges
}

// ValidateableModel model supporting this can be checked for valid state before write ops. Also allows for quick fix to be applied
type ValidateableModel interface {
	QuickFix() bool
	IsInValidState() bool
}
