package data

import (
	"time"

	"github.com/rs/xid"
)

const (
	// AttemptMethodSMS is the method name recorded for text message outreach
	AttemptMethodSMS = "sms"
	// AttemptMethodReply is the method name recorded when a customer reply is interpreted
	AttemptMethodReply = "reply"
)

// RecoveryAttempt is the append-only record of one outreach try. It is never
// mutated after creation; the retry budget and state live on the item.
type RecoveryAttempt struct {
	BaseModel
	ItemID            xid.ID
	Tenant            string
	Method            string
	ContentRef        string
	Confidence        float64
	Success           bool
	CustomerEngaged   bool
	ComplianceBlocked bool
	AttemptedAt       time.Time
}

// QuickFix fixes the attempt state automatically as much as possible
func (attempt *RecoveryAttempt) QuickFix() bool {
	madeChanges := attempt.BaseModel.QuickFix()
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = attempt.CreatedAt
		madeChanges = true
	}
	if len(attempt.Method) == 0 {
		attempt.Method = AttemptMethodSMS
		madeChanges = true
	}
	return madeChanges
}

// IsInValidState returns false if the attempt does not reference an item or tenant
func (attempt *RecoveryAttempt) IsInValidState() bool {
	if attempt.ItemID.IsNil() || len(attempt.Tenant) == 0 || len(attempt.Method) == 0 {
		return false
	}
	return !attempt.AttemptedAt.IsZero()
}

// NewRecoveryAttempt creates the append-only record of one try against an item
func NewRecoveryAttempt(item *RecoveryItem, method string, contentRef string) (attempt *RecoveryAttempt, err error) {
	attempt = &RecoveryAttempt{Method: method, ContentRef: contentRef}
	if item != nil {
		attempt.ItemID = item.ID
		attempt.Tenant = item.Tenant
	}
	attempt.QuickFix()
	if !attempt.IsInValidState() {
		err = ErrInsufficientInformationForCreating
	}
	return attempt, err
}
