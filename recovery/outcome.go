package recovery

import (
	"strconv"
	"time"
)

// OutcomeKind classifies the result of working an item once. Transitions are
// decided from the kind by ApplyOutcome, never from error values leaking out
// of the attempt pipeline.
type OutcomeKind int

const (
	// OutcomeMessageSent means outreach went out and the case now awaits a customer reply
	OutcomeMessageSent OutcomeKind = iota + 3000
	// OutcomeRecovered means the customer engaged and the case is resolved
	OutcomeRecovered
	// OutcomeEscalated means the case goes to a human with the recorded reason
	OutcomeEscalated
	// OutcomeRetry means a transient failure occurred and the case is rescheduled with backoff
	OutcomeRetry
	// OutcomeComplianceHold means outreach is not allowed right now and the case is rescheduled
	OutcomeComplianceHold
	// OutcomeFailed means the case is unprocessable
	OutcomeFailed
	// OutcomeSkipped means nothing was done, e.g., the case reached a terminal state concurrently
	OutcomeSkipped
	// OutcomeMessageSentStr is the string rep of OutcomeMessageSent
	OutcomeMessageSentStr = "MESSAGE_SENT"
	// OutcomeRecoveredStr is the string rep of OutcomeRecovered
	OutcomeRecoveredStr = "RECOVERED"
	// OutcomeEscalatedStr is the string rep of OutcomeEscalated
	OutcomeEscalatedStr = "ESCALATED"
	// OutcomeRetryStr is the string rep of OutcomeRetry
	OutcomeRetryStr = "RETRY"
	// OutcomeComplianceHoldStr is the string rep of OutcomeComplianceHold
	OutcomeComplianceHoldStr = "COMPLIANCE_HOLD"
	// OutcomeFailedStr is the string rep of OutcomeFailed
	OutcomeFailedStr = "FAILED"
	// OutcomeSkippedStr is the string rep of OutcomeSkipped
	OutcomeSkippedStr = "SKIPPED"
)

func (kind OutcomeKind) String() string {
	switch kind {
	case OutcomeMessageSent:
		return OutcomeMessageSentStr
	case OutcomeRecovered:
		return OutcomeRecoveredStr
	case OutcomeEscalated:
		return OutcomeEscalatedStr
	case OutcomeRetry:
		return OutcomeRetryStr
	case OutcomeComplianceHold:
		return OutcomeComplianceHoldStr
	case OutcomeFailed:
		return OutcomeFailedStr
	case OutcomeSkipped:
		return OutcomeSkippedStr
	default:
		return strconv.Itoa(int(kind))
	}
}

// Outcome is the explicit result of one pass over an item
type Outcome struct {
	Kind OutcomeKind
	// Reason is recorded on the item for escalated and failed outcomes
	Reason string
	// NextDelay is the reschedule delta for retry and compliance hold outcomes,
	// and the silent-customer follow-up delta when a message went out
	NextDelay time.Duration
}
