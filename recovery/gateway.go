package recovery

import (
	"context"

	"github.com/tusharfilia/ottoai-backend/storage/data"
)

const (
	// ServiceSMSGateway is the breaker name for the outbound message transport
	ServiceSMSGateway = "sms-gateway"
	// ServiceAIDrafter is the breaker name for the response drafting service
	ServiceAIDrafter = "ai-drafter"
)

// MessageGateway sends outreach messages to the customer's contact reference
type MessageGateway interface {
	Send(ctx context.Context, item *data.RecoveryItem, content string) error
}

// ResponseDrafter produces the outreach content for an item, given the
// attempts already made, along with the drafter's confidence in it
type ResponseDrafter interface {
	Draft(ctx context.Context, item *data.RecoveryItem, priorAttempts []*data.RecoveryAttempt) (content string, confidence float64, err error)
}

// ReplySignal is the interpreted customer reply handed to HandleReply
type ReplySignal struct {
	// Confidence is the interpreter's confidence that the reply resolves the case
	Confidence float64 `json:"confidence"`
	// Negative indicates the customer declined or reacted negatively
	Negative bool `json:"negative"`
	// OptOut indicates the customer asked to stop being contacted
	OptOut bool `json:"optOut"`
	// ContentRef references the stored reply content
	ContentRef string `json:"contentRef"`
}
